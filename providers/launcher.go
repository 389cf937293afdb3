package providers

import (
	"errors"
	"net/url"
	"strings"
)

type LinkRequest struct {
	RetailerID  string `json:"retailer_id"`
	Destination string `json:"url"`
	SubID       string `json:"sub_id"`
}

// LinkBuilder turns a retailer destination into a network tracking URL that
// carries the SubID in the parameter the network echoes back in reports.
type LinkBuilder interface {
	BuildLink(req LinkRequest) (string, error)
}

var NetworkBuilders = map[string]LinkBuilder{}

func RegisterNetwork(name string, builder LinkBuilder) {
	NetworkBuilders[strings.ToLower(name)] = builder
}

// GetNetwork falls back to the generic builder for unknown networks.
func GetNetwork(name string) LinkBuilder {
	if b, ok := NetworkBuilders[strings.ToLower(strings.TrimSpace(name))]; ok {
		return b
	}
	return QueryParamBuilder{Param: "subid"}
}

var ErrInvalidDestination = errors.New("destination must be an absolute http(s) url")

// QueryParamBuilder appends the SubID to the destination as a query parameter.
type QueryParamBuilder struct {
	Param string
}

func (b QueryParamBuilder) BuildLink(req LinkRequest) (string, error) {
	u, err := ParseDestination(req.Destination)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(b.Param, req.SubID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseDestination only accepts absolute http(s) URLs.
func ParseDestination(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidDestination
	}
	return u, nil
}
