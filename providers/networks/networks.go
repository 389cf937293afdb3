package networks

import (
	"net/url"

	"rewmo/providers"
)

func init() {
	providers.RegisterNetwork("impact", providers.QueryParamBuilder{Param: "subId1"})
	providers.RegisterNetwork("cj", providers.QueryParamBuilder{Param: "sid"})
	providers.RegisterNetwork("awin", providers.QueryParamBuilder{Param: "clickref"})
	providers.RegisterNetwork("shareasale", providers.QueryParamBuilder{Param: "afftrack"})
	providers.RegisterNetwork("rakuten", &Rakuten{})
}

// Rakuten deep links wrap the destination in a click URL: the retailer
// address goes in murl and the SubID in u1.
type Rakuten struct {
	ClickBase string
}

func (r *Rakuten) BuildLink(req providers.LinkRequest) (string, error) {
	dest, err := providers.ParseDestination(req.Destination)
	if err != nil {
		return "", err
	}
	base := r.ClickBase
	if base == "" {
		base = "https://click.linksynergy.com/deeplink"
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("mid", req.RetailerID)
	q.Set("murl", dest.String())
	q.Set("u1", req.SubID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
