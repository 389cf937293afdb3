package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// FeedClient pulls earnings reports from network reporting endpoints for
// operator-triggered staging.
type FeedClient struct {
	client  *http.Client
	urls    map[string]string
	apiKeys map[string]string
}

func NewFeedClient(urls, apiKeys map[string]string, timeout time.Duration) *FeedClient {
	return &FeedClient{
		client:  &http.Client{Timeout: timeout},
		urls:    urls,
		apiKeys: apiKeys,
	}
}

type feedResponse struct {
	Rows  []FeedRow `json:"rows"`
	Error struct {
		ID  int    `json:"id"`
		Msg string `json:"msg"`
	} `json:"error"`
}

func (f *FeedClient) Fetch(ctx context.Context, network string, from, to time.Time) ([]FeedRow, error) {
	network = normalizeNetwork(network)
	url, ok := f.urls[network]
	if !ok || url == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeed, network)
	}

	payload := map[string]any{
		"network":   network,
		"startDate": from.UTC().Format(time.RFC3339),
		"endDate":   to.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := f.apiKeys[network]; key != "" {
		req.Header.Set("X-Api-Key", key)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", network, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s feed: status %s", network, resp.Status)
	}

	var result feedResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode %s feed: %w", network, err)
	}
	if result.Error.ID != 0 {
		return nil, fmt.Errorf("%s feed error: %s", network, result.Error.Msg)
	}

	log.Printf("📥 fetched %d rows from %s feed (%s → %s)", len(result.Rows), network, from.Format(time.DateOnly), to.Format(time.DateOnly))
	return result.Rows, nil
}
