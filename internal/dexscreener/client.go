// Package dexscreener fetches pair metadata and filtered pair listings.
// Both endpoints are unsigned.
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pumpwatch/internal/model"
)

const (
	service = "dexscreener"

	DefaultBaseURL = "https://api.dexscreener.com"
	DefaultChain   = "solana"
	DefaultTimeout = 15 * time.Second

	// DefaultListingURL lists Solana pairs above a 2M market cap.
	DefaultListingURL = "https://dexscreen-scraper-delta.vercel.app/dex?generated_text=%26filters%5BmarketCap%5D%5Bmin%5D%3D2000000%26filters%5BchainIds%5D%5B0%5D%3Dsolana"
)

// Client implements model.PairSource and model.ListingSource.
type Client struct {
	baseURL    string
	chain      string
	listingURL string
	client     *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the pair lookup API root.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithChain selects the chain segment of the pair lookup path.
func WithChain(chain string) ClientOption {
	return func(c *Client) {
		c.chain = chain
	}
}

// WithListingURL overrides the listing endpoint.
func WithListingURL(u string) ClientOption {
	return func(c *Client) {
		c.listingURL = u
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		chain:      DefaultChain,
		listingURL: DefaultListingURL,
		client:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pairResponse struct {
	SchemaVersion string              `json:"schemaVersion"`
	Pair          *model.PairSnapshot `json:"pair"`
}

type listingResponse struct {
	Data []model.ListingEntry `json:"data"`
}

// FetchPair looks up one pair. Returns nil, nil when the pair is unknown.
func (c *Client) FetchPair(ctx context.Context, pairAddress string) (*model.PairSnapshot, error) {
	u := fmt.Sprintf("%s/latest/dex/pairs/%s/%s", c.baseURL, c.chain, url.PathEscape(pairAddress))

	raw, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp pairResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &model.DataShapeError{Service: service, Detail: "pair: " + err.Error()}
	}
	if resp.Pair == nil || resp.Pair.PairAddress == "" {
		log.Printf("[dexscreener] pair not found: %s", pairAddress)
		return nil, nil
	}
	return resp.Pair, nil
}

// FetchListing returns the raw listing rows. Filtering is left to FilterListing.
func (c *Client) FetchListing(ctx context.Context) ([]model.ListingEntry, error) {
	raw, err := c.get(ctx, c.listingURL)
	if err != nil {
		return nil, err
	}

	var resp listingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &model.DataShapeError{Service: service, Detail: "listing: " + err.Error()}
	}
	if resp.Data == nil {
		return nil, &model.DataShapeError{Service: service, Detail: "listing: missing data array"}
	}
	return resp.Data, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &model.UpstreamHTTPError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.UpstreamHTTPError{Service: service, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.UpstreamHTTPError{Service: service, Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
