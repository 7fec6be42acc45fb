// Package okx is a signed client for the OKX DEX market-data API.
package okx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pumpwatch/internal/model"
)

const (
	service = "okx"

	DefaultBaseURL    = "https://web3.okx.com"
	DefaultChainIndex = "501"
	DefaultTimeout    = 15 * time.Second

	candlesPath = "/api/v5/dex/market/candles"
	pricePath   = "/api/v5/dex/market/price"
)

// Credentials authenticate every request. All three are required.
type Credentials struct {
	APIKey     string
	SecretKey  string
	Passphrase string
}

func (c Credentials) missing() []string {
	var out []string
	if c.APIKey == "" {
		out = append(out, "OK_ACCESS_KEY")
	}
	if c.SecretKey == "" {
		out = append(out, "OK_ACCESS_SECRET")
	}
	if c.Passphrase == "" {
		out = append(out, "OK_ACCESS_PASSPHRASE")
	}
	return out
}

// Client implements model.CandleSource and model.MarketSnapshotSource.
type Client struct {
	creds      Credentials
	baseURL    string
	chainIndex string
	client     *http.Client
	now        func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithChainIndex selects the chain (501 is Solana).
func WithChainIndex(idx string) ClientOption {
	return func(c *Client) {
		c.chainIndex = idx
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithClock overrides the signing clock.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a client. Missing credentials are not rejected here;
// every call fails with a ConfigurationError before touching the network.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		creds:      creds,
		baseURL:    DefaultBaseURL,
		chainIndex: DefaultChainIndex,
		client:     &http.Client{Timeout: DefaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the venue's standard response wrapper.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// FetchCandles returns up to limit candles in ascending time order.
// The venue answers most-recent-first; rows are reversed here.
func (c *Client) FetchCandles(ctx context.Context, tokenAddress string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("chainIndex", c.chainIndex)
	q.Set("tokenContractAddress", tokenAddress)
	q.Set("bar", string(tf))
	q.Set("limit", strconv.Itoa(limit))

	data, err := c.do(ctx, http.MethodGet, candlesPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if isEmpty(data) {
		return []model.Candle{}, nil
	}

	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &model.DataShapeError{Service: service, Detail: "candles: " + err.Error()}
	}

	candles := make([]model.Candle, len(rows))
	for i, row := range rows {
		cd, err := parseCandle(row)
		if err != nil {
			return nil, &model.DataShapeError{Service: service, Detail: fmt.Sprintf("candle row %d: %v", i, err)}
		}
		candles[len(rows)-1-i] = cd
	}
	return candles, nil
}

// FetchMarketSnapshot looks up price and market cap for a batch of tokens.
// Batch sizing is the caller's concern.
func (c *Client) FetchMarketSnapshot(ctx context.Context, tokenAddresses []string) ([]model.MarketData, error) {
	type item struct {
		ChainIndex           string `json:"chainIndex"`
		TokenContractAddress string `json:"tokenContractAddress"`
	}
	payload := make([]item, len(tokenAddresses))
	for i, addr := range tokenAddresses {
		payload[i] = item{ChainIndex: c.chainIndex, TokenContractAddress: addr}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, pricePath, body)
	if err != nil {
		return nil, err
	}
	if isEmpty(data) {
		return []model.MarketData{}, nil
	}

	var out []model.MarketData
	if err := json.Unmarshal(data, &out); err != nil {
		// A non-array data field is treated like a missing one.
		log.Printf("[okx] market snapshot: data is not an array: %v", err)
		return []model.MarketData{}, nil
	}
	return out, nil
}

// do signs and sends one request and unwraps the envelope.
func (c *Client) do(ctx context.Context, method, requestPath string, body []byte) (json.RawMessage, error) {
	if missing := c.creds.missing(); len(missing) > 0 {
		return nil, &model.ConfigurationError{Missing: missing}
	}

	ts := Timestamp(c.now())
	sig := Sign(c.creds.SecretKey, ts, method, requestPath, string(body))

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("OK-ACCESS-KEY", c.creds.APIKey)
	req.Header.Set("OK-ACCESS-SIGN", sig)
	req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.creds.Passphrase)
	req.Header.Set("Content-Type", "application/json")

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

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &model.DataShapeError{Service: service, Detail: "envelope: " + err.Error()}
	}
	if env.Code != "0" {
		return nil, &model.UpstreamAPIError{Service: service, Code: env.Code, Message: env.Msg}
	}
	return env.Data, nil
}

func isEmpty(data json.RawMessage) bool {
	s := strings.TrimSpace(string(data))
	return s == "" || s == "null"
}

// parseCandle decodes [ts, o, h, l, c, vol, ...]. Extra columns are ignored.
func parseCandle(row []string) (model.Candle, error) {
	if len(row) < 6 {
		return model.Candle{}, fmt.Errorf("expected at least 6 columns, got %d", len(row))
	}
	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("timestamp %q: %w", row[0], err)
	}
	var vals [5]float64
	for i := range vals {
		d, err := decimal.NewFromString(row[i+1])
		if err != nil {
			return model.Candle{}, fmt.Errorf("column %d %q: %w", i+1, row[i+1], err)
		}
		vals[i] = d.InexactFloat64()
	}
	return model.Candle{
		TS: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
	}, nil
}
