// Package meter retrieves and analyzes metered energy-consumption time
// series from the mijn.fluvius.be consumption API.
package meter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gvnuland/Fluvius-API/internal/config"
	"github.com/gvnuland/Fluvius-API/internal/util"
)

// DefaultBaseURL is the consumption portal the measurement API lives under.
const DefaultBaseURL = "https://mijn.fluvius.be"

// Reading direction codes on the wire.
const (
	DirectionConsumption = 1
	DirectionInjection   = 2
)

// Tariff codes on the wire.
const (
	TariffHigh = 1
	TariffLow  = 2
)

// ValidatedReading is the validation state denoting a validated value.
const ValidatedReading = 2

// Reading is a single measurement within a day record.
type Reading struct {
	Direction       int     `json:"dc"`
	Tariff          int     `json:"t"`
	SourceType      int     `json:"st"`
	Value           float64 `json:"v"`
	ValidationState int     `json:"vs"`
	Unit            string  `json:"u"`
	GridCost        float64 `json:"gcuv"`
}

// DayRecord is one day of measurement history.
type DayRecord struct {
	Date     string    `json:"d"`
	DateEnd  string    `json:"de"`
	Readings []Reading `json:"v"`
}

// HistoryResult carries the parsed day records together with the raw response
// body, so the caller can persist exactly what the API returned.
type HistoryResult struct {
	Days []DayRecord
	Raw  json.RawMessage
}

// Query identifies the metering point and window of a history request.
type Query struct {
	EAN         string
	MeterSerial string
	From        string
	Until       string
	Granularity string
}

// Client calls the consumption API with a bearer token obtained elsewhere.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

// NewClient creates a consumption API client with a proxy-aware transport.
func NewClient(cfg *config.Config, accessToken string) *Client {
	timeout := 30 * time.Second
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	return &Client{
		httpClient:  util.SetProxy(cfg, &http.Client{Timeout: timeout}),
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
	}
}

// MeasurementHistory downloads the day records for the given query.
func (c *Client) MeasurementHistory(ctx context.Context, q Query) (*HistoryResult, error) {
	params := url.Values{}
	params.Set("historyFrom", q.From)
	params.Set("historyUntil", q.Until)
	params.Set("granularity", q.Granularity)
	params.Set("asServiceProvider", "false")
	params.Set("meterSerialNumber", q.MeterSerial)

	endpoint := fmt.Sprintf("%s/verbruik/api/meter-measurement-history/%s?%s",
		c.baseURL, url.PathEscape(q.EAN), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create history request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read history response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history request failed: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var days []DayRecord
	if err = json.Unmarshal(body, &days); err != nil {
		return nil, fmt.Errorf("failed to parse history response: %w", err)
	}

	return &HistoryResult{Days: days, Raw: body}, nil
}
