// Package ipinfo queries an ip-api.com compatible geolocation endpoint.
package ipinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const notAvailable = "N/A"

// maxBodyBytes bounds the response read from the lookup service.
const maxBodyBytes = 1 << 20

// Result is one successful lookup.
type Result struct {
	Query    string
	Country  string
	City     string
	ISP      string
	Org      string
	Lat      string
	Lon      string
	Timezone string
}

// LookupError is a failure reported by the service itself (status != success).
type LookupError struct {
	Message string
}

func (e *LookupError) Error() string {
	return e.Message
}

// Client performs lookups against baseURL.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL. A nil httpClient uses a dedicated
// client so idle connections can be closed on shutdown.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Lookup fetches geolocation data for address.
func (c *Client) Lookup(ctx context.Context, address string) (Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Result{}, errors.New("address is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(address), nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return Result{}, fmt.Errorf("unexpected response (HTTP %d)", resp.StatusCode)
	}

	data := gjson.ParseBytes(body)
	if data.Get("status").String() != "success" {
		message := data.Get("message").String()
		if message == "" {
			message = "Unknown"
		}
		return Result{}, &LookupError{Message: message}
	}

	return Result{
		Query:    address,
		Country:  field(data, "country", notAvailable),
		City:     field(data, "city", notAvailable),
		ISP:      field(data, "isp", notAvailable),
		Org:      field(data, "org", notAvailable),
		Lat:      field(data, "lat", ""),
		Lon:      field(data, "lon", ""),
		Timezone: field(data, "timezone", notAvailable),
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func field(data gjson.Result, key string, fallback string) string {
	value := data.Get(key)
	if !value.Exists() {
		return fallback
	}
	return value.String()
}
