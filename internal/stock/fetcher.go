package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is the public stock endpoint the relay polls.
const DefaultURL = "https://growagardenapi.vercel.app/api/stock/GetStock"

// maxBodyBytes caps the upstream response we are willing to parse.
const maxBodyBytes = 4 << 20

// providerKeys maps canonical categories to the provider's field names.
var providerKeys = map[Category]string{
	CategoryEgg:      "egg",
	CategoryStock:    "seeds",
	CategoryGear:     "gear",
	CategoryCosmetic: "cosmetics",
	CategoryEvent:    "honey",
}

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=stock_test -destination=mock_http_client_test.go -source=fetcher.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchError reports an upstream failure: transport, status or decoding.
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch stock: %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("fetch stock: %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher reads the current stock from the upstream API.
type Fetcher struct {
	url        string
	httpClient HTTPClient
	header     http.Header
	now        func() time.Time
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithURL overrides the upstream endpoint.
func WithURL(url string) FetcherOption {
	return func(f *Fetcher) {
		if strings.TrimSpace(url) != "" {
			f.url = strings.TrimSpace(url)
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c HTTPClient) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithHeader adds headers sent with every request.
func WithHeader(h http.Header) FetcherOption {
	return func(f *Fetcher) {
		for k, vs := range h {
			for _, v := range vs {
				f.header.Add(k, v)
			}
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if strings.TrimSpace(ua) != "" {
			f.header.Set("User-Agent", ua)
		}
	}
}

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		header:     http.Header{},
		now:        time.Now,
	}
	f.header.Set("Accept", "application/json")
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Fetcher) URL() string { return f.url }

type stockResponse struct {
	Data map[string]json.RawMessage `json:"Data"`
}

// Fetch performs one upstream call and returns the full snapshot.
// Provider keys that are absent read as empty lists.
func (f *Fetcher) Fetch(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return Snapshot{}, &FetchError{Op: "creating request", Err: err}
	}
	req.Header = f.header.Clone()

	res, err := f.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, &FetchError{Op: "performing request", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return Snapshot{}, &FetchError{Op: "unexpected response", Status: res.StatusCode, Err: errors.New(http.StatusText(res.StatusCode))}
	}

	var body stockResponse
	dec := json.NewDecoder(io.LimitReader(res.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return Snapshot{}, &FetchError{Op: "decoding response", Err: err}
	}

	items := make(map[Category][]Item, len(providerKeys))
	for _, c := range canonical {
		raw, ok := body.Data[providerKeys[c]]
		if !ok || len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var list []Item
		if err := json.Unmarshal(raw, &list); err != nil {
			return Snapshot{}, &FetchError{Op: "decoding " + providerKeys[c], Err: err}
		}
		items[c] = list
	}
	return NewSnapshot(f.now(), items), nil
}

// FetchCategory performs a full fetch and returns one category's items.
func (f *Fetcher) FetchCategory(ctx context.Context, c Category) ([]Item, error) {
	if !c.Valid() {
		return nil, &ValidationError{Input: string(c), Reason: "unknown category (choose: " + Choices() + ")"}
	}
	snap, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Items(c), nil
}
