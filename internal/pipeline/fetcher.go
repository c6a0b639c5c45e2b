package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/compliance-radar/internal/util"
)

// Fetcher loads an incident table from a local file, standard input ("-")
// or an http(s) URL
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	stdin      io.Reader
}

// NewFetcher creates a Fetcher. maxBytes caps how much is read from any
// source; larger inputs are rejected.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, httpProxy, httpsProxy, noProxy string) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		stdin:     os.Stdin,
	}
}

// FetchResult is the raw table and where it came from
type FetchResult struct {
	Data     []byte
	Location string
}

// Reader returns the data as a reader
func (r *FetchResult) Reader() io.Reader {
	return bytes.NewReader(r.Data)
}

// Fetch reads the table at location
func (f *Fetcher) Fetch(ctx context.Context, location string) (*FetchResult, error) {
	switch {
	case location == "-":
		data, err := f.readLimited(f.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return &FetchResult{Data: data, Location: "stdin"}, nil

	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		return f.fetchURL(ctx, location)

	default:
		file, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = file.Close() }()

		data, err := f.readLimited(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", location, err)
		}
		return &FetchResult{Data: data, Location: location}, nil
	}
}

func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/csv,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	data, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{Data: data, Location: resp.Request.URL.String()}, nil
}

// readLimited reads everything from r, failing if it exceeds maxBytes
func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("input exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}
