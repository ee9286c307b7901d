package source

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"
)

const userAgent = "formalizacion/1.0"

// HTTPSource downloads the CSV export of a remote dataset, typically a
// Socrata resource URL.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTP creates a source with its own pooled client and the given overall timeout.
func NewHTTP(url string, timeout time.Duration) *HTTPSource {
	return NewHTTPWithClient(url, newHTTPClient(timeout))
}

// NewHTTPWithClient creates a source using client, e.g. one from httptest.
func NewHTTPWithClient(url string, client *http.Client) *HTTPSource {
	return &HTTPSource{url: url, client: client}
}

// newHTTPClient builds a client with explicit dial and handshake timeouts.
func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func (s *HTTPSource) Name() string { return "socrata" }

// URL returns the dataset address.
func (s *HTTPSource) URL() string { return s.url }

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fetchError(s.Name(), err)
	}
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fetchError(s.Name(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			URL:        s.url,
		}
	}
	return resp.Body, nil
}
