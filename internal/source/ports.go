package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"

	"formalizacion/internal/core"
)

// Source yields the raw dataset as CSV text.
type Source interface {
	// Open starts a fresh read of the dataset. The caller closes the reader.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Name identifies the source in logs and metrics.
	Name() string
}

// HTTPError is a non-2xx answer from a remote source.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, e.Status)
}

// Temporary reports whether retrying the request may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// Unwrap makes every HTTPError match core.ErrFetch.
func (e *HTTPError) Unwrap() error {
	return core.ErrFetch
}

// IsTransient reports whether err is worth another attempt: server-side
// HTTP failures, throttling and network errors. Cancellation and local
// file system errors never are.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return false
	}
	// syscall.Errno satisfies net.Error, so match the network types first.
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func fetchError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrFetch, name, err)
}
