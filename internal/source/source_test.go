package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"formalizacion/internal/config"
	"formalizacion/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_Open(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/csv", r.Header.Get("Accept"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, "a,b\n1,2\n")
	}))
	defer srv.Close()

	src := NewHTTPWithClient(srv.URL, srv.Client())
	rc, err := src.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(body))
	assert.Equal(t, "socrata", src.Name())
}

func TestHTTPSource_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"server error", http.StatusServiceUnavailable, true},
		{"throttled", http.StatusTooManyRequests, true},
		{"not found", http.StatusNotFound, false},
		{"forbidden", http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewHTTPWithClient(srv.URL, srv.Client()).Open(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrFetch)

			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestHTTPSource_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewHTTPWithClient(addr, http.DefaultClient).Open(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFetch)
	assert.True(t, IsTransient(err))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"plain error", errors.New("boom"), false},
		{"schema error", fmt.Errorf("%w: bad header", core.ErrSchema), false},
		{"canceled", fmt.Errorf("%w: %w", core.ErrFetch, context.Canceled), false},
		{"unexpected EOF", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), true},
		{"network error", fmt.Errorf("%w: %w", core.ErrFetch, &net.OpError{Op: "dial", Err: errors.New("connection refused")}), true},
		{"dns error", &url.Error{Op: "Get", URL: "https://x", Err: &net.DNSError{Err: "no such host", Name: "x"}}, true},
		{"missing file", fmt.Errorf("%w: file: %w", core.ErrFetch, &fs.PathError{Op: "open", Path: "/x.csv", Err: syscall.ENOENT}), false},
		{"permission denied", &fs.PathError{Op: "open", Path: "/x.csv", Err: syscall.EACCES}, false},
		{"bare errno", syscall.ECONNRESET, false},
		{"http 502", &HTTPError{StatusCode: 502}, true},
		{"http 400", &HTTPError{StatusCode: 400}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestFileSource_Open(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))

	rc, err := NewFile(path).Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "x\n", string(body))

	_, err = NewFile(filepath.Join(t.TempDir(), "missing.csv")).Open(context.Background())
	assert.ErrorIs(t, err, core.ErrFetch)
	assert.False(t, IsTransient(err))
}

func TestFactory_New(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))

	src, err := New(context.Background(), Config{Kind: KindFile, Path: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, "file", src.Name())

	src, err = New(context.Background(), Config{Kind: KindSocrata}, nil)
	require.NoError(t, err)
	httpSrc, ok := src.(*HTTPSource)
	require.True(t, ok)
	assert.Equal(t, config.DefaultDatasetURL, httpSrc.URL())

	_, err = New(context.Background(), Config{Kind: KindFile}, nil)
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Kind: "ftp"}, nil)
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{
		DataSource:          "sheets",
		GoogleSpreadsheetID: "abc",
		GoogleSheetRange:    "Datos!A:W",
	})
	require.NoError(t, err)
	assert.Equal(t, KindSheets, cfg.Kind)
	assert.Equal(t, "abc", cfg.Sheets.SpreadsheetID)

	_, err = FromAppConfig(&config.Config{DataSource: "mysql"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}
