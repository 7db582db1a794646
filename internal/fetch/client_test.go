package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()

	if opts.UserAgent == "" && opts.RandomUserAgent == nil {
		opts.UserAgent = "noveld-test"
	}

	c, err := NewClient(opts)
	require.NoError(t, err)

	return c
}

func TestGetSendsIdentityHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(t, Options{UserAgent: "pinned/1.0", Cookie: "a=1"})

	body, err := c.Get(context.Background(), Request{URL: srv.URL, Referer: "https://www.qidian.com/"})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "pinned/1.0", got.Get("User-Agent"))
	assert.Equal(t, "https://www.qidian.com/", got.Get("Referer"))
	assert.Equal(t, "a=1", got.Get("Cookie"))
}

func TestGetRotatesUserAgentPerRequest(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("User-Agent"))
		mu.Unlock()
	}))
	defer srv.Close()

	var n atomic.Int32
	agents := []string{"ua-a", "ua-b", "ua-c"}
	c := newTestClient(t, Options{RandomUserAgent: func() string {
		return agents[int(n.Add(1)-1)%len(agents)]
	}})

	for range 3 {
		_, err := c.Get(context.Background(), Request{URL: srv.URL})
		require.NoError(t, err)
	}

	assert.Equal(t, agents, seen)
}

func TestGetHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{})

	_, err := c.Get(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHTTPStatus)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindHTTPStatus, fe.Kind)
	assert.Equal(t, srv.URL, fe.URL)
}

func TestGetTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, Options{})

	_, err := c.Get(context.Background(), Request{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestGetNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := newTestClient(t, Options{})

	_, err := c.Get(context.Background(), Request{URL: addr})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	c := newTestClient(t, Options{Retries: 2})

	body, err := c.Get(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetDoesNotRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{})

	_, err := c.Get(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{Retries: 3})

	_, err := c.Get(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetDecodesGBK(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("<html><body>第一章 开端</body></html>")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		_, _ = w.Write([]byte(encoded))
	}))
	defer srv.Close()

	c := newTestClient(t, Options{})

	body, err := c.Get(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Contains(t, string(body), "第一章 开端")
}

func TestJoinCookies(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(file, []byte("\n# comment\nsession=xyz\nignored=1\n"), 0o600))

	got, err := joinCookies("a=1", file)
	require.NoError(t, err)
	assert.Equal(t, "a=1; session=xyz", got)

	got, err = joinCookies("", file)
	require.NoError(t, err)
	assert.Equal(t, "session=xyz", got)

	_, err = joinCookies("", filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestGetEmptySuccessfulBody(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{Retries: 2})

	body, err := c.Get(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Empty(t, body)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetRejectsOversizedBody(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(strings.Repeat("x", 65)))
	}))
	defer srv.Close()

	c := newTestClient(t, Options{Retries: 2})
	c.maxBody = 64

	_, err := c.Get(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, int32(1), hits.Load())

	c.maxBody = 65
	body, err := c.Get(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Len(t, body, 65)
}
