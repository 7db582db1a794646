// Package providerstest provides an in-memory providers.Fetcher for tests.
package providerstest

import (
	"context"
	"net/http"
	"sync"

	"github.com/brogergvhs/noveld/internal/fetch"
)

// Fetcher serves canned pages keyed by URL. Unknown URLs answer HTTP 404.
type Fetcher struct {
	mu     sync.Mutex
	Pages  map[string]string
	Status map[string]int
	Errs   map[string]error

	requests []fetch.Request
}

func NewFetcher(pages map[string]string) *Fetcher {
	return &Fetcher{
		Pages:  pages,
		Status: map[string]int{},
		Errs:   map[string]error{},
	}
}

func (f *Fetcher) Get(_ context.Context, req fetch.Request) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)

	if err, ok := f.Errs[req.URL]; ok {
		return nil, err
	}
	if code, ok := f.Status[req.URL]; ok {
		return nil, &fetch.Error{Kind: fetch.KindHTTPStatus, URL: req.URL, Status: code}
	}

	page, ok := f.Pages[req.URL]
	if !ok {
		return nil, &fetch.Error{Kind: fetch.KindHTTPStatus, URL: req.URL, Status: http.StatusNotFound}
	}

	return []byte(page), nil
}

func (f *Fetcher) Requests() []fetch.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]fetch.Request, len(f.requests))
	copy(out, f.requests)

	return out
}
