package providers

import (
	"context"
	"time"

	"github.com/brogergvhs/noveld/internal/fetch"
)

const (
	CatalogTimeout = 10 * time.Second
	ContentTimeout = 15 * time.Second
)

// Work is the metadata of one novel as published by its source.
type Work struct {
	Title     string
	Author    string
	SourceURL string
}

// Chapter is one catalog entry. Index is the 1-based position in the
// catalog as the source lists it.
type Chapter struct {
	Title string
	URL   string
	Index int
}

type Fetcher interface {
	Get(ctx context.Context, req fetch.Request) ([]byte, error)
}

// Adapter extracts works, catalogs and chapter text for one site.
type Adapter interface {
	Name() string
	// Domains lists the registrable domains the adapter serves. Subdomains match.
	Domains() []string
	Referer() string

	ResolveMetadata(ctx context.Context, sourceURL string) (Work, error)
	ResolveCatalog(ctx context.Context, sourceURL string) ([]Chapter, error)
	ExtractContent(chapterURL string, page []byte) (string, error)
}
