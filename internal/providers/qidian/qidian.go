// Package qidian implements providers.Adapter for qidian.com.
package qidian

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/noveld/internal/fetch"
	"github.com/brogergvhs/noveld/internal/providers"
)

const (
	name        = "qidian"
	referer     = "https://www.qidian.com/"
	catalogBase = "https://book.qidian.com/info/"
)

type Adapter struct {
	fetcher providers.Fetcher
	base    string
	timeout time.Duration
}

// New returns the adapter. A zero timeout means providers.CatalogTimeout.
func New(f providers.Fetcher, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = providers.CatalogTimeout
	}

	return &Adapter{fetcher: f, base: catalogBase, timeout: timeout}
}

func (a *Adapter) Name() string      { return name }
func (a *Adapter) Domains() []string { return []string{"qidian.com"} }
func (a *Adapter) Referer() string   { return referer }

func (a *Adapter) fetchDOM(ctx context.Context, target string) (*goquery.Document, error) {
	body, err := a.fetcher.Get(ctx, fetch.Request{
		URL:     target,
		Referer: referer,
		Timeout: a.timeout,
	})
	if err != nil {
		return nil, err
	}

	doc, err := providers.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", providers.ErrParse, target, err)
	}

	return doc, nil
}

func (a *Adapter) ResolveMetadata(ctx context.Context, sourceURL string) (providers.Work, error) {
	doc, err := a.fetchDOM(ctx, sourceURL)
	if err != nil {
		return providers.Work{}, err
	}

	title := providers.Text(doc, "h1.book-title")
	if title == "" {
		return providers.Work{}, providers.NewParseError(name, sourceURL, "book title")
	}

	author := providers.Text(doc, "a.writer")
	if author == "" {
		return providers.Work{}, providers.NewParseError(name, sourceURL, "author")
	}

	return providers.Work{Title: title, Author: author, SourceURL: sourceURL}, nil
}

// bookID is the last non-empty path segment of a book URL,
// e.g. https://www.qidian.com/book/1035420986/ -> 1035420986.
func bookID(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", err
	}

	id := path.Base(strings.TrimRight(u.Path, "/"))
	if id == "" || id == "." || id == "/" {
		return "", fmt.Errorf("no book id in %q", sourceURL)
	}

	return id, nil
}

func (a *Adapter) ResolveCatalog(ctx context.Context, sourceURL string) ([]providers.Chapter, error) {
	id, err := bookID(sourceURL)
	if err != nil {
		return nil, providers.NewParseError(name, sourceURL, "book id")
	}

	catalogURL := a.base + id
	doc, err := a.fetchDOM(ctx, catalogURL)
	if err != nil {
		return nil, err
	}

	var out []providers.Chapter
	doc.Find("div.volume").Each(func(_ int, vol *goquery.Selection) {
		vol.Find("a.chapter-name").Each(func(_ int, link *goquery.Selection) {
			href, ok := link.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return
			}

			out = append(out, providers.Chapter{
				Title: strings.TrimSpace(link.Text()),
				URL:   providers.ResolveURL(catalogURL, href),
				Index: len(out) + 1,
			})
		})
	})

	return out, nil
}

func (a *Adapter) ExtractContent(chapterURL string, page []byte) (string, error) {
	doc, err := providers.ParseDocument(page)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", providers.ErrParse, chapterURL, err)
	}

	content := doc.Find("div.read-content.j_readContent").First()
	if content.Length() == 0 {
		return "", providers.NewParseError(name, chapterURL, "chapter content")
	}

	var lines []string
	content.Find("p").Each(func(_ int, p *goquery.Selection) {
		lines = append(lines, p.Text())
	})

	return providers.JoinParagraphs(lines), nil
}
