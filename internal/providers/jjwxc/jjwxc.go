// Package jjwxc implements providers.Adapter for jjwxc.net.
//
// Book pages double as the catalog: the chapter table sits below the
// work header on onebook.php. Pages are served as GB18030; the fetch
// client decodes them before they reach the selectors here.
package jjwxc

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
	name        = "jjwxc"
	referer     = "https://www.jjwxc.net/"
	catalogBase = "https://www.jjwxc.net/onebook.php?novelid="
)

var boilerplate = strings.NewReplacer(
	"晋江文学城", "",
	"www.jjwxc.net", "",
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
func (a *Adapter) Domains() []string { return []string{"jjwxc.net"} }
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

	title := providers.Text(doc, `span[property="v:itemreviewed"]`)
	if title == "" {
		return providers.Work{}, providers.NewParseError(name, sourceURL, "book title")
	}

	author := providers.Text(doc, "span.authorname")
	if author == "" {
		return providers.Work{}, providers.NewParseError(name, sourceURL, "author")
	}

	return providers.Work{Title: title, Author: author, SourceURL: sourceURL}, nil
}

// novelID reads the novelid query parameter, falling back to the stem of
// the last path segment (e.g. /book/123456.html).
func novelID(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", err
	}

	if id := strings.TrimSpace(u.Query().Get("novelid")); id != "" {
		return id, nil
	}

	base := path.Base(strings.TrimRight(u.Path, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" || base == "onebook" {
		return "", fmt.Errorf("no novel id in %q", sourceURL)
	}

	return base, nil
}

func (a *Adapter) ResolveCatalog(ctx context.Context, sourceURL string) ([]providers.Chapter, error) {
	id, err := novelID(sourceURL)
	if err != nil {
		return nil, providers.NewParseError(name, sourceURL, "novel id")
	}

	catalogURL := a.base + id
	doc, err := a.fetchDOM(ctx, catalogURL)
	if err != nil {
		return nil, err
	}

	table := doc.Find("table.cytable").First()
	if table.Length() == 0 {
		return nil, providers.NewParseError(name, catalogURL, "chapter table")
	}

	rows := table.Find("tr")
	if rows.Length() < 2 {
		return nil, nil
	}

	var out []providers.Chapter
	rows.Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a").First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		out = append(out, providers.Chapter{
			Title: strings.TrimSpace(link.Text()),
			URL:   providers.ResolveURL(referer, href),
			Index: len(out) + 1,
		})
	})

	return out, nil
}

func (a *Adapter) ExtractContent(chapterURL string, page []byte) (string, error) {
	doc, err := providers.ParseDocument(page)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", providers.ErrParse, chapterURL, err)
	}

	content := doc.Find("div#content").First()
	if content.Length() == 0 {
		return "", providers.NewParseError(name, chapterURL, "chapter content")
	}

	return providers.CollapseLines(boilerplate.Replace(content.Text())), nil
}
