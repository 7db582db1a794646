// Package export compiles downloaded chapters into an EPUB.
package export

import (
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-epub"

	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/providers"
)

var ErrNoChapters = errors.New("no downloaded chapters to export")

// Source is where chapter text is read back from.
type Source interface {
	Exists(key string) (bool, error)
	Read(key string) (string, error)
}

// Path is the EPUB location for work inside dest.
func Path(dest string, work providers.Work) string {
	name := chapters.NormalizeKey(work.Title)
	if name == "" {
		name = "book"
	}

	return filepath.Join(dest, name+".epub")
}

// WriteEPUB writes the chapters of list present in src, in list order, to
// outPath. It returns how many chapters were included.
func WriteEPUB(work providers.Work, list []chapters.Chapter, src Source, outPath string) (int, error) {
	e, err := epub.NewEpub(work.Title)
	if err != nil {
		return 0, fmt.Errorf("create epub: %w", err)
	}

	e.SetAuthor(work.Author)
	e.SetLang("zh")
	if work.SourceURL != "" {
		e.SetIdentifier(work.SourceURL)
	}

	added := 0
	seen := make(map[string]bool, len(list))
	for _, ch := range list {
		key := ch.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		ok, err := src.Exists(key)
		if err != nil {
			return added, err
		}
		if !ok {
			continue
		}

		text, err := src.Read(key)
		if err != nil {
			return added, err
		}

		internal := fmt.Sprintf("chapter_%04d.xhtml", added+1)
		if _, err := e.AddSection(sectionBody(ch.Title, text), ch.Title, internal, ""); err != nil {
			return added, fmt.Errorf("add section %q: %w", ch.Title, err)
		}
		added++
	}

	if added == 0 {
		return 0, ErrNoChapters
	}

	if err := e.Write(outPath); err != nil {
		return added, fmt.Errorf("write epub: %w", err)
	}

	return added, nil
}

func sectionBody(title, text string) string {
	var b strings.Builder

	b.WriteString("<h1>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</h1>\n")

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>\n")
	}

	return b.String()
}
