package providers

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func ParseDocument(page []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(page))
}

// JoinParagraphs trims every line and joins the non-empty ones with "\n".
func JoinParagraphs(lines []string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}

	return strings.Join(out, "\n")
}

// CollapseLines splits a text block on line breaks and rejoins its non-empty lines.
func CollapseLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	return JoinParagraphs(strings.Split(text, "\n"))
}

// ResolveURL resolves href against baseURL. Protocol-relative hrefs take
// the base scheme.
func ResolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return baseURL
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}

	b, err := url.Parse(baseURL)
	if err != nil {
		return href
	}

	return b.ResolveReference(u).String()
}

// Text returns the trimmed text of the first node matching selector.
func Text(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}
