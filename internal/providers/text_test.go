package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinParagraphs(t *testing.T) {
	got := JoinParagraphs([]string{"  first ", "", "\t", "second", " third　"})
	assert.Equal(t, "first\nsecond\nthird", got)
	assert.Equal(t, "", JoinParagraphs(nil))
}

func TestCollapseLines(t *testing.T) {
	got := CollapseLines("\r\n  line one\r\n\r\n\n line two \rline three\n")
	assert.Equal(t, "line one\nline two\nline three", got)
}

func TestResolveURL(t *testing.T) {
	base := "https://book.qidian.com/info/1035420986"

	assert.Equal(t, "https://read.qidian.com/chapter/abc/1", ResolveURL(base, "//read.qidian.com/chapter/abc/1"))
	assert.Equal(t, "https://book.qidian.com/chapter/2", ResolveURL(base, "/chapter/2"))
	assert.Equal(t, "https://book.qidian.com/info/3", ResolveURL(base, "3"))
	assert.Equal(t, "http://other.example/x", ResolveURL(base, "http://other.example/x"))
	assert.Equal(t, base, ResolveURL(base, "  "))
}

func TestText(t *testing.T) {
	doc, err := ParseDocument([]byte(`<html><body><h1 class="t"> Title </h1><h1 class="t">second</h1></body></html>`))
	require.NoError(t, err)

	assert.Equal(t, "Title", Text(doc, "h1.t"))
	assert.Equal(t, "", Text(doc, "h2"))
}

func TestParseErrorMatchesSentinel(t *testing.T) {
	err := NewParseError("qidian", "https://www.qidian.com/book/1/", "book title")
	assert.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "book title not found")
}
