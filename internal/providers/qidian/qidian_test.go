package qidian

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/noveld/internal/fetch"
	"github.com/brogergvhs/noveld/internal/providers"
	"github.com/brogergvhs/noveld/internal/providers/providerstest"
)

const (
	bookURL    = "https://www.qidian.com/book/1035420986/"
	catalogURL = "https://book.qidian.com/info/1035420986"
)

const bookPage = `<html><body>
<div class="book-info">
  <h1 class="book-title"> 诡秘之主 </h1>
  <a class="writer" href="//my.qidian.com/author/1">爱潜水的乌贼</a>
</div>
</body></html>`

const catalogPage = `<html><body>
<div class="volume">
  <h3>第一卷</h3>
  <ul>
    <li><a class="chapter-name" href="//read.qidian.com/chapter/a/1">第一章 绯红</a></li>
    <li><a class="chapter-name" href="//read.qidian.com/chapter/a/2">第二章 情况</a></li>
  </ul>
</div>
<div class="volume">
  <h3>第二卷</h3>
  <ul>
    <li><a class="chapter-name">missing href</a></li>
    <li><a class="chapter-name" href="/chapter/a/3">第三章 笔记</a></li>
  </ul>
</div>
</body></html>`

const chapterPage = `<html><body>
<div class="read-content j_readContent">
  <p>　　痛！</p>
  <p>   </p>
  <p>好痛！</p>
</div>
</body></html>`

func TestResolveMetadata(t *testing.T) {
	f := providerstest.NewFetcher(map[string]string{bookURL: bookPage})
	a := New(f, 0)

	w, err := a.ResolveMetadata(context.Background(), bookURL)
	require.NoError(t, err)
	assert.Equal(t, providers.Work{Title: "诡秘之主", Author: "爱潜水的乌贼", SourceURL: bookURL}, w)

	reqs := f.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, referer, reqs[0].Referer)
	assert.Equal(t, providers.CatalogTimeout, reqs[0].Timeout)
}

func TestResolveMetadataMissingTitle(t *testing.T) {
	f := providerstest.NewFetcher(map[string]string{bookURL: `<html><a class="writer">x</a></html>`})

	_, err := New(f, 0).ResolveMetadata(context.Background(), bookURL)
	assert.ErrorIs(t, err, providers.ErrParse)
}

func TestResolveMetadataPropagatesFetchError(t *testing.T) {
	f := providerstest.NewFetcher(nil)

	_, err := New(f, 0).ResolveMetadata(context.Background(), bookURL)
	assert.ErrorIs(t, err, fetch.ErrHTTPStatus)
}

func TestResolveCatalog(t *testing.T) {
	f := providerstest.NewFetcher(map[string]string{catalogURL: catalogPage})

	chapters, err := New(f, 0).ResolveCatalog(context.Background(), bookURL)
	require.NoError(t, err)

	assert.Equal(t, []providers.Chapter{
		{Title: "第一章 绯红", URL: "https://read.qidian.com/chapter/a/1", Index: 1},
		{Title: "第二章 情况", URL: "https://read.qidian.com/chapter/a/2", Index: 2},
		{Title: "第三章 笔记", URL: "https://book.qidian.com/chapter/a/3", Index: 3},
	}, chapters)
}

func TestResolveCatalogEmpty(t *testing.T) {
	f := providerstest.NewFetcher(map[string]string{catalogURL: `<html><body></body></html>`})

	chapters, err := New(f, 0).ResolveCatalog(context.Background(), bookURL)
	require.NoError(t, err)
	assert.Empty(t, chapters)
}

func TestBookID(t *testing.T) {
	id, err := bookID("https://www.qidian.com/book/1035420986/")
	require.NoError(t, err)
	assert.Equal(t, "1035420986", id)

	id, err = bookID("https://book.qidian.com/info/42")
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	_, err = bookID("https://www.qidian.com/")
	assert.Error(t, err)
}

func TestExtractContent(t *testing.T) {
	a := New(providerstest.NewFetcher(nil), 0)

	text, err := a.ExtractContent("https://read.qidian.com/chapter/a/1", []byte(chapterPage))
	require.NoError(t, err)
	assert.Equal(t, "痛！\n好痛！", text)

	_, err = a.ExtractContent("https://read.qidian.com/chapter/a/1", []byte(`<html><body><p>x</p></body></html>`))
	assert.ErrorIs(t, err, providers.ErrParse)
}
