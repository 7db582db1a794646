package jjwxc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/noveld/internal/providers"
	"github.com/brogergvhs/noveld/internal/providers/providerstest"
)

const bookURL = "https://www.jjwxc.net/onebook.php?novelid=123456"

const bookPage = `<html><body>
<h1><span itemprop="articleSection" property="v:itemreviewed">天官赐福</span></h1>
<h2><a href="oneauthor.php?authorid=1"><span class="authorname">墨香铜臭</span></a></h2>
<table class="cytable">
  <tr><td>章节</td><td>标题</td></tr>
  <tr><td>1</td><td><a href="onebook.php?novelid=123456&chapterid=1">太子悦神</a></td></tr>
  <tr><td>2</td><td><a href="https://www.jjwxc.net/onebook.php?novelid=123456&chapterid=2">鬼嫁新娘</a></td></tr>
  <tr><td>3</td><td>VIP 锁定</td></tr>
  <tr><td>4</td><td><a href="onebook.php?novelid=123456&chapterid=4">喜轿</a></td></tr>
</table>
</body></html>`

const chapterPage = `<html><body>
<div id="content" class="noveltext">
  第一段
  <br>
  <br>晋江文学城 www.jjwxc.net
  <br>第二段
</div>
</body></html>`

func TestResolveMetadata(t *testing.T) {
	f := providerstest.NewFetcher(map[string]string{bookURL: bookPage})

	w, err := New(f, 0).ResolveMetadata(context.Background(), bookURL)
	require.NoError(t, err)
	assert.Equal(t, "天官赐福", w.Title)
	assert.Equal(t, "墨香铜臭", w.Author)
	assert.Equal(t, bookURL, w.SourceURL)
}

func TestResolveMetadataMissingAuthor(t *testing.T) {
	f := providerstest.NewFetcher(map[string]string{
		bookURL: `<html><span property="v:itemreviewed">t</span></html>`,
	})

	_, err := New(f, 0).ResolveMetadata(context.Background(), bookURL)
	assert.ErrorIs(t, err, providers.ErrParse)
}

func TestResolveCatalogSkipsHeaderAndLockedRows(t *testing.T) {
	f := providerstest.NewFetcher(map[string]string{bookURL: bookPage})

	chapters, err := New(f, 0).ResolveCatalog(context.Background(), bookURL)
	require.NoError(t, err)

	assert.Equal(t, []providers.Chapter{
		{Title: "太子悦神", URL: "https://www.jjwxc.net/onebook.php?novelid=123456&chapterid=1", Index: 1},
		{Title: "鬼嫁新娘", URL: "https://www.jjwxc.net/onebook.php?novelid=123456&chapterid=2", Index: 2},
		{Title: "喜轿", URL: "https://www.jjwxc.net/onebook.php?novelid=123456&chapterid=4", Index: 3},
	}, chapters)
}

func TestResolveCatalogHeaderOnly(t *testing.T) {
	f := providerstest.NewFetcher(map[string]string{
		bookURL: `<html><table class="cytable"><tr><td>章节</td></tr></table></html>`,
	})

	chapters, err := New(f, 0).ResolveCatalog(context.Background(), bookURL)
	require.NoError(t, err)
	assert.Empty(t, chapters)
}

func TestResolveCatalogMissingTable(t *testing.T) {
	f := providerstest.NewFetcher(map[string]string{bookURL: `<html><body></body></html>`})

	_, err := New(f, 0).ResolveCatalog(context.Background(), bookURL)
	assert.ErrorIs(t, err, providers.ErrParse)
}

func TestNovelID(t *testing.T) {
	id, err := novelID(bookURL)
	require.NoError(t, err)
	assert.Equal(t, "123456", id)

	id, err = novelID("https://m.jjwxc.net/book2/654321.html")
	require.NoError(t, err)
	assert.Equal(t, "654321", id)

	_, err = novelID("https://www.jjwxc.net/onebook.php")
	assert.Error(t, err)
}

func TestExtractContentStripsBoilerplate(t *testing.T) {
	text, err := New(providerstest.NewFetcher(nil), 0).ExtractContent(bookURL+"&chapterid=1", []byte(chapterPage))
	require.NoError(t, err)
	assert.Equal(t, "第一段\n第二段", text)
}
