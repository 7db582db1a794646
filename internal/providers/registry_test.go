package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	name    string
	domains []string
}

func (s stubAdapter) Name() string      { return s.name }
func (s stubAdapter) Domains() []string { return s.domains }
func (s stubAdapter) Referer() string   { return "https://" + s.domains[0] + "/" }

func (s stubAdapter) ResolveMetadata(context.Context, string) (Work, error) {
	return Work{}, nil
}

func (s stubAdapter) ResolveCatalog(context.Context, string) ([]Chapter, error) {
	return nil, nil
}

func (s stubAdapter) ExtractContent(string, []byte) (string, error) {
	return "", nil
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry(
		stubAdapter{name: "qidian", domains: []string{"qidian.com"}},
		stubAdapter{name: "jjwxc", domains: []string{"jjwxc.net"}},
	)

	cases := []struct {
		url  string
		want string
	}{
		{"https://www.qidian.com/book/1035420986/", "qidian"},
		{"https://book.qidian.com/info/1035420986", "qidian"},
		{"https://QIDIAN.COM/book/1", "qidian"},
		{"https://www.jjwxc.net/onebook.php?novelid=123456", "jjwxc"},
		{"http://my.jjwxc.net/onebook_vip.php?novelid=1&chapterid=2", "jjwxc"},
	}

	for _, tc := range cases {
		a, err := r.Resolve(tc.url)
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.want, a.Name(), tc.url)
	}
}

func TestRegistryResolveUnsupported(t *testing.T) {
	r := NewRegistry(stubAdapter{name: "qidian", domains: []string{"qidian.com"}})

	for _, raw := range []string{
		"https://example.com/book/1",
		"https://notqidian.com/book/1",
		"not a url",
		"",
	} {
		_, err := r.Resolve(raw)
		assert.ErrorIs(t, err, ErrNotSupported, raw)
	}
}

func TestRegistryDomains(t *testing.T) {
	r := NewRegistry(
		stubAdapter{name: "jjwxc", domains: []string{"jjwxc.net"}},
		stubAdapter{name: "qidian", domains: []string{"qidian.com"}},
	)

	assert.Equal(t, []string{"jjwxc.net", "qidian.com"}, r.Domains())
}
