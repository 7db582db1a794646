package providers

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Registry dispatches source URLs to adapters by host.
type Registry struct {
	byDomain map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byDomain: map[string]Adapter{}}
	for _, a := range adapters {
		for _, d := range a.Domains() {
			r.byDomain[strings.ToLower(d)] = a
		}
	}

	return r
}

// Resolve returns the adapter serving rawURL's host, or ErrNotSupported.
func (r *Registry) Resolve(rawURL string) (Adapter, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrNotSupported, rawURL)
	}

	host := strings.ToLower(u.Hostname())
	for {
		if a, ok := r.byDomain[host]; ok {
			return a, nil
		}

		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			break
		}
		host = host[dot+1:]
	}

	return nil, fmt.Errorf("%w: %s", ErrNotSupported, u.Hostname())
}

func (r *Registry) Domains() []string {
	out := make([]string, 0, len(r.byDomain))
	for d := range r.byDomain {
		out = append(out, d)
	}
	sort.Strings(out)

	return out
}
