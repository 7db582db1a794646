package providers

import (
	"errors"
	"fmt"
)

var (
	ErrNotSupported = errors.New("source not supported")
	ErrParse        = errors.New("unexpected page structure")
)

// ParseError reports a page whose structure did not match the adapter's selectors.
type ParseError struct {
	Adapter string
	URL     string
	What    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %s not found", e.Adapter, e.URL, e.What)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func NewParseError(adapter, url, what string) error {
	return &ParseError{Adapter: adapter, URL: url, What: what}
}
