package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTimeout
	KindHTTPStatus
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http status"
	default:
		return "unknown"
	}
}

var (
	ErrNetwork    = errors.New("network error")
	ErrTimeout    = errors.New("request timed out")
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrBodyTooLarge is wrapped in a KindNetwork *Error and never retried.
	ErrBodyTooLarge = errors.New("response body too large")
)

// Error is a classified transport failure.
type Error struct {
	Kind   Kind
	URL    string
	Status int // set for KindHTTPStatus
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Status)
	case KindTimeout:
		return fmt.Sprintf("GET %s: timed out", e.URL)
	default:
		return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	}

	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindHTTPStatus {
		return fe.Status
	}

	return 0
}

func classify(url string, err error) *Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}

	return &Error{Kind: KindNetwork, URL: url, Err: err}
}

func retryable(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	if errors.Is(fe.Err, context.Canceled) || errors.Is(fe.Err, ErrBodyTooLarge) {
		return false
	}

	return fe.Kind != KindHTTPStatus || fe.Status >= 500 || fe.Status == 429
}
