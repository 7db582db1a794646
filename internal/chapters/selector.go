package chapters

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidRange = errors.New("invalid chapter range")

// Slice returns the 1-based inclusive range [start, end] of all. A zero
// bound is open; an end past the catalog is clamped to its length.
func Slice(all []Chapter, start, end int) ([]Chapter, error) {
	if start < 0 || end < 0 {
		return nil, fmt.Errorf("%w: negative bound %d-%d", ErrInvalidRange, start, end)
	}

	from := start
	if from == 0 {
		from = 1
	}

	to := end
	if to == 0 || to > len(all) {
		to = len(all)
	}

	if from > len(all) {
		return nil, fmt.Errorf("%w: start %d beyond %d chapters", ErrInvalidRange, from, len(all))
	}
	if from > to {
		return nil, fmt.Errorf("%w: start %d after end %d", ErrInvalidRange, from, to)
	}

	return all[from-1 : to], nil
}

// ParseRange reads "5-12", "5-", "-12", "7" or "" into 1-based bounds.
// Zero means open.
func ParseRange(rng string) (start, end int, err error) {
	rng = strings.TrimSpace(rng)
	if rng == "" {
		return 0, 0, nil
	}

	left, right, found := strings.Cut(rng, "-")
	if !found {
		n, err := atoi(left)
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
		}
		return n, n, nil
	}

	if start, err = bound(left); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
	}
	if end, err = bound(right); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
	}
	if start > 0 && end > 0 && start > end {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
	}

	return start, end, nil
}

func bound(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}

	n, err := atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("bound %d must be positive", n)
	}

	return n, nil
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
