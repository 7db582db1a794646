package ui

import (
	"sync/atomic"

	"github.com/brogergvhs/noveld/internal/downloader"
)

// Stats are running totals readable while a job is in progress.
type Stats struct {
	Chapters atomic.Int64
	Failed   atomic.Int64
	Bytes    atomic.Int64
}

func (s *Stats) record(o downloader.Outcome) {
	s.Chapters.Add(1)
	s.Bytes.Add(o.Bytes)
	if o.Status == downloader.StatusFailed {
		s.Failed.Add(1)
	}
}
