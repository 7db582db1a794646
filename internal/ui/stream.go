// Package ui turns scheduler outcomes into a progress event stream and
// renders that stream on a console.
package ui

import (
	"sync"

	"github.com/brogergvhs/noveld/internal/downloader"
)

type EventKind int

const (
	EventProgress EventKind = iota
	EventCompleted
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one progress notification. Percent is in [0, 100].
type Event struct {
	Kind    EventKind
	Percent float64
	Title   string
	Message string

	Status    downloader.Status
	Completed int
	Total     int
	Bytes     int64 // cumulative bytes written
}

// Stream is a downloader.Reporter that publishes Events on a channel.
// The channel carries one EventProgress per outcome and exactly one
// terminal event, after which it is closed. Consumers must drain it.
type Stream struct {
	mu     sync.Mutex
	events chan Event
	closed bool
	once   sync.Once

	stats Stats
}

func NewStream(buffer int) *Stream {
	if buffer < 0 {
		buffer = 0
	}

	return &Stream{events: make(chan Event, buffer)}
}

func (s *Stream) Events() <-chan Event {
	return s.events
}

func (s *Stream) Stats() *Stats {
	return &s.stats
}

func (s *Stream) OnOutcome(o downloader.Outcome, completed, total int) {
	s.stats.record(o)

	ev := Event{
		Kind:      EventProgress,
		Percent:   percent(completed, total),
		Title:     o.Chapter.Title,
		Message:   o.Reason(),
		Status:    o.Status,
		Completed: completed,
		Total:     total,
		Bytes:     s.stats.Bytes.Load(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.events <- ev
}

// Finish publishes the terminal event and closes the channel. Only the
// first call has an effect.
func (s *Stream) Finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		ev := Event{
			Kind:    EventCompleted,
			Percent: 100,
			Bytes:   s.stats.Bytes.Load(),
		}
		if err != nil {
			ev = Event{Kind: EventError, Message: err.Error(), Bytes: ev.Bytes}
		}

		s.events <- ev
		s.closed = true
		close(s.events)
	})
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 100
	}

	p := float64(done) * 100 / float64(total)
	if p > 100 {
		return 100
	}

	return p
}
