package downloader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/fetch"
	"github.com/brogergvhs/noveld/internal/logging"
	"github.com/brogergvhs/noveld/internal/providers"
	"github.com/brogergvhs/noveld/internal/store"
)

const DefaultWorkers = 5

var (
	ErrEmptyContent = errors.New("chapter page has no text")
	ErrPanic        = errors.New("chapter worker panicked")
)

type Status int

const (
	StatusPending Status = iota
	StatusCompleted
	StatusSkipped
	StatusFailed
	StatusDuplicate
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Outcome is the terminal state of one chapter.
type Outcome struct {
	Chapter chapters.Chapter
	Status  Status
	Err     error // StatusFailed only

	// DuplicateOf is the earlier chapter holding the same key (StatusDuplicate).
	DuplicateOf *chapters.Chapter

	Bytes int64
}

func (o Outcome) Reason() string {
	switch {
	case o.Err != nil:
		return o.Err.Error()
	case o.DuplicateOf != nil:
		return fmt.Sprintf("same key as chapter %d %q", o.DuplicateOf.Index, o.DuplicateOf.Title)
	default:
		return ""
	}
}

type Store interface {
	Exists(key string) (bool, error)
	WriteIfAbsent(key, content string) (store.WriteResult, error)
}

// Job is one batch of chapters for a single work and destination.
type Job struct {
	Work     providers.Work
	Chapters []chapters.Chapter
	Store    Store
	Workers  int
}

// Reporter receives every outcome once, with a completed count that grows
// by one per call. Calls come from a single goroutine.
type Reporter interface {
	OnOutcome(o Outcome, completed, total int)
}

type ReporterFunc func(o Outcome, completed, total int)

func (f ReporterFunc) OnOutcome(o Outcome, completed, total int) {
	f(o, completed, total)
}

// Result aggregates a job. Outcomes are in catalog order.
type Result struct {
	Outcomes []Outcome

	Completed  int
	Skipped    int
	Failed     int
	Duplicates int
	Pending    int
	Bytes      int64

	Cancelled bool
}

func (r *Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}

	return out
}

type Options struct {
	Timeout time.Duration // per chapter page request
	Logger  *logging.Logger
}

type Downloader struct {
	fetcher providers.Fetcher
	adapter providers.Adapter
	timeout time.Duration
	log     *logging.Logger
}

func New(f providers.Fetcher, a providers.Adapter, opts Options) *Downloader {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = providers.ContentTimeout
	}

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	return &Downloader{
		fetcher: f,
		adapter: a,
		timeout: timeout,
		log:     log,
	}
}

// process runs one chapter through exists, fetch, extract and store. It
// never panics.
func (d *Downloader) process(ctx context.Context, st Store, ch chapters.Chapter) (o Outcome) {
	o = Outcome{Chapter: ch}
	log := d.log.With("chapter", ch.Index)

	defer func() {
		if r := recover(); r != nil {
			o.Status = StatusFailed
			o.Err = fmt.Errorf("%w: %v", ErrPanic, r)
			log.Errorf("recovered panic in %q: %v", ch.Title, r)
		}
	}()

	fail := func(err error) Outcome {
		o.Status = StatusFailed
		o.Err = err
		log.Warnf("%q failed: %v", ch.Title, err)
		return o
	}

	key := ch.Key()

	present, err := st.Exists(key)
	if err != nil {
		return fail(err)
	}
	if present {
		log.Debugf("%q already present", ch.Title)
		o.Status = StatusSkipped
		return o
	}

	page, err := d.fetcher.Get(ctx, fetch.Request{
		URL:     ch.URL,
		Referer: d.adapter.Referer(),
		Timeout: d.timeout,
	})
	if err != nil {
		return fail(err)
	}

	text, err := d.adapter.ExtractContent(ch.URL, page)
	if err != nil {
		return fail(err)
	}
	if text == "" {
		return fail(fmt.Errorf("%w: %s", ErrEmptyContent, ch.URL))
	}

	res, err := st.WriteIfAbsent(key, text)
	if err != nil {
		return fail(err)
	}

	if res == store.AlreadyPresent {
		o.Status = StatusSkipped
		return o
	}

	log.Debugf("%q saved (%d bytes)", ch.Title, len(text))
	o.Status = StatusCompleted
	o.Bytes = int64(len(text))

	return o
}
