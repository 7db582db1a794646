// Package novel drives one download of one work: resolve, slice, schedule,
// summarize.
package novel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/downloader"
	"github.com/brogergvhs/noveld/internal/export"
	"github.com/brogergvhs/noveld/internal/library"
	"github.com/brogergvhs/noveld/internal/logging"
	"github.com/brogergvhs/noveld/internal/providers"
	"github.com/brogergvhs/noveld/internal/store"
)

var (
	ErrEmptyCatalog = errors.New("catalog has no chapters")
	ErrInterrupted  = errors.New("run interrupted")
)

type Request struct {
	SourceURL   string
	Destination string
	RangeStart  int // 1-based, 0 = first chapter
	RangeEnd    int // inclusive, 0 = last chapter
	EPUB        bool
}

// Plan is a resolved work and the chapters selected for download.
type Plan struct {
	Adapter  providers.Adapter
	Work     providers.Work
	Catalog  int
	Chapters []chapters.Chapter
}

type Failure struct {
	Index  int
	Title  string
	Reason string
}

type Summary struct {
	RunID       string
	Work        providers.Work
	Destination string

	Total      int
	Completed  int
	Skipped    int
	Failed     int
	Duplicates int
	Pending    int
	Cancelled  bool

	Failures []Failure
	Warnings []Failure
	Bytes    int64
	Elapsed  time.Duration

	EPUBPath     string
	EPUBChapters int
}

// OK reports whether every selected chapter ended up on disk.
func (s *Summary) OK() bool {
	return s.Failed == 0 && s.Pending == 0 && !s.Cancelled
}

type Recorder interface {
	Record(ctx context.Context, e library.Entry, run library.Run) error
}

type Options struct {
	Registry       *providers.Registry
	Fetcher        providers.Fetcher
	Workers        int
	ContentTimeout time.Duration
	Library        Recorder // optional
	Logger         *logging.Logger
}

type Runner struct {
	registry *providers.Registry
	fetcher  providers.Fetcher
	workers  int
	timeout  time.Duration
	library  Recorder
	log      *logging.Logger

	now   func() time.Time
	newID func() string
}

func NewRunner(opts Options) *Runner {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	workers := opts.Workers
	if workers < 1 {
		workers = downloader.DefaultWorkers
	}

	return &Runner{
		registry: opts.Registry,
		fetcher:  opts.Fetcher,
		workers:  workers,
		timeout:  opts.ContentTimeout,
		library:  opts.Library,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Plan resolves the work and its catalog and applies the requested range.
// No chapter is fetched.
func (r *Runner) Plan(ctx context.Context, req Request) (*Plan, error) {
	adapter, err := r.registry.Resolve(req.SourceURL)
	if err != nil {
		return nil, err
	}
	log := r.log.With("adapter", adapter.Name())

	work, err := adapter.ResolveMetadata(ctx, req.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("resolve metadata: %w", err)
	}
	log.Debugf("resolved %q by %s", work.Title, work.Author)

	catalog, err := adapter.ResolveCatalog(ctx, req.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog: %w", err)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCatalog, req.SourceURL)
	}

	selected, err := chapters.Slice(chapters.Wrap(catalog), req.RangeStart, req.RangeEnd)
	if err != nil {
		return nil, err
	}
	log.Debugf("catalog has %d chapters, %d selected", len(catalog), len(selected))

	return &Plan{
		Adapter:  adapter,
		Work:     work,
		Catalog:  len(catalog),
		Chapters: selected,
	}, nil
}

type finisher interface {
	Finish(err error)
}

// Run downloads the selected chapters of req.SourceURL into req.Destination.
//
// Errors before the scheduler starts are returned with a nil Summary.
// Chapter failures are reported in the Summary, not as an error. When ctx
// is cancelled mid-run the Summary is returned together with ErrInterrupted.
// If rep has a Finish(error) method it is called exactly once.
func (r *Runner) Run(ctx context.Context, req Request, rep downloader.Reporter) (*Summary, error) {
	plan, err := r.Plan(ctx, req)
	if err != nil {
		if f, ok := rep.(finisher); ok {
			f.Finish(err)
		}
		return nil, err
	}

	return r.Execute(ctx, plan, req, rep)
}

// Execute runs the scheduler for an already resolved plan.
func (r *Runner) Execute(ctx context.Context, plan *Plan, req Request, rep downloader.Reporter) (sum *Summary, err error) {
	if f, ok := rep.(finisher); ok {
		defer func() { f.Finish(err) }()
	}

	start := r.now()
	runID := r.newID()
	log := r.log.With("run", runID)

	st, err := store.Open(req.Destination)
	if err != nil {
		return nil, err
	}
	if err := st.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Warnf("release destination: %v", cerr)
		}
	}()

	if n, err := st.CleanupTemp(); err != nil {
		log.Warnf("clean temporary files: %v", err)
	} else if n > 0 {
		log.Infof("removed %d temporary files from an earlier run", n)
	}

	log.Infof("downloading %d of %d chapters of %q into %s", len(plan.Chapters), plan.Catalog, plan.Work.Title, req.Destination)

	d := downloader.New(r.fetcher, plan.Adapter, downloader.Options{
		Timeout: r.timeout,
		Logger:  log,
	})
	res := d.Run(ctx, downloader.Job{
		Work:     plan.Work,
		Chapters: plan.Chapters,
		Store:    st,
		Workers:  r.workers,
	}, rep)

	sum = summarize(runID, plan, req.Destination, res)
	sum.Elapsed = r.now().Sub(start)

	r.record(ctx, log, sum, start)

	if req.EPUB {
		r.exportEPUB(log, sum, plan, st)
	}

	if res.Cancelled {
		return sum, fmt.Errorf("%w: %d chapters not started", ErrInterrupted, res.Pending)
	}

	return sum, nil
}

func summarize(runID string, plan *Plan, dest string, res *downloader.Result) *Summary {
	sum := &Summary{
		RunID:       runID,
		Work:        plan.Work,
		Destination: dest,
		Total:       len(plan.Chapters),
		Completed:   res.Completed,
		Skipped:     res.Skipped,
		Failed:      res.Failed,
		Duplicates:  res.Duplicates,
		Pending:     res.Pending,
		Cancelled:   res.Cancelled,
		Bytes:       res.Bytes,
	}

	for _, o := range res.Outcomes {
		f := Failure{Index: o.Chapter.Index, Title: o.Chapter.Title, Reason: o.Reason()}
		switch o.Status {
		case downloader.StatusFailed:
			sum.Failures = append(sum.Failures, f)
		case downloader.StatusDuplicate:
			sum.Warnings = append(sum.Warnings, f)
		}
	}

	return sum
}

func (r *Runner) record(ctx context.Context, log *logging.Logger, sum *Summary, start time.Time) {
	if r.library == nil {
		return
	}

	err := r.library.Record(context.WithoutCancel(ctx), library.Entry{
		SourceURL:   sum.Work.SourceURL,
		Title:       sum.Work.Title,
		Author:      sum.Work.Author,
		Destination: sum.Destination,
		Chapters:    sum.Completed + sum.Skipped,
		UpdatedAt:   r.now(),
	}, library.Run{
		ID:        sum.RunID,
		StartedAt: start,
		Completed: sum.Completed,
		Skipped:   sum.Skipped,
		Failed:    sum.Failed,
	})
	if err != nil {
		log.Warnf("update library: %v", err)
	}
}

func (r *Runner) exportEPUB(log *logging.Logger, sum *Summary, plan *Plan, st *store.Store) {
	path := export.Path(st.Dir(), plan.Work)

	n, err := export.WriteEPUB(plan.Work, plan.Chapters, st, path)
	if err != nil {
		log.Warnf("epub export: %v", err)
		return
	}

	sum.EPUBPath = path
	sum.EPUBChapters = n
	log.Infof("wrote %s (%d chapters)", path, n)
}
