package downloader

import (
	"context"
	"sync"

	"github.com/brogergvhs/noveld/internal/chapters"
)

type item struct {
	pos int
	ch  chapters.Chapter
}

type indexed struct {
	pos int
	Outcome
}

// Run downloads job's chapters on a fixed pool of workers and returns once
// every dispatched chapter has an outcome.
//
// Cancelling ctx stops dispatch. Chapters already handed to a worker finish
// under a context detached from ctx, bounded by their own request timeout;
// chapters never dispatched stay StatusPending and Result.Cancelled is set.
func (d *Downloader) Run(ctx context.Context, job Job, rep Reporter) *Result {
	total := len(job.Chapters)
	res := &Result{Outcomes: make([]Outcome, total)}
	for i, ch := range job.Chapters {
		res.Outcomes[i] = Outcome{Chapter: ch, Status: StatusPending}
	}

	if total == 0 {
		return res
	}
	if rep == nil {
		rep = ReporterFunc(func(Outcome, int, int) {})
	}

	workers := job.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	if workers > total {
		workers = total
	}

	jobs := make(chan item)
	outcomes := make(chan indexed)
	done := make(chan struct{})

	go aggregate(res, outcomes, total, rep, done)

	detached := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for it := range jobs {
				outcomes <- indexed{pos: it.pos, Outcome: d.process(detached, job.Store, it.ch)}
			}
		}()
	}

	d.log.Debugf("dispatching %d chapters of %q to %d workers", total, job.Work.Title, workers)

	cancelled := dispatch(ctx, job.Chapters, jobs, outcomes)

	close(jobs)
	wg.Wait()
	close(outcomes)
	<-done

	res.Cancelled = cancelled
	for _, o := range res.Outcomes {
		if o.Status == StatusPending {
			res.Pending++
		}
	}

	if cancelled {
		d.log.Warnf("run cancelled with %d chapters not started", res.Pending)
	}

	return res
}

// dispatch feeds chapters to the workers in catalog order. A chapter whose
// key was already dispatched is not sent; it gets a duplicate outcome that
// names the first chapter with that key.
func dispatch(ctx context.Context, list []chapters.Chapter, jobs chan<- item, outcomes chan<- indexed) bool {
	first := make(map[string]int, len(list))

	for pos, ch := range list {
		if ctx.Err() != nil {
			return true
		}

		key := ch.Key()
		if prev, dup := first[key]; dup {
			orig := list[prev]
			outcomes <- indexed{pos: pos, Outcome: Outcome{
				Chapter:     ch,
				Status:      StatusDuplicate,
				DuplicateOf: &orig,
			}}
			continue
		}

		select {
		case <-ctx.Done():
			return true
		case jobs <- item{pos: pos, ch: ch}:
			first[key] = pos
		}
	}

	return false
}

// aggregate is the only writer of res until done is closed.
func aggregate(res *Result, in <-chan indexed, total int, rep Reporter, done chan<- struct{}) {
	defer close(done)

	completed := 0
	for o := range in {
		res.Outcomes[o.pos] = o.Outcome
		completed++

		switch o.Status {
		case StatusCompleted:
			res.Completed++
			res.Bytes += o.Bytes
		case StatusSkipped:
			res.Skipped++
		case StatusFailed:
			res.Failed++
		case StatusDuplicate:
			res.Duplicates++
		}

		rep.OnOutcome(o.Outcome, completed, total)
	}
}
