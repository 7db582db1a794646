package ui

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/brogergvhs/noveld/internal/downloader"
	"github.com/brogergvhs/noveld/internal/logging"
	"github.com/brogergvhs/noveld/internal/util"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Render drains events, drawing a bar on out when it is a terminal and
// writing log lines otherwise. It returns after the terminal event.
func Render(events <-chan Event, label string, out *os.File, log *logging.Logger) {
	if IsTerminal(out) {
		RenderBar(events, label, out)
		return
	}

	RenderLog(events, log)
}

type barHandle struct {
	bar   *mpb.Bar
	bytes atomic.Int64
	start time.Time

	elapsed atomic.Int64
	final   atomic.Bool
}

func RenderBar(events <-chan Event, label string, out io.Writer) {
	p := mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(out),
		mpb.WithRefreshRate(120*time.Millisecond),
	)

	h := &barHandle{start: time.Now()}
	h.bar = p.New(
		0,
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(label+"  "),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d chapters", decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				return " | " + util.Human(h.bytes.Load())
			}),
			decor.Any(func(_ decor.Statistics) string {
				if h.final.Load() {
					return fmt.Sprintf(" | %ds", h.elapsed.Load())
				}

				return fmt.Sprintf(" | %ds", int(time.Since(h.start).Seconds()))
			}),
		),
	)

	for ev := range events {
		switch ev.Kind {
		case EventProgress:
			h.update(ev)
		case EventCompleted:
			h.markDone(false)
		case EventError:
			h.markDone(true)
		}
	}

	h.markDone(false)
	p.Wait()
}

func (h *barHandle) update(ev Event) {
	if h.final.Load() {
		return
	}

	if ev.Total > 0 {
		h.bar.SetTotal(int64(ev.Total), false)
	}
	h.bytes.Store(ev.Bytes)
	h.bar.SetCurrent(int64(ev.Completed))
}

func (h *barHandle) markDone(aborted bool) {
	if h.final.Swap(true) {
		return
	}

	h.elapsed.Store(int64(time.Since(h.start).Seconds()))

	if aborted {
		h.bar.Abort(false)
		return
	}
	h.bar.SetTotal(-1, true)
}

// RenderLog writes one line per event.
func RenderLog(events <-chan Event, log *logging.Logger) {
	if log == nil {
		log = logging.Discard()
	}

	for ev := range events {
		switch ev.Kind {
		case EventProgress:
			switch ev.Status {
			case downloader.StatusFailed:
				log.Warnf("[%d/%d] %s failed: %s", ev.Completed, ev.Total, ev.Title, ev.Message)
			case downloader.StatusDuplicate:
				log.Warnf("[%d/%d] %s skipped as duplicate: %s", ev.Completed, ev.Total, ev.Title, ev.Message)
			default:
				log.Infof("[%d/%d] %5.1f%% %s %s", ev.Completed, ev.Total, ev.Percent, ev.Title, ev.Status)
			}
		case EventCompleted:
			log.Infof("done, %s written", util.Human(ev.Bytes))
		case EventError:
			log.Errorf("stopped: %s", ev.Message)
		}
	}
}
