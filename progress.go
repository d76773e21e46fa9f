package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/shorts-go/internal/youtube"
)

const (
	barWidth = 30

	// logStepPercent spaces progress log lines when stderr is not a terminal.
	logStepPercent = 10.0
)

// progressRenderer displays transfer progress.
type progressRenderer interface {
	Update(p youtube.Progress)
	Finish()
}

// newProgressRenderer draws a bar on a terminal and logs periodic lines
// otherwise. Quiet mode and JSON output never draw the bar.
func newProgressRenderer(cc *CLIContext, tty bool) progressRenderer {
	if tty && !cc.Flags.Quiet && !cc.Flags.JSON {
		return &barRenderer{w: cc.Stderr, width: barWidth, lastDrawn: -1}
	}

	return &logRenderer{logger: cc.Logger, step: logStepPercent}
}

// barRenderer redraws a single terminal line.
type barRenderer struct {
	w         io.Writer
	width     int
	lastDrawn int // tenths of a percent
	drawn     bool
}

func (b *barRenderer) Update(p youtube.Progress) {
	pct := p.Percent()

	tenths := int(pct * 10)
	if tenths == b.lastDrawn {
		return
	}

	b.lastDrawn = tenths
	b.drawn = true

	filled := int(pct / 100 * float64(b.width))
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", b.width-filled)

	fmt.Fprintf(b.w, "\r[%s] %5.1f%%  %s / %s", bar, pct, formatSize(p.BytesSent), formatSize(p.TotalBytes))
}

func (b *barRenderer) Finish() {
	if b.drawn {
		fmt.Fprintln(b.w)
	}
}

// logRenderer emits one log line per step of progress.
type logRenderer struct {
	logger *slog.Logger
	step   float64
	next   float64
}

func (l *logRenderer) Update(p youtube.Progress) {
	pct := p.Percent()
	if pct < l.next {
		return
	}

	l.next = math.Floor(pct/l.step)*l.step + l.step

	l.logger.Info("upload progress",
		slog.Int64("bytes_sent", p.BytesSent),
		slog.Int64("total_bytes", p.TotalBytes),
		slog.String("percent", fmt.Sprintf("%.1f", pct)),
	)
}

func (l *logRenderer) Finish() {}

// progressSink decouples the transfer from the renderer. Send never blocks:
// when the renderer lags, the pending snapshot is replaced by the newest.
type progressSink struct {
	mu     sync.Mutex
	ch     chan youtube.Progress
	closed bool
}

func newProgressSink() *progressSink {
	return &progressSink{ch: make(chan youtube.Progress, 1)}
}

func (s *progressSink) Send(p youtube.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case <-s.ch:
	default:
	}

	s.ch <- p
}

func (s *progressSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Discard drops any snapshot not yet rendered and closes the sink.
func (s *progressSink) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case <-s.ch:
	default:
	}

	s.closed = true
	close(s.ch)
}

// runWithProgress runs transfer and the renderer side by side and returns
// the transfer's result once both have finished. Nothing is rendered after a
// canceled transfer returns.
func runWithProgress(
	r progressRenderer, transfer func(youtube.ProgressFunc) (*youtube.Video, error),
) (*youtube.Video, error) {
	return runWithSink(newProgressSink(), r, transfer)
}

func runWithSink(
	sink *progressSink, r progressRenderer, transfer func(youtube.ProgressFunc) (*youtube.Video, error),
) (*youtube.Video, error) {
	var (
		g     errgroup.Group
		video *youtube.Video
	)

	g.Go(func() error {
		for p := range sink.ch {
			r.Update(p)
		}

		r.Finish()

		return nil
	})

	g.Go(func() error {
		v, err := transfer(sink.Send)
		video = v

		if errors.Is(err, youtube.ErrCanceled) {
			sink.Discard()
		} else {
			sink.Close()
		}

		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return video, nil
}
