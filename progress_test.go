package main

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/shorts-go/internal/youtube"
)

// recordingRenderer keeps every update it receives.
type recordingRenderer struct {
	updates  []youtube.Progress
	finished bool
}

func (r *recordingRenderer) Update(p youtube.Progress) { r.updates = append(r.updates, p) }
func (r *recordingRenderer) Finish()                   { r.finished = true }

func TestProgressSink_LatestWins(t *testing.T) {
	s := newProgressSink()

	s.Send(youtube.Progress{BytesSent: 1, TotalBytes: 10})
	s.Send(youtube.Progress{BytesSent: 2, TotalBytes: 10})
	s.Send(youtube.Progress{BytesSent: 3, TotalBytes: 10})

	got := <-s.ch
	assert.Equal(t, int64(3), got.BytesSent)
}

func TestProgressSink_SendAfterCloseIsDropped(t *testing.T) {
	s := newProgressSink()
	s.Close()
	s.Close()

	assert.NotPanics(t, func() { s.Send(youtube.Progress{BytesSent: 1, TotalBytes: 1}) })

	_, ok := <-s.ch
	assert.False(t, ok)
}

func TestRunWithProgress_Success(t *testing.T) {
	r := &recordingRenderer{}

	video, err := runWithProgress(r, func(progress youtube.ProgressFunc) (*youtube.Video, error) {
		progress(youtube.Progress{BytesSent: 10, TotalBytes: 10})
		return &youtube.Video{ID: "abc"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", video.ID)
	assert.True(t, r.finished)

	require.NotEmpty(t, r.updates)
	assert.Equal(t, int64(10), r.updates[len(r.updates)-1].BytesSent)
}

func TestRunWithProgress_Error(t *testing.T) {
	r := &recordingRenderer{}
	boom := errors.New("boom")

	video, err := runWithProgress(r, func(youtube.ProgressFunc) (*youtube.Video, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, video)
	assert.True(t, r.finished)
}

func TestProgressSink_DiscardDropsPending(t *testing.T) {
	s := newProgressSink()

	s.Send(youtube.Progress{BytesSent: 5, TotalBytes: 10})
	s.Discard()
	s.Discard()

	_, ok := <-s.ch
	assert.False(t, ok)
}

// blockingRenderer holds the first update until released.
type blockingRenderer struct {
	recordingRenderer

	taken   chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingRenderer) Update(p youtube.Progress) {
	r.recordingRenderer.Update(p)
	r.once.Do(func() {
		close(r.taken)
		<-r.release
	})
}

func TestRunWithProgress_CanceledDropsBufferedUpdate(t *testing.T) {
	r := &blockingRenderer{taken: make(chan struct{}), release: make(chan struct{})}
	sink := newProgressSink()

	go func() {
		<-r.taken
		assert.Eventually(t, func() bool {
			sink.mu.Lock()
			defer sink.mu.Unlock()

			return sink.closed
		}, 5*time.Second, time.Millisecond)
		close(r.release)
	}()

	_, err := runWithSink(sink, r, func(progress youtube.ProgressFunc) (*youtube.Video, error) {
		progress(youtube.Progress{BytesSent: 3, TotalBytes: 10})
		<-r.taken

		// Buffered while the renderer is busy, then the transfer is canceled.
		progress(youtube.Progress{BytesSent: 4, TotalBytes: 10})

		return nil, youtube.ErrCanceled
	})
	require.ErrorIs(t, err, youtube.ErrCanceled)

	require.Len(t, r.updates, 1)
	assert.Equal(t, int64(3), r.updates[0].BytesSent)
	assert.True(t, r.finished)
}

func TestRunWithProgress_UpdatesNonDecreasing(t *testing.T) {
	r := &recordingRenderer{}

	_, err := runWithProgress(r, func(progress youtube.ProgressFunc) (*youtube.Video, error) {
		for sent := int64(0); sent <= 1000; sent += 10 {
			progress(youtube.Progress{BytesSent: sent, TotalBytes: 1000})
		}

		return &youtube.Video{}, nil
	})
	require.NoError(t, err)

	for i := 1; i < len(r.updates); i++ {
		assert.GreaterOrEqual(t, r.updates[i].BytesSent, r.updates[i-1].BytesSent)
	}

	assert.Equal(t, int64(1000), r.updates[len(r.updates)-1].BytesSent)
}

func TestBarRenderer(t *testing.T) {
	var buf bytes.Buffer
	b := &barRenderer{w: &buf, width: 10, lastDrawn: -1}

	b.Update(youtube.Progress{BytesSent: 500_000, TotalBytes: 1_000_000})
	b.Update(youtube.Progress{BytesSent: 500_000, TotalBytes: 1_000_000})
	b.Update(youtube.Progress{BytesSent: 1_000_000, TotalBytes: 1_000_000})
	b.Finish()

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\r"))
	assert.Contains(t, out, "[=====     ]  50.0%  500 kB / 1.0 MB")
	assert.Contains(t, out, "[==========] 100.0%  1.0 MB / 1.0 MB")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestBarRenderer_FinishWithoutUpdates(t *testing.T) {
	var buf bytes.Buffer
	b := &barRenderer{w: &buf, width: 10, lastDrawn: -1}
	b.Finish()
	assert.Empty(t, buf.String())
}

func TestLogRenderer_Steps(t *testing.T) {
	var buf bytes.Buffer
	l := &logRenderer{logger: slog.New(slog.NewTextHandler(&buf, nil)), step: 10}

	for sent := int64(0); sent <= 100; sent += 5 {
		l.Update(youtube.Progress{BytesSent: sent, TotalBytes: 100})
	}

	// 0, 10, ..., 100.
	assert.Equal(t, 11, strings.Count(buf.String(), "upload progress"))
	assert.Contains(t, buf.String(), "percent=100.0")
}

func TestNewProgressRenderer(t *testing.T) {
	cc := &CLIContext{Stderr: &bytes.Buffer{}, Logger: slog.New(slog.DiscardHandler)}

	_, isBar := newProgressRenderer(cc, true).(*barRenderer)
	assert.True(t, isBar)

	_, isLog := newProgressRenderer(cc, false).(*logRenderer)
	assert.True(t, isLog)

	cc.Flags.Quiet = true
	_, isLog = newProgressRenderer(cc, true).(*logRenderer)
	assert.True(t, isLog)
}
