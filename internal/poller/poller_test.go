package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/exambuilder/internal/model"
)

// scriptFetcher returns the scripted responses in order, then repeats the
// last one.
type scriptFetcher struct {
	mu    sync.Mutex
	steps []step
	calls map[string]int
	block chan struct{}
}

type step struct {
	pages    int
	complete bool
	err      error
}

func (f *scriptFetcher) FetchManifest(ctx context.Context, slug string) (*model.Manifest, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	i := min(f.calls[slug], len(f.steps)-1)
	f.calls[slug]++
	st := f.steps[i]
	if st.err != nil {
		return nil, st.err
	}
	return &model.Manifest{Metadata: model.ManifestMetadata{
		Slug:                    slug,
		ProcessingPagesComplete: st.pages,
		ProcessingCompleted:     st.complete,
	}}, nil
}

func (f *scriptFetcher) count(slug string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[slug]
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestPollUntilComplete(t *testing.T) {
	f := &scriptFetcher{steps: []step{
		{pages: 0},
		{err: errors.New("connection reset")},
		{pages: 1},
		{pages: 2, complete: true},
	}}
	p := New(f, time.Millisecond)

	var mu sync.Mutex
	var seen []int
	s := p.Start(context.Background(), "bio", func(m *model.Manifest) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, m.Metadata.ProcessingPagesComplete)
	})
	waitDone(t, s)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, seen, "errors are skipped, polling continues")
	assert.Equal(t, 4, f.count("bio"))
	require.NotNil(t, s.Last())
	assert.True(t, s.Last().Metadata.ProcessingCompleted)
}

func TestStartCancelsPrevious(t *testing.T) {
	f := &scriptFetcher{steps: []step{{pages: 1}}}
	p := New(f, time.Millisecond)

	first := p.Start(context.Background(), "old", nil)
	second := p.Start(context.Background(), "new", nil)

	waitDone(t, first)
	select {
	case <-second.Done():
		t.Fatal("second session ended early")
	default:
	}

	p.Stop()
	waitDone(t, second)
}

func TestStoppedSessionDropsLateResults(t *testing.T) {
	f := &scriptFetcher{steps: []step{{pages: 7}}, block: make(chan struct{})}
	p := New(f, time.Millisecond)

	called := false
	s := p.Start(context.Background(), "bio", func(*model.Manifest) { called = true })
	s.Stop()
	close(f.block)
	waitDone(t, s)

	assert.False(t, called)
	assert.Nil(t, s.Last())
}

func TestStopWaitsForInFlightUpdate(t *testing.T) {
	f := &scriptFetcher{steps: []step{{pages: 1}}}
	p := New(f, time.Millisecond)

	var calls atomic.Int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	s := p.Start(context.Background(), "bio", func(*model.Manifest) {
		calls.Add(1)
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	})

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while an update was being delivered")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	n := calls.Load()
	waitDone(t, s)
	assert.Equal(t, n, calls.Load(), "update delivered after Stop returned")
}

func TestContextCancelEndsSession(t *testing.T) {
	f := &scriptFetcher{steps: []step{{pages: 1}}}
	p := New(f, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s := p.Start(ctx, "bio", nil)
	cancel()
	waitDone(t, s)
}

func TestDefaultInterval(t *testing.T) {
	p := New(&scriptFetcher{}, 0)
	assert.Equal(t, DefaultInterval, p.interval)
}
