// Package poller follows an exam's manifest until processing completes.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/exambuilder/internal/model"
)

// DefaultInterval is the pause between manifest fetches.
const DefaultInterval = time.Second

// Fetcher loads the current manifest of an exam.
type Fetcher interface {
	FetchManifest(ctx context.Context, slug string) (*model.Manifest, error)
}

// Poller runs at most one polling session at a time. Starting a new
// session stops the previous one first.
type Poller struct {
	fetch    Fetcher
	interval time.Duration

	mu      sync.Mutex
	current *Session
}

// New creates a poller. A non-positive interval means DefaultInterval.
func New(f Fetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{fetch: f, interval: interval}
}

// Session is one polling run for one exam.
type Session struct {
	Slug string

	cancel context.CancelFunc
	done   chan struct{}

	// mu is held while a manifest is accepted and delivered, so Stop
	// cannot return in the middle of a delivery.
	mu      sync.Mutex
	stopped bool
	last    *model.Manifest
}

// Start begins polling slug, calling onUpdate with every manifest fetched
// while the session is live. The session ends when the manifest reports
// completion, when ctx is cancelled, or when Stop or another Start is
// called. onUpdate must not call Stop or Start on the same poller; cancel
// ctx to end the session from inside it.
func (p *Poller) Start(ctx context.Context, slug string, onUpdate func(*model.Manifest)) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.Stop()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{Slug: slug, cancel: cancel, done: make(chan struct{})}
	p.current = s
	go p.run(ctx, s, onUpdate)
	return s
}

// Stop ends the current session, if any.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.Stop()
		p.current = nil
	}
}

func (p *Poller) run(ctx context.Context, s *Session, onUpdate func(*model.Manifest)) {
	defer close(s.done)
	defer s.cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if p.poll(ctx, s, onUpdate) {
			slog.Info("processing completed", "slug", s.Slug)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll fetches once and reports whether processing has completed.
func (p *Poller) poll(ctx context.Context, s *Session, onUpdate func(*model.Manifest)) bool {
	m, err := p.fetch.FetchManifest(ctx, s.Slug)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if err != nil {
		slog.Warn("manifest poll failed", "slug", s.Slug, "error", err)
		return false
	}
	s.last = m
	if onUpdate != nil {
		onUpdate(m)
	}
	return m.Metadata.ProcessingCompleted
}

// Stop ends the session. It waits for an update being delivered to finish;
// results arriving afterwards are discarded.
func (s *Session) Stop() {
	s.cancel()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Last returns the most recent manifest accepted by the session.
func (s *Session) Last() *model.Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
