package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/eduminer/engine"
)

// fakePage scripts what a tab sees for URLs starting with a given prefix.
type fakePage struct {
	html    string
	empty   bool
	navErr  error
	waitErr error
	delay   time.Duration
	panics  bool
}

type fakeLauncher struct {
	pages     map[string]fakePage
	launchErr error

	mu       sync.Mutex
	sessions []*fakeSession
}

func (l *fakeLauncher) Launch(ctx context.Context) (engine.Session, error) {
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	s := &fakeSession{pages: l.pages}
	l.mu.Lock()
	l.sessions = append(l.sessions, s)
	l.mu.Unlock()
	return s, nil
}

type fakeSession struct {
	pages  map[string]fakePage
	closed atomic.Int32

	mu   sync.Mutex
	tabs []*fakeTab
}

func (s *fakeSession) NewTab(ctx context.Context) (engine.Tab, error) {
	if s.closed.Load() > 0 {
		return nil, errors.New("session closed")
	}
	t := &fakeTab{pages: s.pages}
	s.mu.Lock()
	s.tabs = append(s.tabs, t)
	s.mu.Unlock()
	return t, nil
}

func (s *fakeSession) Close() error {
	s.closed.Add(1)
	return nil
}

func (s *fakeSession) openTabs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tabs {
		if t.closed.Load() == 0 {
			n++
		}
	}
	return n
}

type fakeTab struct {
	pages  map[string]fakePage
	page   fakePage
	setup  engine.TabSetup
	url    string
	closed atomic.Int32
}

func (t *fakeTab) Setup(setup engine.TabSetup) error {
	t.setup = setup
	return nil
}

func (t *fakeTab) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	t.url = url
	for prefix, p := range t.pages {
		if strings.HasPrefix(url, prefix) {
			t.page = p
			break
		}
	}
	if t.page.panics {
		panic("renderer went away")
	}
	if t.page.delay > 0 {
		select {
		case <-time.After(t.page.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return t.page.navErr
}

func (t *fakeTab) WaitFor(ctx context.Context, selector, emptySelector string, timeout time.Duration) (engine.WaitResult, error) {
	if t.page.waitErr != nil {
		return engine.WaitMatched, t.page.waitErr
	}
	if t.page.empty && emptySelector != "" {
		return engine.WaitEmpty, nil
	}
	return engine.WaitMatched, nil
}

func (t *fakeTab) HTML(ctx context.Context) (string, error) {
	return t.page.html, nil
}

func (t *fakeTab) Close() error {
	t.closed.Add(1)
	return nil
}
