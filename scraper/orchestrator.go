package scraper

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/eduminer/engine"
	"github.com/use-agent/eduminer/grade"
	"github.com/use-agent/eduminer/metrics"
	"github.com/use-agent/eduminer/models"
	"golang.org/x/sync/errgroup"
)

// maxParallelSources bounds the extractors running inside one session.
const maxParallelSources = 3

// Scorer annotates merged items with relevance scores for a query and grade.
type Scorer interface {
	Score(ctx context.Context, query string, g grade.Token, items []models.ScrapedItem) ([]models.ScoredItem, error)
}

// Orchestrator runs every extractor against one browser session per search
// and merges their results. It is safe for concurrent use.
type Orchestrator struct {
	launcher    engine.Launcher
	extractors  []*Extractor
	scorer      Scorer
	maxSessions int

	activeSessions atomic.Int32
	activeTabs     atomic.Int32
}

// NewOrchestrator wires the extractors, in merge order, to a launcher.
// scorer may be nil, in which case scoring requests fail.
func NewOrchestrator(launcher engine.Launcher, extractors []*Extractor, scorer Scorer, maxSessions int) *Orchestrator {
	return &Orchestrator{
		launcher:    launcher,
		extractors:  extractors,
		scorer:      scorer,
		maxSessions: maxSessions,
	}
}

// ScrapeAllSources searches every provider for q. Individual providers may
// fail without failing the search; a session that cannot start or a scoring
// error fails the whole call.
func (o *Orchestrator) ScrapeAllSources(ctx context.Context, q models.SearchQuery) (*SearchResult, error) {
	q.Defaults()
	start := time.Now()
	reqID := models.RequestIDFrom(ctx)

	outcomes, err := o.runSession(ctx, Params{Query: q.Q, Grade: q.Grade, Page: q.Page})
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Outcomes: outcomes, Items: []models.ScrapedItem{}}
	for _, out := range outcomes {
		result.Items = append(result.Items, out.Results()...)
	}
	slog.Info("search finished",
		"query", q.Q,
		"grade", q.Grade,
		"page", q.Page,
		"items", len(result.Items),
		"sources", result.SourceStatus(),
		"duration", time.Since(start),
		"request_id", reqID,
	)

	if !q.AllowAIProcessing {
		return result, nil
	}
	if o.scorer == nil {
		return nil, models.NewScrapeError(models.ErrCodeScoringFailure, "failed to fetch relevance scores", nil)
	}
	scored, err := o.scorer.Score(ctx, q.Q, q.Grade, result.Items)
	if err != nil {
		slog.Error("relevance scoring failed", "error", err, "request_id", reqID)
		return nil, err
	}
	result.Scored = scored
	return result, nil
}

// runSession launches a session, runs every extractor in it and closes it
// before returning, so scoring never holds a browser.
func (o *Orchestrator) runSession(ctx context.Context, p Params) ([]Outcome, error) {
	session, err := o.launcher.Launch(ctx)
	if err != nil {
		metrics.SessionLaunchFailures.Inc()
		slog.Error("failed to start browser session", "error", err, "request_id", models.RequestIDFrom(ctx))
		se := models.AsScrapeError(err)
		if se.Code == models.ErrCodeInternal {
			se = models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to start browser session", err)
		}
		return nil, se
	}

	o.activeSessions.Add(1)
	tracked := &trackedSession{Session: session, tabs: &o.activeTabs}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close browser session", "error", err)
		}
		o.activeSessions.Add(-1)
	}()

	outcomes := make([]Outcome, len(o.extractors))
	var g errgroup.Group
	g.SetLimit(maxParallelSources)
	for i, ex := range o.extractors {
		g.Go(func() error {
			outcomes[i] = ex.Run(ctx, tracked, p)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

// Stats reports browser usage across in-flight searches.
func (o *Orchestrator) Stats() models.SessionStats {
	return models.SessionStats{
		MaxSessions:    o.maxSessions,
		ActiveSessions: int(o.activeSessions.Load()),
		ActiveTabs:     int(o.activeTabs.Load()),
	}
}

// trackedSession counts open tabs.
type trackedSession struct {
	engine.Session
	tabs *atomic.Int32
}

func (s *trackedSession) NewTab(ctx context.Context) (engine.Tab, error) {
	tab, err := s.Session.NewTab(ctx)
	if err != nil {
		return nil, err
	}
	s.tabs.Add(1)
	return &trackedTab{Tab: tab, tabs: s.tabs}, nil
}

type trackedTab struct {
	engine.Tab
	tabs *atomic.Int32
	once sync.Once
}

func (t *trackedTab) Close() error {
	t.once.Do(func() { t.tabs.Add(-1) })
	return t.Tab.Close()
}
