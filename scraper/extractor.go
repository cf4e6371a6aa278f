package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/eduminer/config"
	"github.com/use-agent/eduminer/engine"
	"github.com/use-agent/eduminer/grade"
	"github.com/use-agent/eduminer/metrics"
	"github.com/use-agent/eduminer/models"
)

const (
	viewportWidth  = 1280
	viewportHeight = 720
	acceptLanguage = "en-US,en;q=0.9"
)

// Params is one search as seen by a single provider.
type Params struct {
	Query string
	Grade grade.Token
	Page  int
}

// Status is the result of one provider extraction.
type Status string

const (
	StatusOK     Status = "ok"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// Outcome is what one extractor contributed to a search. A failed source
// never fails the search; it contributes no items.
type Outcome struct {
	Source   models.Source
	Status   Status
	Items    []models.ScrapedItem
	Err      *models.ScrapeError
	Duration time.Duration
}

// Results returns the items to merge, never nil.
func (o Outcome) Results() []models.ScrapedItem {
	if o.Status == StatusFailed || o.Items == nil {
		return []models.ScrapedItem{}
	}
	return o.Items
}

// Extractor runs one provider's search in a tab of a shared session.
type Extractor struct {
	desc    *Descriptor
	uas     *engine.UserAgentPool
	browser config.BrowserConfig
}

// NewExtractor creates an extractor for desc. Tabs get a user agent from uas
// and the stealth and blocking settings from browser.
func NewExtractor(desc *Descriptor, uas *engine.UserAgentPool, browser config.BrowserConfig) *Extractor {
	return &Extractor{desc: desc, uas: uas, browser: browser}
}

// Source returns the provider this extractor scrapes.
func (e *Extractor) Source() models.Source {
	return e.desc.Source
}

// URL returns the search URL for p.
func (e *Extractor) URL(p Params) string {
	return e.desc.BuildURL(p.Query, e.desc.GradeToken(p.Grade), p.Page)
}

// Run performs the search. It always returns an Outcome: errors and panics
// become a failed outcome and are logged.
func (e *Extractor) Run(ctx context.Context, session engine.Session, p Params) (out Outcome) {
	start := time.Now()
	out.Source = e.desc.Source

	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusFailed
			out.Items = nil
			out.Err = models.NewScrapeError(models.ErrCodeInternal, "extractor panicked", fmt.Errorf("%v", r))
		}
		out.Duration = time.Since(start)

		attrs := []any{
			"source", out.Source,
			"status", out.Status,
			"items", len(out.Items),
			"duration", out.Duration,
			"request_id", models.RequestIDFrom(ctx),
		}
		if out.Err != nil {
			slog.Warn("source extraction failed", append(attrs, "code", out.Err.Code, "error", out.Err)...)
		} else {
			slog.Info("source extraction finished", attrs...)
		}
		metrics.RecordSource(string(out.Source), string(out.Status), len(out.Items), out.Duration)
	}()

	items, empty, err := e.scrape(ctx, session, p)
	switch {
	case err != nil:
		out.Status = StatusFailed
		out.Err = err
	case empty:
		out.Status = StatusEmpty
		out.Items = []models.ScrapedItem{}
	default:
		out.Status = StatusOK
		out.Items = items
	}
	return out
}

func (e *Extractor) scrape(ctx context.Context, session engine.Session, p Params) ([]models.ScrapedItem, bool, *models.ScrapeError) {
	tab, err := session.NewTab(ctx)
	if err != nil {
		return nil, false, categorizeError(err, models.ErrCodeBrowserCrash, "failed to open tab")
	}
	defer func() {
		if err := tab.Close(); err != nil {
			slog.Warn("failed to close tab", "source", e.desc.Source, "error", err)
		}
	}()

	setup := engine.TabSetup{
		JavaScript:       true,
		UserAgent:        e.uas.Random(),
		Width:            viewportWidth,
		Height:           viewportHeight,
		Headers:          map[string]string{"Accept-Language": acceptLanguage},
		Stealth:          e.browser.Stealth,
		BlockedResources: e.browser.BlockedResources,
		BlockAds:         e.browser.BlockAds,
	}
	if err := tab.Setup(setup); err != nil {
		return nil, false, categorizeError(err, models.ErrCodeBrowserCrash, "failed to set up tab")
	}

	target := e.URL(p)
	slog.Debug("navigating", "source", e.desc.Source, "url", target)
	if err := tab.Navigate(ctx, target, e.desc.NavTimeout); err != nil {
		return nil, false, categorizeError(err, models.ErrCodeNavigation, "failed to navigate to "+target)
	}

	res, err := tab.WaitFor(ctx, e.desc.ResultsSelector, e.desc.EmptySelector, e.desc.WaitTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, categorizeError(ctx.Err(), models.ErrCodeNotRendered, "request canceled")
		}
		return nil, false, models.NewScrapeError(models.ErrCodeNotRendered, "results did not render", err)
	}
	if res == engine.WaitEmpty {
		return nil, true, nil
	}

	html, err := tab.HTML(ctx)
	if err != nil {
		return nil, false, categorizeError(err, models.ErrCodeExtraction, "failed to read page HTML")
	}
	items, err := e.desc.Extract(html)
	if err != nil {
		return nil, false, models.NewScrapeError(models.ErrCodeExtraction, "failed to extract results", err)
	}
	return items, false, nil
}
