package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/eduminer/config"
	"github.com/use-agent/eduminer/models"
	"github.com/ysmood/gson"
	"golang.org/x/sync/semaphore"
)

const (
	// networkIdle is how long the page must have no in-flight requests
	// before navigation counts as settled.
	networkIdle = 500 * time.Millisecond

	// domStable and domStableDiff bound the DOM-settle wait used on
	// hijacked tabs.
	domStable     = 300 * time.Millisecond
	domStableDiff = 0.1
)

// idleExcludeTypes are ignored by the network idle wait. WebSocket and
// EventSource connections never finish loading, so counting them would hold
// every navigation until its timeout.
var idleExcludeTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeMedia,
	proto.NetworkResourceTypeWebSocket,
	proto.NetworkResourceTypeEventSource,
}

// RodLauncher launches a dedicated headless Chromium per session.
type RodLauncher struct {
	cfg config.BrowserConfig
	sem *semaphore.Weighted
}

// NewRodLauncher creates a launcher that allows at most cfg.MaxSessions
// browsers to run at once.
func NewRodLauncher(cfg config.BrowserConfig) *RodLauncher {
	if cfg.MaxSessions < 1 {
		cfg.MaxSessions = 1
	}
	return &RodLauncher{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.MaxSessions)),
	}
}

// Launch starts Chromium and connects to it. It blocks while MaxSessions
// sessions are already running.
func (r *RodLauncher) Launch(ctx context.Context) (Session, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "timed out waiting for a browser slot", err)
	}

	l := launcher.New().
		Headless(r.cfg.Headless).
		NoSandbox(r.cfg.NoSandbox).
		Set(flags.Flag("window-size"), "1280,720")

	if r.cfg.BrowserBin != "" {
		l = l.Bin(r.cfg.BrowserBin)
	}
	if r.cfg.Proxy != "" {
		l = l.Proxy(r.cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-accelerated-2d-canvas"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		r.sem.Release(1)
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		r.sem.Release(1)
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}
	slog.Debug("browser session started", "controlURL", controlURL)

	return &rodSession{
		browser:  browser,
		launcher: l,
		release:  func() { r.sem.Release(1) },
	}, nil
}

type rodSession struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	release  func()
	once     sync.Once
}

func (s *rodSession) NewTab(ctx context.Context) (Tab, error) {
	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open tab", err)
	}
	// Detach from the request context so Close still works after it expires.
	return &rodTab{page: page.Context(context.Background())}, nil
}

// Close closes the browser (and with it every tab), kills the process and
// removes its profile directory. It is idempotent.
func (s *rodSession) Close() error {
	var closeErr error
	s.once.Do(func() {
		closeErr = s.browser.Close()
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.release()
		slog.Debug("browser session closed")
	})
	return closeErr
}

type rodTab struct {
	page   *rod.Page
	router *rod.HijackRouter
}

func (t *rodTab) Setup(setup TabSetup) error {
	if err := (proto.EmulationSetScriptExecutionDisabled{Value: !setup.JavaScript}).Call(t.page); err != nil {
		return err
	}

	if setup.Stealth {
		if _, err := t.page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if setup.UserAgent != "" {
		ua := &proto.NetworkSetUserAgentOverride{UserAgent: setup.UserAgent}
		if lang, ok := setup.Headers["Accept-Language"]; ok {
			ua.AcceptLanguage = lang
		}
		if err := t.page.SetUserAgent(ua); err != nil {
			return err
		}
	}

	if setup.Width > 0 && setup.Height > 0 {
		if err := t.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             setup.Width,
			Height:            setup.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			return err
		}
	}

	if len(setup.Headers) > 0 {
		t.page.EnableDomain(&proto.NetworkEnable{})
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(setup.Headers)}).Call(t.page); err != nil {
			return err
		}
	}

	// Must be installed before the first navigation.
	t.router = setupHijack(t.page, setup.BlockedResources, setup.BlockAds)
	return nil
}

// Navigate loads url and waits for the page to settle. The idle waiter is
// registered before navigating; registering it afterwards would miss the
// requests already in flight.
//
// WaitRequestIdle relies on the Fetch domain, which conflicts with
// HijackRequests on Chromium 145+, so hijacked tabs wait for the DOM to
// stabilize instead.
func (t *rodTab) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p := t.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	var waitIdle func()
	if t.router == nil {
		waitIdle = p.WaitRequestIdle(networkIdle, nil, nil, idleExcludeTypes)
	}
	if err := p.Navigate(url); err != nil {
		return err
	}

	if waitIdle != nil {
		waitIdle()
	} else if err := p.WaitDOMStable(domStable, domStableDiff); err != nil {
		if ctxErr := p.GetContext().Err(); ctxErr != nil {
			return ctxErr
		}
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "url", url, "error", err)
	}
	return p.GetContext().Err()
}

func (t *rodTab) WaitFor(ctx context.Context, selector, emptySelector string, timeout time.Duration) (WaitResult, error) {
	p := t.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	race := p.Race().Element(selector)
	if emptySelector != "" {
		race = race.Element(emptySelector)
	}
	el, err := race.Do()
	if err != nil {
		return WaitMatched, err
	}
	if emptySelector == "" {
		return WaitMatched, nil
	}
	matched, err := el.Matches(selector)
	if err != nil {
		return WaitMatched, err
	}
	if matched {
		return WaitMatched, nil
	}
	return WaitEmpty, nil
}

func (t *rodTab) HTML(ctx context.Context) (string, error) {
	return t.page.Context(ctx).HTML()
}

func (t *rodTab) Close() error {
	if t.router != nil {
		if err := t.router.Stop(); err != nil {
			slog.Debug("hijack router stop failed", "error", err)
		}
	}
	return t.page.Close()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
