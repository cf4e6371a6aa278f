package engine

import (
	"context"
	"time"
)

// Launcher starts a browser session. One session is launched per search and
// closed when the search finishes; sessions are never reused across requests.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is a running browser that hands out independent tabs.
// It is safe for concurrent use; each Tab is owned by a single caller.
type Session interface {
	// NewTab opens a fresh tab.
	NewTab(ctx context.Context) (Tab, error)

	// Close releases every tab and terminates the browser.
	Close() error
}

// Tab is one browser page.
type Tab interface {
	// Setup configures the tab before its first navigation.
	Setup(setup TabSetup) error

	// Navigate loads url and waits for network idle, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitFor blocks until an element matching selector appears, or, when
	// emptySelector is non-empty, until an element matching it appears first.
	WaitFor(ctx context.Context, selector, emptySelector string, timeout time.Duration) (WaitResult, error)

	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)

	// Close releases the tab. Close must be safe to call after the request
	// context has expired.
	Close() error
}

// TabSetup describes how a tab is prepared before navigation.
type TabSetup struct {
	JavaScript bool
	UserAgent  string
	Width      int
	Height     int
	Headers    map[string]string
	Stealth    bool

	// BlockedResources names resource types to abort: "Image",
	// "Stylesheet", "Font", "Media" or "Script".
	BlockedResources []string

	// BlockAds aborts requests to known ad and tracking domains.
	BlockAds bool
}

// WaitResult reports which selector satisfied Tab.WaitFor.
type WaitResult int

const (
	// WaitMatched means the results selector rendered.
	WaitMatched WaitResult = iota
	// WaitEmpty means the provider's "no results" marker rendered instead.
	WaitEmpty
)
