package engine

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var resourceTypes = map[string]proto.NetworkResourceType{
	"image":      proto.NetworkResourceTypeImage,
	"stylesheet": proto.NetworkResourceTypeStylesheet,
	"font":       proto.NetworkResourceTypeFont,
	"media":      proto.NetworkResourceTypeMedia,
	"script":     proto.NetworkResourceTypeScript,
}

// trackerDomains are ad, analytics and consent hosts seen on the provider
// search pages. Subdomains match too.
var trackerDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"facebook.net":          {},
	"adnxs.com":             {},
	"amazon-adsystem.com":   {},
	"criteo.com":            {},
	"scorecardresearch.com": {},
	"quantserve.com":        {},
	"hotjar.com":            {},
	"mixpanel.com":          {},
	"segment.io":            {},
	"segment.com":           {},
	"chartbeat.com":         {},
	"chartbeat.net":         {},
	"optimizely.com":        {},
	"fullstory.com":         {},
	"newrelic.com":          {},
	"nr-data.net":           {},
	"onetrust.com":          {},
	"cookielaw.org":         {},
	"consensu.org":          {},
}

// isTrackerHost reports whether host or one of its parent domains is a
// known tracker.
func isTrackerHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for host != "" {
		if _, ok := trackerDomains[host]; ok {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return false
}

// blockedTypeSet maps config names (case-insensitive) to resource types,
// ignoring unknown names.
func blockedTypeSet(names []string) map[proto.NetworkResourceType]struct{} {
	set := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, n := range names {
		if rt, ok := resourceTypes[strings.ToLower(strings.TrimSpace(n))]; ok {
			set[rt] = struct{}{}
		}
	}
	return set
}

// shouldBlock decides a single intercepted request.
func shouldBlock(blocked map[proto.NetworkResourceType]struct{}, blockAds bool, rt proto.NetworkResourceType, rawURL string) bool {
	if _, ok := blocked[rt]; ok {
		return true
	}
	if !blockAds {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return isTrackerHost(u.Hostname())
}

// setupHijack intercepts every request on page and aborts the blocked ones.
// It returns nil when nothing is blocked; otherwise the caller stops the
// returned router when the tab closes.
func setupHijack(page *rod.Page, blockedTypes []string, blockAds bool) *rod.HijackRouter {
	blocked := blockedTypeSet(blockedTypes)
	if len(blocked) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if shouldBlock(blocked, blockAds, h.Request.Type(), h.Request.URL().String()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()
	return router
}
