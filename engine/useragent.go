package engine

import (
	"crypto/rand"
	"math/big"
	"sync/atomic"
)

// DefaultUserAgents is a realistic set of modern desktop browser user agents.
var DefaultUserAgents = []string{
	// Chrome Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	// Chrome Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	// Chrome Linux
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	// Firefox
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	// Safari Mac
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	// Edge Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
}

// UserAgentPool hands out user agents for new tabs.
type UserAgentPool struct {
	uas     []string
	counter atomic.Uint64
}

// NewUserAgentPool creates a pool. An empty list falls back to DefaultUserAgents.
func NewUserAgentPool(uas []string) *UserAgentPool {
	if len(uas) == 0 {
		uas = DefaultUserAgents
	}
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &UserAgentPool{uas: copied}
}

// Random returns a user agent chosen with crypto/rand.
// It is safe for concurrent use.
func (p *UserAgentPool) Random() string {
	if len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.next()
	}
	return p.uas[n.Int64()]
}

// next is the round-robin fallback when crypto/rand fails.
func (p *UserAgentPool) next() string {
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}
