package scraper

import (
	"strings"

	"github.com/use-agent/eduminer/models"
)

// SearchResult is the merged result of one search across every provider.
type SearchResult struct {
	// Items are the merged results in provider order: PBS, Khan, CK-12.
	Items []models.ScrapedItem

	// Scored is set only when relevance scoring ran.
	Scored []models.ScoredItem

	// Outcomes holds one entry per provider, in the same order.
	Outcomes []Outcome
}

// SourceStatus renders the per-provider status, e.g.
// "pbs=ok,khanacademy=failed,ck12=empty".
func (r *SearchResult) SourceStatus() string {
	parts := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		parts[i] = string(o.Source) + "=" + string(o.Status)
	}
	return strings.Join(parts, ",")
}

// Body returns the JSON response body: the plain item list, or the
// items wrapper when scoring ran.
func (r *SearchResult) Body() any {
	if r.Scored != nil {
		return models.ScoredResponse{Items: r.Scored}
	}
	if r.Items == nil {
		return []models.ScrapedItem{}
	}
	return r.Items
}
