package models

// Source identifies the provider an item was scraped from.
type Source string

const (
	SourcePBS  Source = "pbs"
	SourceKhan Source = "khanacademy"
	SourceCK12 Source = "ck12"
)

// ScrapedItem is one normalized search result.
//
// Nullable fields are pointers so they serialize as JSON null. Link and
// Image are always absolute URLs when set.
type ScrapedItem struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Link        *string `json:"link"`
	Image       *string `json:"image"`
	Grade       *string `json:"grade"`
	Type        *string `json:"type"`
	Source      Source  `json:"source"`
}

// ScoredItem is a ScrapedItem annotated with an LLM relevance score in [1,10].
type ScoredItem struct {
	ScrapedItem
	RelevanceScore int `json:"relevance_score"`
}
