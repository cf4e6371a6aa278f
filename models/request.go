package models

import "github.com/use-agent/eduminer/grade"

// SearchQuery is the query string for GET /api/v1/scrape.
type SearchQuery struct {
	// Q is the free-text search query. Required.
	Q string `form:"q" json:"q" binding:"required"`

	// Grade filters results to a grade level.
	// Allowed: "all" (default), "K", "1".."12". Checked with grade.Parse.
	Grade grade.Token `form:"grade" json:"grade"`

	// Page is the 1-based provider pagination page. Required.
	Page int `form:"page" json:"page" binding:"required,min=1"`

	// AllowAIProcessing requests LLM relevance scoring of the merged results.
	// Only the literal "true" enables it. Default: false.
	AllowAIProcessing QueryFlag `form:"allowAIProcessing" json:"allowAIProcessing"`
}

// Defaults applies default values to unset fields.
func (q *SearchQuery) Defaults() {
	if q.Grade == "" {
		q.Grade = grade.All
	}
}

// QueryFlag is a boolean query parameter that is true only for "true".
// Any other value, including "1" or "yes", reads as false instead of
// failing the request.
type QueryFlag bool

// UnmarshalParam implements gin's binding.BindUnmarshaler.
func (f *QueryFlag) UnmarshalParam(param string) error {
	*f = param == "true"
	return nil
}
