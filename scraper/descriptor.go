package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/eduminer/grade"
	"github.com/use-agent/eduminer/models"
)

// noTitle is used when a result card has no title element.
const noTitle = "No title"

// FieldRule reads one string field out of a result element.
type FieldRule struct {
	// Selector is matched inside the result element; the first match is
	// used. Empty means the result element itself.
	Selector string

	// Attr is the attribute to read. Empty reads the element's text.
	Attr string

	// Trim lists literal substrings removed before whitespace is collapsed.
	Trim []string

	// Lower lowercases the value.
	Lower bool
}

// ImageRule reads an image URL out of a result element.
type ImageRule struct {
	// Selector matches candidate image elements, tried in document order.
	Selector string

	// Attrs are read in order on each candidate, e.g. "src", "data-src".
	Attrs []string

	// BackgroundImage also accepts a url(...) from an inline style.
	BackgroundImage bool

	// Skip lists substrings marking placeholder or inline images.
	Skip []string
}

// URLBuilder constructs a provider search URL. gradeToken is already in the
// provider's own vocabulary; empty means no grade filter.
type URLBuilder func(query, gradeToken string, page int) string

// Descriptor is the declarative description of one provider's search page:
// where to go, what to wait for, and how each result field is read.
// A markup change on the provider side should only need a Descriptor edit.
type Descriptor struct {
	Source models.Source

	// Origin resolves relative links and images, e.g. "https://www.ck12.org".
	Origin string

	BuildURL   URLBuilder
	GradeToken func(grade.Token) string

	// ResultsSelector is waited for before extraction.
	ResultsSelector string

	// EmptySelector, if set, marks a rendered "no results" page.
	EmptySelector string

	// ItemSelector matches each result card.
	ItemSelector string

	NavTimeout  time.Duration
	WaitTimeout time.Duration

	Title       FieldRule
	Description FieldRule
	Link        FieldRule
	Image       ImageRule

	// Grade is nil for providers that show no grade in results.
	Grade *FieldRule

	// Type is nil for providers that show no content type.
	Type *FieldRule

	once     sync.Once
	compiled map[string]cascadia.Selector
	err      error
}

// Compile parses every selector the descriptor uses. It is called lazily by
// Extract and is safe for concurrent use.
func (d *Descriptor) Compile() error {
	d.once.Do(func() {
		if d.ItemSelector == "" || d.ResultsSelector == "" {
			d.err = fmt.Errorf("%s: results and item selectors are required", d.Source)
			return
		}
		sels := []string{d.ResultsSelector, d.ItemSelector, d.Title.Selector,
			d.Description.Selector, d.Link.Selector, d.Image.Selector}
		if d.EmptySelector != "" {
			sels = append(sels, d.EmptySelector)
		}
		if d.Grade != nil {
			sels = append(sels, d.Grade.Selector)
		}
		if d.Type != nil {
			sels = append(sels, d.Type.Selector)
		}

		d.compiled = make(map[string]cascadia.Selector, len(sels))
		for _, s := range sels {
			if s == "" {
				continue
			}
			if _, ok := d.compiled[s]; ok {
				continue
			}
			m, err := cascadia.Compile(s)
			if err != nil {
				d.err = fmt.Errorf("%s: selector %q: %w", d.Source, s, err)
				return
			}
			d.compiled[s] = m
		}
	})
	return d.err
}

// Extract parses rendered search-page HTML into items, preserving the
// provider's result order.
func (d *Descriptor) Extract(html string) ([]models.ScrapedItem, error) {
	if err := d.Compile(); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	cards := doc.FindMatcher(d.compiled[d.ItemSelector])
	items := make([]models.ScrapedItem, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		items = append(items, d.extractItem(card))
	})
	return items, nil
}

func (d *Descriptor) extractItem(card *goquery.Selection) models.ScrapedItem {
	item := models.ScrapedItem{
		Title:       d.text(card, d.Title),
		Description: d.optional(card, d.Description),
		Link:        absoluteURL(d.Origin, d.text(card, d.Link)),
		Image:       d.image(card),
		Source:      d.Source,
	}
	if item.Title == "" {
		item.Title = noTitle
	}
	if d.Grade != nil {
		item.Grade = grade.Extract(d.text(card, *d.Grade))
	}
	if d.Type != nil {
		item.Type = d.optional(card, *d.Type)
	}
	return item
}

func (d *Descriptor) find(card *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" {
		return card
	}
	return card.FindMatcher(d.compiled[selector])
}

// text applies a FieldRule and returns "" when the field is absent.
func (d *Descriptor) text(card *goquery.Selection, rule FieldRule) string {
	v, _ := d.field(card, rule)
	return v
}

// optional is nil only when the field's element is missing. A present but
// blank element yields "".
func (d *Descriptor) optional(card *goquery.Selection, rule FieldRule) *string {
	v, ok := d.field(card, rule)
	if !ok {
		return nil
	}
	return &v
}

func (d *Descriptor) field(card *goquery.Selection, rule FieldRule) (string, bool) {
	sel := d.find(card, rule.Selector).First()
	if sel.Length() == 0 {
		return "", false
	}

	var v string
	if rule.Attr != "" {
		v, _ = sel.Attr(rule.Attr)
	} else {
		v = sel.Text()
	}
	for _, t := range rule.Trim {
		v = strings.ReplaceAll(v, t, "")
	}
	v = strings.Join(strings.Fields(v), " ")
	if rule.Lower {
		v = strings.ToLower(v)
	}
	return v, true
}

var backgroundURL = regexp.MustCompile(`url\(\s*["']?([^"')]+)["']?\s*\)`)

func (d *Descriptor) image(card *goquery.Selection) *string {
	if d.Image.Selector == "" {
		return nil
	}

	var found *string
	d.find(card, d.Image.Selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		candidates := make([]string, 0, len(d.Image.Attrs)+1)
		for _, attr := range d.Image.Attrs {
			if v, ok := el.Attr(attr); ok {
				candidates = append(candidates, strings.TrimSpace(v))
			}
		}
		if d.Image.BackgroundImage {
			if style, ok := el.Attr("style"); ok {
				if m := backgroundURL.FindStringSubmatch(style); m != nil {
					candidates = append(candidates, strings.TrimSpace(m[1]))
				}
			}
		}

		for _, c := range candidates {
			if c == "" || d.skipImage(c) {
				continue
			}
			if u := absoluteImageURL(d.Origin, c); u != nil {
				found = u
				return false
			}
		}
		return true
	})
	return found
}

func (d *Descriptor) skipImage(src string) bool {
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "data:") {
		return true
	}
	for _, s := range d.Image.Skip {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// absoluteURL resolves ref against origin and keeps only http(s) results.
func absoluteURL(origin, ref string) *string {
	if ref == "" {
		return nil
	}
	base, err := url.Parse(origin)
	if err != nil {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	abs := base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return nil
	}
	s := abs.String()
	return &s
}

// absoluteImageURL is absoluteURL with protocol-relative sources pinned to https.
func absoluteImageURL(origin, src string) *string {
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	return absoluteURL(origin, src)
}

// encodeURIComponent percent-encodes s for a query value, using %20 for spaces.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
