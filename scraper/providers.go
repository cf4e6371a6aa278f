package scraper

import (
	"fmt"

	"github.com/use-agent/eduminer/config"
	"github.com/use-agent/eduminer/engine"
	"github.com/use-agent/eduminer/grade"
	"github.com/use-agent/eduminer/models"
)

const (
	pbsOrigin  = "https://www.pbslearningmedia.org"
	khanOrigin = "https://www.khanacademy.org"
	ck12Origin = "https://www.ck12.org"
)

// The "no results" markers are best-effort: when they never render, an
// empty search times out and is reported as a failure instead.

// PBS describes PBS LearningMedia search results.
func PBS(cfg config.ScraperConfig) *Descriptor {
	return &Descriptor{
		Source:     models.SourcePBS,
		Origin:     pbsOrigin,
		GradeToken: grade.ForPBS,
		BuildURL: func(query, gradeToken string, page int) string {
			u := pbsOrigin + "/search/?q=" + encodeURIComponent(query)
			if gradeToken != "" {
				u += "&selected_filters=grade:" + gradeToken
			}
			return fmt.Sprintf("%s&page=%d", u, page)
		},
		ResultsSelector: ".search-items .search-item",
		EmptySelector:   ".search-no-results",
		ItemSelector:    ".search-item",
		NavTimeout:      cfg.SlowNavigationTimeout,
		WaitTimeout:     cfg.WaitTimeout,
		Title:           FieldRule{Selector: ".card-title"},
		Description:     FieldRule{Selector: ".card-description"},
		Link:            FieldRule{Selector: `a[href^="/resource/"]`, Attr: "href"},
		Image: ImageRule{
			Selector:        ".poster-image",
			Attrs:           []string{"src", "data-src"},
			BackgroundImage: true,
			Skip:            []string{".svg"},
		},
		Grade: &FieldRule{Selector: ".grades", Trim: []string{"Grades", "Grade"}},
		Type:  &FieldRule{Selector: ".media-type.selenium-card-media-type .text", Lower: true},
	}
}

// Khan describes Khan Academy search results. Khan shows no grade level in
// its results and takes no grade parameter.
func Khan(cfg config.ScraperConfig) *Descriptor {
	return &Descriptor{
		Source:     models.SourceKhan,
		Origin:     khanOrigin,
		GradeToken: grade.ForKhan,
		BuildURL: func(query, _ string, page int) string {
			return fmt.Sprintf("%s/search?search_again=1&page_search_query=%s&page=%d",
				khanOrigin, encodeURIComponent(query), page)
		},
		ResultsSelector: "._16owliz9",
		EmptySelector:   `[data-testid="search-no-results"]`,
		ItemSelector:    "._16owliz9",
		NavTimeout:      cfg.NavigationTimeout,
		WaitTimeout:     cfg.WaitTimeout,
		Title:           FieldRule{Selector: "._2dibcm7, ._1wg3dpea"},
		Description:     FieldRule{Selector: "._1n941cdr, ._2dibcm7 + div"},
		Link:            FieldRule{Selector: "a._1wg3dpea", Attr: "href"},
		Image: ImageRule{
			Selector: "img",
			Attrs:    []string{"src"},
		},
		Type: &FieldRule{Selector: "._1ufuji7", Lower: true},
	}
}

// CK12 describes CK-12 community-contributed search results.
func CK12(cfg config.ScraperConfig) *Descriptor {
	return &Descriptor{
		Source:     models.SourceCK12,
		Origin:     ck12Origin,
		GradeToken: grade.ForCK12,
		BuildURL: func(query, gradeToken string, page int) string {
			u := fmt.Sprintf("%s/search/?referrer=search&pageNum=%d&tabId=communityContributedContentTab", ck12Origin, page)
			if gradeToken != "" {
				u += "&gradeFilters=" + gradeToken
			}
			return u + "&q=" + encodeURIComponent(query)
		},
		ResultsSelector: ".contentListItemStyles__Container-sc-5gkytp-0",
		EmptySelector:   `[class*="NoResults"]`,
		ItemSelector:    ".contentListItemStyles__Container-sc-5gkytp-0",
		NavTimeout:      cfg.NavigationTimeout,
		WaitTimeout:     cfg.WaitTimeout,
		Title:           FieldRule{Selector: "a"},
		Description:     FieldRule{Selector: ".contentListItemStyles__TextContainer-sc-5gkytp-1 > div:nth-child(2)"},
		Link:            FieldRule{Selector: "a", Attr: "href"},
		Image: ImageRule{
			Selector: "img",
			Attrs:    []string{"src"},
			Skip:     []string{"placeholder"},
		},
		Grade: &FieldRule{Selector: ".ContentListItem__ListItem-sc-8bx8mv-1:nth-child(1)", Trim: []string{"Grade:"}},
	}
}

// Descriptors returns the three providers in merge order: PBS, Khan, CK-12.
func Descriptors(cfg config.ScraperConfig) []*Descriptor {
	return []*Descriptor{PBS(cfg), Khan(cfg), CK12(cfg)}
}

// DefaultExtractors builds one extractor per provider, in merge order.
func DefaultExtractors(scfg config.ScraperConfig, bcfg config.BrowserConfig, uas *engine.UserAgentPool) []*Extractor {
	descs := Descriptors(scfg)
	out := make([]*Extractor, len(descs))
	for i, d := range descs {
		out[i] = NewExtractor(d, uas, bcfg)
	}
	return out
}
