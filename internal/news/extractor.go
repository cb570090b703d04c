package news

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// MinTitleLen is the minimum title length (in runes) for a candidate.
// Shorter anchor texts are navigation and UI noise, not headlines.
const MinTitleLen = 10

// DefaultSelectors match the anchor classes used on the target homepage.
// They are tried in order; later selectors only contribute titles not
// already seen.
var DefaultSelectors = []string{
	"a.feed-post-link",
	"a.bastian-feed-item",
	"a.feed-media-wrapper",
}

// Extractor turns homepage HTML into a list of article candidates.
// It is a pure transformation: no I/O, and malformed input degrades to an
// empty result rather than an error.
type Extractor struct {
	base      *url.URL
	hostToken string
	selectors []string
}

// NewExtractor builds an Extractor. baseURL anchors relative hrefs and
// hostToken filters out candidates pointing at other sites. An empty
// selector list falls back to DefaultSelectors.
func NewExtractor(baseURL, hostToken string, selectors []string) (*Extractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if len(selectors) == 0 {
		selectors = DefaultSelectors
	}
	return &Extractor{
		base:      base,
		hostToken: hostToken,
		selectors: selectors,
	}, nil
}

// Extract returns the candidates found in html, deduplicated by title.
// Order is selector-list order, then document order within a selector; the
// first occurrence of a title wins even when a later rule matches the same
// title under a different URL.
func (e *Extractor) Extract(html string) []Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var (
		items []Candidate
		seen  = make(map[string]struct{})
	)
	for _, selector := range e.selectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			title := strings.TrimSpace(sel.Text())
			href, _ := sel.Attr("href")
			if title == "" || href == "" || utf8.RuneCountInString(title) < MinTitleLen {
				return
			}
			full := e.resolve(href)
			if full == "" || !strings.Contains(full, e.hostToken) {
				return
			}
			if _, ok := seen[title]; ok {
				return
			}
			seen[title] = struct{}{}
			items = append(items, Candidate{Title: title, URL: full})
		})
	}
	return items
}

func (e *Extractor) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(ref).String()
}
