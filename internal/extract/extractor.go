// Package extract maps a profile detail page into a Record. Every field is
// decoded by an independent field-or-default step: a missing or malformed
// field degrades to its zero value, and only a payload with no resolvable
// identity fails the extraction.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/folio-scout/harvest-cli/internal/fetch"
	"github.com/folio-scout/harvest-cli/internal/model"
)

// Kind classifies a parse-layer failure.
type Kind string

const (
	// KindMissingIdentity means no id/username could be resolved; the
	// record cannot be identified or deduplicated and is invalid.
	KindMissingIdentity Kind = "missing_identity"
	// KindMalformedPayload means the payload was empty or not parseable
	// as a document at all.
	KindMalformedPayload Kind = "malformed_payload"
)

// ExtractionError is the parse-layer error type.
type ExtractionError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.URL, e.Kind)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor fetches profile pages through the shared fetch controller and
// parses them into Records. It is stateless; one instance serves the whole
// run.
type Extractor struct {
	fetcher fetch.Fetcher
	sel     Selectors
}

// New creates an Extractor using the given selector profile.
func New(fetcher fetch.Fetcher, sel Selectors) *Extractor {
	return &Extractor{fetcher: fetcher, sel: sel}
}

// Extract fetches and parses one profile. Transport failures propagate as
// *fetch.FetchError after the controller's retry policy; parse failures are
// *ExtractionError. Nested lists capture the first page only.
func (e *Extractor) Extract(ctx context.Context, ref model.ProfileRef) (model.Record, error) {
	if ref.URL == "" {
		return model.Record{}, &ExtractionError{Kind: KindMissingIdentity, URL: ref.URL}
	}

	resp, err := e.fetcher.Get(ctx, ref.URL)
	if err != nil {
		return model.Record{}, err
	}

	return e.Parse(ref, resp.Body, resp.ContentType)
}

// Parse maps a raw payload into a Record. It is pure over its input:
// parsing the same payload twice yields identical Records.
func (e *Extractor) Parse(ref model.ProfileRef, body []byte, contentType string) (model.Record, error) {
	username := ref.Username
	if username == "" {
		username = usernameFromURL(ref.URL)
	}
	if username == "" {
		return model.Record{}, &ExtractionError{Kind: KindMissingIdentity, URL: ref.URL}
	}

	decoded := decodeToUTF8(body, contentType)
	if len(bytes.TrimSpace(decoded)) == 0 {
		return model.Record{}, &ExtractionError{Kind: KindMalformedPayload, URL: ref.URL}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return model.Record{}, &ExtractionError{Kind: KindMalformedPayload, URL: ref.URL, Err: err}
	}

	id := ref.ID
	if id == 0 {
		id = model.StableID(ref.URL)
	}

	projects := e.projects(doc, ref.URL)
	location := e.location(doc)

	return model.Record{
		ID:                id,
		Username:          username,
		DisplayName:       e.displayName(doc),
		URL:               ref.URL,
		Location:          location,
		Country:           countryOf(location),
		Available:         e.availability(doc),
		Categories:        e.categories(doc),
		CompletedProjects: e.completedProjects(doc, len(projects)),
		Reviews:           e.reviews(doc),
		ProfileImage:      e.profileImage(doc),
		Projects:          projects,
	}, nil
}

func (e *Extractor) displayName(doc *goquery.Document) string {
	for _, sel := range e.sel.DisplayName {
		if text := cleanText(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	if text := cleanText(doc.Find("h1").First().Text()); text != "" {
		return text
	}
	title := cleanText(doc.Find("title").First().Text())
	if before, _, found := strings.Cut(title, "|"); found {
		return cleanText(before)
	}
	return title
}

func (e *Extractor) location(doc *goquery.Document) string {
	for _, sel := range e.sel.Location {
		if text := cleanText(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}

	// Fallback: a short comma-separated span in the page header.
	var loc string
	doc.Find("header span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		if strings.Contains(text, ",") && len(strings.Fields(text)) <= 5 {
			loc = text
			return false
		}
		return true
	})
	return loc
}

func (e *Extractor) availability(doc *goquery.Document) bool {
	text := strings.ToLower(doc.Text())
	for _, phrase := range e.sel.AvailabilityPhrases {
		if strings.Contains(text, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

func (e *Extractor) categories(doc *goquery.Document) []string {
	var cats []string
	seen := map[string]struct{}{}
	add := func(text string) {
		if text == "" {
			return
		}
		if _, ok := seen[text]; ok {
			return
		}
		seen[text] = struct{}{}
		cats = append(cats, text)
	}

	for _, sel := range e.sel.CategoryPills {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			add(cleanText(s.Text()))
		})
	}
	if len(cats) > 0 {
		return cats
	}

	// Fallback: links under a specialties/fields heading.
	doc.Find("h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		heading := strings.ToLower(cleanText(h.Text()))
		if !containsAny(heading, e.sel.CategoryHeadings) {
			return true
		}
		container := h.NextAllFiltered("ul").First()
		if container.Length() == 0 {
			container = h.NextAllFiltered("div").First()
		}
		container.Find("a").Each(func(_ int, a *goquery.Selection) {
			add(cleanText(a.Text()))
		})
		return false
	})
	return cats
}

func (e *Extractor) profileImage(doc *goquery.Document) string {
	if content, ok := doc.Find("meta[property='og:image']").First().Attr("content"); ok && content != "" {
		return content
	}
	for _, sel := range e.sel.ProfileImage {
		if src, ok := doc.Find(sel).First().Attr("src"); ok && src != "" {
			return src
		}
	}
	return ""
}

func (e *Extractor) projects(doc *goquery.Document, baseURL string) []model.Project {
	var projects []model.Project
	seen := map[string]struct{}{}

	doc.Find(strings.Join(e.sel.ProjectCards, ", ")).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Attr("href")
		if !ok || href == "" {
			return
		}
		projectURL := resolveURL(baseURL, href)
		if _, dup := seen[projectURL]; dup {
			return
		}
		seen[projectURL] = struct{}{}

		name := cleanText(card.AttrOr("title", ""))
		if name == "" {
			name = cleanText(card.AttrOr("aria-label", ""))
		}
		if name == "" {
			name = cleanText(card.Find("span, div").First().Text())
		}

		projects = append(projects, model.Project{
			ID:         model.StableID(projectURL),
			Name:       name,
			URL:        projectURL,
			CoverImage: card.Find("img").First().AttrOr("src", ""),
		})
	})
	return projects
}

func (e *Extractor) reviews(doc *goquery.Document) []string {
	var reviews []string
	seenText := map[string]struct{}{}
	var sections []*goquery.Selection

	doc.Find("h2, h3").Each(func(_ int, h *goquery.Selection) {
		heading := strings.ToLower(cleanText(h.Text()))
		if !containsAny(heading, e.sel.ReviewHeadings) {
			return
		}
		section := h.Closest("section")
		if section.Length() == 0 {
			section = h.Parent()
		}
		if section.Length() == 0 {
			return
		}
		for _, prev := range sections {
			if prev.Get(0) == section.Get(0) {
				return
			}
		}
		sections = append(sections, section)
	})

	for _, section := range sections {
		section.Find("p").Each(func(_ int, p *goquery.Selection) {
			text := cleanText(p.Text())
			if text == "" || len(strings.Fields(text)) < 4 {
				return
			}
			if _, dup := seenText[text]; dup {
				return
			}
			seenText[text] = struct{}{}
			reviews = append(reviews, text)
		})
	}
	return reviews
}

func (e *Extractor) completedProjects(doc *goquery.Document, projectCount int) int {
	if e.sel.CompletedCounter != "" {
		text := cleanText(doc.Find(e.sel.CompletedCounter).First().Text())
		if n, err := strconv.Atoi(strings.Map(digitsOnly, text)); err == nil && n >= 0 {
			return n
		}
	}
	return projectCount
}

// cleanText collapses all whitespace runs to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func countryOf(location string) string {
	if location == "" {
		return ""
	}
	parts := strings.Split(location, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func usernameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

func resolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	rel, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(rel).String()
}

func digitsOnly(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}
