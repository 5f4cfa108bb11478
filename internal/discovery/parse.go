package discovery

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/folio-scout/harvest-cli/internal/model"
)

// reservedSegments are single-segment paths that are platform pages, not
// profiles.
var reservedSegments = map[string]struct{}{
	"search":      {},
	"collections": {},
	"galleries":   {},
}

// parseSearchPage extracts profile references from a result page. A profile
// link is any anchor whose absolute URL has exactly one path segment and
// does not hit a reserved platform page. Order follows the document;
// duplicates within the page are dropped.
func parseSearchPage(baseURL string, body []byte) []model.ProfileRef {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	base, err := url.Parse(baseURL + "/")
	if err != nil {
		return nil
	}

	var refs []model.ProfileRef
	seen := map[string]struct{}{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" {
			return
		}
		rel, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(rel)
		if abs.Host != base.Host {
			return
		}

		segments := strings.FieldsFunc(abs.Path, func(r rune) bool { return r == '/' })
		if len(segments) != 1 {
			return
		}
		username := segments[0]
		if _, reserved := reservedSegments[strings.ToLower(username)]; reserved {
			return
		}

		canonical := base.Scheme + "://" + base.Host + "/" + username
		if _, dup := seen[canonical]; dup {
			return
		}
		seen[canonical] = struct{}{}

		refs = append(refs, model.ProfileRef{
			ID:       model.StableID(canonical),
			Username: username,
			URL:      canonical,
		})
	})
	return refs
}
