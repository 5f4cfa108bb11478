package discovery

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-scout/harvest-cli/internal/fetch"
	"github.com/folio-scout/harvest-cli/internal/model"
)

// pageFetcher serves canned search pages keyed by page number and records
// every requested URL.
type pageFetcher struct {
	pages map[int]string
	err   error
	urls  []string
}

func (f *pageFetcher) Get(_ context.Context, rawURL string) (*fetch.Response, error) {
	f.urls = append(f.urls, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	page := 0
	if i := strings.Index(rawURL, "page="); i >= 0 {
		_, _ = fmt.Sscanf(rawURL[i:], "page=%d", &page)
	}
	body, ok := f.pages[page]
	if !ok {
		body = "<html><body></body></html>"
	}
	return &fetch.Response{StatusCode: 200, ContentType: "text/html", Body: []byte(body)}, nil
}

func searchPage(usernames ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString(`<a href="/search/users?page=2">Next</a>`)
	b.WriteString(`<a href="/galleries">Galleries</a>`)
	b.WriteString(`<a href="/gallery/123/some-project">project</a>`)
	for _, u := range usernames {
		fmt.Fprintf(&b, `<a href="/%s">%s</a>`, u, u)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func drain(t *testing.T, c *Cursor) []model.ProfileRef {
	t.Helper()
	var refs []model.ProfileRef
	for {
		ref, ok, err := c.Next(context.Background())
		if err != nil || !ok {
			return refs
		}
		refs = append(refs, ref)
	}
}

func TestCursor_WalksPagesInOrder(t *testing.T) {
	f := &pageFetcher{pages: map[int]string{
		1: searchPage("anna", "bruno"),
		2: searchPage("carla"),
		3: searchPage(),
	}}
	d := New(f, Config{BaseURL: "https://www.behance.net", TrackingSource: "ts", MaxPages: 10})

	c := d.Open("illustrator", 0)
	refs := drain(t, c)

	require.NoError(t, c.Err())
	require.Len(t, refs, 3)
	assert.Equal(t, "anna", refs[0].Username)
	assert.Equal(t, "bruno", refs[1].Username)
	assert.Equal(t, "carla", refs[2].Username)
	assert.Equal(t, 1, refs[0].Page)
	assert.Equal(t, 0, refs[0].Ordinal)
	assert.Equal(t, 1, refs[1].Ordinal)
	assert.Equal(t, 2, refs[2].Page)
	assert.Equal(t, "https://www.behance.net/anna", refs[0].URL)
	assert.Equal(t, model.StableID("https://www.behance.net/anna"), refs[0].ID)

	// The empty page 3 terminates the walk; no page 4 request.
	assert.Equal(t, 3, c.PagesFetched())
	require.Len(t, f.urls, 3)
	assert.Contains(t, f.urls[0], "page=1")
	assert.Contains(t, f.urls[0], "search=illustrator")
	assert.Contains(t, f.urls[0], "tracking_source=ts")
}

func TestCursor_NeverYieldsDuplicateIDs(t *testing.T) {
	// Unstable remote pagination repeats bruno on page 2.
	f := &pageFetcher{pages: map[int]string{
		1: searchPage("anna", "bruno"),
		2: searchPage("bruno", "carla"),
		3: searchPage("anna", "bruno", "carla"),
	}}
	d := New(f, Config{BaseURL: "https://www.behance.net", MaxPages: 10})

	refs := drain(t, d.Open("x", 0))

	usernames := make([]string, len(refs))
	for i, r := range refs {
		usernames[i] = r.Username
	}
	assert.Equal(t, []string{"anna", "bruno", "carla"}, usernames)
}

func TestCursor_MaxProfilesStopsImmediately(t *testing.T) {
	f := &pageFetcher{pages: map[int]string{
		1: searchPage("a1", "a2", "a3"),
		2: searchPage("b1", "b2", "b3"),
		3: searchPage("c1", "c2", "c3"),
	}}
	d := New(f, Config{BaseURL: "https://www.behance.net", MaxPages: 10})

	refs := drain(t, d.Open("x", 2))

	assert.Len(t, refs, 2)
	// Stopped mid page 1: pages 2 and 3 were never requested.
	assert.Equal(t, 1, f.PagesRequested())
}

func (f *pageFetcher) PagesRequested() int {
	return len(f.urls)
}

func TestCursor_PageCeiling(t *testing.T) {
	pages := map[int]string{}
	for i := 1; i <= 20; i++ {
		pages[i] = searchPage(fmt.Sprintf("user%d", i))
	}
	f := &pageFetcher{pages: pages}
	d := New(f, Config{BaseURL: "https://www.behance.net", MaxPages: 4})

	c := d.Open("x", 0)
	refs := drain(t, c)

	assert.Len(t, refs, 4)
	assert.Equal(t, 4, c.PagesFetched())
	assert.NoError(t, c.Err())
}

func TestCursor_FetchFailureTerminatesEarly(t *testing.T) {
	f := &pageFetcher{err: &fetch.FetchError{Kind: fetch.KindNetwork, URL: "x"}}
	d := New(f, Config{BaseURL: "https://www.behance.net"})

	c := d.Open("x", 0)
	_, ok, err := c.Next(context.Background())

	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, err, c.Err())

	// The cursor stays terminated.
	_, ok, _ = c.Next(context.Background())
	assert.False(t, ok)
}

func TestCursor_FailureAfterYieldKeepsYielded(t *testing.T) {
	f := &pageFetcher{pages: map[int]string{1: searchPage("anna")}}
	d := New(f, Config{BaseURL: "https://www.behance.net", MaxPages: 10})
	c := d.Open("x", 0)

	ref, ok, err := c.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "anna", ref.Username)

	// Page 2 fails: the cursor ends with an error, anna stands.
	f.err = &fetch.FetchError{Kind: fetch.KindHTTPStatus, Code: 503, URL: "x"}
	_, ok, err = c.Next(context.Background())
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, 2, c.CurrentPage())
}

func TestParseSearchPage_Filters(t *testing.T) {
	body := `<html><body>
	  <a href="/anna">profile</a>
	  <a href="https://www.behance.net/bruno">absolute</a>
	  <a href="https://other.example.com/carla">foreign host</a>
	  <a href="/gallery/1/x">two segments</a>
	  <a href="/search">reserved</a>
	  <a href="/collections">reserved</a>
	  <a href="/anna">duplicate</a>
	</body></html>`

	refs := parseSearchPage("https://www.behance.net", []byte(body))
	require.Len(t, refs, 2)
	assert.Equal(t, "anna", refs[0].Username)
	assert.Equal(t, "bruno", refs[1].Username)
}

func TestParseSearchPage_Empty(t *testing.T) {
	assert.Empty(t, parseSearchPage("https://www.behance.net", []byte("<html></html>")))
}
