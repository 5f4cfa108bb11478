// Package discovery walks paginated search results and yields profile
// references lazily. A cursor is finite, strictly page-ordered, and
// restartable only by opening a fresh one.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/folio-scout/harvest-cli/internal/fetch"
	"github.com/folio-scout/harvest-cli/internal/model"
)

// Config controls the search walk.
type Config struct {
	// BaseURL is the platform root, e.g. https://www.behance.net.
	BaseURL string

	// TrackingSource is passed through on the search query string.
	TrackingSource string

	// MaxPages caps the page walk, guarding against a remote source that
	// paginates forever. Default: 5.
	MaxPages int
}

// Discovery turns a keyword into a lazy sequence of profile references.
type Discovery struct {
	fetcher fetch.Fetcher
	cfg     Config
}

// New creates a Discovery over the shared fetch controller.
func New(fetcher fetch.Fetcher, cfg Config) *Discovery {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Discovery{fetcher: fetcher, cfg: cfg}
}

// Open starts a cursor for the keyword. maxProfiles caps the number of
// distinct references yielded; zero means unbounded (the page ceiling still
// applies).
func (d *Discovery) Open(keyword string, maxProfiles int) *Cursor {
	return &Cursor{
		d:           d,
		keyword:     keyword,
		maxProfiles: maxProfiles,
		seen:        make(map[int64]struct{}),
	}
}

// Cursor is the produce-on-demand iterator over discovered references.
// Page N+1 is requested only after page N's references have all been
// yielded, so dedup and cap accounting are deterministic.
type Cursor struct {
	d           *Discovery
	keyword     string
	maxProfiles int

	page    int
	buf     []model.ProfileRef
	seen    map[int64]struct{}
	yielded int
	fetched int
	done    bool
	err     error
}

// Next returns the next reference. ok is false once the sequence is
// exhausted; exhaustion is normal termination, not an error. After an early
// termination Err reports the cause.
func (c *Cursor) Next(ctx context.Context) (model.ProfileRef, bool, error) {
	for len(c.buf) == 0 && !c.done {
		if err := c.fill(ctx); err != nil {
			c.err = err
			c.done = true
			return model.ProfileRef{}, false, err
		}
	}
	if len(c.buf) == 0 {
		return model.ProfileRef{}, false, nil
	}

	ref := c.buf[0]
	c.buf = c.buf[1:]
	c.yielded++
	if c.maxProfiles > 0 && c.yielded >= c.maxProfiles {
		c.done = true
		c.buf = nil
	}
	return ref, true, nil
}

// Err returns the error that terminated the cursor early, if any. A nil
// error after exhaustion means the walk ended normally.
func (c *Cursor) Err() error {
	return c.err
}

// PagesFetched reports how many result pages were requested.
func (c *Cursor) PagesFetched() int {
	return c.fetched
}

// CurrentPage reports the page number of the most recent request, for
// failure attribution.
func (c *Cursor) CurrentPage() int {
	return c.page
}

// fill fetches the next result page and buffers its new references.
func (c *Cursor) fill(ctx context.Context) error {
	if c.page >= c.d.cfg.MaxPages {
		zap.L().Debug("discovery: page ceiling reached",
			zap.String("keyword", c.keyword),
			zap.Int("max_pages", c.d.cfg.MaxPages),
		)
		c.done = true
		return nil
	}
	c.page++

	resp, err := c.d.fetcher.Get(ctx, c.d.searchURL(c.keyword, c.page))
	if err != nil {
		return err
	}
	c.fetched++

	refs := parseSearchPage(c.d.cfg.BaseURL, resp.Body)
	fresh := 0
	for _, ref := range refs {
		if _, dup := c.seen[ref.ID]; dup {
			continue
		}
		c.seen[ref.ID] = struct{}{}
		ref.Page = c.page
		ref.Ordinal = fresh
		fresh++
		c.buf = append(c.buf, ref)
	}

	zap.L().Debug("discovery: page parsed",
		zap.String("keyword", c.keyword),
		zap.Int("page", c.page),
		zap.Int("refs", len(refs)),
		zap.Int("new", fresh),
	)

	// A page with zero new references ends the walk.
	if fresh == 0 {
		c.done = true
	}
	return nil
}

func (d *Discovery) searchURL(keyword string, page int) string {
	q := url.Values{}
	q.Set("search", keyword)
	q.Set("tracking_source", d.cfg.TrackingSource)
	q.Set("page", strconv.Itoa(page))
	return fmt.Sprintf("%s/search/users?%s", d.cfg.BaseURL, q.Encode())
}
