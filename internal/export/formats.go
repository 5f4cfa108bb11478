// Package export serializes harvest results into the supported output
// formats. Flat formats (csv, xlsx) flatten nested lists; structured
// formats (json, xml) carry them in full.
package export

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Format names one supported output serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
)

// ErrUnknownFormat is returned by ParseFormats for names outside the
// supported set. Validation happens before any network activity.
var ErrUnknownFormat = eris.New("export: unknown format")

var allFormats = map[Format]struct{}{
	FormatJSON: {},
	FormatCSV:  {},
	FormatXML:  {},
	FormatXLSX: {},
	FormatHTML: {},
}

// ParseFormats validates a comma-separated format list. Order is
// preserved; repeats collapse to one.
func ParseFormats(s string) ([]Format, error) {
	var formats []Format
	seen := make(map[Format]struct{})
	for _, part := range strings.Split(s, ",") {
		name := Format(strings.ToLower(strings.TrimSpace(part)))
		if name == "" {
			continue
		}
		if _, ok := allFormats[name]; !ok {
			return nil, eris.Wrapf(ErrUnknownFormat, "%q", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		formats = append(formats, name)
	}
	if len(formats) == 0 {
		return nil, eris.Wrap(ErrUnknownFormat, "empty format list")
	}
	return formats, nil
}

// BaseName builds the shared output file stem for one run:
// freelancers_<keyword>_<utc timestamp>.
func BaseName(keyword string, t time.Time) string {
	return "freelancers_" + sanitize(keyword) + "_" + t.UTC().Format("20060102T150405Z")
}

// sanitize maps a keyword onto a filesystem-safe token: lowercase,
// non-alphanumerics become underscores, repeats collapse.
func sanitize(s string) string {
	var b strings.Builder
	prevUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
