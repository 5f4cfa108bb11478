package extract

import (
	"bytes"
	"mime"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_-]+)`)

// decodeToUTF8 normalizes an HTML payload to UTF-8 using the charset
// declared in the Content-Type header, then a <meta charset> tag. Unknown
// or missing charsets fall back to the raw bytes; a payload that fails to
// transcode is never a fatal condition.
func decodeToUTF8(body []byte, contentType string) []byte {
	name := charsetFromContentType(contentType)
	if name == "" {
		if m := metaCharsetRe.FindSubmatch(body); m != nil {
			name = string(m[1])
		}
	}
	if name == "" || strings.EqualFold(name, "utf-8") {
		return body
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return body
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return bytes.TrimPrefix(decoded, []byte("\ufeff"))
}

func charsetFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
