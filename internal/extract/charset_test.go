package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/encoding/charmap"
)

func TestDecodeToUTF8_HeaderCharset(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte("São Paulo"))
	assert.NoError(t, err)

	got := decodeToUTF8(raw, "text/html; charset=iso-8859-1")
	assert.Equal(t, "São Paulo", string(got))
}

func TestDecodeToUTF8_MetaCharset(t *testing.T) {
	page := `<html><head><meta charset="windows-1252"></head><body>caf` + "\xe9" + `</body></html>`

	got := decodeToUTF8([]byte(page), "text/html")
	assert.Contains(t, string(got), "café")
}

func TestDecodeToUTF8_StripsByteOrderMark(t *testing.T) {
	// UTF-16LE with a leading BOM, which decodes to U+FEFF.
	raw := []byte{0xff, 0xfe}
	for _, c := range []byte("hello") {
		raw = append(raw, c, 0x00)
	}

	got := decodeToUTF8(raw, "text/html; charset=utf-16le")
	assert.Equal(t, "hello", string(got))
}

func TestDecodeToUTF8_UnknownCharsetFallsBack(t *testing.T) {
	body := []byte("plain ascii")
	got := decodeToUTF8(body, "text/html; charset=not-a-charset")
	assert.Equal(t, body, got)
}

func TestDecodeToUTF8_NoCharset(t *testing.T) {
	body := []byte("<html><body>hello</body></html>")
	assert.Equal(t, body, decodeToUTF8(body, ""))
}
