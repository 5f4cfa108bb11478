package model

import (
	"encoding/json"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStableID_Deterministic(t *testing.T) {
	a := StableID("https://www.behance.net/annadesign")
	b := StableID("https://www.behance.net/annadesign")
	assert.Equal(t, a, b)
	assert.Positive(t, a)
}

func TestStableID_DistinctURLs(t *testing.T) {
	a := StableID("https://www.behance.net/annadesign")
	b := StableID("https://www.behance.net/brunoart")
	assert.NotEqual(t, a, b)
}

func TestStableID_NineHexDigitRange(t *testing.T) {
	// 9 hex digits cap the id below 16^9.
	const max = int64(1) << 36
	for _, url := range []string{
		"https://www.behance.net/a",
		"https://www.behance.net/b",
		"https://www.behance.net/c",
	} {
		id := StableID(url)
		assert.GreaterOrEqual(t, id, int64(0))
		assert.Less(t, id, max)
	}
}

func TestRecordJSONFieldNames(t *testing.T) {
	rec := Record{
		ID:        1,
		Username:  "anna",
		Available: true,
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "displayName")
	assert.Contains(t, m, "isAvailableForFreelanceServices")
	assert.Equal(t, true, m["isAvailableForFreelanceServices"])
}

func TestRecordXMLNesting(t *testing.T) {
	rec := Record{
		Username:   "anna",
		Categories: []string{"Branding", "Illustration"},
		Reviews:    []string{"great work"},
		Projects:   []Project{{ID: 7, Name: "Poster"}},
	}
	data, err := xml.Marshal(rec)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "<categories><category>Branding</category>")
	assert.Contains(t, out, "<reviews><review>great work</review></reviews>")
	assert.Contains(t, out, "<projects><project>")
}
