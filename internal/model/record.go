package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Record is one fully extracted freelancer profile. Field extraction is
// tolerant: everything except identity degrades to its zero value, so a
// Record with empty location or categories is still valid.
type Record struct {
	ID                int64     `json:"id" xml:"id"`
	Username          string    `json:"username" xml:"username"`
	DisplayName       string    `json:"displayName" xml:"display_name"`
	URL               string    `json:"url" xml:"url"`
	Location          string    `json:"location" xml:"location"`
	Country           string    `json:"country" xml:"country"`
	Available         bool      `json:"isAvailableForFreelanceServices" xml:"available_for_freelance"`
	Categories        []string  `json:"categories" xml:"categories>category"`
	CompletedProjects int       `json:"completed_projects" xml:"completed_projects"`
	Reviews           []string  `json:"reviews" xml:"reviews>review"`
	ProfileImage      string    `json:"profile_image" xml:"profile_image"`
	Projects          []Project `json:"projects" xml:"projects>project"`
}

// Project is a portfolio entry nested under its Record. Projects have no
// lifecycle of their own; they are snapshotted at extraction time.
type Project struct {
	ID         int64  `json:"id" xml:"id"`
	Name       string `json:"name" xml:"name"`
	URL        string `json:"url" xml:"url"`
	CoverImage string `json:"cover_image" xml:"cover_image"`
}

// ProfileRef is the minimal identity yielded by discovery before full
// extraction. Page and Ordinal record where in the search walk the
// reference surfaced, so failures stay attributable and output can be
// re-sorted into discovery order.
type ProfileRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	URL      string `json:"url"`
	Page     int    `json:"page"`
	Ordinal  int    `json:"ordinal"`
}

// StableID derives a deterministic integer identifier from a canonical URL.
// The platform does not expose numeric ids in its markup, so identity is the
// first 9 hex digits of the URL's SHA-256 digest. Stable across runs.
func StableID(rawURL string) int64 {
	sum := sha256.Sum256([]byte(rawURL))
	id, err := strconv.ParseInt(hex.EncodeToString(sum[:])[:9], 16, 64)
	if err != nil {
		return 0
	}
	return id
}
