package extract

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Selectors holds the CSS selector chains and marker phrases the extractor
// tries, in order, for each field. The defaults match the platform's
// observed markup; a YAML profile can override individual chains when the
// layout shifts, without a rebuild.
type Selectors struct {
	// DisplayName candidates, tried before the h1/title fallbacks.
	DisplayName []string `yaml:"display_name"`

	// Location candidates, tried before the header span heuristic.
	Location []string `yaml:"location"`

	// AvailabilityPhrases are matched case-insensitively against page text.
	AvailabilityPhrases []string `yaml:"availability_phrases"`

	// CategoryPills are the class-based specialty chips.
	CategoryPills []string `yaml:"category_pills"`

	// CategoryHeadings are keywords identifying the specialty section
	// heading used as a fallback when no pills are present.
	CategoryHeadings []string `yaml:"category_headings"`

	// ProfileImage candidates, tried after the og:image meta tag.
	ProfileImage []string `yaml:"profile_image"`

	// ProjectCards selects portfolio entry anchors.
	ProjectCards []string `yaml:"project_cards"`

	// ReviewHeadings are keywords identifying review/testimonial sections.
	ReviewHeadings []string `yaml:"review_headings"`

	// CompletedCounter optionally names a selector for an explicit completed
	// project counter. Empty means derive the count from the project list.
	CompletedCounter string `yaml:"completed_counter"`
}

// DefaultSelectors returns the selector profile for the platform's current
// markup.
func DefaultSelectors() Selectors {
	return Selectors{
		DisplayName: []string{"[itemprop=name]"},
		Location:    []string{"[itemprop=addressLocality]", ".Location", ".e-location", ".UserInfo-location"},
		AvailabilityPhrases: []string{
			"available for freelance",
			"available for work",
			"freelance available",
			"accepting new projects",
		},
		CategoryPills:    []string{".Specialties-specialty", ".UserInfo-specialties", ".js-speciality"},
		CategoryHeadings: []string{"fields", "specialties"},
		ProfileImage:     []string{"img.Avatar-image", "img.UserInfo-avatar", "img.Profile-avatar"},
		ProjectCards:     []string{"a.Project-cover", "a.js-project-cover", "a.project-cover"},
		ReviewHeadings:   []string{"review", "testimonial"},
	}
}

// LoadSelectors reads a selector profile override from a YAML file. The file
// carries a top-level "selectors" key; keys left unset keep their defaults.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, eris.Wrapf(err, "extract: read selector profile %s", path)
	}

	var wrapper struct {
		Selectors Selectors `yaml:"selectors"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return sel, eris.Wrap(err, "extract: parse selector profile")
	}

	merged := wrapper.Selectors
	if merged.DisplayName == nil {
		merged.DisplayName = sel.DisplayName
	}
	if merged.Location == nil {
		merged.Location = sel.Location
	}
	if merged.AvailabilityPhrases == nil {
		merged.AvailabilityPhrases = sel.AvailabilityPhrases
	}
	if merged.CategoryPills == nil {
		merged.CategoryPills = sel.CategoryPills
	}
	if merged.CategoryHeadings == nil {
		merged.CategoryHeadings = sel.CategoryHeadings
	}
	if merged.ProfileImage == nil {
		merged.ProfileImage = sel.ProfileImage
	}
	if merged.ProjectCards == nil {
		merged.ProjectCards = sel.ProjectCards
	}
	if merged.ReviewHeadings == nil {
		merged.ReviewHeadings = sel.ReviewHeadings
	}
	if merged.CompletedCounter == "" {
		merged.CompletedCounter = sel.CompletedCounter
	}
	return merged, nil
}
