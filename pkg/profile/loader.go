package profile

import (
	"encoding/json"
	"html"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nikogura/jobdocs/pkg/store"
	"github.com/pkg/errors"
)

// Load reads a profile from a JSON file.
func Load(path string) (p Profile, err error) {
	// Read file
	var fileData []byte
	fileData, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read profile file: %s", path)
		return p, err
	}

	// Parse JSON
	err = json.Unmarshal(fileData, &p)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse profile JSON: %s", path)
		return p, err
	}

	// Validate data
	err = p.Validate()
	if err != nil {
		err = errors.Wrap(err, "profile validation failed")
		return p, err
	}

	return p, err
}

// Validate checks that the profile carries something to write about.
func (p *Profile) Validate() (err error) {
	if strings.TrimSpace(p.Experience) == "" && strings.TrimSpace(p.Education) == "" && strings.TrimSpace(p.Highlights) == "" {
		err = errors.New("profile needs at least one of experience, education or highlights")
		return err
	}
	return err
}

// Sanitize strips markup from every field. Profiles edited through the web arrive as free text
// and end up verbatim in prompts and documents.
func (p Profile) Sanitize() (clean Profile) {
	policy := bluemonday.StrictPolicy()
	clean = Profile{
		Experience: sanitizeText(policy, p.Experience),
		Education:  sanitizeText(policy, p.Education),
		Highlights: sanitizeText(policy, p.Highlights),
		Hobbies:    sanitizeText(policy, p.Hobbies),
		Languages:  sanitizeText(policy, p.Languages),
		Other:      sanitizeText(policy, p.Other),
	}
	return clean
}

func sanitizeText(policy *bluemonday.Policy, text string) (clean string) {
	// The policy escapes entities; the result is plain text, not HTML.
	clean = strings.TrimSpace(html.UnescapeString(policy.Sanitize(text)))
	return clean
}

// Inputs returns the profile as store entries, one text value per field.
func (p Profile) Inputs() (s store.Store) {
	s = store.FromStrings(map[string]string{
		FieldExperience: p.Experience,
		FieldEducation:  p.Education,
		FieldHighlights: p.Highlights,
		FieldHobbies:    p.Hobbies,
		FieldLanguages:  p.Languages,
		FieldOther:      p.Other,
	})
	return s
}

// RunInputs returns the profile plus the job description as the seed of a run.
func (p Profile) RunInputs(jobDescription string) (s store.Store) {
	s = p.Inputs()
	s.Set(FieldJobDescription, store.Text(jobDescription))
	return s
}
