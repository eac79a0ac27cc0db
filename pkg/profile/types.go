// Package profile holds the applicant data that seeds a pipeline run.
package profile

// Field names as they appear in templates.
const (
	FieldExperience = "experience"
	FieldEducation  = "education"
	FieldHighlights = "highlights"
	FieldHobbies    = "hobbies"
	FieldLanguages  = "languages"
	FieldOther      = "other"
	// FieldJobDescription is the store key of the job a run targets.
	FieldJobDescription = "job_description"
)

// Profile represents the applicant's own material.
type Profile struct {
	Experience string `json:"experience"`
	Education  string `json:"education"`
	Highlights string `json:"highlights"`
	Hobbies    string `json:"hobbies"`
	Languages  string `json:"languages"`
	Other      string `json:"other"`
}
