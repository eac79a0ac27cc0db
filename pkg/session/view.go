package session

import (
	"strings"

	"github.com/nikogura/jobdocs/pkg/store"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StepView is a read-only projection of a run for display.
type StepView struct {
	SessionID        string      `json:"session_id"`
	Status           Status      `json:"status"`
	Step             int         `json:"step"`
	TotalSteps       int         `json:"total_steps"`
	PreviousStep     string      `json:"previous_step,omitempty"`
	PreviousTitle    string      `json:"previous_title,omitempty"`
	Output           store.Value `json:"output"`
	HasOutput        bool        `json:"has_output"`
	AlternativeIndex int         `json:"alternative_index"`
	Alternatives     int         `json:"alternatives"`
	CanBrowseLeft    bool        `json:"can_browse_left"`
	CanBrowseRight   bool        `json:"can_browse_right"`
	CanRetry         bool        `json:"can_retry"`
	NextStep         string      `json:"next_step,omitempty"`
	NextTitle        string      `json:"next_title,omitempty"`
	Completed        bool        `json:"completed"`
}

// View projects st for a user interface. A nil state yields the empty view.
func (c *Controller) View(st *State) (view StepView) {
	view.TotalSteps = c.pipeline.Len()
	if st == nil {
		return view
	}

	view.SessionID = st.ID
	view.Status = st.Status
	view.Step = st.CurrentStep
	view.Completed = st.Status == StatusCompleted || st.Status == StatusFinished

	if st.CurrentStep > 0 && st.CurrentStep <= c.pipeline.Len() {
		name := c.pipeline.Prompts[st.CurrentStep-1].Name
		view.PreviousStep = name
		view.PreviousTitle = StepTitle(name)
		view.Output, view.HasOutput = st.Store.Get(name)
		view.CanRetry = st.Status != StatusFinished
	}

	view.Alternatives = len(st.Alternatives)
	view.AlternativeIndex = st.AlternativeIndex
	if view.Alternatives > 0 && st.Status != StatusFinished {
		view.CanBrowseLeft = st.AlternativeIndex > 0
		view.CanBrowseRight = st.AlternativeIndex < view.Alternatives-1
	}

	if st.CurrentStep >= 0 && st.CurrentStep < c.pipeline.Len() {
		name := c.pipeline.Prompts[st.CurrentStep].Name
		view.NextStep = name
		view.NextTitle = StepTitle(name)
	}

	return view
}

// StepTitle turns a step name like write_cover_letter into "Write Cover Letter".
func StepTitle(name string) (title string) {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(name))
	title = cases.Title(language.English).String(strings.Join(words, " "))
	return title
}
