package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nikogura/jobdocs/pkg/renderer"
	"github.com/nikogura/jobdocs/pkg/repository"
	"github.com/nikogura/jobdocs/pkg/session"
	"github.com/pkg/errors"
)

type startRequest struct {
	JobDescription string `json:"job_description"`
	// JobURL is fetched when JobDescription is empty.
	JobURL string `json:"job_url"`
}

type saveRequest struct {
	Title string `json:"title"`
}

// stepResponse is the step view plus the selected output as display text.
type stepResponse struct {
	session.StepView
	Text string `json:"text"`
}

type finishResponse struct {
	Final string `json:"final"`
}

type saveResponse struct {
	CoverLetter repository.CoverLetter `json:"cover_letter"`
	Path        string                 `json:"path,omitempty"`
}

func (s *Server) view(st *session.State) (resp stepResponse) {
	resp.StepView = s.controller.View(st)
	if resp.HasOutput {
		resp.Text = resp.Output.String()
	}
	return resp
}

// getSteps shows the current run, or the empty view when there is none.
func (s *Server) getSteps(c *gin.Context) {
	claims, _ := claimsFrom(c)

	st, err := s.sessions.Get(c.Request.Context(), claims.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		respondOK(c, s.view(nil))
		return
	}
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	respondOK(c, s.view(st))
}

// abandonSteps drops the current run so a new one can start.
func (s *Server) abandonSteps(c *gin.Context) {
	claims, _ := claimsFrom(c)

	unlock := s.locks.Lock(claims.SessionID)
	defer unlock()

	err := s.sessions.Delete(c.Request.Context(), claims.SessionID)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// startSteps opens a run seeded with the user's profile and the job description, then runs the
// first step. A failed first step leaves the run open at step zero.
func (s *Server) startSteps(c *gin.Context) {
	claims, _ := claimsFrom(c)
	ctx := c.Request.Context()

	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	job, err := s.jobDescription(ctx, req)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_job_description", err)
		return
	}

	unlock := s.locks.Lock(claims.SessionID)
	defer unlock()

	prev, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		s.respondFailure(c, err)
		return
	}

	p, err := s.repo.GetProfile(ctx, claims.UserID())
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	st, err := s.controller.Start(prev, p.RunInputs(job))
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	err = s.sessions.Put(ctx, claims.SessionID, st)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	s.log.Info("run started", "user_id", claims.UserID(), "run_id", st.ID, "steps", s.controller.Pipeline().Len())

	if st.Status == session.StatusInProgress {
		_, err = s.controller.Advance(ctx, st)
		if err != nil {
			s.respondFailure(c, err)
			return
		}

		err = s.sessions.Put(ctx, claims.SessionID, st)
		if err != nil {
			s.respondFailure(c, err)
			return
		}
	}

	respondOK(c, s.view(st))
}

func (s *Server) jobDescription(ctx context.Context, req startRequest) (job string, err error) {
	job = strings.TrimSpace(req.JobDescription)
	if job != "" {
		return job, err
	}

	if req.JobURL == "" {
		err = errors.New("job_description or job_url is required")
		return job, err
	}

	// Only remote postings; a bare path would read the server's own files.
	u, parseErr := url.Parse(req.JobURL)
	if parseErr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		err = errors.Errorf("job_url must be an http or https URL: %q", req.JobURL)
		return job, err
	}

	job, err = s.fetch(ctx, u.String())
	if err != nil {
		return job, err
	}

	return job, err
}

func (s *Server) nextStep(c *gin.Context) {
	s.transition(c, "advance", func(ctx context.Context, st *session.State) (err error) {
		_, err = s.controller.Advance(ctx, st)
		return err
	})
}

func (s *Server) retryStep(c *gin.Context) {
	s.transition(c, "retry", func(ctx context.Context, st *session.State) (err error) {
		_, err = s.controller.Retry(ctx, st)
		return err
	})
}

func (s *Server) browseLeft(c *gin.Context) {
	s.transition(c, "browse_left", func(ctx context.Context, st *session.State) (err error) {
		_, err = s.controller.BrowseLeft(st)
		return err
	})
}

func (s *Server) browseRight(c *gin.Context) {
	s.transition(c, "browse_right", func(ctx context.Context, st *session.State) (err error) {
		_, err = s.controller.BrowseRight(st)
		return err
	})
}

// transition loads the run, applies fn under the session lock and writes the state back only
// when fn succeeds.
func (s *Server) transition(c *gin.Context, op string, fn func(ctx context.Context, st *session.State) error) {
	claims, _ := claimsFrom(c)
	ctx := c.Request.Context()

	unlock := s.locks.Lock(claims.SessionID)
	defer unlock()

	st, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	err = fn(ctx, st)
	if err != nil {
		s.log.Warn("transition failed", "op", op, "run_id", st.ID, "error", err.Error())
		s.respondFailure(c, err)
		return
	}

	err = s.sessions.Put(ctx, claims.SessionID, st)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	s.log.Debug("transition applied", "op", op, "run_id", st.ID, "step", st.CurrentStep, "alternative", st.AlternativeIndex)
	respondOK(c, s.view(st))
}

// saveStep stores the output currently shown as a cover letter and exports a .docx copy.
func (s *Server) saveStep(c *gin.Context) {
	claims, _ := claimsFrom(c)
	ctx := c.Request.Context()

	var req saveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}

	unlock := s.locks.Lock(claims.SessionID)
	defer unlock()

	st, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	view := s.controller.View(st)
	if !view.HasOutput {
		s.respondFailure(c, &session.InvalidTransitionError{Op: "save", Reason: "no step output to save"})
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = view.PreviousTitle
	}

	letter, err := s.repo.CreateCoverLetter(ctx, claims.UserID(), title, view.Output.String())
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	resp := saveResponse{CoverLetter: letter}
	if s.outputDir != "" {
		resp.Path = filepath.Join(s.outputDir, claims.UserID(), fmt.Sprintf("cover-letter-%d.docx", letter.ID))
		err = renderer.Export(ctx, letter.Content, resp.Path, s.export)
		if err != nil {
			s.respondFailure(c, errors.Wrap(err, "cover letter saved but export failed"))
			return
		}
	}

	s.log.Info("cover letter saved", "user_id", claims.UserID(), "letter_id", letter.ID, "step", view.PreviousStep)
	respondOK(c, resp)
}

// finishSteps closes a completed run, returns the final document text and drops the state.
func (s *Server) finishSteps(c *gin.Context) {
	claims, _ := claimsFrom(c)
	ctx := c.Request.Context()

	unlock := s.locks.Lock(claims.SessionID)
	defer unlock()

	st, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	final, err := s.controller.Finish(st)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	err = s.sessions.Delete(ctx, claims.SessionID)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	s.log.Info("run finished", "user_id", claims.UserID(), "run_id", st.ID)
	respondOK(c, finishResponse{Final: final.String()})
}
