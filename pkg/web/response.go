package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nikogura/jobdocs/pkg/executor"
	"github.com/nikogura/jobdocs/pkg/placeholder"
	"github.com/nikogura/jobdocs/pkg/repository"
	"github.com/nikogura/jobdocs/pkg/session"
	"github.com/pkg/errors"
)

// APIError is the body of a failed request.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Bound   string `json:"bound,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func respondOK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// respondFailure maps the error taxonomy onto HTTP statuses.
func (s *Server) respondFailure(c *gin.Context, err error) {
	var transitionErr *session.InvalidTransitionError
	var unresolvedErr *executor.TemplateUnresolvedError
	var serviceErr *executor.ServiceError
	var malformedErr *executor.MalformedResponseError
	var lookupErr *placeholder.LookupError

	switch {
	case errors.As(err, &transitionErr):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorEnvelope{
			Error: APIError{
				Message: err.Error(),
				Code:    "invalid_transition",
				Bound:   string(transitionErr.Bound),
			},
		})
	case errors.As(err, &unresolvedErr):
		respondError(c, http.StatusUnprocessableEntity, "template_unresolved", err)
	case errors.As(err, &lookupErr):
		respondError(c, http.StatusUnprocessableEntity, "lookup_failed", err)
	case errors.As(err, &serviceErr):
		respondError(c, http.StatusBadGateway, "service_error", err)
	case errors.As(err, &malformedErr):
		respondError(c, http.StatusBadGateway, "malformed_response", err)
	case errors.Is(err, session.ErrNotFound):
		respondError(c, http.StatusNotFound, "no_session", err)
	case errors.Is(err, repository.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err)
	default:
		s.log.Error("request failed", "path", c.FullPath(), "error", err.Error())
		respondError(c, http.StatusInternalServerError, "internal_error", errors.New("internal error"))
	}
}
