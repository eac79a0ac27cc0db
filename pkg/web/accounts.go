package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nikogura/jobdocs/pkg/profile"
	"github.com/nikogura/jobdocs/pkg/renderer"
	"github.com/nikogura/jobdocs/pkg/repository"
	"github.com/pkg/errors"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expires_at"`
	User      repository.User `json:"user"`
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	user, err := s.repo.CreateUser(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, repository.ErrUsernameTaken) {
		respondError(c, http.StatusConflict, "username_taken", err)
		return
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, "registration_failed", err)
		return
	}

	s.log.Info("user registered", "user_id", user.ID)
	s.issueToken(c, http.StatusCreated, user)
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	user, err := s.repo.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, repository.ErrInvalidCredentials) {
		respondError(c, http.StatusUnauthorized, "invalid_credentials", err)
		return
	}
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	s.issueToken(c, http.StatusOK, user)
}

func (s *Server) issueToken(c *gin.Context, status int, user repository.User) {
	token, claims, err := s.issuer.Issue(user.ID)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	c.JSON(status, tokenResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Unix(),
		User:      user,
	})
}

func (s *Server) getProfile(c *gin.Context) {
	claims, _ := claimsFrom(c)

	p, err := s.repo.GetProfile(c.Request.Context(), claims.UserID())
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	respondOK(c, p)
}

func (s *Server) putProfile(c *gin.Context) {
	claims, _ := claimsFrom(c)

	var p profile.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	p = p.Sanitize()
	err := s.repo.SaveProfile(c.Request.Context(), claims.UserID(), p)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	respondOK(c, p)
}

func (s *Server) listCoverLetters(c *gin.Context) {
	claims, _ := claimsFrom(c)

	letters, err := s.repo.ListCoverLetters(c.Request.Context(), claims.UserID())
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	respondOK(c, gin.H{"cover_letters": letters})
}

func (s *Server) getCoverLetter(c *gin.Context) {
	claims, _ := claimsFrom(c)

	id, ok := letterID(c)
	if !ok {
		return
	}

	letter, err := s.repo.GetCoverLetter(c.Request.Context(), claims.UserID(), id)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	respondOK(c, letter)
}

type letterUpdate struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
}

func (s *Server) putCoverLetter(c *gin.Context) {
	claims, _ := claimsFrom(c)

	id, ok := letterID(c)
	if !ok {
		return
	}

	var req letterUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	letter, err := s.repo.UpdateCoverLetter(c.Request.Context(), claims.UserID(), id, strings.TrimSpace(req.Title), req.Content)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	respondOK(c, letter)
}

func (s *Server) downloadCoverLetter(c *gin.Context) {
	claims, _ := claimsFrom(c)

	id, ok := letterID(c)
	if !ok {
		return
	}

	letter, err := s.repo.GetCoverLetter(c.Request.Context(), claims.UserID(), id)
	if err != nil {
		s.respondFailure(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="cover-letter-`+strconv.FormatInt(letter.ID, 10)+`.docx"`)
	c.Header("Content-Type", renderer.DocxContentType)
	c.Status(http.StatusOK)

	err = renderer.EncodeDocx(c.Writer, letter.Content)
	if err != nil {
		s.log.Error("failed to stream docx", "letter_id", letter.ID, "error", err.Error())
	}
}

func letterID(c *gin.Context) (id int64, ok bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.Errorf("invalid cover letter id %q", c.Param("id")))
		return id, false
	}
	return id, true
}
