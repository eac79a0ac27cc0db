// Package web serves the interactive application: accounts, profiles, saved cover letters and a
// step-by-step pipeline run per login.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nikogura/jobdocs/pkg/auth"
	"github.com/nikogura/jobdocs/pkg/jd"
	"github.com/nikogura/jobdocs/pkg/logger"
	"github.com/nikogura/jobdocs/pkg/renderer"
	"github.com/nikogura/jobdocs/pkg/repository"
	"github.com/nikogura/jobdocs/pkg/session"
	"github.com/pkg/errors"
)

// FetchFunc retrieves a job posting by URL.
type FetchFunc func(ctx context.Context, url string) (text string, err error)

// Options wires a Server.
type Options struct {
	Repository *repository.Repository
	Sessions   session.Repository
	Controller *session.Controller
	Issuer     *auth.Issuer
	Logger     *logger.Logger
	// OutputDir receives a .docx copy of every saved letter. Empty disables the copy.
	OutputDir      string
	Export         renderer.ExportOptions
	AllowedOrigins []string
	// Fetch defaults to jd.FetchWithContext.
	Fetch FetchFunc
}

// Server is the HTTP application.
type Server struct {
	repo       *repository.Repository
	sessions   session.Repository
	controller *session.Controller
	issuer     *auth.Issuer
	log        *logger.Logger
	outputDir  string
	export     renderer.ExportOptions
	origins    []string
	fetch      FetchFunc
	locks      *keyedMutex
}

// New validates opts and builds a Server.
func New(opts Options) (s *Server, err error) {
	if opts.Repository == nil || opts.Sessions == nil || opts.Controller == nil || opts.Issuer == nil {
		err = errors.New("web server needs a repository, a session store, a controller and a token issuer")
		return s, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	fetch := opts.Fetch
	if fetch == nil {
		fetch = jd.FetchWithContext
	}

	s = &Server{
		repo:       opts.Repository,
		sessions:   opts.Sessions,
		controller: opts.Controller,
		issuer:     opts.Issuer,
		log:        log.With("component", "web"),
		outputDir:  opts.OutputDir,
		export:     opts.Export,
		origins:    opts.AllowedOrigins,
		fetch:      fetch,
		locks:      newKeyedMutex(),
	}
	return s, err
}

// Router builds the gin engine with every route.
func (s *Server) Router() (r *gin.Engine) {
	r = gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.log))
	r.Use(CORS(s.origins))

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	{
		api.POST("/auth/register", s.register)
		api.POST("/auth/login", s.login)
	}

	protected := api.Group("/")
	protected.Use(RequireAuth(s.issuer))
	{
		protected.GET("/profile", s.getProfile)
		protected.PUT("/profile", s.putProfile)

		protected.GET("/cover-letters", s.listCoverLetters)
		protected.GET("/cover-letters/:id", s.getCoverLetter)
		protected.PUT("/cover-letters/:id", s.putCoverLetter)
		protected.GET("/cover-letters/:id/docx", s.downloadCoverLetter)

		protected.GET("/steps", s.getSteps)
		protected.DELETE("/steps", s.abandonSteps)
		protected.POST("/steps/start", s.startSteps)
		protected.POST("/steps/next", s.nextStep)
		protected.POST("/steps/retry", s.retryStep)
		protected.POST("/steps/left", s.browseLeft)
		protected.POST("/steps/right", s.browseRight)
		protected.POST("/steps/save", s.saveStep)
		protected.POST("/steps/finish", s.finishSteps)
	}

	return r
}

// HTTPServer wraps Router in an http.Server with conservative timeouts. Step transitions wait on
// the completion service, so the write timeout is generous.
func (s *Server) HTTPServer(addr string) (srv *http.Server) {
	srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return srv
}

func (s *Server) health(c *gin.Context) {
	err := s.repo.Ping(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "unhealthy", err)
		return
	}
	respondOK(c, gin.H{"status": "ok"})
}
