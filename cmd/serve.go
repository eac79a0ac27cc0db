package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nikogura/jobdocs/pkg/auth"
	"github.com/nikogura/jobdocs/pkg/config"
	"github.com/nikogura/jobdocs/pkg/logger"
	"github.com/nikogura/jobdocs/pkg/renderer"
	"github.com/nikogura/jobdocs/pkg/repository"
	"github.com/nikogura/jobdocs/pkg/session"
	"github.com/nikogura/jobdocs/pkg/web"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

//nolint:gochecknoglobals // Cobra boilerplate
var serveAddr string

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web application",
	Long: `Serve the web application: accounts, profiles, saved cover letters and a
step-by-step pipeline run per login.

Run state lives in Redis when server.redis_addr (or JOBDOCS_REDIS_ADDR) is set and in
process memory otherwise. Users, profiles and cover letters live in the SQLite file at
server.database_path.

Example:
  JOBDOCS_JWT_SECRET=$(openssl rand -hex 32) jobdocs serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config.Config
	cfg, err = loadConfig()
	if err != nil {
		return err
	}

	err = cfg.ValidateServer()
	if err != nil {
		return err
	}

	var log *logger.Logger
	log, err = newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer log.Sync()

	if strings.EqualFold(cfg.LogMode, "prod") {
		gin.SetMode(gin.ReleaseMode)
	}

	var ttl time.Duration
	ttl, err = cfg.SessionTTL()
	if err != nil {
		return err
	}

	var controller *session.Controller
	controller, err = buildController(cfg, log)
	if err != nil {
		return err
	}

	var repo *repository.Repository
	repo, err = repository.Open(ctx, cfg.Server.DatabasePath)
	if err != nil {
		return err
	}
	defer repo.Close()

	var sessions session.Repository
	sessions, err = openSessions(ctx, cfg, ttl, log)
	if err != nil {
		return err
	}
	if closer, ok := sessions.(*session.RedisRepository); ok {
		defer closer.Close()
	}

	var issuer *auth.Issuer
	issuer, err = auth.NewIssuer(cfg.Server.JWTSecret, ttl)
	if err != nil {
		return err
	}

	var srv *web.Server
	srv, err = web.New(web.Options{
		Repository: repo,
		Sessions:   sessions,
		Controller: controller,
		Issuer:     issuer,
		Logger:     log,
		OutputDir:  cfg.Output.Dir,
		Export: renderer.ExportOptions{
			ReferenceDoc: cfg.Output.ReferenceDoc,
			KeepMarkdown: cfg.Output.KeepMarkdown,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	httpServer := srv.HTTPServer(addr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		log.Info("listening", "addr", addr, "steps", controller.Pipeline().Len())
		err = httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	})

	g.Go(func() (err error) {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err = httpServer.Shutdown(shutdownCtx)
		return err
	})

	err = g.Wait()
	return err
}

func openSessions(ctx context.Context, cfg config.Config, ttl time.Duration, log *logger.Logger) (sessions session.Repository, err error) {
	if cfg.Server.RedisAddr == "" {
		log.Info("run state kept in memory")
		sessions = session.NewMemoryRepository()
		return sessions, err
	}

	var redisRepo *session.RedisRepository
	redisRepo, err = session.NewRedisRepository(ctx, cfg.Server.RedisAddr, ttl)
	if err != nil {
		return sessions, err
	}

	log.Info("run state kept in redis", "addr", cfg.Server.RedisAddr, "ttl", ttl.String())
	sessions = redisRepo
	return sessions, err
}
