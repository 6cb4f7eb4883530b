package emulator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/notebooklab/ragcheck/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const shutdownGrace = 10 * time.Second

// Server is the local document service emulator.
type Server struct {
	cfg      *config.EmulatorConfig
	logger   *zap.Logger
	registry *Registry
	store    *FileStore
	issuer   *TokenIssuer
	cron     *cron.Cron
	httpSrv  *http.Server
}

// NewServer builds the emulator: registry, file store, token issuer and the
// status progression schedule. The seed account from configuration is
// registered immediately so a default workflow run works out of the box.
func NewServer(cfg *config.EmulatorConfig, logger *zap.Logger) (*Server, error) {
	registry, err := NewRegistry(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	store, err := NewFileStore(cfg.StoragePath, cfg.StorageBucket)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		store:    store,
		issuer:   NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTLDuration()),
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
	}

	if cfg.SeedIdentifier != "" && cfg.SeedSecret != "" {
		if err := s.seedAccount(cfg.SeedIdentifier, cfg.SeedSecret); err != nil {
			return nil, err
		}
	}

	if cfg.ProgressionSchedule != "" {
		_, err := s.cron.AddFunc(cfg.ProgressionSchedule, func() {
			if err := s.registry.AdvanceStatuses(); err != nil {
				s.logger.Warn("status progression sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid progression schedule: %w", err)
		}
	}

	return s, nil
}

func (s *Server) seedAccount(identifier, secret string) error {
	if _, err := s.registry.GetUser(identifier); err == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed secret: %w", err)
	}
	if err := s.registry.CreateUser(&User{Email: identifier, PasswordHash: hash}); err != nil {
		return fmt.Errorf("failed to seed account: %w", err)
	}
	s.logger.Info("seeded account", zap.String("identifier", identifier))
	return nil
}

// Router assembles the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(recovery(s.logger))
	r.Use(requestLogging(s.logger))
	r.Use(corsHandler(&s.cfg.CORS))
	r.Use(rateLimit(&s.cfg.RateLimit))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Get("/rag/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(requireSession(s.issuer, s.logger))
			r.Post("/rag/documents/upload", s.handleUpload)
			r.Get("/rag/documents", s.handleList)
			r.Get("/rag/documents/{id}/status", s.handleStatus)
			r.Delete("/rag/documents/{id}", s.handleDelete)
		})
	})

	return r
}

// Start runs the HTTP server and the progression scheduler until the
// context is cancelled, then shuts both down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.cron.Start()
	defer s.cron.Stop()

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeoutDuration(),
		WriteTimeout: s.cfg.WriteTimeoutDuration(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("emulator listening", zap.Int("port", s.cfg.Port))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down emulator")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}
