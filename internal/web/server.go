// Package web is the gateway's HTTP surface: the upload page, the
// upload/download endpoints, the event feed, and operational routes.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slidegate-dev/slidegate/internal/config"
	"github.com/slidegate-dev/slidegate/pkg/banner"
	"github.com/slidegate-dev/slidegate/pkg/convert"
	"github.com/slidegate-dev/slidegate/pkg/pref"
	"github.com/slidegate-dev/slidegate/pkg/upload"
)

// Server is the gateway HTTP server.
type Server struct {
	cfg       *config.Config
	log       *slog.Logger
	store     upload.Store
	converter *convert.Client
	presenter *banner.Presenter
	theme     *pref.Pref[string]
	hub       *hub
	metrics   *metrics
	registry  *prometheus.Registry
	router    chi.Router

	httpServer *http.Server
}

// NewServer wires the gateway together. The store and converter are
// injected so the serve command can select backends and tests can
// substitute fakes.
func NewServer(cfg *config.Config, log *slog.Logger, store upload.Store, converter *convert.Client) *Server {
	registry := prometheus.NewRegistry()

	s := &Server{
		cfg:       cfg,
		log:       log,
		store:     store,
		converter: converter,
		theme:     pref.New("theme", cfg.Theme),
		registry:  registry,
		metrics:   newMetrics(registry),
	}

	s.hub = newHub(log.With("component", "feed"), func(delta int) {
		s.metrics.feedClients.Add(float64(delta))
	})
	s.presenter = banner.NewPresenter(banner.Config{
		SuccessTTL: cfg.SuccessBannerTTL(),
		Notify:     s.hub.NotifyBanner,
	})
	s.theme.OnChange(func(key, value string) {
		log.Info("preference changed", "key", key, "value", value)
	})

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Get("/download/{id}", s.handleDownload)
	r.Post("/theme", s.handleTheme)
	r.Get("/ws", s.hub.ServeHTTP)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Handle("/static/*", s.staticHandler())

	return r
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

// Run serves until the context is canceled, then shuts down
// gracefully. The spool sweeper runs alongside the listener.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepDone := make(chan struct{})
	go s.sweep(ctx, sweepDone)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "address", s.cfg.Address, "backend", s.cfg.BackendURL)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		// The listener died on its own (startup failure, usually a bind
		// error); release the sweeper before reporting it.
		cancel()
		<-sweepDone
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down", "timeout", s.cfg.ShutdownTimeout())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.hub.Close()
	s.presenter.Close()
	<-sweepDone
	if err != nil {
		return err
	}
	return <-errCh
}

// sweep removes expired spool entries on a fixed cadence.
func (s *Server) sweep(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	interval := s.cfg.SpoolMaxAge() / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if err := s.store.Cleanup(sweepCtx, s.cfg.SpoolMaxAge()); err != nil {
				s.log.Warn("spool sweep failed", "error", err)
			}
			cancel()
		}
	}
}
