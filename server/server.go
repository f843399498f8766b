package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/zorins376-hub/music-bot/logger"

	"github.com/goccy/go-json"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// secretHeader carries the secret_token given to setWebhook.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Dispatcher takes ownership of a decoded update.
type Dispatcher interface {
	Dispatch(ctx context.Context, update tgbotapi.Update)
}

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// Options configure a Server. Updates may be nil when the bot long-polls.
type Options struct {
	Addr          string
	WebhookPath   string
	WebhookSecret string
	Updates       Dispatcher
	Checks        map[string]Check
	Gatherer      prometheus.Gatherer
}

// Server exposes health, metrics and the Telegram webhook.
type Server struct {
	opts   Options
	server *http.Server
}

func New(opts Options) *Server {
	if opts.WebhookPath == "" {
		opts.WebhookPath = "/telegram/webhook"
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{opts: opts}
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	if s.opts.Updates != nil {
		router.HandleFunc(s.opts.WebhookPath, s.handleWebhook).Methods(http.MethodPost)
	}
	return otelhttp.NewHandler(router, "blackroom")
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("[Server] listening", logger.String("addr", s.opts.Addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("[Server] stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{}
	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			logger.Warn("[Server] health check failed", logger.String("check", name), logger.ErrorField(err))
			body[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "ok"
	}
	writeJSON(w, status, body)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.opts.WebhookSecret != "" && r.Header.Get(secretHeader) != s.opts.WebhookSecret {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.Warn("[Server] malformed update", logger.ErrorField(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	// Telegram retries until it gets a 2xx, so the update is handled after the reply.
	s.opts.Updates.Dispatch(context.WithoutCancel(r.Context()), update)
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("[Server] response write failed", logger.ErrorField(err))
	}
}
