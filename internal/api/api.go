// Package api exposes the HTTP surface of SyncPost: the Telegram webhook
// endpoint that drives the relay and a health probe. It also owns the
// background janitor that purges expired key-value entries.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BTreeMap/SyncPost/internal/models"
	"github.com/BTreeMap/SyncPost/internal/store"
)

// Defaults for server construction.
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPurgeInterval   = time.Hour
)

// secretHeader is the header Telegram attaches when the webhook was
// registered with a secret token.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler consumes one decoded webhook update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// WebhookSecret, when set, must match the secret token header on every
	// webhook delivery.
	WebhookSecret string
	// PurgeInterval controls how often expired store entries are removed.
	PurgeInterval time.Duration
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithWebhookSecret enables secret-token validation of webhook deliveries.
func WithWebhookSecret(secret string) Option {
	return func(o *Opts) { o.WebhookSecret = secret }
}

// WithPurgeInterval overrides the janitor interval.
func WithPurgeInterval(d time.Duration) Option {
	return func(o *Opts) { o.PurgeInterval = d }
}

// Server routes webhook deliveries into the relay.
type Server struct {
	addr          string
	secret        string
	purgeInterval time.Duration
	handler       UpdateHandler
	kv            store.KV
}

// NewServer creates an API server around the given update handler and
// key-value store.
func NewServer(handler UpdateHandler, kv store.KV, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, PurgeInterval: DefaultPurgeInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		addr:          cfg.Addr,
		secret:        cfg.WebhookSecret,
		purgeInterval: cfg.PurgeInterval,
		handler:       handler,
		kv:            kv,
	}
}

// Handler returns the HTTP handler tree served by Run.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully. The
// expired-entry janitor runs for the lifetime of the server.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.runJanitor(janitorCtx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// webhookHandler decodes one Telegram update and hands it to the relay
// synchronously. Telegram retries deliveries that do not get a 2xx, so
// processing failures inside the relay are still acknowledged with 200;
// the relay's own dedup guard covers retried deliveries.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.webhookHandler: processing webhook delivery", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.webhookHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.secret != "" && r.Header.Get(secretHeader) != s.secret {
		slog.Warn("Server.webhookHandler: secret token mismatch", "remote", r.RemoteAddr)
		writeJSONResponse(w, http.StatusForbidden, models.Error("Forbidden"))
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("Server.webhookHandler: failed to decode update", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	s.handler.HandleUpdate(r.Context(), update)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("healthy", nil))
}

// runJanitor periodically deletes expired key-value entries so mappings and
// dedup markers do not accumulate forever.
func (s *Server) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.kv.PurgeExpired()
			if err != nil {
				slog.Warn("Server.runJanitor: purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("Server.runJanitor: purged expired entries", "count", n)
			}
		}
	}
}
