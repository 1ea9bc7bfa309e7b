// Package api provides HTTP handlers and the API server for SupportLine.
//
// It exposes the provider webhook endpoints that feed the orchestrator, the
// activation control surface, and read endpoints for the agent front end.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/proleads/SupportLine/internal/activation"
	"github.com/proleads/SupportLine/internal/models"
	"github.com/proleads/SupportLine/internal/store"
)

// EventHandler is the orchestrator surface the webhook endpoints drive.
type EventHandler interface {
	HandleInboundMessage(ctx context.Context, msg models.InboundMessage) error
	HandleConversationEvent(ctx context.Context, ev models.ConversationEvent) error
}

// DefaultAddr is the default API listen address.
const DefaultAddr = ":3000"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server routes webhook and control-plane requests to the injected modules.
type Server struct {
	addr     string
	registry *activation.Registry
	events   EventHandler
	tickets  store.TicketStore
	archives store.ArchiveStore
}

// NewServer builds the API server over its collaborators.
func NewServer(registry *activation.Registry, events EventHandler, tickets store.TicketStore, archives store.ArchiveStore, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		addr:     cfg.Addr,
		registry: registry,
		events:   events,
		tickets:  tickets,
		archives: archives,
	}
}

// Handler returns the route table as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sms", s.smsWebhookHandler)
	mux.HandleFunc("/webhook", s.conversationWebhookHandler)
	mux.HandleFunc("/serviceStatus", s.serviceStatusHandler)
	mux.HandleFunc("/toggleService", s.toggleServiceHandler)
	mux.HandleFunc("/tickets", s.ticketsHandler)
	mux.HandleFunc("/archive", s.archiveHandler)
	mux.HandleFunc("/archives", s.archivesHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("SupportLine API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("SupportLine API stopped")
	return nil
}
