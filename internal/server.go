package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/micutio/trackspottr/internal/track"
)

const shutdownGrace = 5 * time.Second

// DisplayServer is the local read-only HTTP endpoint. It serves the health of the server
// connection and the resolved picture as JSON.
type DisplayServer struct {
	sched    *Scheduler
	resolver *track.Resolver
	view     func() track.View
	logger   *slog.Logger
}

type displayResponse struct {
	State       string          `json:"state"`
	ServerTime  time.Time       `json:"serverTime"`
	LastSuccess time.Time       `json:"lastSuccess,omitzero"`
	Version     string          `json:"version,omitempty"`
	Tracks      []track.Display `json:"tracks"`
}

// NewDisplayServer creates the endpoint. view is called per request and must be safe for
// concurrent use; nil serves the default view.
func NewDisplayServer(sched *Scheduler, resolver *track.Resolver, view func() track.View, logger *slog.Logger) *DisplayServer {
	if view == nil {
		view = func() track.View { return track.View{Visible: track.AllVisible(), DeadReckoning: true} }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DisplayServer{sched: sched, resolver: resolver, view: view, logger: logger}
}

// Handler returns the endpoint's routes.
func (d *DisplayServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.HealthHandler)
	mux.HandleFunc("/display", d.DisplayHandler)
	mux.HandleFunc("/", d.RootHandler)
	return mux
}

func (d *DisplayServer) RootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "trackspottr\nHealth: /healthz\nPicture: /display\n")
}

// HealthHandler answers 200 while the picture is in sync with the server, 503 otherwise.
func (d *DisplayServer) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	state := d.sched.State()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if state != Synced {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "%s\n", state)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok\n")
}

// DisplayHandler serves the resolved picture.
func (d *DisplayServer) DisplayHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := d.sched.ServerNow()
	resp := displayResponse{
		State:       d.sched.State().String(),
		ServerTime:  now,
		LastSuccess: d.sched.LastSuccess(),
		Version:     d.sched.Version(),
		Tracks:      d.resolver.Resolve(d.sched.Store().Snapshot(), d.view(), now),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		d.logger.Warn("writing display response failed", slog.Any("error", err))
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (d *DisplayServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("local endpoint shutdown failed", slog.Any("error", err))
		}
	}()

	d.logger.Info("local endpoint listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}
