package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"selfbot/pkg/config"
)

const (
	defaultStatusHost = "127.0.0.1"
	defaultStatusPort = 18790
)

type sessionState struct {
	Running bool   `json:"running"`
	Ready   bool   `json:"ready"`
	User    string `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status          string       `json:"status"`
	UptimeSeconds   int64        `json:"uptime_seconds"`
	Uptime          string       `json:"uptime"`
	RAM             string       `json:"ram,omitempty"`
	Language        string       `json:"language,omitempty"`
	Session         sessionState `json:"session"`
	Modules         []string     `json:"modules"`
	CommandsHandled int64        `json:"commands_handled"`
}

// statusSource is what the status server reports on.
type statusSource interface {
	snapshot(status string, detailed bool) statusResponse
	isReady() bool
}

type statusServer struct {
	addr   string
	source statusSource
	log    *slog.Logger
}

func newStatusServer(cfg config.StatusConfig, source statusSource, log *slog.Logger) *statusServer {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultStatusHost
	}

	port := cfg.Port
	if port <= 0 {
		port = defaultStatusPort
	}

	return &statusServer{
		addr:   host + ":" + strconv.Itoa(port),
		source: source,
		log:    log.With("component", "bot.status"),
	}
}

func (s *statusServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

func (s *statusServer) run(ctx context.Context, errCh chan<- error) {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Status server started", "address", s.addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *statusServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.source.snapshot("ok", false))
}

func (s *statusServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.source.isReady() {
		s.respond(w, http.StatusServiceUnavailable, s.source.snapshot("not_ready", false))
		return
	}
	s.respond(w, http.StatusOK, s.source.snapshot("ready", false))
}

func (s *statusServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := "ready"
	if !s.source.isReady() {
		status = "not_ready"
	}
	s.respond(w, http.StatusOK, s.source.snapshot(status, true))
}

func (s *statusServer) respond(w http.ResponseWriter, statusCode int, payload statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}
