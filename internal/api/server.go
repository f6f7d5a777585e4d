package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qwli7/meetbridge/internal/api/middleware"
	"github.com/qwli7/meetbridge/internal/bridge"
	"github.com/qwli7/meetbridge/internal/log"
	"github.com/qwli7/meetbridge/internal/metrics"
	"github.com/qwli7/meetbridge/internal/operator"
	"github.com/qwli7/meetbridge/internal/tencent"
)

// Submitter is the orchestration entry point the webhook handler drives.
type Submitter interface {
	Process(ctx context.Context, sub *bridge.FormSubmission) (*bridge.WebhookResponse, error)
}

// UpstreamGateway is the slice of the upstream client the management
// passthrough endpoints need.
type UpstreamGateway interface {
	CreateMeeting(ctx context.Context, req *tencent.CreateMeetingRequest) (*tencent.CreateMeetingResponse, error)
	CancelMeeting(ctx context.Context, meetingID string, req *tencent.CancelMeetingRequest) error
	BookRooms(ctx context.Context, meetingID string, req *tencent.BookRoomsRequest) error
	ReleaseRooms(ctx context.Context, meetingID string, req *tencent.ReleaseRoomsRequest) error
	ListRooms(ctx context.Context, page, pageSize int, operatorID string) (*tencent.MeetingRoomsResponse, error)
}

// Config carries the HTTP-facing settings.
type Config struct {
	// WebhookAuthToken enables the auth query check when non-empty.
	WebhookAuthToken string
	// Production hides the management passthrough endpoints.
	Production     bool
	AllowedOrigins []string
}

// Server owns the HTTP surface: the webhook ingress, liveness, metrics and
// the development passthrough endpoints.
type Server struct {
	processor Submitter
	upstream  UpstreamGateway
	registry  *operator.Registry
	cfg       Config
	router    *chi.Mux
}

// NewServer wires the router with the canonical middleware stack and all
// routes.
func NewServer(processor Submitter, upstream UpstreamGateway, registry *operator.Registry, cfg Config) *Server {
	s := &Server{
		processor: processor,
		upstream:  upstream,
		registry:  registry,
		cfg:       cfg,
	}
	s.router = middleware.NewRouter(middleware.StackConfig{
		EnableCORS:      true,
		AllowedOrigins:  cfg.AllowedOrigins,
		EnableMetrics:   true,
		EnableLogging:   true,
		EnableRateLimit: true,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(webhookAuth(s.cfg.WebhookAuthToken))
		r.Post("/webhook/form-submission", s.handleFormSubmission)
	})

	if !s.cfg.Production {
		s.router.Get("/meeting-rooms", s.handleListRooms)
		s.router.Post("/meetings", s.handleCreateMeeting)
		s.router.Post("/meetings/{id}/cancel", s.handleCancelMeeting)
		s.router.Post("/meetings/{id}/book-rooms", s.handleBookRooms)
		s.router.Post("/meetings/{id}/release-rooms", s.handleReleaseRooms)
	}
}

// ServeHTTP makes the server mountable as a plain http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleFormSubmission(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	var sub bridge.FormSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		logger.Warn().Err(err).Msg("malformed webhook payload")
		writeBadRequest(w, "malformed JSON payload")
		return
	}

	logger.Info().
		Str(log.FieldFormName, sub.FormName).
		Str(log.FieldToken, sub.Entry.Token).
		Msg("webhook submission received")

	resp, err := s.processor.Process(r.Context(), &sub)
	if err != nil {
		if errors.Is(err, bridge.ErrBadSubmission) {
			writeBadRequest(w, err.Error())
			return
		}
		logger.Error().Err(err).Msg("submission processing failed")
		writeUpstreamError(w, err)
		return
	}

	// Partial and informational failures still answer 200: the webhook
	// delivery itself succeeded and the body reports per-meeting outcomes.
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	rooms, err := s.upstream.ListRooms(r.Context(), page, pageSize, s.registry.Default())
	if err != nil {
		metrics.IncUpstreamRequest("list", "failure")
		writeUpstreamError(w, err)
		return
	}
	metrics.IncUpstreamRequest("list", "success")
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req tencent.CreateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed JSON payload")
		return
	}
	resp, err := s.upstream.CreateMeeting(r.Context(), &req)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelMeeting(w http.ResponseWriter, r *http.Request) {
	var req tencent.CancelMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed JSON payload")
		return
	}
	if err := s.upstream.CancelMeeting(r.Context(), chi.URLParam(r, "id"), &req); err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleBookRooms(w http.ResponseWriter, r *http.Request) {
	var req tencent.BookRoomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed JSON payload")
		return
	}
	if err := s.upstream.BookRooms(r.Context(), chi.URLParam(r, "id"), &req); err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleReleaseRooms(w http.ResponseWriter, r *http.Request) {
	var req tencent.ReleaseRoomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed JSON payload")
		return
	}
	if err := s.upstream.ReleaseRooms(r.Context(), chi.URLParam(r, "id"), &req); err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
