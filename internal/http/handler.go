package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/davidbz/kiln/internal/domain"
	"github.com/davidbz/kiln/internal/observability"
)

const (
	cacheHeader = "X-Kiln-Cache"
	keyHeader   = "X-Kiln-Key"

	maxBodyBytes = 1 << 20
)

// Handler handles HTTP requests.
type Handler struct {
	service *domain.GenerationService
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(service *domain.GenerationService) *Handler {
	return &Handler{
		service: service,
	}
}

type audioRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type dialogueRequest struct {
	Topic   string `json:"topic"`
	Context string `json:"context"`
}

type voiceRequest struct {
	Voice string `json:"voice"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// HandleAudio serves POST /v1/audio.
func (h *Handler) HandleAudio(w http.ResponseWriter, r *http.Request) {
	ctx := observability.WithNamespace(r.Context(), string(domain.NamespaceSpeech))

	var req audioRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.GetOrGenerateAudio(ctx, req.Text, req.Voice)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeAudio(ctx, w, result)
}

// HandleDialogue serves POST /v1/dialogues.
func (h *Handler) HandleDialogue(w http.ResponseWriter, r *http.Request) {
	ctx := observability.WithNamespace(r.Context(), string(domain.NamespaceDialogue))

	var req dialogueRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.GetOrGenerateDialogueText(ctx, req.Topic, req.Context)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	setCacheHeaders(w, domain.CacheKey(result.Conversation.ID), result.Cached)
	writeJSON(ctx, w, http.StatusOK, result)
}

// HandleTurnAudio serves POST /v1/conversations/{id}/turns/{index}/audio.
func (h *Handler) HandleTurnAudio(w http.ResponseWriter, r *http.Request) {
	ctx := observability.WithNamespace(r.Context(), string(domain.NamespaceTurnAudio))

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(ctx, w, domain.NewValidationError("turn_index", "must be an integer"))
		return
	}

	var req voiceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.GetOrGenerateTurnAudio(ctx, r.PathValue("id"), index, req.Voice)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeAudio(ctx, w, result)
}

// HandleConversationAudio serves POST /v1/conversations/{id}/audio.
// Partial success returns 200 with per-turn errors.
func (h *Handler) HandleConversationAudio(w http.ResponseWriter, r *http.Request) {
	ctx := observability.WithNamespace(r.Context(), string(domain.NamespaceTurnAudio))

	var req voiceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.GetOrGenerateConversationAudio(ctx, r.PathValue("id"), req.Voice)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if failed := result.Failed(); len(failed) > 0 {
		observability.FromContext(ctx).Warn("conversation audio partially failed",
			observability.Int("failed", len(failed)),
			observability.Int("turns", len(result.Turns)))
	}

	writeJSON(ctx, w, http.StatusOK, result)
}

// HandleMetrics serves GET /v1/cache/metrics.
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, h.service.GetCacheMetrics(r.Context()))
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// writeAudio returns JSON with the artifact URL, or the audio itself when
// the artifact has no durable location.
func writeAudio(ctx context.Context, w http.ResponseWriter, result *domain.AudioResult) {
	setCacheHeaders(w, result.Key, result.Cached)

	if result.URL != "" {
		writeJSON(ctx, w, http.StatusOK, result)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		observability.FromContext(ctx).Warn("failed to write audio", observability.Error(err))
	}
}

func setCacheHeaders(w http.ResponseWriter, key domain.CacheKey, cached bool) {
	status := "MISS"
	if cached {
		status = "HIT"
	}
	w.Header().Set(cacheHeader, status)
	w.Header().Set(keyHeader, string(key))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("invalid request body: %v", err),
		})
		return false
	}
	return true
}

// writeError maps domain errors to status codes: validation 400, back end 502.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := observability.FromContext(ctx)

	var validationErr *domain.ValidationError
	var backendErr *domain.BackendError

	switch {
	case errors.As(err, &validationErr):
		logger.Info("request rejected", observability.Error(err))
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			Error: validationErr.Error(),
			Field: validationErr.Field,
		})
	case errors.As(err, &backendErr):
		logger.Error("generation failed", observability.Error(err))
		writeJSON(ctx, w, http.StatusBadGateway, errorResponse{Error: backendErr.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("request timed out", observability.Error(err))
		writeJSON(ctx, w, http.StatusGatewayTimeout, errorResponse{Error: "request timed out"})
	case errors.Is(err, context.Canceled):
		logger.Info("request cancelled by client")
	default:
		logger.Error("request failed", observability.Error(err))
		writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Already written status, can't change it, just log.
		observability.FromContext(ctx).Warn("failed to encode response", observability.Error(err))
	}
}
