package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/varsilias/chatease/internal/audio"
	"github.com/varsilias/chatease/internal/buildinfo"
	"github.com/varsilias/chatease/internal/chat"
	"github.com/varsilias/chatease/internal/metrics"
	"github.com/varsilias/chatease/internal/models"
	"github.com/varsilias/chatease/internal/session"
	"github.com/varsilias/chatease/internal/transcribe"
	"github.com/varsilias/chatease/pkg/utils"
)

// maxAudioBytes caps transcription uploads.
const maxAudioBytes = 25 << 20

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type Handlers struct {
	log         *slog.Logger
	chat        *chat.Controller
	models      models.Manager
	sessions    session.Store
	Transcriber Transcriber // nil when no API key is configured
	Admin       *Admin
}

func NewHandlers(log *slog.Logger, chatCtrl *chat.Controller, manager models.Manager, store session.Store) *Handlers {
	return &Handlers{
		log:      log,
		chat:     chatCtrl,
		models:   manager,
		sessions: store,
	}
}

// Health is a basic liveness endpoint.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	res := map[string]any{
		"status":    true,
		"message":   "chatease",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	res := map[string]any{
		"version":  buildinfo.Version,
		"commit":   buildinfo.Commit,
		"built_at": buildinfo.BuiltAt,
	}
	utils.JSON(w, http.StatusOK, res)
}

// ListModels GET /api/models
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	mods, err := h.models.List(r.Context())
	if err != nil {
		utils.JSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"models": mods})
}

// Chat POST /api/chat — non-streaming convenience endpoint; the whole reply
// is returned once streaming from the model has finished.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model     string `json:"model"`
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if req.Message == "" {
		utils.JSON(w, http.StatusBadRequest, map[string]any{"error": "message is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = "default"
	}

	msg, latency, err := h.chat.Chat(r.Context(), req.SessionID, req.Model, req.Message, nil)
	if err != nil {
		utils.JSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"response":   msg.Content,
		"timestamp":  msg.Timestamp.UTC().Format(time.RFC3339),
		"latency_ms": latency.Milliseconds(),
		"model":      req.Model,
		"session_id": req.SessionID,
	})
}

// Transcribe POST /api/transcribe — relays a WAV body to the speech-to-text
// service. Failures come back as a 502 the page shows as a notification; an
// empty transcript is a 200 and simply starts no chat turn.
func (h *Handlers) Transcribe(w http.ResponseWriter, r *http.Request) {
	if h.Transcriber == nil {
		utils.JSON(w, http.StatusServiceUnavailable, map[string]any{"error": "transcription is not configured"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes+1))
	if err != nil {
		utils.JSON(w, http.StatusBadRequest, map[string]any{"error": "could not read audio body"})
		return
	}
	if len(body) > maxAudioBytes {
		utils.JSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "audio too large"})
		return
	}
	if err := audio.ValidateWAV(body); err != nil {
		utils.JSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	metrics.TranscriptionRequests.Inc()
	text, err := h.Transcriber.Transcribe(r.Context(), body)
	if err != nil {
		metrics.TranscriptionFailures.Inc()
		var terr *transcribe.Error
		if errors.As(err, &terr) {
			h.log.Warn("transcription failed", "status", terr.Status)
		} else {
			h.log.Warn("transcription failed", "err", err.Error())
		}
		utils.JSON(w, http.StatusBadGateway, map[string]any{"error": "error transcribing audio"})
		return
	}
	if text == "" {
		metrics.TranscriptionEmpty.Inc()
	}

	utils.JSON(w, http.StatusOK, map[string]any{"transcript": text})
}

// GetHistory GET /api/history/{session_id}
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		utils.JSON(w, http.StatusBadRequest, map[string]any{"error": "missing session_id"})
		return
	}

	history, err := h.sessions.Get(sessionID)
	if err != nil {
		utils.JSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	out := make([]map[string]string, 0, len(history))
	for _, m := range history {
		out = append(out, map[string]string{"role": string(m.Role), "content": m.Content})
	}
	utils.JSON(w, http.StatusOK, map[string]any{"history": out})
}
