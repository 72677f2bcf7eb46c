package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iconidentify/chalkboard/internal/chat"
	"github.com/iconidentify/chalkboard/internal/domain"
)

// Chatter answers a chat turn. It always returns text.
type Chatter interface {
	Reply(ctx context.Context, req chat.Request) string
}

// ChatHandler handles POST /chat.
type ChatHandler struct {
	chat   Chatter
	logger *slog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(c Chatter, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   c,
		logger: logger,
	}
}

// ChatRequest is the JSON request body for POST /chat.
type ChatRequest struct {
	VideoID       string                `json:"videoId"`
	Timestamp     float64               `json:"timestamp"`
	UserMessage   string                `json:"userMessage"`
	Context       *chat.PlayContext     `json:"context,omitempty"`
	VideoMetadata *domain.VideoMetadata `json:"videoMetadata,omitempty"`
}

// ChatResponse is the JSON response for POST /chat.
type ChatResponse struct {
	Response  string  `json:"response"`
	Timestamp float64 `json:"timestamp"`
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		writeError(w, h.logger, missing("userMessage"))
		return
	}

	reply := h.chat.Reply(r.Context(), chat.Request{
		VideoID:     strings.TrimSpace(req.VideoID),
		CurrentTime: req.Timestamp,
		Message:     req.UserMessage,
		Context:     req.Context,
		Metadata:    req.VideoMetadata,
	})

	writeJSON(w, http.StatusOK, ChatResponse{Response: reply, Timestamp: req.Timestamp})
}
