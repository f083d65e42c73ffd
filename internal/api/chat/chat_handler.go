package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/analyticalinvestments/omega-api/internal/api"
	"github.com/analyticalinvestments/omega-api/internal/api/auth"
)

type ChatHandler struct {
	logger  *slog.Logger
	service ChatService
}

func NewChatHandler(service ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		logger:  logger,
		service: service,
	}
}

// SendMessage godoc
// @Summary      Send a chat message to OMEGA AI
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request body ChatRequest true "Message and optional session"
// @Success      200 {object} ChatResponse
// @Router       /chat [post]
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
		return
	}

	var req ChatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := h.service.SendMessage(r.Context(), user.ID, req)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "chat session not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "Chat message failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to process message")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// ListSessions returns the caller's chat sessions, most recent first.
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), user.ID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list chat sessions", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []ChatSession{}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, sessions)
}

// GenerateReport godoc
// @Summary      Generate a structured investment report
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request body ReportRequest true "Report topic"
// @Success      200 {object} Report
// @Router       /generate-report [post]
func (h *ChatHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Topic == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "topic is required")
		return
	}

	report, err := h.service.GenerateReport(r.Context(), req.Topic)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Report generation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to generate report")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, report)
}
