package market

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/analyticalinvestments/omega-api/internal/api"
)

type MarketHandler struct {
	logger *slog.Logger
	repo   MarketRepo
}

func NewMarketHandler(repo MarketRepo, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		logger: logger,
		repo:   repo,
	}
}

// ListQuotes returns snapshots for all tracked symbols. Public.
func (h *MarketHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.repo.ListQuotes(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list market quotes", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to list market data")
		return
	}
	if quotes == nil {
		quotes = []Quote{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, quotes)
}

// GetQuote returns the snapshot for one symbol. Public.
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "symbol is required")
		return
	}

	quote, err := h.repo.GetQuote(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "symbol not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to get quote", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to get quote")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, quote)
}

// UpsertQuote writes a symbol snapshot. Intended for ingestion jobs.
func (h *MarketHandler) UpsertQuote(w http.ResponseWriter, r *http.Request) {
	var req UpsertQuoteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Symbol == "" || req.Name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "symbol and name are required")
		return
	}

	quote, err := h.repo.UpsertQuote(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to upsert quote", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to store quote")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, quote)
}
