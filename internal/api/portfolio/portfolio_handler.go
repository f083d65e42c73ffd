package portfolio

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/analyticalinvestments/omega-api/internal/api"
	"github.com/analyticalinvestments/omega-api/internal/api/auth"
)

type PortfolioHandler struct {
	logger *slog.Logger
	repo   PortfolioRepo
}

func NewPortfolioHandler(repo PortfolioRepo, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		logger: logger,
		repo:   repo,
	}
}

// ListPortfolios returns the caller's portfolios.
func (h *PortfolioHandler) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
		return
	}

	portfolios, err := h.repo.ListPortfolios(r.Context(), user.ID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list portfolios", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to list portfolios")
		return
	}
	if portfolios == nil {
		portfolios = []Portfolio{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, portfolios)
}

// CreatePortfolio creates an empty portfolio owned by the caller.
func (h *PortfolioHandler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
		return
	}

	var req CreatePortfolioRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "name is required")
		return
	}

	p, err := h.repo.CreatePortfolio(r.Context(), user.ID, req.Name)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to create portfolio", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to create portfolio")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, p)
}

// UpdateHoldings replaces the holdings of one of the caller's portfolios.
// A portfolio owned by someone else reads as not found.
func (h *PortfolioHandler) UpdateHoldings(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
		return
	}

	portfolioID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	var req UpdateHoldingsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.repo.GetPortfolio(r.Context(), portfolioID)
	if err != nil || existing.UserID != user.ID {
		api.ErrorResponse(w, r, http.StatusNotFound, "portfolio not found")
		return
	}

	p, err := h.repo.UpdateHoldings(r.Context(), portfolioID, req)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "portfolio not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to update holdings", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to update holdings")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}
