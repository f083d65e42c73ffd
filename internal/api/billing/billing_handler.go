package billing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/analyticalinvestments/omega-api/internal/api"
	"github.com/analyticalinvestments/omega-api/internal/api/auth"
)

type BillingHandler struct {
	logger  *slog.Logger
	service BillingService
}

func NewBillingHandler(service BillingService, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		logger:  logger,
		service: service,
	}
}

// GetOrCreateSubscription returns the caller's subscription refs, creating
// them on first call.
func (h *BillingHandler) GetOrCreateSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
		return
	}

	refs, err := h.service.GetOrCreateSubscription(r.Context(), user)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Subscription provisioning failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to provision subscription")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, refs)
}

// UpdateSubscriptionStatus applies a provider-reported status to the
// caller's plan. The response carries the updated user so clients can see
// the plan change take effect immediately.
func (h *BillingHandler) UpdateSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
		return
	}

	var req UpdateStatusRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Status == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "status is required")
		return
	}

	updated, err := h.service.UpdateSubscriptionStatus(r.Context(), user.ID, req.Status)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "user not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "Subscription status update failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to update subscription")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}
