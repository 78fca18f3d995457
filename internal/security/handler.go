package security

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/logiq-bot/logiq/internal/authz"
	"github.com/logiq-bot/logiq/internal/platform/httpx"
)

// Handler exposes tenant security configuration.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers security routes under a tenant scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.update)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := strconv.ParseInt(chi.URLParam(r, "tenantID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid tenant id", httpx.ErrValidation))
		return
	}
	cfg, err := h.service.Get(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("security get", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cfg)
}

type updateRequest struct {
	Actor            authz.ActorPayload `json:"actor" validate:"required"`
	ProtectedRoleIDs []int64            `json:"protected_role_ids"`
	Initialized      bool               `json:"initialized"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed request body", httpx.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	cfg, err := h.service.Update(r.Context(), req.Actor.Actor(), req.ProtectedRoleIDs, req.Initialized)
	if err != nil {
		if errors.Is(err, ErrNotPermitted) {
			httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrForbidden, err.Error()))
			return
		}
		h.logger.Error("security update", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cfg)
}
