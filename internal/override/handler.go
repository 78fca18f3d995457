package override

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/logiq-bot/logiq/internal/authz"
	"github.com/logiq-bot/logiq/internal/capability"
	"github.com/logiq-bot/logiq/internal/platform/httpx"
)

// Handler exposes override administration to the configuration surface.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers override routes under a tenant scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.list)
	r.Post("/{capability}/grant", h.mutation(h.service.Grant))
	r.Post("/{capability}/revoke", h.mutation(h.service.Revoke))
	r.Post("/{capability}/clear", h.mutation(h.service.Clear))
	r.Post("/{capability}/reset", h.reset)
}

type mutationRequest struct {
	Actor  authz.ActorPayload `json:"actor" validate:"required"`
	RoleID int64              `json:"role_id" validate:"required"`
}

type actorRequest struct {
	Actor authz.ActorPayload `json:"actor" validate:"required"`
}

func (h *Handler) mutation(op func(ctx context.Context, actor authz.Actor, key capability.Key, roleID int64) (Record, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req mutationRequest
		if !h.decode(w, r, &req) {
			return
		}
		record, err := op(r.Context(), req.Actor.Actor(), capability.Key(chi.URLParam(r, "capability")), req.RoleID)
		if err != nil {
			h.respondErr(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, record)
	}
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.Reset(r.Context(), req.Actor.Actor(), capability.Key(chi.URLParam(r, "capability"))); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if !h.decode(w, r, &req) {
		return
	}
	tenantID, err := strconv.ParseInt(chi.URLParam(r, "tenantID"), 10, 64)
	if err != nil || tenantID != req.Actor.TenantID {
		httpx.RespondError(w, fmt.Errorf("%w: tenant mismatch", httpx.ErrValidation))
		return
	}
	records, err := h.service.List(r.Context(), req.Actor.Actor())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if records == nil {
		records = []Record{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed request body", httpx.ErrValidation))
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return false
	}
	return true
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotPermitted):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrForbidden, err.Error()))
	case errors.Is(err, ErrUnknownCapability):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	case errors.Is(err, ErrConcurrencyConflict):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrConflict, err.Error()))
	default:
		h.logger.Error("override operation", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
