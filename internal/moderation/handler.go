package moderation

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/logiq-bot/logiq/internal/authz"
	"github.com/logiq-bot/logiq/internal/capability"
	"github.com/logiq-bot/logiq/internal/platform/httpx"
	"github.com/logiq-bot/logiq/internal/sanction"
	"github.com/logiq-bot/logiq/internal/security"
)

// Handler serves suspension endpoints. Every entry point builds the same
// (capability, base, target) triple and goes through Engine.Decide; there is
// no separate policy path for buttons versus commands.
type Handler struct {
	logger     *slog.Logger
	engine     *authz.Engine
	registry   *capability.Registry
	sanctions  *sanction.Service
	security   *security.Service
	restrictor Restrictor
	validate   *validator.Validate

	// OnSanction, when set, receives "issue" and "lift" events. Used for
	// metrics; it must not block.
	OnSanction func(kind string)
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, engine *authz.Engine, registry *capability.Registry, sanctions *sanction.Service, sec *security.Service, restrictor Restrictor) *Handler {
	return &Handler{
		logger:     logger,
		engine:     engine,
		registry:   registry,
		sanctions:  sanctions,
		security:   sec,
		restrictor: restrictor,
		validate:   validator.New(),
	}
}

// MountRoutes registers sanction routes under a tenant scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.issue)
	r.Post("/{subjectID}/lift", h.lift)
	r.Post("/{subjectID}/status", h.status)
}

type issueRequest struct {
	Actor           authz.ActorPayload `json:"actor" validate:"required"`
	Target          authz.ActorPayload `json:"target" validate:"required"`
	BaseGranted     bool               `json:"base_granted"`
	Reason          string             `json:"reason"`
	DurationSeconds int64              `json:"duration_seconds" validate:"required,gt=0"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor := req.Actor.Actor()
	target := req.Target.Actor()

	if h.securityLocked(w, r, actor.TenantID, capability.ModVCSuspend) {
		return
	}

	base := func(authz.Actor, *authz.Actor) bool { return req.BaseGranted }
	verdict := h.engine.Decide(r.Context(), actor, capability.ModVCSuspend, base, &target)
	if !verdict.Allowed {
		httpx.JSON(w, http.StatusForbidden, verdict)
		return
	}

	protected, err := h.security.Protected(r.Context(), target)
	if err != nil {
		h.logger.Error("protected member check", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if protected {
		httpx.Problem(w, http.StatusForbidden, "Protected Member", "This member is protected; suspension is not allowed.")
		return
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	if !h.sanctions.PermittedDuration(duration) {
		httpx.RespondError(w, fmt.Errorf("%w: duration %s not permitted", httpx.ErrValidation, duration))
		return
	}
	ends := time.Now().UTC().Add(duration)

	// Platform restriction first: a gateway failure must leave no ledger row,
	// and a ledger failure after a successful restriction is rolled back with
	// a release so the two cannot silently diverge.
	if err := h.restrictor.Restrict(r.Context(), actor.TenantID, target.UserID, ends, req.Reason); err != nil {
		h.logger.Error("apply restriction", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Restriction Failed", "The platform rejected the restriction; nothing was recorded.")
		return
	}

	record, err := h.sanctions.Issue(r.Context(), actor.TenantID, target.UserID, actor.UserID, req.Reason, duration)
	if err != nil {
		if relErr := h.restrictor.Release(r.Context(), actor.TenantID, target.UserID, "ledger write failed"); relErr != nil {
			h.logger.Error("rollback restriction", slog.Any("error", relErr))
		}
		h.respondErr(w, err)
		return
	}
	if h.OnSanction != nil {
		h.OnSanction("issue")
	}
	httpx.JSON(w, http.StatusCreated, record)
}

type liftRequest struct {
	Actor       authz.ActorPayload `json:"actor" validate:"required"`
	Target      authz.ActorPayload `json:"target" validate:"required"`
	BaseGranted bool               `json:"base_granted"`
	Reason      string             `json:"reason"`
}

func (h *Handler) lift(w http.ResponseWriter, r *http.Request) {
	var req liftRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor := req.Actor.Actor()
	target := req.Target.Actor()

	if h.securityLocked(w, r, actor.TenantID, capability.ModVCUnsuspend) {
		return
	}

	base := func(authz.Actor, *authz.Actor) bool { return req.BaseGranted }
	verdict := h.engine.Decide(r.Context(), actor, capability.ModVCUnsuspend, base, &target)
	if !verdict.Allowed {
		httpx.JSON(w, http.StatusForbidden, verdict)
		return
	}

	if err := h.restrictor.Release(r.Context(), actor.TenantID, target.UserID, req.Reason); err != nil {
		h.logger.Error("release restriction", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Release Failed", "The platform rejected the release; nothing was recorded.")
		return
	}

	lifted, err := h.sanctions.Lift(r.Context(), actor.TenantID, target.UserID, actor.UserID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if lifted == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"lifted": false})
		return
	}
	if h.OnSanction != nil {
		h.OnSanction("lift")
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lifted": true, "sanction": lifted})
}

type statusRequest struct {
	Actor       authz.ActorPayload `json:"actor" validate:"required"`
	BaseGranted bool               `json:"base_granted"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	subjectID, err := strconv.ParseInt(chi.URLParam(r, "subjectID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid subject id", httpx.ErrValidation))
		return
	}
	actor := req.Actor.Actor()

	base := func(authz.Actor, *authz.Actor) bool { return req.BaseGranted }
	verdict := h.engine.Decide(r.Context(), actor, capability.ModVCSuspend, base, nil)
	if !verdict.Allowed {
		httpx.JSON(w, http.StatusForbidden, verdict)
		return
	}

	view, err := h.sanctions.Status(r.Context(), actor.TenantID, subjectID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

// securityLocked blocks sensitive capabilities until the tenant's protected
// role set has been confirmed.
func (h *Handler) securityLocked(w http.ResponseWriter, r *http.Request, tenantID int64, key capability.Key) bool {
	if !h.registry.Sensitive(key) {
		return false
	}
	ready, err := h.security.Ready(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("security readiness check", slog.Any("error", err))
		httpx.RespondError(w, err)
		return true
	}
	if ready {
		return false
	}
	httpx.Problem(w, http.StatusConflict, "Security Setup Required",
		"Sensitive moderation commands are locked until an admin confirms the protected roles.")
	return true
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
	case errors.Is(err, sanction.ErrInvalidDuration):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	case errors.Is(err, sanction.ErrConcurrencyConflict):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrConflict, err.Error()))
	default:
		h.logger.Error("sanction operation", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
