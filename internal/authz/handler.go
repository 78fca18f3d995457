package authz

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/logiq-bot/logiq/internal/capability"
	"github.com/logiq-bot/logiq/internal/platform/httpx"
)

// ActorPayload is the wire shape of an actor or target descriptor. The
// gateway resolves role membership, rank and native permission flags before
// calling; the core never fetches them itself.
type ActorPayload struct {
	TenantID    int64   `json:"tenant_id" validate:"required"`
	UserID      int64   `json:"user_id" validate:"required"`
	RoleIDs     []int64 `json:"role_ids"`
	TopRoleRank int     `json:"top_role_rank"`
	IsOwner     bool    `json:"is_owner"`
	IsAdmin     bool    `json:"is_admin"`
	ManageGuild bool    `json:"manage_guild"`
}

// Actor converts the payload to the domain type.
func (p ActorPayload) Actor() Actor {
	return Actor{
		TenantID:    p.TenantID,
		UserID:      p.UserID,
		RoleIDs:     p.RoleIDs,
		TopRoleRank: p.TopRoleRank,
		IsOwner:     p.IsOwner,
		IsAdmin:     p.IsAdmin,
		ManageGuild: p.ManageGuild,
	}
}

type decisionRequest struct {
	Actor       ActorPayload  `json:"actor" validate:"required"`
	Capability  string        `json:"capability" validate:"required"`
	BaseGranted bool          `json:"base_granted"`
	Target      *ActorPayload `json:"target,omitempty"`
}

// Handler exposes the decision endpoint. Every gateway entry point — slash
// command, button or modal — posts the same (actor, capability, base, target)
// shape here; there is no per-trigger policy logic.
type Handler struct {
	logger   *slog.Logger
	engine   *Engine
	registry *capability.Registry
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, engine *Engine, registry *capability.Registry) *Handler {
	return &Handler{logger: logger, engine: engine, registry: registry, validate: validator.New()}
}

// MountRoutes registers decision routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/decisions", h.decide)
	r.Get("/capabilities", h.listCapabilities)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, "malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	key := capability.Key(req.Capability)
	if !h.registry.Known(key) {
		httpx.RespondError(w, fmt.Errorf("%w: unknown capability %q", httpx.ErrValidation, req.Capability))
		return
	}

	var target *Actor
	if req.Target != nil {
		t := req.Target.Actor()
		target = &t
	}
	base := func(Actor, *Actor) bool { return req.BaseGranted }

	verdict := h.engine.Decide(r.Context(), req.Actor.Actor(), key, base, target)
	httpx.JSON(w, http.StatusOK, verdict)
}

func (h *Handler) listCapabilities(w http.ResponseWriter, r *http.Request) {
	type item struct {
		Key         string `json:"key"`
		Description string `json:"description"`
		Sensitive   bool   `json:"sensitive"`
	}
	defs := h.registry.Definitions()
	out := make([]item, 0, len(defs))
	for _, d := range defs {
		out = append(out, item{Key: string(d.Key), Description: d.Description, Sensitive: d.Sensitive})
	}
	httpx.JSON(w, http.StatusOK, out)
}
