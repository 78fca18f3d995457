// Package capability defines the closed catalog of feature keys that can be
// gated by role overrides. Keys are declared at process start and never
// created at runtime.
package capability

import (
	"context"
	"log/slog"
	"sort"
)

// Key identifies a single checkable capability.
type Key string

// Moderation capabilities.
const (
	ModVCSuspend   Key = "mod.vc_suspend"
	ModVCUnsuspend Key = "mod.vc_unsuspend"
	ModWarn        Key = "mod.warn"
	ModWarnings    Key = "mod.warnings"
	ModTimeout     Key = "mod.timeout"
	ModBan         Key = "mod.ban"
	ModKick        Key = "mod.kick"
	ModClear       Key = "mod.clear"
	ModSlowmode    Key = "mod.slowmode"
	ModLock        Key = "mod.lock"
	ModNickname    Key = "mod.nickname"
)

// Reporting capabilities.
const (
	ReportCreate Key = "report.create"
	ReportView   Key = "report.view"
	ReportManage Key = "report.manage"
)

// Configuration and role management capabilities.
const (
	PermsManage      Key = "perms.manage"
	RolesMenuManage  Key = "roles.menu.manage"
	RolesForceAssign Key = "roles.force.assign"
)

// Definition pairs a key with its human-facing description.
type Definition struct {
	Key         Key
	Description string
	Sensitive   bool
}

// Registry holds the closed capability catalog.
type Registry struct {
	defs map[Key]Definition
}

// NewRegistry builds the built-in catalog.
func NewRegistry() *Registry {
	defs := []Definition{
		{Key: ModVCSuspend, Description: "Temporarily suspend a member from voice and chat", Sensitive: true},
		{Key: ModVCUnsuspend, Description: "Lift a voice/chat suspension early", Sensitive: true},
		{Key: ModWarn, Description: "Issue a warning to a member"},
		{Key: ModWarnings, Description: "View a member's warnings"},
		{Key: ModTimeout, Description: "Time out a member", Sensitive: true},
		{Key: ModBan, Description: "Ban a member", Sensitive: true},
		{Key: ModKick, Description: "Kick a member", Sensitive: true},
		{Key: ModClear, Description: "Bulk-delete messages"},
		{Key: ModSlowmode, Description: "Change channel slowmode"},
		{Key: ModLock, Description: "Lock a channel"},
		{Key: ModNickname, Description: "Change a member's nickname"},
		{Key: ReportCreate, Description: "File a report against a member"},
		{Key: ReportView, Description: "View filed reports"},
		{Key: ReportManage, Description: "Resolve or dismiss reports"},
		{Key: PermsManage, Description: "Manage feature permission overrides"},
		{Key: RolesMenuManage, Description: "Manage self-assign role menus"},
		{Key: RolesForceAssign, Description: "Force-assign roles to members", Sensitive: true},
	}
	m := make(map[Key]Definition, len(defs))
	for _, d := range defs {
		m[d.Key] = d
	}
	return &Registry{defs: m}
}

// Known reports whether the key is part of the catalog.
func (r *Registry) Known(k Key) bool {
	_, ok := r.defs[k]
	return ok
}

// Sensitive reports whether the capability is locked behind tenant security
// initialisation.
func (r *Registry) Sensitive(k Key) bool {
	return r.defs[k].Sensitive
}

// Definitions returns the catalog ordered by key.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// StoredKeySource enumerates capability keys referenced by persisted override
// records.
type StoredKeySource interface {
	StoredCapabilityKeys(ctx context.Context) ([]string, error)
}

// ValidateStored checks persisted override records against the catalog.
// Records referencing unknown keys are inert at decision time; they are
// logged once here so operators can clean them up.
func (r *Registry) ValidateStored(ctx context.Context, src StoredKeySource, logger *slog.Logger) error {
	keys, err := src.StoredCapabilityKeys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if !r.Known(Key(k)) {
			logger.Warn("override record references unknown capability key", slog.String("key", k))
		}
	}
	return nil
}
