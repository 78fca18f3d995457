package audit

import (
	"encoding/json"
	"time"
)

// Entry is one immutable override-change record. Before and After hold JSON
// snapshots of the override record around the mutation; Before is null for a
// first grant, After is null after a reset.
type Entry struct {
	ID         int64           `json:"id"`
	TenantID   int64           `json:"tenant_id"`
	Capability string          `json:"capability"`
	ActorID    int64           `json:"actor_id"`
	Kind       string          `json:"kind"`
	RoleID     *int64          `json:"role_id,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	At         time.Time       `json:"at"`
}

// Change kinds recorded for override mutations.
const (
	KindGrant  = "grant"
	KindRevoke = "revoke"
	KindClear  = "clear"
	KindReset  = "reset"
)

// TimelineFilters narrows a timeline query.
type TimelineFilters struct {
	Capability string
	ActorID    int64
	Kind       string
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}

// PagingInfo describes result paging.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result bundles timeline rows with paging information.
type Result struct {
	Rows   []Entry    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}
