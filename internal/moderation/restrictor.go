// Package moderation is the suspend/lift/status surface. It composes the
// decision engine, the security checks and the sanction ledger, and invokes
// the platform's native restriction primitive through the gateway.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Restrictor applies and removes the platform's time-bound restriction for a
// subject. The ledger itself never calls the platform.
type Restrictor interface {
	Restrict(ctx context.Context, tenantID, subjectID int64, until time.Time, reason string) error
	Release(ctx context.Context, tenantID, subjectID int64, reason string) error
}

// GatewayRestrictor calls the bot gateway's internal restriction endpoint.
type GatewayRestrictor struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type restrictPayload struct {
	TenantID  int64      `json:"tenant_id"`
	SubjectID int64      `json:"subject_id"`
	Until     *time.Time `json:"until,omitempty"`
	Reason    string     `json:"reason"`
}

// Restrict applies a timeout until the given instant.
func (g *GatewayRestrictor) Restrict(ctx context.Context, tenantID, subjectID int64, until time.Time, reason string) error {
	return g.post(ctx, "/internal/restrictions", restrictPayload{
		TenantID: tenantID, SubjectID: subjectID, Until: &until, Reason: reason,
	})
}

// Release removes any timeout for the subject.
func (g *GatewayRestrictor) Release(ctx context.Context, tenantID, subjectID int64, reason string) error {
	return g.post(ctx, "/internal/restrictions/release", restrictPayload{
		TenantID: tenantID, SubjectID: subjectID, Reason: reason,
	})
}

func (g *GatewayRestrictor) post(ctx context.Context, path string, payload restrictPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("moderation: marshal restriction: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("moderation: build restriction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.Token)

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("moderation: call gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("moderation: gateway returned %s", resp.Status)
	}
	return nil
}
