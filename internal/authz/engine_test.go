package authz

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiq-bot/logiq/internal/capability"
)

type stubOverrides struct {
	sets map[string]*RoleSets
	err  error
}

func (s *stubOverrides) Lookup(ctx context.Context, tenantID int64, key capability.Key) (*RoleSets, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sets[string(key)], nil
}

func testEngine(overrides *stubOverrides) *Engine {
	return NewEngine(overrides, slog.Default())
}

func allowAll(Actor, *Actor) bool { return true }
func denyAll(Actor, *Actor) bool  { return false }

func member(roles ...int64) Actor {
	return Actor{TenantID: 1, UserID: 100, RoleIDs: roles, TopRoleRank: 5}
}

func TestDecideOwnerBypassesEverything(t *testing.T) {
	engine := testEngine(&stubOverrides{sets: map[string]*RoleSets{
		string(capability.ModWarn): {Denied: []int64{10, 20, 30}},
	}})

	actor := member(10, 20, 30)
	actor.IsOwner = true

	verdict := engine.Decide(context.Background(), actor, capability.ModWarn, denyAll, nil)
	assert.True(t, verdict.Allowed)
	assert.Equal(t, ReasonAdminBypass, verdict.Reason)
}

func TestDecideAdminBypassesDenyList(t *testing.T) {
	engine := testEngine(&stubOverrides{sets: map[string]*RoleSets{
		string(capability.ModWarn): {Denied: []int64{10}},
	}})

	actor := member(10)
	actor.IsAdmin = true

	verdict := engine.Decide(context.Background(), actor, capability.ModWarn, denyAll, nil)
	assert.True(t, verdict.Allowed)
	assert.Equal(t, ReasonAdminBypass, verdict.Reason)
}

func TestDecideBasePredicateDeniesBeforeOverrides(t *testing.T) {
	engine := testEngine(&stubOverrides{sets: map[string]*RoleSets{
		string(capability.ModWarn): {Allowed: []int64{10}},
	}})

	verdict := engine.Decide(context.Background(), member(10), capability.ModWarn, denyAll, nil)
	assert.False(t, verdict.Allowed)
	assert.Equal(t, ReasonBasePredicateFailed, verdict.Reason)
	assert.NotEmpty(t, verdict.Message)
}

func TestDecideNilPredicateDenies(t *testing.T) {
	engine := testEngine(&stubOverrides{})

	verdict := engine.Decide(context.Background(), member(10), capability.ModWarn, nil, nil)
	assert.False(t, verdict.Allowed)
	assert.Equal(t, ReasonBasePredicateFailed, verdict.Reason)
}

func TestDecideHierarchyGuardOnTarget(t *testing.T) {
	engine := testEngine(&stubOverrides{})

	actor := member(10)
	actor.TopRoleRank = 5
	target := Actor{TenantID: 1, UserID: 200, TopRoleRank: 5}

	verdict := engine.Decide(context.Background(), actor, capability.ModWarn, allowAll, &target)
	assert.False(t, verdict.Allowed)
	assert.Equal(t, ReasonHierarchyBlocked, verdict.Reason)
	assert.Equal(t, "You cannot act on someone with an equal or higher role.", verdict.Message)
}

func TestDecideNoOverrideAllows(t *testing.T) {
	engine := testEngine(&stubOverrides{})

	verdict := engine.Decide(context.Background(), member(10), capability.ModWarn, allowAll, nil)
	assert.True(t, verdict.Allowed)
	assert.Equal(t, ReasonNoOverride, verdict.Reason)
}

func TestDecideDenyListDominatesAllowList(t *testing.T) {
	engine := testEngine(&stubOverrides{sets: map[string]*RoleSets{
		string(capability.ModWarn): {Allowed: []int64{10}, Denied: []int64{10}},
	}})

	verdict := engine.Decide(context.Background(), member(10), capability.ModWarn, allowAll, nil)
	assert.False(t, verdict.Allowed)
	assert.Equal(t, ReasonDenyListed, verdict.Reason)
}

func TestDecideEmptyAllowListAllowsAnyEligible(t *testing.T) {
	engine := testEngine(&stubOverrides{sets: map[string]*RoleSets{
		string(capability.ModWarn): {Denied: []int64{99}},
	}})

	verdict := engine.Decide(context.Background(), member(10), capability.ModWarn, allowAll, nil)
	assert.True(t, verdict.Allowed)
	assert.Equal(t, ReasonNoOverride, verdict.Reason)
}

func TestDecideAllowListRestricts(t *testing.T) {
	engine := testEngine(&stubOverrides{sets: map[string]*RoleSets{
		string(capability.ModWarn): {Allowed: []int64{42}},
	}})

	verdict := engine.Decide(context.Background(), member(42), capability.ModWarn, allowAll, nil)
	require.True(t, verdict.Allowed)
	assert.Equal(t, ReasonAllowListed, verdict.Reason)

	verdict = engine.Decide(context.Background(), member(10), capability.ModWarn, allowAll, nil)
	assert.False(t, verdict.Allowed)
	assert.Equal(t, ReasonNotAllowListed, verdict.Reason)
}

func TestDecideLookupFailureDegradesToNoOverride(t *testing.T) {
	engine := testEngine(&stubOverrides{err: errors.New("connection refused")})

	verdict := engine.Decide(context.Background(), member(10), capability.ModWarn, allowAll, nil)
	assert.True(t, verdict.Allowed)
	assert.Equal(t, ReasonNoOverride, verdict.Reason)
}

func TestDecideGrantThenRevoke(t *testing.T) {
	overrides := &stubOverrides{sets: map[string]*RoleSets{}}
	engine := testEngine(overrides)
	ctx := context.Background()

	verdict := engine.Decide(ctx, member(42), capability.ModTimeout, allowAll, nil)
	require.True(t, verdict.Allowed)

	overrides.sets[string(capability.ModTimeout)] = &RoleSets{Allowed: []int64{42}}
	verdict = engine.Decide(ctx, member(42), capability.ModTimeout, allowAll, nil)
	require.True(t, verdict.Allowed)
	verdict = engine.Decide(ctx, member(7), capability.ModTimeout, allowAll, nil)
	require.False(t, verdict.Allowed)

	overrides.sets[string(capability.ModTimeout)] = &RoleSets{Denied: []int64{42}}
	verdict = engine.Decide(ctx, member(42), capability.ModTimeout, allowAll, nil)
	assert.False(t, verdict.Allowed)
	assert.Equal(t, ReasonDenyListed, verdict.Reason)
}

func TestDecideEmitsDecisionHook(t *testing.T) {
	engine := testEngine(&stubOverrides{})

	var gotKey capability.Key
	var gotVerdict Verdict
	engine.OnDecision = func(key capability.Key, verdict Verdict) {
		gotKey = key
		gotVerdict = verdict
	}

	engine.Decide(context.Background(), member(10), capability.ModBan, allowAll, nil)
	assert.Equal(t, capability.ModBan, gotKey)
	assert.True(t, gotVerdict.Allowed)
}

func TestManageConfigGate(t *testing.T) {
	assert.True(t, ManageConfig(Actor{IsOwner: true}))
	assert.True(t, ManageConfig(Actor{IsAdmin: true}))
	assert.True(t, ManageConfig(Actor{ManageGuild: true}))
	assert.False(t, ManageConfig(member(10, 20)))
}
