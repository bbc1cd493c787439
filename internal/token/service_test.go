package token

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/pkg/config"
	"github.com/Amoako419/PhotoShare/pkg/jwtutil"
)

// fakeDirectory serves principals and tenants from maps so tests can
// mutate state between issuance and rotation.
type fakeDirectory struct {
	mu      sync.Mutex
	users   map[uint]*model.User
	tenants map[string]*model.Tenant
}

func (d *fakeDirectory) UserByID(ctx context.Context, id uint) (*model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, assert.AnError
	}
	copied := *u
	return &copied, nil
}

func (d *fakeDirectory) TenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tenants[id]
	if !ok {
		return nil, assert.AnError
	}
	copied := *t
	return &copied, nil
}

func newTestService(t *testing.T) (*Service, *fakeDirectory, *model.User, *model.Tenant) {
	t.Helper()

	tenantID := "11111111-1111-1111-1111-111111111111"
	tenant := &model.Tenant{ID: tenantID, Name: "Grace Chapel", Code: "GRACE123", Active: true}
	user := &model.User{ID: 7, Email: "member@example.com", ChurchID: &tenantID, Role: model.RoleMember, Active: true}

	dir := &fakeDirectory{
		users:   map[uint]*model.User{user.ID: user},
		tenants: map[string]*model.Tenant{tenant.ID: tenant},
	}
	j := jwtutil.New(&config.JWTConfig{
		SigningKey:           "test-signing-key",
		AccessTokenLifetime:  time.Hour,
		RefreshTokenLifetime: 7 * 24 * time.Hour,
	})
	return NewService(j, dir, NewMemoryRevocationStore()), dir, user, tenant
}

func TestIssueAndValidate(t *testing.T) {
	svc, _, user, tenant := newTestService(t)

	pair, err := svc.Issue(user, tenant)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	claims, err := svc.ValidateAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	require.NotNil(t, claims.ChurchID)
	assert.Equal(t, tenant.ID, *claims.ChurchID)

	_, err = svc.ValidateAccess(pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token must not pass as access")
}

func TestRotateInvalidatesOldToken(t *testing.T) {
	svc, _, user, tenant := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(user, tenant)
	require.NoError(t, err)

	fresh, err := svc.Rotate(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh, fresh.Refresh)

	// The old token is gone for good.
	_, err = svc.Rotate(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrRevokedToken)
	_, err = svc.ValidateRefresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrRevokedToken)

	// The new one works.
	_, err = svc.ValidateRefresh(ctx, fresh.Refresh)
	assert.NoError(t, err)
}

func TestConcurrentRotationExactlyOneWinner(t *testing.T) {
	svc, _, user, tenant := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(user, tenant)
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Rotate(ctx, pair.Refresh)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, replays int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, ErrRevokedToken):
			replays++
		}
	}
	assert.Equal(t, 1, wins, "exactly one rotation may succeed")
	assert.Equal(t, attempts-1, replays)
}

func TestRotateReflectsRoleChange(t *testing.T) {
	svc, dir, user, tenant := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(user, tenant)
	require.NoError(t, err)

	// Promote the user after issuance; rotation must pick it up.
	dir.mu.Lock()
	dir.users[user.ID].Role = model.RoleAdmin
	dir.mu.Unlock()

	fresh, err := svc.Rotate(ctx, pair.Refresh)
	require.NoError(t, err)

	claims, err := svc.ValidateAccess(fresh.Access)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func TestRotateRejectsDisabledUser(t *testing.T) {
	svc, dir, user, tenant := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(user, tenant)
	require.NoError(t, err)

	dir.mu.Lock()
	dir.users[user.ID].Active = false
	dir.mu.Unlock()

	_, err = svc.Rotate(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotateRejectsMemberOfDeactivatedTenant(t *testing.T) {
	svc, dir, user, tenant := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(user, tenant)
	require.NoError(t, err)

	// Deactivate the church after issuance; the member's refresh token
	// must stop producing new pairs at the next rotation.
	dir.mu.Lock()
	dir.tenants[tenant.ID].Active = false
	dir.mu.Unlock()

	_, err = svc.Rotate(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotateAllowsAdminOfDeactivatedTenant(t *testing.T) {
	svc, dir, user, tenant := newTestService(t)
	ctx := context.Background()

	dir.mu.Lock()
	dir.users[user.ID].Role = model.RoleAdmin
	dir.mu.Unlock()

	pair, err := svc.Issue(user, tenant)
	require.NoError(t, err)

	dir.mu.Lock()
	dir.tenants[tenant.ID].Active = false
	dir.mu.Unlock()

	// The admin keeps a session to finish setup, same as at login.
	_, err = svc.Rotate(ctx, pair.Refresh)
	assert.NoError(t, err)
}

func TestRevokeIsIdempotent(t *testing.T) {
	svc, _, user, tenant := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Issue(user, tenant)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.Refresh))
	require.NoError(t, svc.Revoke(ctx, pair.Refresh))
	require.NoError(t, svc.Revoke(ctx, "not-even-a-token"))

	_, err = svc.ValidateRefresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestMemoryStoreFirstMarkerWins(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	first, err := store.MarkRevoked(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.MarkRevoked(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}
