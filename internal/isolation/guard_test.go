package isolation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/internal/tenantctx"
)

const (
	tenantA = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	tenantB = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

func memberContext(tenantID string, active bool) *tenantctx.Context {
	id := tenantID
	return &tenantctx.Context{
		User:   &model.User{ID: 1, Email: "member@example.com", ChurchID: &id, Role: model.RoleMember, Active: true},
		Tenant: &model.Tenant{ID: tenantID, Name: "Grace Chapel", Active: active},
	}
}

func TestRequireTenantHappyPath(t *testing.T) {
	tc := memberContext(tenantA, true)

	got, err := RequireTenant(context.Background(), tc, true)
	require.NoError(t, err)
	assert.Same(t, tc, got)
}

func TestRequireTenantRejectsUnresolvedContext(t *testing.T) {
	_, err := RequireTenant(context.Background(), nil, false)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = RequireTenant(context.Background(), memberContext(tenantA, true), false)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = RequireTenant(context.Background(), &tenantctx.Context{}, true)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequireTenantDeniesPlatformBypass(t *testing.T) {
	tc := &tenantctx.Context{
		User: &model.User{ID: 99, Email: "root@example.com", Role: model.RoleSuperAdmin, Active: true},
	}

	_, err := RequireTenant(context.Background(), tc, true)
	assert.ErrorIs(t, err, ErrPlatformBypass)
}

func TestRequireTenantRejectsMissingTenant(t *testing.T) {
	tc := &tenantctx.Context{
		User: &model.User{ID: 2, Email: "lost@example.com", Role: model.RoleMember, Active: true},
	}

	_, err := RequireTenant(context.Background(), tc, true)
	assert.ErrorIs(t, err, ErrNoTenant)
}

func TestRequireTenantRejectsDisabledTenant(t *testing.T) {
	_, err := RequireTenant(context.Background(), memberContext(tenantA, false), true)
	assert.ErrorIs(t, err, ErrTenantDisabled)
}

func TestVerifyObject(t *testing.T) {
	tc := memberContext(tenantA, true)

	assert.NoError(t, VerifyObject(context.Background(), tc, &model.Album{ChurchID: tenantA}))

	err := VerifyObject(context.Background(), tc, &model.Album{ChurchID: tenantB})
	assert.ErrorIs(t, err, ErrCrossTenant)
}

func TestVerifyObjectWithoutTenant(t *testing.T) {
	err := VerifyObject(context.Background(), &tenantctx.Context{
		User: &model.User{ID: 1},
	}, &model.Album{ChurchID: tenantA})
	assert.ErrorIs(t, err, ErrNoTenant)
}

func TestScopedDBRefusesUnregisteredType(t *testing.T) {
	tc := memberContext(tenantA, true)
	_, err := ScopedDB(nil, tc, unregisteredModel{})
	assert.ErrorIs(t, err, ErrUnregisteredType)
}

func TestScopedDBRequiresTenant(t *testing.T) {
	_, err := ScopedDB(nil, &tenantctx.Context{User: &model.User{ID: 1}}, &model.Album{})
	assert.ErrorIs(t, err, ErrNoTenant)
}

func TestStripTenantField(t *testing.T) {
	tc := memberContext(tenantA, true)

	payload := map[string]interface{}{
		"title":     "Harvest Sunday",
		"church_id": tenantB,
	}
	StripTenantField(context.Background(), tc, payload)

	_, present := payload["church_id"]
	assert.False(t, present, "tenant field must be stripped")
	assert.Equal(t, "Harvest Sunday", payload["title"], "other fields survive")
}

func TestStripTenantFieldNoField(t *testing.T) {
	tc := memberContext(tenantA, true)
	payload := map[string]interface{}{"title": "Picnic"}

	StripTenantField(context.Background(), tc, payload)
	assert.Len(t, payload, 1)
}

// unregisteredModel carries a tenant column but is never registered; the
// scoped query layer must refuse it anyway.
type unregisteredModel struct {
	ID       uint
	ChurchID string
}

func (unregisteredModel) TenantID() string { return "" }
