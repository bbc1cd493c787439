// Package isolation is the per-request enforcement gate for tenant
// isolation. Every tenant-scoped operation passes through the ordered
// checks here; no role, staff flag or platform privilege bypasses
// them. Cross-tenant denials surface to callers as not-found so object
// existence is never confirmed across a tenant boundary.
package isolation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Amoako419/PhotoShare/internal/tenantctx"
	"github.com/Amoako419/PhotoShare/pkg/logger"
	"github.com/Amoako419/PhotoShare/prometheus"
)

var (
	// ErrUnauthenticated means no principal on the request.
	ErrUnauthenticated = errors.New("isolation: authentication required")
	// ErrNoTenantContext means the resolver middleware never attached a
	// context. This is a wiring defect, not a client error.
	ErrNoTenantContext = errors.New("isolation: tenant context missing")
	// ErrNoTenant means the principal has no church assignment.
	ErrNoTenant = errors.New("isolation: no tenant assigned")
	// ErrTenantDisabled means the bound tenant has been deactivated.
	ErrTenantDisabled = errors.New("isolation: tenant disabled")
	// ErrPlatformBypass means a platform principal tried to reach
	// tenant data without a tenant binding. Denied unconditionally.
	ErrPlatformBypass = errors.New("isolation: platform privilege is not a tenant context")
	// ErrCrossTenant means the object belongs to a different tenant.
	// Handlers convert this to a not-found response.
	ErrCrossTenant = errors.New("isolation: cross-tenant access")
	// ErrUnregisteredType means a query was attempted against a
	// collection type never registered as tenant-scoped.
	ErrUnregisteredType = errors.New("isolation: type not registered as tenant-scoped")
)

// RequireTenant runs the ordered per-request checks and returns the
// context when the request may touch tenant-scoped data:
//
//  1. principal authenticated
//  2. platform privilege explicitly rejected as a tenant substitute
//  3. tenant context resolved and present
//  4. tenant active
//
// The platform check is independent of the context checks so a bug
// that hands a superadmin a half-built context still gets denied.
func RequireTenant(ctx context.Context, tc *tenantctx.Context, resolved bool) (*tenantctx.Context, error) {
	log := logger.FromContext(ctx)

	if !resolved || tc == nil || tc.User == nil {
		return nil, ErrUnauthenticated
	}

	// A superadmin without a tenant binding never falls through to
	// tenant data, whatever any other layer decided.
	if tc.User.IsSuperAdmin() && !tc.HasTenant() {
		log.Warn("platform principal denied tenant access",
			logger.SecurityEvent("platform_bypass_attempt"),
			zap.Uint("user_id", tc.User.ID),
			zap.String("email", tc.User.Email))
		prometheus.RecordSecurityEvent("platform_bypass_attempt")
		return nil, ErrPlatformBypass
	}

	if !tc.HasTenant() {
		log.Error("tenant context missing on tenant-scoped operation",
			logger.SecurityEvent("missing_tenant_context"),
			zap.Uint("user_id", tc.User.ID))
		prometheus.RecordSecurityEvent("missing_tenant_context")
		return nil, ErrNoTenant
	}

	if !tc.Tenant.Active {
		return nil, ErrTenantDisabled
	}

	return tc, nil
}

// VerifyObject checks that a loaded object belongs to the request's
// tenant. A mismatch is recorded as a security event with full actor
// and object identifiers; the caller-facing result must look like a
// plain not-found.
func VerifyObject(ctx context.Context, tc *tenantctx.Context, obj TenantOwned) error {
	if tc == nil || !tc.HasTenant() {
		return ErrNoTenant
	}
	if obj.TenantID() == tc.Tenant.ID {
		return nil
	}

	logger.FromContext(ctx).Warn("cross-tenant access attempt blocked",
		logger.SecurityEvent("cross_tenant_access"),
		zap.Uint("user_id", tc.User.ID),
		zap.String("email", tc.User.Email),
		zap.String("user_tenant", tc.Tenant.ID),
		zap.String("object_tenant", obj.TenantID()),
		zap.String("object_type", fmt.Sprintf("%T", obj)))
	prometheus.RecordCrossTenantAttempt()
	return ErrCrossTenant
}

// ScopedDB returns a query handle pre-filtered by the request's tenant.
// The filter is applied at query construction, never as a post-filter,
// and only for types registered through MustRegister. Querying an
// unregistered type is refused outright.
func ScopedDB(db *gorm.DB, tc *tenantctx.Context, m TenantOwned) (*gorm.DB, error) {
	if tc == nil || !tc.HasTenant() {
		return nil, ErrNoTenant
	}
	if !Registered(m) {
		return nil, fmt.Errorf("%w: %T", ErrUnregisteredType, m)
	}
	return db.Model(m).Where(tenantColumn+" = ?", tc.Tenant.ID), nil
}

// StripTenantField removes a tenant id from an inbound update payload.
// A differing value is logged as a security warning but the update
// proceeds without it: a reassignment attempt must not work as a
// denial of service against an otherwise valid edit.
func StripTenantField(ctx context.Context, tc *tenantctx.Context, payload map[string]interface{}) {
	raw, present := payload[tenantColumn]
	if !present {
		return
	}
	delete(payload, tenantColumn)

	if s, ok := raw.(string); ok && tc.HasTenant() && s != tc.Tenant.ID {
		logger.FromContext(ctx).Warn("tenant reassignment attempt stripped from update",
			logger.SecurityEvent("tenant_reassignment_attempt"),
			zap.Uint("user_id", tc.User.ID),
			zap.String("user_tenant", tc.Tenant.ID),
			zap.String("requested_tenant", s))
		prometheus.RecordSecurityEvent("tenant_reassignment_attempt")
	}
}
