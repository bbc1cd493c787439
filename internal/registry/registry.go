// Package registry provides lookups of tenants and principals by the
// identifiers carried in tokens and signup requests. Every lookup fails
// closed: a missing record is an error, never a nil result.
package registry

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Amoako419/PhotoShare/internal/model"
)

var (
	// ErrTenantNotFound means the tenant id or code resolves to nothing.
	ErrTenantNotFound = errors.New("registry: tenant not found")
	// ErrTenantInactive means the tenant exists but has been disabled.
	// Distinct from ErrTenantNotFound for logging; handlers unify the
	// client-facing message.
	ErrTenantInactive = errors.New("registry: tenant inactive")
	// ErrUserNotFound means the principal id or email resolves to nothing.
	ErrUserNotFound = errors.New("registry: user not found")
)

// Registry performs tenant and principal lookups against the database.
type Registry struct {
	db *gorm.DB
}

// New creates a Registry backed by the given database handle
func New(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// TenantByID loads a tenant by its immutable id, active or not.
func (r *Registry) TenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("registry: tenant lookup: %w", err)
	}
	return &tenant, nil
}

// TenantByCode loads a tenant by its normalized human-facing code.
func (r *Registry) TenantByCode(ctx context.Context, code string) (*model.Tenant, error) {
	normalized := model.NormalizeTenantCode(code)
	if normalized == "" {
		return nil, ErrTenantNotFound
	}
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).Where("code = ?", normalized).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("registry: tenant lookup: %w", err)
	}
	return &tenant, nil
}

// ActiveTenantByCode loads a tenant by code and requires it to be
// active. Used by signup paths: a disabled church must not accept new
// members, even with a valid code.
func (r *Registry) ActiveTenantByCode(ctx context.Context, code string) (*model.Tenant, error) {
	tenant, err := r.TenantByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !tenant.Active {
		return nil, ErrTenantInactive
	}
	return tenant, nil
}

// UserByID loads a principal by id.
func (r *Registry) UserByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("registry: user lookup: %w", err)
	}
	return &user, nil
}

// UserByEmail loads a principal by normalized email.
func (r *Registry) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", model.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("registry: user lookup: %w", err)
	}
	return &user, nil
}
