// Package token implements the credential token service: issuance,
// validation, single-use refresh rotation and revocation.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/pkg/jwtutil"
	"github.com/Amoako419/PhotoShare/pkg/logger"
)

var (
	// ErrInvalidToken covers malformed, badly signed and expired tokens.
	ErrInvalidToken = errors.New("token: invalid token")
	// ErrRevokedToken means a refresh token was already rotated or
	// revoked. Presentation of a rotated token fails closed.
	ErrRevokedToken = errors.New("token: token revoked")
)

// Directory resolves principals and tenants to their current state.
// Rotation re-reads claims through this interface instead of copying
// them from the old token, so role and tenant changes propagate.
type Directory interface {
	UserByID(ctx context.Context, id uint) (*model.User, error)
	TenantByID(ctx context.Context, id string) (*model.Tenant, error)
}

// Pair is an access/refresh token pair.
type Pair struct {
	Access  string
	Refresh string
}

// Service issues, validates, rotates and revokes credential tokens.
type Service struct {
	jwt       *jwtutil.JWT
	directory Directory
	revoked   RevocationStore
}

// NewService creates a token service
func NewService(jwt *jwtutil.JWT, directory Directory, revoked RevocationStore) *Service {
	return &Service{jwt: jwt, directory: directory, revoked: revoked}
}

// AccessLifetime returns the access token lifetime, for cookie max-age.
func (s *Service) AccessLifetime() time.Duration { return s.jwt.AccessLifetime() }

// RefreshLifetime returns the refresh token lifetime, for cookie max-age.
func (s *Service) RefreshLifetime() time.Duration { return s.jwt.RefreshLifetime() }

// Issue produces an access/refresh pair for the given principal.
// tenant may be nil for platform principals.
func (s *Service) Issue(user *model.User, tenant *model.Tenant) (Pair, error) {
	var churchID *string
	var churchName string
	if tenant != nil {
		id := tenant.ID
		churchID = &id
		churchName = tenant.Name
	}

	access, err := s.jwt.Generate(user.ID, user.Email, churchID, churchName, user.Role, jwtutil.KindAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.jwt.Generate(user.ID, user.Email, churchID, churchName, user.Role, jwtutil.KindRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// ValidateAccess verifies an access token and returns its claims.
func (s *Service) ValidateAccess(raw string) (*jwtutil.Claims, error) {
	claims, err := s.jwt.Validate(raw, jwtutil.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// ValidateRefresh verifies a refresh token's signature and expiry and
// checks it has not been rotated or revoked.
func (s *Service) ValidateRefresh(ctx context.Context, raw string) (*jwtutil.Claims, error) {
	claims, err := s.jwt.Validate(raw, jwtutil.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("token: revocation check: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Rotate exchanges a refresh token for a fresh pair. The old token is
// invalidated atomically: of any number of concurrent rotation calls
// with the same token, exactly one succeeds and the rest observe
// ErrRevokedToken. Claims are re-read from the directory so a role or
// tenant change since issuance lands in the new pair.
func (s *Service) Rotate(ctx context.Context, raw string) (Pair, error) {
	claims, err := s.jwt.Validate(raw, jwtutil.KindRefresh)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// Single atomic check-and-mark. The loser of a concurrent rotation
	// race fails here, before any new tokens exist.
	first, err := s.revoked.MarkRevoked(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
	if err != nil {
		return Pair{}, fmt.Errorf("token: revocation mark: %w", err)
	}
	if !first {
		logger.FromContext(ctx).Warn("refresh token replayed",
			logger.SecurityEvent("refresh_replay"),
			zap.Uint("user_id", claims.UserID))
		return Pair{}, ErrRevokedToken
	}

	user, err := s.directory.UserByID(ctx, claims.UserID)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: principal gone", ErrInvalidToken)
	}
	if !user.Active {
		return Pair{}, fmt.Errorf("%w: principal disabled", ErrInvalidToken)
	}

	var tenant *model.Tenant
	if user.ChurchID != nil {
		tenant, err = s.directory.TenantByID(ctx, *user.ChurchID)
		if err != nil {
			return Pair{}, fmt.Errorf("%w: tenant gone", ErrInvalidToken)
		}
		// A deactivated tenant stops credential issuance for its
		// members at the next rotation. Admins keep rotating; they
		// need a session to complete or re-complete setup, same as
		// at login.
		if !tenant.Active && !user.IsAdmin() {
			return Pair{}, fmt.Errorf("%w: tenant disabled", ErrInvalidToken)
		}
	}

	return s.Issue(user, tenant)
}

// Revoke permanently invalidates a refresh token. Revoking an already
// revoked or unparseable token is not an error; logout must always
// succeed from the caller's point of view.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	claims, err := s.jwt.Validate(raw, jwtutil.KindRefresh)
	if err != nil {
		return nil
	}
	if _, err := s.revoked.MarkRevoked(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return fmt.Errorf("token: revocation mark: %w", err)
	}
	return nil
}
