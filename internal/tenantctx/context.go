// Package tenantctx carries the request-scoped binding of a principal
// to a tenant. The resolver middleware attaches a Context to every
// authenticated request; tenant-scoped handlers read it back through
// FromEcho, which fails closed when the middleware did not run.
package tenantctx

import (
	"github.com/labstack/echo/v4"

	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/pkg/jwtutil"
)

const contextKey = "tenant_context"

// Context is the resolved tenant binding for one request.
// Tenant is nil for platform principals (superadmin with no church).
type Context struct {
	User   *model.User
	Claims *jwtutil.Claims
	Tenant *model.Tenant
}

// HasTenant reports whether the request is bound to a tenant
func (tc *Context) HasTenant() bool {
	return tc != nil && tc.Tenant != nil
}

// TenantActive reports whether the bound tenant is active
func (tc *Context) TenantActive() bool {
	return tc.HasTenant() && tc.Tenant.Active
}

// Store attaches the context to the echo request
func Store(c echo.Context, tc *Context) {
	c.Set(contextKey, tc)
}

// FromEcho retrieves the resolved context. The second return value is
// false when the resolver middleware never ran; callers must treat
// that as a deny, not as a platform context.
func FromEcho(c echo.Context) (*Context, bool) {
	tc, ok := c.Get(contextKey).(*Context)
	return tc, ok && tc != nil
}
