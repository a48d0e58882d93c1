// Package tenant carries the ambient tenant and organization of a request.
//
// Values set here take precedence over identifiers supplied in request
// payloads; handlers fall back to the payload only when the header is absent.
package tenant

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	TenantHeader       = "X-Tenant-ID"
	OrganizationHeader = "X-Organization-ID"

	tenantContextKey       = "tenant_id"
	organizationContextKey = "organization_id"
)

// Middleware copies the tenant headers into the Gin context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tenantID := strings.TrimSpace(c.GetHeader(TenantHeader)); tenantID != "" {
			c.Set(tenantContextKey, tenantID)
		}
		if orgID := strings.TrimSpace(c.GetHeader(OrganizationHeader)); orgID != "" {
			c.Set(organizationContextKey, orgID)
		}
		c.Next()
	}
}

// Value returns the ambient tenant ID, or "" when none was supplied.
func Value(c *gin.Context) string {
	return stringValue(c, tenantContextKey)
}

// OrganizationValue returns the ambient organization ID, or "".
func OrganizationValue(c *gin.Context) string {
	return stringValue(c, organizationContextKey)
}

// Resolve applies the ambient-first precedence to an explicitly supplied tenant.
func Resolve(c *gin.Context, explicit string) string {
	if ambient := Value(c); ambient != "" {
		return ambient
	}
	return strings.TrimSpace(explicit)
}

func stringValue(c *gin.Context, key string) string {
	if v, exists := c.Get(key); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
