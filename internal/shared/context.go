package shared

import "context"

type tenantContextKey struct{}

// ContextWithTenant stores the resolved tenant id in context. Only the HTTP
// layer reads it; core operations always receive the tenant id as an
// explicit parameter.
func ContextWithTenant(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// TenantFromContext extracts the tenant id from context, zero when absent.
func TenantFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(tenantContextKey{}).(int64)
	return id
}
