package llm

import "github.com/leadzap/leadzap-backend/internal/repository"

// CredentialResolver answers which API key a tenant's generation calls
// should use. Two tiers: the tenant's own key (primary provider) and a
// platform-wide key (fallback provider). Injected into the composer so
// nothing reads credentials from ambient process state.
type CredentialResolver interface {
	TenantKey(tenantID int) (string, error)
	PlatformKey() string
}

// DBCredentialResolver reads tenant keys from the store and carries the
// platform fallback key captured at startup.
type DBCredentialResolver struct {
	Tenants     repository.TenantRepositoryInterface
	FallbackKey string
}

func (r *DBCredentialResolver) TenantKey(tenantID int) (string, error) {
	return r.Tenants.GetGenerationKey(tenantID)
}

func (r *DBCredentialResolver) PlatformKey() string {
	return r.FallbackKey
}

var _ CredentialResolver = (*DBCredentialResolver)(nil)
