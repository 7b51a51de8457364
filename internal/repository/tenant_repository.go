package repository

import "database/sql"

type TenantRepositoryInterface interface {
    GetGenerationKey(tenantID int) (string, error)
}

type TenantRepository struct {
    DB *sql.DB
}

// GetGenerationKey returns the tenant's own LLM API key, or "" when the
// tenant never configured one and should fall through to the platform
// key.
func (r *TenantRepository) GetGenerationKey(tenantID int) (string, error) {
    var key sql.NullString
    err := r.DB.QueryRow(`SELECT generation_api_key FROM tenants WHERE id=$1`, tenantID).Scan(&key)
    if err != nil {
        if err == sql.ErrNoRows {
            return "", nil
        }
        return "", err
    }
    return key.String, nil
}

var _ TenantRepositoryInterface = (*TenantRepository)(nil)
