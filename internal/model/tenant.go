// internal/model/tenant.go
package model

type Tenant struct {
    ID               int    `db:"id" json:"id"`
    Name             string `db:"name" json:"name"`
    GenerationAPIKey string `db:"generation_api_key" json:"-"` // optional tenant LLM key
}
