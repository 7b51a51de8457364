// internal/model/stage.go
package model

// Stage is a deal pipeline position. Stages can globally opt their
// conversations out of automated follow-ups.
type Stage struct {
    ID              int    `db:"id" json:"id"`
    TenantID        int    `db:"tenant_id" json:"tenant_id"`
    Name            string `db:"name" json:"name"`
    FollowupEnabled bool   `db:"followup_enabled" json:"followup_enabled"`
}
