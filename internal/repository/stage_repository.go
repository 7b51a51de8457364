package repository

import (
    "database/sql"

    "github.com/leadzap/leadzap-backend/internal/model"
)

type StageRepositoryInterface interface {
    GetByID(id int) (*model.Stage, error)
}

type StageRepository struct {
    DB *sql.DB
}

// GetByID fetches a pipeline stage by ID
func (r *StageRepository) GetByID(id int) (*model.Stage, error) {
    query := `
        SELECT id, tenant_id, name, followup_enabled
        FROM stages
        WHERE id = $1
    `
    row := r.DB.QueryRow(query, id)

    var s model.Stage
    if err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.FollowupEnabled); err != nil {
        if err == sql.ErrNoRows {
            return nil, nil // not found
        }
        return nil, err
    }
    return &s, nil
}

var _ StageRepositoryInterface = (*StageRepository)(nil)
