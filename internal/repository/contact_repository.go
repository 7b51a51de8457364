package repository

import (
    "database/sql"

    "github.com/leadzap/leadzap-backend/internal/model"
)

// ContactRepositoryInterface defines methods used by services
type ContactRepositoryInterface interface {
    GetByID(id int) (*model.Contact, error)
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
    DB *sql.DB
}

// GetByID fetches a contact by ID
func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
    query := `
        SELECT id, tenant_id, name, phone, chat_id
        FROM contacts
        WHERE id = $1
    `
    row := r.DB.QueryRow(query, id)

    var c model.Contact
    if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.ChatID); err != nil {
        if err == sql.ErrNoRows {
            return nil, nil // not found
        }
        return nil, err
    }
    return &c, nil
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
