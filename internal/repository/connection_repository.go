package repository

import (
    "database/sql"

    "github.com/leadzap/leadzap-backend/internal/model"
)

type ConnectionRepositoryInterface interface {
    GetByID(id int) (*model.Connection, error)
}

type ConnectionRepository struct {
    DB *sql.DB
}

// GetByID fetches a channel connection by ID
func (r *ConnectionRepository) GetByID(id int) (*model.Connection, error) {
    query := `
        SELECT id, tenant_id, channel, access_token, phone_number_id, bot_token
        FROM connections
        WHERE id = $1
    `
    row := r.DB.QueryRow(query, id)

    var c model.Connection
    if err := row.Scan(&c.ID, &c.TenantID, &c.Channel, &c.AccessToken, &c.PhoneNumberID, &c.BotToken); err != nil {
        if err == sql.ErrNoRows {
            return nil, nil // not found
        }
        return nil, err
    }
    return &c, nil
}

var _ ConnectionRepositoryInterface = (*ConnectionRepository)(nil)
