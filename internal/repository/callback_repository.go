package repository

import (
    "database/sql"
    "log"
)

type CallbackRepositoryInterface interface {
    HasPending(conversationID int) (bool, error)
}

// CallbackRepository reads the agent subsystem's own scheduled
// follow-ups. This service never writes them.
type CallbackRepository struct {
    DB *sql.DB
}

// HasPending reports whether the agent already planned a callback for
// this conversation. A pending callback outranks every rule.
func (r *CallbackRepository) HasPending(conversationID int) (bool, error) {
    var count int
    err := r.DB.QueryRow(`
        SELECT COUNT(*)
        FROM scheduled_callbacks
        WHERE conversation_id = $1 AND status = 'pending'`, conversationID).Scan(&count)
    if err != nil {
        log.Println("⚠️ HasPending query error:", err)
        return false, err
    }
    return count > 0, nil
}

var _ CallbackRepositoryInterface = (*CallbackRepository)(nil)
