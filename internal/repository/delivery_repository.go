package repository

import (
    "database/sql"
    "time"

    appErrors "github.com/leadzap/leadzap-backend/internal/errors"
)

type DeliveryRepositoryInterface interface {
    RecordFollowUpSend(conversationID, ruleID, attemptNumber int, text string, sentAt time.Time) error
}

// DeliveryRepository owns the bookkeeping that must land atomically
// after a follow-up was handed to the channel: the outbound message,
// the conversation summary fields and the attempt record.
type DeliveryRepository struct {
    DB *sql.DB
}

// RecordFollowUpSend runs the post-delivery writes in one transaction.
// The attempt insert is conditional on the expected ordinal, so a
// concurrent sweep that already recorded this attempt (or a later one)
// rolls the whole unit back and gets an ErrAttemptConflict.
func (r *DeliveryRepository) RecordFollowUpSend(conversationID, ruleID, attemptNumber int, text string, sentAt time.Time) error {
    tx, err := r.DB.Begin()
    if err != nil {
        return err
    }
    defer tx.Rollback()

    var attemptID int
    err = tx.QueryRow(`
        INSERT INTO follow_up_attempts (rule_id, conversation_id, attempt_number, sent_at, sent_message, replied)
        SELECT $1, $2, $3, $4, $5, false
        WHERE NOT EXISTS (
            SELECT 1 FROM follow_up_attempts
            WHERE rule_id=$1 AND conversation_id=$2 AND attempt_number >= $3
        )
        RETURNING id
    `, ruleID, conversationID, attemptNumber, sentAt, text).Scan(&attemptID)
    if err != nil {
        if err == sql.ErrNoRows {
            return appErrors.NewAttemptConflict(ruleID, conversationID, attemptNumber)
        }
        return err
    }

    _, err = tx.Exec(`
        INSERT INTO messages (conversation_id, direction, content, from_agent, followup_rule_id, created_at)
        VALUES ($1, 'outbound', $2, true, $3, $4)
    `, conversationID, text, ruleID, sentAt)
    if err != nil {
        return err
    }

    _, err = tx.Exec(`
        UPDATE conversations
        SET last_message_at=$1,
            last_message_direction='outbound',
            preview=$2,
            status='awaiting_reply',
            updated_at=NOW()
        WHERE id=$3
    `, sentAt, preview(text), conversationID)
    if err != nil {
        return err
    }

    return tx.Commit()
}

// preview truncates message text for the conversation list
func preview(text string) string {
    const max = 120
    if len(text) <= max {
        return text
    }
    return text[:max]
}

var _ DeliveryRepositoryInterface = (*DeliveryRepository)(nil)
