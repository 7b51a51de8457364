package repository

import (
    "database/sql"

    "github.com/leadzap/leadzap-backend/internal/model"
)

type AttemptRepositoryInterface interface {
    GetLatest(ruleID, conversationID int) (*model.FollowUpAttempt, error)
    MarkReplied(conversationID int) error
}

type AttemptRepository struct {
    DB *sql.DB
}

// GetLatest returns the tip of the attempt lineage for a
// (rule, conversation) pair, or nil if no attempt was ever sent.
func (r *AttemptRepository) GetLatest(ruleID, conversationID int) (*model.FollowUpAttempt, error) {
    query := `
        SELECT id, rule_id, conversation_id, attempt_number, sent_at, sent_message, replied
        FROM follow_up_attempts
        WHERE rule_id=$1 AND conversation_id=$2
        ORDER BY attempt_number DESC
        LIMIT 1
    `
    var a model.FollowUpAttempt
    err := r.DB.QueryRow(query, ruleID, conversationID).Scan(
        &a.ID, &a.RuleID, &a.ConversationID, &a.AttemptNumber, &a.SentAt, &a.SentMessage, &a.Replied,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    return &a, nil
}

// MarkReplied flags every pending attempt of a conversation once the
// lead answers. One inbound reply settles the attempts of all rules.
func (r *AttemptRepository) MarkReplied(conversationID int) error {
    query := `UPDATE follow_up_attempts SET replied=true WHERE conversation_id=$1 AND replied=false`
    _, err := r.DB.Exec(query, conversationID)
    return err
}

var _ AttemptRepositoryInterface = (*AttemptRepository)(nil)
