package repository

import (
    "database/sql"
    "time"

    "github.com/leadzap/leadzap-backend/internal/model"
)

type MessageRepositoryInterface interface {
    Create(msg *model.Message) error
    ListRecent(conversationID, limit int) ([]*model.Message, error)
}

type MessageRepository struct {
    DB *sql.DB
}

// Create appends a message to a conversation
func (r *MessageRepository) Create(msg *model.Message) error {
    msg.CreatedAt = time.Now()
    query := `
        INSERT INTO messages (conversation_id, direction, content, from_agent, followup_rule_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
    return r.DB.QueryRow(query,
        msg.ConversationID, msg.Direction, msg.Content, msg.FromAgent, msg.FollowUpRuleID, msg.CreatedAt,
    ).Scan(&msg.ID)
}

// ListRecent returns the last N messages of a conversation, oldest
// first, ready to be rendered as a transcript.
func (r *MessageRepository) ListRecent(conversationID, limit int) ([]*model.Message, error) {
    query := `
        SELECT id, conversation_id, direction, content, from_agent, followup_rule_id, created_at
        FROM (
            SELECT id, conversation_id, direction, content, from_agent, followup_rule_id, created_at
            FROM messages
            WHERE conversation_id=$1
            ORDER BY id DESC
            LIMIT $2
        ) recent
        ORDER BY id ASC
    `
    rows, err := r.DB.Query(query, conversationID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    messages := []*model.Message{}
    for rows.Next() {
        var m model.Message
        if err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Content, &m.FromAgent, &m.FollowUpRuleID, &m.CreatedAt); err != nil {
            return nil, err
        }
        messages = append(messages, &m)
    }
    return messages, rows.Err()
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
