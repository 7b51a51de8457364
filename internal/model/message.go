// internal/model/message.go
package model

import "time"

// Message is a single chat message inside a conversation. Append-only:
// rows are never updated or deleted by the follow-up core.
type Message struct {
    ID             int       `db:"id" json:"id"`
    ConversationID int       `db:"conversation_id" json:"conversation_id"`
    Direction      string    `db:"direction" json:"direction"` // inbound, outbound
    Content        string    `db:"content" json:"content"`
    FromAgent      bool      `db:"from_agent" json:"from_agent"`
    FollowUpRuleID *int      `db:"followup_rule_id" json:"followup_rule_id,omitempty"`
    CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
