// internal/model/callback.go
package model

import "time"

// ScheduledCallback statuses
const (
    CallbackPending   = "pending"
    CallbackSent      = "sent"
    CallbackCancelled = "cancelled"
)

// ScheduledCallback is a follow-up the autonomous agent planned itself.
// The agent subsystem creates these; the rule scheduler only reads them:
// a pending callback suppresses all rule-based follow-ups for its
// conversation.
type ScheduledCallback struct {
    ID             int       `db:"id" json:"id"`
    ConversationID int       `db:"conversation_id" json:"conversation_id"`
    ScheduledFor   time.Time `db:"scheduled_for" json:"scheduled_for"`
    CreatedBy      string    `db:"created_by" json:"created_by"` // "agent"
    Status         string    `db:"status" json:"status"`         // pending, sent, cancelled
    CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
