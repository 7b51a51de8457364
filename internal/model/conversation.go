// internal/model/conversation.go
package model

import "time"

// Conversation lifecycle statuses
const (
    StatusActive        = "active"
    StatusAwaitingReply = "awaiting_reply"
    StatusClosed        = "closed"
)

// Message directions
const (
    DirectionInbound  = "inbound"
    DirectionOutbound = "outbound"
)

// Conversation is a channel thread with a single contact. Replies are
// owned either by the autonomous agent (agent_active) or by a human
// operator (assigned_user_id).
type Conversation struct {
    ID                   int        `db:"id" json:"id"`
    TenantID             int        `db:"tenant_id" json:"tenant_id"`
    ContactID            int        `db:"contact_id" json:"contact_id"`
    ConnectionID         int        `db:"connection_id" json:"connection_id"`
    StageID              *int       `db:"stage_id" json:"stage_id,omitempty"`
    AgentActive          bool       `db:"agent_active" json:"agent_active"`
    AssignedUserID       *int       `db:"assigned_user_id" json:"assigned_user_id,omitempty"`
    Status               string     `db:"status" json:"status"` // active, awaiting_reply, closed
    LastMessageAt        time.Time  `db:"last_message_at" json:"last_message_at"`
    LastMessageDirection string     `db:"last_message_direction" json:"last_message_direction"`
    Preview              string     `db:"preview" json:"preview"`
    CreatedAt            time.Time  `db:"created_at" json:"created_at"`
    UpdatedAt            *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
