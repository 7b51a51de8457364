// internal/model/rule.go
package model

import "time"

// Follow-up message strategies
const (
    StrategyFixedText   = "fixed_text"
    StrategyAIGenerated = "ai_generated"
)

// FollowUpRule is a tenant-configured re-engagement policy: when a
// conversation has been silent long enough, send a nudge message.
type FollowUpRule struct {
    ID                  int        `db:"id" json:"id"`
    TenantID            int        `db:"tenant_id" json:"tenant_id"`
    AgentID             *int       `db:"agent_id" json:"agent_id,omitempty"`
    Name                string     `db:"name" json:"name"`
    Strategy            string     `db:"strategy" json:"strategy"` // fixed_text, ai_generated
    FixedMessage        string     `db:"fixed_message" json:"fixed_message"`
    AIPrompt            string     `db:"ai_prompt" json:"ai_prompt"`
    ContextWindow       int        `db:"context_window" json:"context_window"`
    TriggerAfterMinutes int        `db:"trigger_after_minutes" json:"trigger_after_minutes"`
    MaxAttempts         int        `db:"max_attempts" json:"max_attempts"`
    MinIntervalMinutes  int        `db:"min_interval_minutes" json:"min_interval_minutes"`
    ApplyToAgent        bool       `db:"apply_to_agent" json:"apply_to_agent"`
    ApplyToHuman        bool       `db:"apply_to_human" json:"apply_to_human"`
    StageIDs            []int64    `db:"stage_ids" json:"stage_ids,omitempty"`
    Active              bool       `db:"active" json:"active"`
    CreatedAt           time.Time  `db:"created_at" json:"created_at"`
    UpdatedAt           *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
