// internal/model/attempt.go
package model

import "time"

// FollowUpAttempt is the durable record of one follow-up send for a
// (rule, conversation) pair. attempt_number starts at 1 and is strictly
// increasing within the pair.
type FollowUpAttempt struct {
    ID             int       `db:"id" json:"id"`
    RuleID         int       `db:"rule_id" json:"rule_id"`
    ConversationID int       `db:"conversation_id" json:"conversation_id"`
    AttemptNumber  int       `db:"attempt_number" json:"attempt_number"`
    SentAt         time.Time `db:"sent_at" json:"sent_at"`
    SentMessage    string    `db:"sent_message" json:"sent_message"`
    Replied        bool      `db:"replied" json:"replied"`
}
