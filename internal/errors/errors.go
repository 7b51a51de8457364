// internal/errors/errors.go
package appErrors

import (
    "errors"
    "fmt"
)

// ErrRuleNotFound is a sentinel error
type ErrRuleNotFound struct {
    RuleID int
}

func (e *ErrRuleNotFound) Error() string {
    return fmt.Sprintf("follow-up rule with ID %d not found", e.RuleID)
}

// Helper constructor
func NewRuleNotFound(id int) error {
    return &ErrRuleNotFound{RuleID: id}
}

// ErrConversationNotFound is a sentinel error
type ErrConversationNotFound struct {
    ConversationID int
}

func (e *ErrConversationNotFound) Error() string {
    return fmt.Sprintf("conversation with ID %d not found", e.ConversationID)
}

func NewConversationNotFound(id int) error {
    return &ErrConversationNotFound{ConversationID: id}
}

// ErrAttemptConflict means another writer already recorded this (or a
// later) attempt number for the same rule and conversation. The caller
// lost a double-send race.
type ErrAttemptConflict struct {
    RuleID         int
    ConversationID int
    AttemptNumber  int
}

func (e *ErrAttemptConflict) Error() string {
    return fmt.Sprintf("attempt %d for rule %d / conversation %d already recorded", e.AttemptNumber, e.RuleID, e.ConversationID)
}

func NewAttemptConflict(ruleID, conversationID, attemptNumber int) error {
    return &ErrAttemptConflict{RuleID: ruleID, ConversationID: conversationID, AttemptNumber: attemptNumber}
}

// IsAttemptConflict reports whether err is an attempt-ordinal conflict.
func IsAttemptConflict(err error) bool {
    var conflict *ErrAttemptConflict
    return errors.As(err, &conflict)
}
