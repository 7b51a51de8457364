// internal/service/followup_service.go
package service

import (
    "context"
    "fmt"
    "log"
    "sync"
    "time"

    "github.com/leadzap/leadzap-backend/internal/channel"
    appErrors "github.com/leadzap/leadzap-backend/internal/errors"
    "github.com/leadzap/leadzap-backend/internal/model"
    "github.com/leadzap/leadzap-backend/internal/queue"
    "github.com/leadzap/leadzap-backend/internal/repository"
)

// ChannelSender delivers one message to a contact. Satisfied by
// *channel.Registry.
type ChannelSender interface {
    Send(ctx context.Context, conn *model.Connection, contact *model.Contact, text string) error
}

var _ ChannelSender = (*channel.Registry)(nil)

// Skip / outcome counters reported per run
const (
    outcomeSent       = "sent"
    skipAgentCallback = "agent_callback"
    skipLeadReplied   = "lead_replied"
    skipStageOptOut   = "stage_opt_out"
    skipExhausted     = "max_attempts_reached"
    skipTooSoon       = "interval_not_elapsed"
    skipNotEligible   = "no_longer_eligible"
    outcomeFailed     = "failed"
)

// RunResult is what one scheduler sweep reports back to its trigger.
type RunResult struct {
    SentCount int            `json:"sent_count"`
    Skipped   map[string]int `json:"skipped"`
}

// FollowUpService runs the re-engagement sweep: for every active rule,
// find silent conversations, arbitrate against the agent's own plans,
// enforce the attempt ledger, compose and deliver.
type FollowUpService struct {
    RuleRepo     repository.RuleRepositoryInterface
    ConvRepo     repository.ConversationRepositoryInterface
    MessageRepo  repository.MessageRepositoryInterface
    AttemptRepo  repository.AttemptRepositoryInterface
    CallbackRepo repository.CallbackRepositoryInterface
    StageRepo    repository.StageRepositoryInterface
    ConnRepo     repository.ConnectionRepositoryInterface
    ContactRepo  repository.ContactRepositoryInterface
    DeliveryRepo repository.DeliveryRepositoryInterface
    Composer     ComposerInterface
    Channels     ChannelSender
    Events       queue.Publisher

    // Workers caps how many conversations are processed at once.
    // Default: 4.
    Workers int

    // DeliveryTimeout bounds one channel send. Default: 15s.
    DeliveryTimeout time.Duration

    // convLocks serializes processing per conversation so two rules
    // (or two overlapping runs in this process) never race on the same
    // attempt ledger.
    convLocks sync.Map // conversation id -> *sync.Mutex
}

// Run executes one sweep. A failure on one conversation never aborts
// the others; only failing to load the rules aborts the run.
func (s *FollowUpService) Run(ctx context.Context) (*RunResult, error) {
    rules, err := s.RuleRepo.ListActive()
    if err != nil {
        return nil, fmt.Errorf("loading follow-up rules: %w", err)
    }

    result := &RunResult{Skipped: map[string]int{}}
    var resultMu sync.Mutex

    workers := s.Workers
    if workers <= 0 {
        workers = 4
    }
    sem := make(chan struct{}, workers)

    for _, rule := range rules {
        if err := validateRule(rule); err != nil {
            log.Println("⚠️ Skipping misconfigured rule:", err)
            continue
        }

        cutoff := time.Now().Add(-time.Duration(rule.TriggerAfterMinutes) * time.Minute)
        conversations, err := s.ConvRepo.FindEligible(rule.TenantID, cutoff, rule.ApplyToAgent, rule.ApplyToHuman, rule.StageIDs)
        if err != nil {
            log.Printf("⚠️ Eligibility scan failed for rule %d: %v\n", rule.ID, err)
            continue
        }

        var wg sync.WaitGroup
        for _, conv := range conversations {
            wg.Add(1)
            sem <- struct{}{}
            go func(rule *model.FollowUpRule, conv *model.Conversation) {
                defer wg.Done()
                defer func() { <-sem }()

                outcome := s.processConversation(ctx, rule, conv)

                resultMu.Lock()
                if outcome == outcomeSent {
                    result.SentCount++
                } else {
                    result.Skipped[outcome]++
                }
                resultMu.Unlock()
            }(rule, conv)
        }
        wg.Wait()
    }

    return result, nil
}

func validateRule(rule *model.FollowUpRule) error {
    if rule.TriggerAfterMinutes <= 0 {
        return fmt.Errorf("rule %d has invalid trigger threshold %d", rule.ID, rule.TriggerAfterMinutes)
    }
    if rule.MaxAttempts <= 0 {
        return fmt.Errorf("rule %d has invalid max attempts %d", rule.ID, rule.MaxAttempts)
    }
    if !rule.ApplyToAgent && !rule.ApplyToHuman {
        return fmt.Errorf("rule %d applies to neither agent- nor human-owned conversations", rule.ID)
    }
    return nil
}

func (s *FollowUpService) lockFor(conversationID int) *sync.Mutex {
    lock, _ := s.convLocks.LoadOrStore(conversationID, &sync.Mutex{})
    return lock.(*sync.Mutex)
}

// processConversation runs the per-conversation pipeline: arbitration,
// ledger checks, composition, delivery, bookkeeping. Returns the
// outcome counter key.
func (s *FollowUpService) processConversation(ctx context.Context, rule *model.FollowUpRule, conv *model.Conversation) string {
    lock := s.lockFor(conv.ID)
    lock.Lock()
    defer lock.Unlock()

    // The agent's own scheduled callback outranks every rule. Checked
    // before composing so no generation call is wasted.
    pending, err := s.CallbackRepo.HasPending(conv.ID)
    if err != nil {
        log.Printf("⚠️ Callback check failed for conversation %d: %v\n", conv.ID, err)
        return outcomeFailed
    }
    if pending {
        return skipAgentCallback
    }

    // Re-read under the lock: another rule or an overlapping run may
    // have touched this conversation after the scan.
    fresh, err := s.ConvRepo.GetByID(conv.ID)
    if err != nil {
        log.Printf("⚠️ Failed to reload conversation %d: %v\n", conv.ID, err)
        return outcomeFailed
    }

    if fresh.Status == model.StatusClosed {
        return skipNotEligible
    }
    cutoff := time.Now().Add(-time.Duration(rule.TriggerAfterMinutes) * time.Minute)
    if fresh.LastMessageAt.After(cutoff) {
        return skipNotEligible
    }

    // The lead already answered since our last outbound message.
    if fresh.LastMessageDirection == model.DirectionInbound {
        return skipLeadReplied
    }

    // Pipeline stages can opt out of follow-ups entirely.
    if fresh.StageID != nil {
        stage, err := s.StageRepo.GetByID(*fresh.StageID)
        if err != nil {
            log.Printf("⚠️ Stage lookup failed for conversation %d: %v\n", conv.ID, err)
            return outcomeFailed
        }
        if stage != nil && !stage.FollowupEnabled {
            return skipStageOptOut
        }
    }

    // Attempt ledger: hard cap and fixed interval floor.
    last, err := s.AttemptRepo.GetLatest(rule.ID, conv.ID)
    if err != nil {
        log.Printf("⚠️ Attempt lookup failed for rule %d / conversation %d: %v\n", rule.ID, conv.ID, err)
        return outcomeFailed
    }
    attemptNumber := 1
    if last != nil {
        if last.AttemptNumber >= rule.MaxAttempts {
            return skipExhausted
        }
        if time.Since(last.SentAt) < time.Duration(rule.MinIntervalMinutes)*time.Minute {
            return skipTooSoon
        }
        attemptNumber = last.AttemptNumber + 1
    }

    text, err := s.Composer.Compose(ctx, rule, fresh)
    if err != nil {
        log.Printf("⚠️ Composition failed for rule %d / conversation %d: %v\n", rule.ID, conv.ID, err)
        return outcomeFailed
    }

    conn, err := s.ConnRepo.GetByID(fresh.ConnectionID)
    if err != nil || conn == nil {
        log.Printf("⚠️ Connection %d not available for conversation %d: %v\n", fresh.ConnectionID, conv.ID, err)
        return outcomeFailed
    }
    contact, err := s.ContactRepo.GetByID(fresh.ContactID)
    if err != nil || contact == nil {
        log.Printf("⚠️ Contact %d not available for conversation %d: %v\n", fresh.ContactID, conv.ID, err)
        return outcomeFailed
    }

    timeout := s.DeliveryTimeout
    if timeout <= 0 {
        timeout = 15 * time.Second
    }
    sendCtx, cancel := context.WithTimeout(ctx, timeout)
    defer cancel()

    // Delivery failure leaves no attempt record, so the next tick
    // retries without burning an attempt slot.
    if err := s.Channels.Send(sendCtx, conn, contact, text); err != nil {
        log.Printf("⚠️ Delivery failed for conversation %d: %v\n", conv.ID, err)
        return outcomeFailed
    }

    sentAt := time.Now()
    if err := s.DeliveryRepo.RecordFollowUpSend(conv.ID, rule.ID, attemptNumber, text, sentAt); err != nil {
        if appErrors.IsAttemptConflict(err) {
            // A concurrent sweep won the ordinal race after we already
            // sent. The lead may receive two messages this tick.
            log.Printf("🚨 Duplicate follow-up send for rule %d / conversation %d: %v\n", rule.ID, conv.ID, err)
        } else {
            // The message went out but was not recorded; the next tick
            // may send it again.
            log.Printf("🚨 Follow-up sent but not recorded for conversation %d: %v\n", conv.ID, err)
        }
        return outcomeFailed
    }

    if s.Events != nil {
        err := s.Events.Publish(queue.TopicFollowUpSent, map[string]interface{}{
            "conversation_id": conv.ID,
            "tenant_id":       rule.TenantID,
            "rule_id":         rule.ID,
            "attempt_number":  attemptNumber,
            "sent_at":         sentAt,
        })
        if err != nil {
            log.Println("⚠️ Failed to publish follow-up event:", err)
        }
    }

    return outcomeSent
}
