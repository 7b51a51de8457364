// internal/service/handoff_service.go
package service

import (
    "fmt"
    "log"
    "time"

    "github.com/leadzap/leadzap-backend/internal/model"
    "github.com/leadzap/leadzap-backend/internal/queue"
    "github.com/leadzap/leadzap-backend/internal/repository"
)

// TransitionError is returned when an invalid status transition is
// attempted.
type TransitionError struct {
    ConversationID int
    FromStatus     string
    ToStatus       string
}

func (e *TransitionError) Error() string {
    return fmt.Sprintf("conversation %d: invalid transition %s -> %s", e.ConversationID, e.FromStatus, e.ToStatus)
}

// validTransitions defines which status transitions are allowed.
var validTransitions = map[string]map[string]bool{
    model.StatusActive: {
        model.StatusAwaitingReply: true, // we sent, waiting on the lead
        model.StatusClosed:        true, // explicit close
    },
    model.StatusAwaitingReply: {
        model.StatusActive: true, // lead replied
        model.StatusClosed: true, // explicit close
    },
    model.StatusClosed: {
        model.StatusActive: true, // explicit reopen
    },
}

// HandoffService owns who replies in a conversation (autonomous agent
// vs. human operator) and the conversation's lifecycle status. The
// follow-up scheduler consumes this state read-only.
type HandoffService struct {
    ConvRepo    repository.ConversationRepositoryInterface
    AttemptRepo repository.AttemptRepositoryInterface
    Events      queue.Publisher
}

// EnableAgent gives the autonomous agent reply ownership.
func (s *HandoffService) EnableAgent(conversationID int) (*model.Conversation, error) {
    return s.setOwnership(conversationID, true, nil)
}

// TakeOver assigns a human operator and silences the agent.
func (s *HandoffService) TakeOver(conversationID, userID int) (*model.Conversation, error) {
    return s.setOwnership(conversationID, false, &userID)
}

// Release drops the human assignment, leaving the conversation unowned
// (agent stays off until explicitly re-enabled).
func (s *HandoffService) Release(conversationID int) (*model.Conversation, error) {
    return s.setOwnership(conversationID, false, nil)
}

func (s *HandoffService) setOwnership(conversationID int, agentActive bool, assignedUserID *int) (*model.Conversation, error) {
    conv, err := s.ConvRepo.GetByID(conversationID)
    if err != nil {
        return nil, err
    }
    if conv.Status == model.StatusClosed {
        return nil, fmt.Errorf("conversation %d is closed; reopen it before changing ownership", conversationID)
    }

    if err := s.ConvRepo.UpdateOwnership(conversationID, agentActive, assignedUserID); err != nil {
        return nil, err
    }
    conv.AgentActive = agentActive
    conv.AssignedUserID = assignedUserID

    s.publishHandoff(conv)
    return conv, nil
}

// Close ends the conversation. Closed conversations are never eligible
// for follow-ups.
func (s *HandoffService) Close(conversationID int) (*model.Conversation, error) {
    return s.transition(conversationID, model.StatusClosed)
}

// Reopen brings a closed conversation back to active.
func (s *HandoffService) Reopen(conversationID int) (*model.Conversation, error) {
    return s.transition(conversationID, model.StatusActive)
}

func (s *HandoffService) transition(conversationID int, to string) (*model.Conversation, error) {
    conv, err := s.ConvRepo.GetByID(conversationID)
    if err != nil {
        return nil, err
    }

    if !validTransitions[conv.Status][to] {
        return nil, &TransitionError{ConversationID: conversationID, FromStatus: conv.Status, ToStatus: to}
    }

    if err := s.ConvRepo.UpdateStatus(conversationID, to); err != nil {
        return nil, err
    }
    conv.Status = to

    s.publishHandoff(conv)
    return conv, nil
}

// RecordInbound registers a lead reply: updates the conversation's
// cached direction and preview, reactivates it when it was waiting, and
// settles every pending follow-up attempt. One reply clears the
// attempts of all rules at once.
func (s *HandoffService) RecordInbound(conversationID int, preview string) error {
    conv, err := s.ConvRepo.GetByID(conversationID)
    if err != nil {
        return err
    }

    if err := s.ConvRepo.RecordInbound(conversationID, preview, time.Now()); err != nil {
        return err
    }

    if err := s.AttemptRepo.MarkReplied(conversationID); err != nil {
        log.Println("⚠️ Failed to mark follow-up attempts replied:", err)
    }

    if conv.Status == model.StatusAwaitingReply {
        conv.Status = model.StatusActive
        s.publishHandoff(conv)
    }
    return nil
}

func (s *HandoffService) publishHandoff(conv *model.Conversation) {
    if s.Events == nil {
        return
    }
    err := s.Events.Publish(queue.TopicConversationHandoff, map[string]interface{}{
        "conversation_id":  conv.ID,
        "tenant_id":        conv.TenantID,
        "agent_active":     conv.AgentActive,
        "assigned_user_id": conv.AssignedUserID,
        "status":           conv.Status,
    })
    if err != nil {
        log.Println("⚠️ Failed to publish handoff event:", err)
    }
}
