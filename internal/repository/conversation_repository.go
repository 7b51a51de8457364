package repository

import (
    "database/sql"
    "fmt"
    "time"

    "github.com/lib/pq"

    appErrors "github.com/leadzap/leadzap-backend/internal/errors"
    "github.com/leadzap/leadzap-backend/internal/model"
)

type ConversationRepositoryInterface interface {
    FindEligible(tenantID int, cutoff time.Time, applyToAgent, applyToHuman bool, stageIDs []int64) ([]*model.Conversation, error)
    GetByID(id int) (*model.Conversation, error)
    List(tenantID, offset, limit int, status string) ([]*model.Conversation, int, error)
    UpdateOwnership(id int, agentActive bool, assignedUserID *int) error
    UpdateStatus(id int, status string) error
    RecordInbound(id int, preview string, at time.Time) error
}

type ConversationRepository struct {
    DB *sql.DB
}

const conversationColumns = `id, tenant_id, contact_id, connection_id, stage_id, agent_active,
       assigned_user_id, status, last_message_at, last_message_direction, preview,
       created_at, updated_at`

func scanConversation(row interface{ Scan(...any) error }) (*model.Conversation, error) {
    var c model.Conversation
    err := row.Scan(
        &c.ID, &c.TenantID, &c.ContactID, &c.ConnectionID, &c.StageID, &c.AgentActive,
        &c.AssignedUserID, &c.Status, &c.LastMessageAt, &c.LastMessageDirection, &c.Preview,
        &c.CreatedAt, &c.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &c, nil
}

// FindEligible returns the conversations a rule may target this sweep:
// still open, silent since before the cutoff, and with ownership
// matching the rule's applicability flags. Read-only, safe to re-run.
func (r *ConversationRepository) FindEligible(tenantID int, cutoff time.Time, applyToAgent, applyToHuman bool, stageIDs []int64) ([]*model.Conversation, error) {
    if !applyToAgent && !applyToHuman {
        return []*model.Conversation{}, nil
    }

    query := `SELECT ` + conversationColumns + `
        FROM conversations
        WHERE tenant_id=$1
          AND status IN ('active', 'awaiting_reply')
          AND last_message_at <= $2`
    args := []interface{}{tenantID, cutoff}
    argPos := 3

    // agent-owned = agent_active, human-owned = everything else
    if applyToAgent && !applyToHuman {
        query += " AND agent_active = true"
    } else if applyToHuman && !applyToAgent {
        query += " AND agent_active = false"
    }

    if len(stageIDs) > 0 {
        query += fmt.Sprintf(" AND stage_id = ANY($%d)", argPos)
        args = append(args, pq.Array(stageIDs))
    }

    query += " ORDER BY last_message_at ASC"

    rows, err := r.DB.Query(query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    conversations := []*model.Conversation{}
    for rows.Next() {
        c, err := scanConversation(rows)
        if err != nil {
            return nil, err
        }
        conversations = append(conversations, c)
    }
    return conversations, rows.Err()
}

func (r *ConversationRepository) GetByID(id int) (*model.Conversation, error) {
    query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id=$1`
    c, err := scanConversation(r.DB.QueryRow(query, id))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewConversationNotFound(id)
        }
        return nil, err
    }
    return c, nil
}

func (r *ConversationRepository) List(tenantID, offset, limit int, status string) ([]*model.Conversation, int, error) {
    conversations := []*model.Conversation{}
    query := `SELECT ` + conversationColumns + ` FROM conversations WHERE tenant_id=$1`
    args := []interface{}{tenantID}
    argPos := 2

    if status != "" {
        query += fmt.Sprintf(" AND status=$%d", argPos)
        args = append(args, status)
        argPos++
    }

    query += fmt.Sprintf(" ORDER BY last_message_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
    args = append(args, limit, offset)

    rows, err := r.DB.Query(query, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    for rows.Next() {
        c, err := scanConversation(rows)
        if err != nil {
            return nil, 0, err
        }
        conversations = append(conversations, c)
    }

    countQuery := `SELECT COUNT(*) FROM conversations WHERE tenant_id=$1`
    countArgs := []interface{}{tenantID}
    if status != "" {
        countQuery += " AND status=$2"
        countArgs = append(countArgs, status)
    }

    var total int
    if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
        return nil, 0, err
    }

    return conversations, total, nil
}

func (r *ConversationRepository) UpdateOwnership(id int, agentActive bool, assignedUserID *int) error {
    query := `UPDATE conversations SET agent_active=$1, assigned_user_id=$2, updated_at=NOW() WHERE id=$3`
    _, err := r.DB.Exec(query, agentActive, assignedUserID, id)
    return err
}

func (r *ConversationRepository) UpdateStatus(id int, status string) error {
    query := `UPDATE conversations SET status=$1, updated_at=NOW() WHERE id=$2`
    _, err := r.DB.Exec(query, status, id)
    return err
}

// RecordInbound is the reply bookkeeping: flips the cached direction,
// refreshes the preview and reactivates a conversation that was waiting
// on the lead. Closed conversations keep their status until an explicit
// reopen.
func (r *ConversationRepository) RecordInbound(id int, preview string, at time.Time) error {
    query := `
        UPDATE conversations
        SET last_message_at=$1,
            last_message_direction='inbound',
            preview=$2,
            status = CASE WHEN status='awaiting_reply' THEN 'active' ELSE status END,
            updated_at=NOW()
        WHERE id=$3
    `
    _, err := r.DB.Exec(query, at, preview, id)
    return err
}

var _ ConversationRepositoryInterface = (*ConversationRepository)(nil)
