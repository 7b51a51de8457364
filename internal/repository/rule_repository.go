package repository

import (
    "database/sql"
    "fmt"
    "time"

    "github.com/lib/pq"

    appErrors "github.com/leadzap/leadzap-backend/internal/errors"
    "github.com/leadzap/leadzap-backend/internal/model"
)

type RuleRepositoryInterface interface {
    // Rule CRUD
    ListRules(tenantID, offset, limit int, active *bool) ([]*model.FollowUpRule, int, error)
    ListActive() ([]*model.FollowUpRule, error)
    GetByID(id int) (*model.FollowUpRule, error)
    Create(r *model.FollowUpRule) error
    Update(r *model.FollowUpRule) error
    SetActive(id int, active bool) error
}

type RuleRepository struct {
    DB *sql.DB
}

const ruleColumns = `id, tenant_id, agent_id, name, strategy, fixed_message, ai_prompt,
       context_window, trigger_after_minutes, max_attempts, min_interval_minutes,
       apply_to_agent, apply_to_human, stage_ids, active, created_at, updated_at`

func scanRule(row interface{ Scan(...any) error }) (*model.FollowUpRule, error) {
    var r model.FollowUpRule
    err := row.Scan(
        &r.ID, &r.TenantID, &r.AgentID, &r.Name, &r.Strategy, &r.FixedMessage, &r.AIPrompt,
        &r.ContextWindow, &r.TriggerAfterMinutes, &r.MaxAttempts, &r.MinIntervalMinutes,
        &r.ApplyToAgent, &r.ApplyToHuman, pq.Array(&r.StageIDs), &r.Active, &r.CreatedAt, &r.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &r, nil
}

// ====================== Rule CRUD ======================

func (repo *RuleRepository) Create(r *model.FollowUpRule) error {
    r.CreatedAt = time.Now()
    if r.Strategy == "" {
        r.Strategy = model.StrategyFixedText
    }
    query := `
        INSERT INTO follow_up_rules
            (tenant_id, agent_id, name, strategy, fixed_message, ai_prompt, context_window,
             trigger_after_minutes, max_attempts, min_interval_minutes,
             apply_to_agent, apply_to_human, stage_ids, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING id
    `
    return repo.DB.QueryRow(query,
        r.TenantID, r.AgentID, r.Name, r.Strategy, r.FixedMessage, r.AIPrompt, r.ContextWindow,
        r.TriggerAfterMinutes, r.MaxAttempts, r.MinIntervalMinutes,
        r.ApplyToAgent, r.ApplyToHuman, pq.Array(r.StageIDs), r.Active, r.CreatedAt,
    ).Scan(&r.ID)
}

func (repo *RuleRepository) Update(r *model.FollowUpRule) error {
    query := `
        UPDATE follow_up_rules
        SET name=$1, strategy=$2, fixed_message=$3, ai_prompt=$4, context_window=$5,
            trigger_after_minutes=$6, max_attempts=$7, min_interval_minutes=$8,
            apply_to_agent=$9, apply_to_human=$10, stage_ids=$11, active=$12, updated_at=NOW()
        WHERE id=$13
    `
    _, err := repo.DB.Exec(query,
        r.Name, r.Strategy, r.FixedMessage, r.AIPrompt, r.ContextWindow,
        r.TriggerAfterMinutes, r.MaxAttempts, r.MinIntervalMinutes,
        r.ApplyToAgent, r.ApplyToHuman, pq.Array(r.StageIDs), r.Active, r.ID,
    )
    return err
}

func (repo *RuleRepository) SetActive(id int, active bool) error {
    query := `UPDATE follow_up_rules SET active=$1, updated_at=NOW() WHERE id=$2`
    _, err := repo.DB.Exec(query, active, id)
    return err
}

func (repo *RuleRepository) GetByID(id int) (*model.FollowUpRule, error) {
    query := `SELECT ` + ruleColumns + ` FROM follow_up_rules WHERE id=$1`
    r, err := scanRule(repo.DB.QueryRow(query, id))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewRuleNotFound(id)
        }
        return nil, err
    }
    return r, nil
}

// ListActive returns every active rule across all tenants, the set one
// scheduler sweep iterates.
func (repo *RuleRepository) ListActive() ([]*model.FollowUpRule, error) {
    query := `SELECT ` + ruleColumns + ` FROM follow_up_rules WHERE active=true ORDER BY tenant_id, id`
    rows, err := repo.DB.Query(query)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    rules := []*model.FollowUpRule{}
    for rows.Next() {
        r, err := scanRule(rows)
        if err != nil {
            return nil, err
        }
        rules = append(rules, r)
    }
    return rules, rows.Err()
}

func (repo *RuleRepository) ListRules(tenantID, offset, limit int, active *bool) ([]*model.FollowUpRule, int, error) {
    rules := []*model.FollowUpRule{}
    query := `SELECT ` + ruleColumns + ` FROM follow_up_rules WHERE tenant_id=$1`
    args := []interface{}{tenantID}
    argPos := 2

    if active != nil {
        query += fmt.Sprintf(" AND active=$%d", argPos)
        args = append(args, *active)
        argPos++
    }

    query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
    args = append(args, limit, offset)

    rows, err := repo.DB.Query(query, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    for rows.Next() {
        r, err := scanRule(rows)
        if err != nil {
            return nil, 0, err
        }
        rules = append(rules, r)
    }

    countQuery := `SELECT COUNT(*) FROM follow_up_rules WHERE tenant_id=$1`
    countArgs := []interface{}{tenantID}
    if active != nil {
        countQuery += " AND active=$2"
        countArgs = append(countArgs, *active)
    }

    var total int
    if err := repo.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
        return nil, 0, err
    }

    return rules, total, nil
}

var _ RuleRepositoryInterface = (*RuleRepository)(nil)
