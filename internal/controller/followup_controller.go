// internal/controller/followup_controller.go
package controller

import (
    "encoding/json"
    "log"
    "net/http"
    "strconv"

    "github.com/go-chi/chi/v5"

    "github.com/leadzap/leadzap-backend/internal/model"
    "github.com/leadzap/leadzap-backend/internal/repository"
    "github.com/leadzap/leadzap-backend/internal/service"
)

type FollowUpController struct {
    RuleRepo        repository.RuleRepositoryInterface
    FollowUpService *service.FollowUpService
}

// RunFollowUps triggers one scheduler sweep and returns its summary.
func (c *FollowUpController) RunFollowUps(w http.ResponseWriter, r *http.Request) {
    result, err := c.FollowUpService.Run(r.Context())
    if err != nil {
        log.Println("❌ Follow-up run failed:", err)
        http.Error(w, "follow-up run failed: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(result)
}

func (c *FollowUpController) CreateRule(w http.ResponseWriter, r *http.Request) {
    var body struct {
        TenantID            int     `json:"tenant_id"`
        AgentID             *int    `json:"agent_id"`
        Name                string  `json:"name"`
        Strategy            string  `json:"strategy"`
        FixedMessage        string  `json:"fixed_message"`
        AIPrompt            string  `json:"ai_prompt"`
        ContextWindow       int     `json:"context_window"`
        TriggerAfterMinutes int     `json:"trigger_after_minutes"`
        MaxAttempts         int     `json:"max_attempts"`
        MinIntervalMinutes  int     `json:"min_interval_minutes"`
        ApplyToAgent        bool    `json:"apply_to_agent"`
        ApplyToHuman        bool    `json:"apply_to_human"`
        StageIDs            []int64 `json:"stage_ids"`
        Active              bool    `json:"active"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    if body.TriggerAfterMinutes <= 0 || body.MaxAttempts <= 0 {
        http.Error(w, "trigger_after_minutes and max_attempts must be positive", http.StatusBadRequest)
        return
    }

    rule := &model.FollowUpRule{
        TenantID:            body.TenantID,
        AgentID:             body.AgentID,
        Name:                body.Name,
        Strategy:            body.Strategy,
        FixedMessage:        body.FixedMessage,
        AIPrompt:            body.AIPrompt,
        ContextWindow:       body.ContextWindow,
        TriggerAfterMinutes: body.TriggerAfterMinutes,
        MaxAttempts:         body.MaxAttempts,
        MinIntervalMinutes:  body.MinIntervalMinutes,
        ApplyToAgent:        body.ApplyToAgent,
        ApplyToHuman:        body.ApplyToHuman,
        StageIDs:            body.StageIDs,
        Active:              body.Active,
    }

    if err := c.RuleRepo.Create(rule); err != nil {
        http.Error(w, "failed to create rule: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(rule)
}

func (c *FollowUpController) ListRules(w http.ResponseWriter, r *http.Request) {
    tenantID, _ := strconv.Atoi(r.URL.Query().Get("tenant_id"))
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 20
    }
    if pageSize > 100 {
        pageSize = 100
    }

    var active *bool
    if a := r.URL.Query().Get("active"); a != "" {
        v := a == "true"
        active = &v
    }

    offset := (page - 1) * pageSize
    rules, total, err := c.RuleRepo.ListRules(tenantID, offset, pageSize, active)
    if err != nil {
        http.Error(w, "failed to fetch rules: "+err.Error(), http.StatusInternalServerError)
        return
    }

    totalPages := (total + pageSize - 1) / pageSize
    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "data": rules,
        "pagination": map[string]int{
            "page":        page,
            "page_size":   pageSize,
            "total_count": total,
            "total_pages": totalPages,
        },
    })
}

func (c *FollowUpController) GetRule(w http.ResponseWriter, r *http.Request) {
    idStr := chi.URLParam(r, "id")
    id, err := strconv.Atoi(idStr)
    if err != nil {
        http.Error(w, "invalid rule id", http.StatusBadRequest)
        return
    }

    rule, err := c.RuleRepo.GetByID(id)
    if err != nil {
        http.Error(w, err.Error(), http.StatusNotFound)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(rule)
}

func (c *FollowUpController) UpdateRule(w http.ResponseWriter, r *http.Request) {
    idStr := chi.URLParam(r, "id")
    id, err := strconv.Atoi(idStr)
    if err != nil {
        http.Error(w, "invalid rule id", http.StatusBadRequest)
        return
    }

    rule, err := c.RuleRepo.GetByID(id)
    if err != nil {
        http.Error(w, err.Error(), http.StatusNotFound)
        return
    }

    if err := json.NewDecoder(r.Body).Decode(rule); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }
    rule.ID = id

    if err := c.RuleRepo.Update(rule); err != nil {
        http.Error(w, "failed to update rule: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(rule)
}

func (c *FollowUpController) SetRuleActive(w http.ResponseWriter, r *http.Request) {
    idStr := chi.URLParam(r, "id")
    id, err := strconv.Atoi(idStr)
    if err != nil {
        http.Error(w, "invalid rule id", http.StatusBadRequest)
        return
    }

    var body struct {
        Active bool `json:"active"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    if err := c.RuleRepo.SetActive(id, body.Active); err != nil {
        http.Error(w, "failed to update rule: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "active": body.Active})
}
