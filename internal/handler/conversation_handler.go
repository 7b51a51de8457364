// internal/handler/conversation_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leadzap/leadzap-backend/internal/model"
	"github.com/leadzap/leadzap-backend/internal/repository"
	"github.com/leadzap/leadzap-backend/internal/service"
)

// ConversationHandler holds the dependencies for conversation-related
// HTTP handlers: inbox reads plus ownership/lifecycle transitions.
type ConversationHandler struct {
	ConvRepo repository.ConversationRepositoryInterface
	Handoff  *service.HandoffService
}

func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}

	conv, err := h.ConvRepo.GetByID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conv)
}

func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := strconv.Atoi(r.URL.Query().Get("tenant_id"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize
	conversations, total, err := h.ConvRepo.List(tenantID, offset, pageSize, status)
	if err != nil {
		http.Error(w, "failed to fetch conversations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": conversations,
		"pagination": map[string]int{
			"page":        page,
			"page_size":   pageSize,
			"total_count": total,
		},
	})
}

// EnableAgent hands reply ownership to the autonomous agent.
func (h *ConversationHandler) EnableAgent(w http.ResponseWriter, r *http.Request) {
	h.ownershipChange(w, r, func(id int) (*model.Conversation, error) {
		return h.Handoff.EnableAgent(id)
	})
}

// TakeOver hands reply ownership to a human operator.
func (h *ConversationHandler) TakeOver(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}

	var body struct {
		UserID int `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conv, err := h.Handoff.TakeOver(id, body.UserID)
	if err != nil {
		writeHandoffError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conv)
}

// Release drops the human assignment without re-enabling the agent.
func (h *ConversationHandler) Release(w http.ResponseWriter, r *http.Request) {
	h.ownershipChange(w, r, func(id int) (*model.Conversation, error) {
		return h.Handoff.Release(id)
	})
}

func (h *ConversationHandler) CloseConversation(w http.ResponseWriter, r *http.Request) {
	h.ownershipChange(w, r, func(id int) (*model.Conversation, error) {
		return h.Handoff.Close(id)
	})
}

func (h *ConversationHandler) ReopenConversation(w http.ResponseWriter, r *http.Request) {
	h.ownershipChange(w, r, func(id int) (*model.Conversation, error) {
		return h.Handoff.Reopen(id)
	})
}

func (h *ConversationHandler) ownershipChange(w http.ResponseWriter, r *http.Request, fn func(id int) (*model.Conversation, error)) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}

	conv, err := fn(id)
	if err != nil {
		writeHandoffError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conv)
}

func writeHandoffError(w http.ResponseWriter, err error) {
	var transition *service.TransitionError
	if errors.As(err, &transition) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
