package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	appErrors "github.com/leadzap/leadzap-backend/internal/errors"
	"github.com/leadzap/leadzap-backend/internal/model"
	"github.com/leadzap/leadzap-backend/internal/service"
)

// --- Fake repositories over one shared in-memory store ---

type fakeStore struct {
	mu            sync.Mutex
	rules         []*model.FollowUpRule
	conversations map[int]*model.Conversation
	messages      map[int][]*model.Message
	attempts      map[string][]*model.FollowUpAttempt // "ruleID:convID"
	callbacks     map[int]bool
	stages        map[int]*model.Stage
	contacts      map[int]*model.Contact
	connections   map[int]*model.Connection

	listRulesErr error
	recordErr    error
}

func attemptKey(ruleID, convID int) string {
	return fmt.Sprintf("%d:%d", ruleID, convID)
}

func (s *fakeStore) allAttempts() []*model.FollowUpAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := []*model.FollowUpAttempt{}
	for _, list := range s.attempts {
		all = append(all, list...)
	}
	return all
}

type fakeRuleRepo struct{ store *fakeStore }

func (f *fakeRuleRepo) ListActive() ([]*model.FollowUpRule, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.store.listRulesErr != nil {
		return nil, f.store.listRulesErr
	}
	return f.store.rules, nil
}

func (f *fakeRuleRepo) ListRules(tenantID, offset, limit int, active *bool) ([]*model.FollowUpRule, int, error) {
	return f.store.rules, len(f.store.rules), nil
}

func (f *fakeRuleRepo) GetByID(id int) (*model.FollowUpRule, error) {
	for _, r := range f.store.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, appErrors.NewRuleNotFound(id)
}

func (f *fakeRuleRepo) Create(r *model.FollowUpRule) error  { return nil }
func (f *fakeRuleRepo) Update(r *model.FollowUpRule) error  { return nil }
func (f *fakeRuleRepo) SetActive(id int, active bool) error { return nil }

type fakeConvRepo struct{ store *fakeStore }

func (f *fakeConvRepo) FindEligible(tenantID int, cutoff time.Time, applyToAgent, applyToHuman bool, stageIDs []int64) ([]*model.Conversation, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	out := []*model.Conversation{}
	for _, c := range f.store.conversations {
		if c.TenantID != tenantID {
			continue
		}
		if c.Status != model.StatusActive && c.Status != model.StatusAwaitingReply {
			continue
		}
		if c.LastMessageAt.After(cutoff) {
			continue
		}
		if c.AgentActive && !applyToAgent {
			continue
		}
		if !c.AgentActive && !applyToHuman {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeConvRepo) GetByID(id int) (*model.Conversation, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	c, ok := f.store.conversations[id]
	if !ok {
		return nil, appErrors.NewConversationNotFound(id)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeConvRepo) List(tenantID, offset, limit int, status string) ([]*model.Conversation, int, error) {
	return nil, 0, nil
}

func (f *fakeConvRepo) UpdateOwnership(id int, agentActive bool, assignedUserID *int) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	c := f.store.conversations[id]
	c.AgentActive = agentActive
	c.AssignedUserID = assignedUserID
	return nil
}

func (f *fakeConvRepo) UpdateStatus(id int, status string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.conversations[id].Status = status
	return nil
}

func (f *fakeConvRepo) RecordInbound(id int, preview string, at time.Time) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	c := f.store.conversations[id]
	c.LastMessageAt = at
	c.LastMessageDirection = model.DirectionInbound
	c.Preview = preview
	if c.Status == model.StatusAwaitingReply {
		c.Status = model.StatusActive
	}
	return nil
}

type fakeMessageRepo struct{ store *fakeStore }

func (f *fakeMessageRepo) Create(msg *model.Message) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.messages[msg.ConversationID] = append(f.store.messages[msg.ConversationID], msg)
	return nil
}

func (f *fakeMessageRepo) ListRecent(conversationID, limit int) ([]*model.Message, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	msgs := f.store.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

type fakeAttemptRepo struct{ store *fakeStore }

func (f *fakeAttemptRepo) GetLatest(ruleID, conversationID int) (*model.FollowUpAttempt, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	list := f.store.attempts[attemptKey(ruleID, conversationID)]
	if len(list) == 0 {
		return nil, nil
	}
	copied := *list[len(list)-1]
	return &copied, nil
}

func (f *fakeAttemptRepo) MarkReplied(conversationID int) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, list := range f.store.attempts {
		for _, a := range list {
			if a.ConversationID == conversationID {
				a.Replied = true
			}
		}
	}
	return nil
}

type fakeCallbackRepo struct{ store *fakeStore }

func (f *fakeCallbackRepo) HasPending(conversationID int) (bool, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.callbacks[conversationID], nil
}

type fakeStageRepo struct{ store *fakeStore }

func (f *fakeStageRepo) GetByID(id int) (*model.Stage, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.stages[id], nil
}

type fakeContactRepo struct{ store *fakeStore }

func (f *fakeContactRepo) GetByID(id int) (*model.Contact, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.contacts[id], nil
}

type fakeConnRepo struct{ store *fakeStore }

func (f *fakeConnRepo) GetByID(id int) (*model.Connection, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.connections[id], nil
}

// fakeDeliveryRepo mimics the conditional-ordinal transaction: it
// refuses an attempt number that was already taken and otherwise
// applies the outbound bookkeeping.
type fakeDeliveryRepo struct{ store *fakeStore }

func (f *fakeDeliveryRepo) RecordFollowUpSend(conversationID, ruleID, attemptNumber int, text string, sentAt time.Time) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.store.recordErr != nil {
		return f.store.recordErr
	}

	key := attemptKey(ruleID, conversationID)
	for _, a := range f.store.attempts[key] {
		if a.AttemptNumber >= attemptNumber {
			return appErrors.NewAttemptConflict(ruleID, conversationID, attemptNumber)
		}
	}
	f.store.attempts[key] = append(f.store.attempts[key], &model.FollowUpAttempt{
		RuleID:         ruleID,
		ConversationID: conversationID,
		AttemptNumber:  attemptNumber,
		SentAt:         sentAt,
		SentMessage:    text,
	})

	c := f.store.conversations[conversationID]
	c.LastMessageAt = sentAt
	c.LastMessageDirection = model.DirectionOutbound
	c.Status = model.StatusAwaitingReply
	c.Preview = text
	return nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) Send(ctx context.Context, conn *model.Connection, contact *model.Contact, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// --- Fixture ---

// newStore returns a store with one tenant-1 conversation that has been
// silent for 70 minutes, last message outbound, agent-owned, plus a
// fixed-text rule: 60 min threshold, 3 attempts max, 24h interval.
func newStore() *fakeStore {
	stageID := 1
	return &fakeStore{
		rules: []*model.FollowUpRule{{
			ID:                  1,
			TenantID:            1,
			Name:                "Reengajamento 1h",
			Strategy:            model.StrategyFixedText,
			FixedMessage:        "Ainda por aí?",
			TriggerAfterMinutes: 60,
			MaxAttempts:         3,
			MinIntervalMinutes:  1440,
			ApplyToAgent:        true,
			ApplyToHuman:        true,
			Active:              true,
		}},
		conversations: map[int]*model.Conversation{
			1: {
				ID:                   1,
				TenantID:             1,
				ContactID:            1,
				ConnectionID:         1,
				StageID:              &stageID,
				AgentActive:          true,
				Status:               model.StatusAwaitingReply,
				LastMessageAt:        time.Now().Add(-70 * time.Minute),
				LastMessageDirection: model.DirectionOutbound,
			},
		},
		messages:    map[int][]*model.Message{},
		attempts:    map[string][]*model.FollowUpAttempt{},
		callbacks:   map[int]bool{},
		stages:      map[int]*model.Stage{1: {ID: 1, TenantID: 1, Name: "Novo lead", FollowupEnabled: true}},
		contacts:    map[int]*model.Contact{1: {ID: 1, TenantID: 1, Name: "Alice Souza", Phone: "5511999990001"}},
		connections: map[int]*model.Connection{1: {ID: 1, TenantID: 1, Channel: "whatsapp"}},
	}
}

func newService(store *fakeStore, sender *fakeSender) *service.FollowUpService {
	return &service.FollowUpService{
		RuleRepo:     &fakeRuleRepo{store},
		ConvRepo:     &fakeConvRepo{store},
		MessageRepo:  &fakeMessageRepo{store},
		AttemptRepo:  &fakeAttemptRepo{store},
		CallbackRepo: &fakeCallbackRepo{store},
		StageRepo:    &fakeStageRepo{store},
		ConnRepo:     &fakeConnRepo{store},
		ContactRepo:  &fakeContactRepo{store},
		DeliveryRepo: &fakeDeliveryRepo{store},
		Composer: &service.MessageComposer{
			MessageRepo: &fakeMessageRepo{store},
			ContactRepo: &fakeContactRepo{store},
		},
		Channels: sender,
	}
}

// --- Tests ---

func TestRunSendsFollowUp(t *testing.T) {
	store := newStore()
	sender := &fakeSender{}
	svc := newService(store, sender)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if result.SentCount != 1 {
		t.Fatalf("expected 1 sent, got %d (skipped: %v)", result.SentCount, result.Skipped)
	}
	if sender.count() != 1 || sender.sent[0] != "Ainda por aí?" {
		t.Errorf("unexpected sends: %v", sender.sent)
	}

	attempts := store.allAttempts()
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if attempts[0].AttemptNumber != 1 {
		t.Errorf("expected attempt number 1, got %d", attempts[0].AttemptNumber)
	}
	if attempts[0].SentMessage != "Ainda por aí?" {
		t.Errorf("unexpected recorded message: %s", attempts[0].SentMessage)
	}

	conv := store.conversations[1]
	if conv.LastMessageDirection != model.DirectionOutbound {
		t.Errorf("expected outbound direction, got %s", conv.LastMessageDirection)
	}
	if conv.Status != model.StatusAwaitingReply {
		t.Errorf("expected awaiting_reply, got %s", conv.Status)
	}
	if conv.Preview != "Ainda por aí?" {
		t.Errorf("unexpected preview: %s", conv.Preview)
	}
}

func TestIntervalFloorBlocksSecondSend(t *testing.T) {
	store := newStore()
	sender := &fakeSender{}
	svc := newService(store, sender)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// A second run right away must not produce attempt 2: the
	// conversation just got a message and the 24h floor has not
	// elapsed.
	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SentCount != 0 {
		t.Fatalf("expected 0 sent on immediate re-run, got %d", result.SentCount)
	}
	if len(store.allAttempts()) != 1 {
		t.Fatalf("expected 1 attempt total, got %d", len(store.allAttempts()))
	}

	// Interval elapsed: backdate both the attempt and the
	// conversation, the next run sends attempt 2.
	store.mu.Lock()
	store.attempts[attemptKey(1, 1)][0].SentAt = time.Now().Add(-1441 * time.Minute)
	store.conversations[1].LastMessageAt = time.Now().Add(-1441 * time.Minute)
	store.mu.Unlock()

	result, err = svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SentCount != 1 {
		t.Fatalf("expected 1 sent after interval elapsed, got %d (skipped: %v)", result.SentCount, result.Skipped)
	}
	attempts := store.allAttempts()
	if len(attempts) != 2 || attempts[1].AttemptNumber != 2 {
		t.Fatalf("expected attempt number 2, got %+v", attempts)
	}
}

func TestAttemptCap(t *testing.T) {
	store := newStore()
	store.attempts[attemptKey(1, 1)] = []*model.FollowUpAttempt{
		{RuleID: 1, ConversationID: 1, AttemptNumber: 3, SentAt: time.Now().Add(-48 * time.Hour)},
	}
	sender := &fakeSender{}
	svc := newService(store, sender)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SentCount != 0 {
		t.Fatalf("expected 0 sent, got %d", result.SentCount)
	}
	if result.Skipped["max_attempts_reached"] != 1 {
		t.Errorf("expected exhaustion skip, got %v", result.Skipped)
	}
	if sender.count() != 0 {
		t.Errorf("expected no sends, got %v", sender.sent)
	}
}

func TestReplySuppression(t *testing.T) {
	store := newStore()
	store.conversations[1].LastMessageDirection = model.DirectionInbound
	sender := &fakeSender{}
	svc := newService(store, sender)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SentCount != 0 {
		t.Fatalf("expected 0 sent, got %d", result.SentCount)
	}
	if result.Skipped["lead_replied"] != 1 {
		t.Errorf("expected lead_replied skip, got %v", result.Skipped)
	}
}

func TestPendingCallbackSuppression(t *testing.T) {
	store := newStore()
	store.callbacks[1] = true
	sender := &fakeSender{}
	svc := newService(store, sender)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SentCount != 0 {
		t.Fatalf("expected 0 sent, got %d", result.SentCount)
	}
	if result.Skipped["agent_callback"] != 1 {
		t.Errorf("expected agent_callback skip, got %v", result.Skipped)
	}
	if sender.count() != 0 {
		t.Errorf("expected no sends, got %v", sender.sent)
	}
}

func TestStageOptOut(t *testing.T) {
	store := newStore()
	store.stages[1].FollowupEnabled = false
	sender := &fakeSender{}
	svc := newService(store, sender)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SentCount != 0 {
		t.Fatalf("expected 0 sent, got %d", result.SentCount)
	}
	if result.Skipped["stage_opt_out"] != 1 {
		t.Errorf("expected stage_opt_out skip, got %v", result.Skipped)
	}
}

func TestClosedConversationNotEligible(t *testing.T) {
	store := newStore()
	store.conversations[1].Status = model.StatusClosed
	sender := &fakeSender{}
	svc := newService(store, sender)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SentCount != 0 || sender.count() != 0 {
		t.Fatalf("closed conversation received a follow-up: %v", sender.sent)
	}
}

func TestDeliveryFailureDoesNotRecordAttempt(t *testing.T) {
	store := newStore()
	sender := &fakeSender{err: fmt.Errorf("provider unreachable")}
	svc := newService(store, sender)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SentCount != 0 {
		t.Fatalf("expected 0 sent, got %d", result.SentCount)
	}
	if result.Skipped["failed"] != 1 {
		t.Errorf("expected failed counter, got %v", result.Skipped)
	}
	// No attempt slot burned: the next tick may retry.
	if len(store.allAttempts()) != 0 {
		t.Fatalf("expected no attempts, got %d", len(store.allAttempts()))
	}
	if store.conversations[1].Status != model.StatusAwaitingReply {
		t.Errorf("conversation mutated on failed delivery")
	}
}

func TestConcurrentRunsProduceSingleAttempt(t *testing.T) {
	store := newStore()
	sender := &fakeSender{}
	svc := newService(store, sender)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Run(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := len(store.allAttempts()); got != 1 {
		t.Fatalf("expected exactly 1 attempt after concurrent runs, got %d", got)
	}
	if sender.count() != 1 {
		t.Fatalf("expected exactly 1 send after concurrent runs, got %d", sender.count())
	}
}

func TestRuleLoadFailureAbortsRun(t *testing.T) {
	store := newStore()
	store.listRulesErr = fmt.Errorf("db down")
	svc := newService(store, &fakeSender{})

	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected run to fail when rules cannot be loaded")
	}
}

func TestMisconfiguredRuleIsSkipped(t *testing.T) {
	store := newStore()
	store.rules[0].TriggerAfterMinutes = 0
	sender := &fakeSender{}
	svc := newService(store, sender)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SentCount != 0 || sender.count() != 0 {
		t.Fatalf("misconfigured rule still sent: %v", sender.sent)
	}
}

func TestRecordConflictIsSurfacedAsFailure(t *testing.T) {
	store := newStore()
	sender := &fakeSender{}
	svc := newService(store, sender)

	// Another process already recorded attempt 1.
	store.recordErr = appErrors.NewAttemptConflict(1, 1, 1)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.SentCount != 0 {
		t.Fatalf("expected 0 sent, got %d", result.SentCount)
	}
	if result.Skipped["failed"] != 1 {
		t.Errorf("expected failed counter, got %v", result.Skipped)
	}
}
