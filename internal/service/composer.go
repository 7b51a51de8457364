// internal/service/composer.go
package service

import (
    "context"
    "fmt"
    "log"
    "strings"

    "github.com/leadzap/leadzap-backend/internal/llm"
    "github.com/leadzap/leadzap-backend/internal/model"
    "github.com/leadzap/leadzap-backend/internal/repository"
)

// defaultAIPrompt is used when a rule has no prompt of its own.
const defaultAIPrompt = "You are a sales assistant re-engaging a lead that went quiet. " +
    "Based on the conversation so far, write one short, friendly, professional message " +
    "nudging the lead to reply, in the same language the conversation uses. " +
    "Return only the message text."

// ComposerInterface produces the outbound text for one follow-up.
type ComposerInterface interface {
    Compose(ctx context.Context, rule *model.FollowUpRule, conv *model.Conversation) (string, error)
}

// MessageComposer renders fixed-text rules and generates AI rules.
// AI generation tries the tenant's own provider key first, then the
// platform-wide fallback key.
type MessageComposer struct {
    MessageRepo repository.MessageRepositoryInterface
    ContactRepo repository.ContactRepositoryInterface
    Resolver    llm.CredentialResolver

    // NewGenerator builds a provider client for a key. Overridable in
    // tests.
    NewGenerator func(apiKey string) llm.Generator
}

func (c *MessageComposer) Compose(ctx context.Context, rule *model.FollowUpRule, conv *model.Conversation) (string, error) {
    switch rule.Strategy {
    case model.StrategyFixedText:
        return c.composeFixed(rule, conv)
    case model.StrategyAIGenerated:
        return c.composeGenerated(ctx, rule, conv)
    default:
        return "", fmt.Errorf("rule %d has unknown strategy %q", rule.ID, rule.Strategy)
    }
}

func (c *MessageComposer) composeFixed(rule *model.FollowUpRule, conv *model.Conversation) (string, error) {
    data := map[string]string{}
    if contact, err := c.ContactRepo.GetByID(conv.ContactID); err == nil && contact != nil {
        data = ContactData(contact.Name)
    }

    text := strings.TrimSpace(RenderTemplate(rule.FixedMessage, data))
    if text == "" {
        return "", fmt.Errorf("rule %d has an empty fixed message", rule.ID)
    }
    return text, nil
}

func (c *MessageComposer) composeGenerated(ctx context.Context, rule *model.FollowUpRule, conv *model.Conversation) (string, error) {
    transcript, err := c.buildTranscript(conv, rule.ContextWindow)
    if err != nil {
        return "", fmt.Errorf("building transcript: %w", err)
    }

    systemPrompt := strings.TrimSpace(rule.AIPrompt)
    if systemPrompt == "" {
        systemPrompt = defaultAIPrompt
    }

    // Primary provider: tenant's own key, when configured.
    tenantKey, err := c.Resolver.TenantKey(rule.TenantID)
    if err != nil {
        log.Println("⚠️ Failed to load tenant generation key:", err)
    }
    if tenantKey != "" {
        text, genErr := c.NewGenerator(tenantKey).Generate(ctx, systemPrompt, transcript)
        if genErr == nil && strings.TrimSpace(text) != "" {
            return strings.TrimSpace(text), nil
        }
        log.Printf("⚠️ Primary generation failed for tenant %d, falling back: %v\n", rule.TenantID, genErr)
    }

    // Fallback provider: platform-wide key.
    platformKey := c.Resolver.PlatformKey()
    if platformKey == "" {
        return "", fmt.Errorf("no generation credentials available for tenant %d", rule.TenantID)
    }

    text, err := c.NewGenerator(platformKey).Generate(ctx, systemPrompt, transcript)
    if err != nil {
        return "", fmt.Errorf("fallback generation failed: %w", err)
    }
    text = strings.TrimSpace(text)
    if text == "" {
        return "", fmt.Errorf("fallback provider returned an empty message")
    }
    return text, nil
}

// buildTranscript formats the conversation's last N messages as a
// two-party transcript, oldest first.
func (c *MessageComposer) buildTranscript(conv *model.Conversation, window int) (string, error) {
    if window <= 0 {
        window = 10
    }
    messages, err := c.MessageRepo.ListRecent(conv.ID, window)
    if err != nil {
        return "", err
    }
    if len(messages) == 0 {
        return "(no previous messages)", nil
    }

    var sb strings.Builder
    for _, m := range messages {
        speaker := "lead"
        if m.Direction == model.DirectionOutbound {
            speaker = "agent"
        }
        sb.WriteString(speaker)
        sb.WriteString(": ")
        sb.WriteString(m.Content)
        sb.WriteString("\n")
    }
    return sb.String(), nil
}

var _ ComposerInterface = (*MessageComposer)(nil)
