// Package compose assembles the model-input message sequence for a chat
// turn: trimmed conversation history, a synthesized block of stored facts,
// and the new user message, under a message-count limit.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/memorychat/ai/core/llm"
	"github.com/hrygo/memorychat/store"
)

// defaultShortTermLimit is the short-term window size in messages.
const defaultShortTermLimit = 30

// FactStore defines the minimal fact retrieval needed by the composer.
type FactStore interface {
	ListFacts(ctx context.Context, find *store.FindFact) ([]*store.Fact, error)
}

// TurnView is the role/content view of a prior conversation turn.
type TurnView struct {
	Role    string
	Content string
}

// Request carries the inputs of one composition.
type Request struct {
	UserID  string
	Mode    Mode
	Message string
	// History is the prior conversation in chronological order.
	History []TurnView
	// ServicePrompt is an optional capability-catalog extension appended to
	// the system prompt.
	ServicePrompt string
}

// Composed is an ordered message sequence ready for a model call, plus the
// raw retrieved-fact list for observability and API echo.
type Composed struct {
	ThreadID     string
	Messages     []llm.Message
	MemoriesUsed []*store.Fact
}

type Composer struct {
	facts          FactStore
	shortTermLimit int
}

func NewComposer(facts FactStore, shortTermLimit int) *Composer {
	if shortTermLimit <= 0 {
		shortTermLimit = defaultShortTermLimit
	}
	return &Composer{
		facts:          facts,
		shortTermLimit: shortTermLimit,
	}
}

// ShortTermLimit returns the configured window size.
func (c *Composer) ShortTermLimit() int {
	return c.shortTermLimit
}

// Compose builds the message sequence for a turn. Fact retrieval is a full
// namespace scan: ranking and selection of relevant facts is left to the
// model via prompt injection.
func (c *Composer) Compose(ctx context.Context, req *Request) (*Composed, error) {
	composed := &Composed{
		ThreadID: ThreadID(req.UserID, req.Mode),
	}

	var memoriesContext string
	if req.Mode.IncludesLong() {
		facts, err := c.facts.ListFacts(ctx, &store.FindFact{UserID: &req.UserID})
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve facts: %w", err)
		}
		composed.MemoriesUsed = facts
		memoriesContext = formatMemories(facts)

		slog.Debug("compose: retrieved long-term memories",
			"user_id", req.UserID,
			"count", len(facts),
		)
	}

	system := systemPrompt
	if req.ServicePrompt != "" {
		system += "\n\n" + req.ServicePrompt
	}
	composed.Messages = append(composed.Messages, llm.SystemPrompt(system))

	// Only include conversation history when the short-term tier
	// participates; a long-only turn must not see unrelated conversation.
	if req.Mode.IncludesShort() {
		history := req.History
		if len(history) > c.shortTermLimit {
			history = history[len(history)-c.shortTermLimit:]
		}
		for _, turn := range history {
			switch turn.Role {
			case store.RoleUser:
				composed.Messages = append(composed.Messages, llm.UserMessage(turn.Content))
			case store.RoleAssistant:
				composed.Messages = append(composed.Messages, llm.AssistantMessage(turn.Content))
			}
		}
	}

	composed.Messages = append(composed.Messages, llm.UserMessage(augmentMessage(req.Message, memoriesContext)))
	return composed, nil
}

// formatMemories renders each fact as "<display> [Reference: '<sentence>']",
// or just the display label when no reference survives, joined into one
// block.
func formatMemories(facts []*store.Fact) string {
	if len(facts) == 0 {
		return ""
	}

	entries := make([]string, 0, len(facts))
	for _, fact := range facts {
		entry := fact.Display()
		if fact.ReferenceSentence != "" {
			entry = fmt.Sprintf("%s [Reference: '%s']", entry, fact.ReferenceSentence)
		}
		entries = append(entries, entry)
	}
	return strings.Join(entries, " ")
}

// augmentMessage injects the stored-fact block into the user message inside
// a clearly delimited marker so the model can distinguish ground truth from
// conversation.
func augmentMessage(message, memoriesContext string) string {
	if memoriesContext == "" {
		return message
	}
	return fmt.Sprintf(
		"%s\n\n[STORED MEMORIES from previous conversations:\n%s\nUse these memories to answer the user's question if relevant.]",
		message, memoriesContext,
	)
}
