// Package extract turns a raw user utterance plus recent conversational
// context into typed, confidence-scored, temporally-qualified facts by
// delegating to a model call constrained to a strict JSON contract.
//
// Extraction is memory bookkeeping: it must never fail the enclosing
// user-facing turn. Every failure path here is soft: logged and reported
// as a nil result.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/memorychat/ai/core/llm"
)

// contextWindow bounds how many recent turns accompany the new message.
const contextWindow = 5

// Entity is one fact-like record produced by the model.
type Entity struct {
	Type              string  `json:"type"`
	Value             string  `json:"value"`
	Confidence        float64 `json:"confidence"`
	Context           string  `json:"context,omitempty"`
	TemporalStatus    string  `json:"temporal_status,omitempty"`
	ReferenceSentence string  `json:"reference_sentence,omitempty"`
}

// Extraction is the full result of one extraction call. Entities below the
// persistence confidence threshold are kept here so the summary and
// importance stay attributable; the commit step filters them.
type Extraction struct {
	Entities    []Entity `json:"entities"`
	Summary     string   `json:"summary"`
	Importance  float64  `json:"importance"`
	ShouldStore bool     `json:"should_store"`
}

// TurnView is the minimal role/content view of a prior turn.
type TurnView struct {
	Role    string
	Content string
}

type Extractor struct {
	llm llm.Invoker
}

func NewExtractor(invoker llm.Invoker) *Extractor {
	return &Extractor{llm: invoker}
}

// Extract issues exactly one structured model call and parses the response
// defensively. A nil result means "nothing to store", whether because the
// model found nothing, the output was malformed, or the upstream call
// failed. None of these conditions propagate to the caller.
func (e *Extractor) Extract(ctx context.Context, message string, recentTurns []TurnView, userID string, credential string) *Extraction {
	prompt := fmt.Sprintf(extractionPromptTemplate, buildContext(message, recentTurns))

	messages := []llm.Message{
		llm.SystemPrompt(extractionSystemPrompt),
		llm.UserMessage(prompt),
	}

	content, err := e.llm.InvokeStructured(ctx, messages, credential)
	if err != nil {
		if llm.IsRateLimited(err) {
			slog.Warn("extract: model rate limited, skipping memory extraction", "user_id", userID)
		} else {
			slog.Warn("extract: model call failed, skipping memory extraction", "user_id", userID, "error", err)
		}
		return nil
	}

	extraction, err := parseExtraction(content)
	if err != nil {
		slog.Warn("extract: failed to parse model response",
			"user_id", userID,
			"error", err,
			"response_prefix", truncate(content, 200),
		)
		return nil
	}

	slog.Debug("extract: completed",
		"user_id", userID,
		"entities", len(extraction.Entities),
		"importance", extraction.Importance,
		"should_store", extraction.ShouldStore,
	)
	return extraction
}

// buildContext renders the last few turns plus the new message the way the
// extraction prompt expects.
func buildContext(message string, recentTurns []TurnView) string {
	if len(recentTurns) > contextWindow {
		recentTurns = recentTurns[len(recentTurns)-contextWindow:]
	}

	var b strings.Builder
	for _, turn := range recentTurns {
		role := "Assistant"
		if turn.Role == "user" {
			role = "User"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(message)
	b.WriteString("\n")
	return b.String()
}

// parseExtraction strips optional fenced-code-block markers and decodes the
// JSON contract.
func parseExtraction(content string) (*Extraction, error) {
	content = stripFences(content)

	var extraction Extraction
	if err := json.Unmarshal([]byte(content), &extraction); err != nil {
		return nil, err
	}
	return &extraction, nil
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	parts := strings.Split(content, "```")
	if len(parts) < 2 {
		return content
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
