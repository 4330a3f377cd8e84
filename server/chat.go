package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/memorychat/ai/compose"
	"github.com/hrygo/memorychat/ai/failover"
	"github.com/hrygo/memorychat/ai/turn"
	"github.com/hrygo/memorychat/store"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message      string        `json:"message"`
	UserID       string        `json:"user_id"`
	MemorySource string        `json:"memory_source"`
	Messages     []chatMessage `json:"messages"`
	// ModeType is accepted for wire compatibility; the memory tiers are
	// selected by MemorySource alone.
	ModeType        string `json:"mode_type"`
	SelectedService string `json:"selected_service"`
}

type chatResponse struct {
	Response        string          `json:"response"`
	MemoriesUsed    []memoryPayload `json:"memories_used"`
	FactsExtracted  []string        `json:"facts_extracted"`
	ModeTransitions []string        `json:"mode_transitions"`
}

// memoryPayload is the API shape of one long-term fact: a display line plus
// the full metadata record.
type memoryPayload struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "message is required"})
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "user_id is required"})
	}

	history := make([]compose.TurnView, 0, len(req.Messages))
	for _, m := range req.Messages {
		history = append(history, compose.TurnView{Role: m.Role, Content: m.Content})
	}

	result, err := s.orchestrator.Run(c.Request().Context(), &turn.Request{
		Message:         req.Message,
		UserID:          req.UserID,
		MemorySource:    req.MemorySource,
		Messages:        history,
		SelectedService: req.SelectedService,
	})
	if err != nil {
		var exhausted *failover.ExhaustedError
		if errors.As(err, &exhausted) {
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error":          exhausted.Error(),
				"wait_hint":      exhausted.WaitHint,
				"credential_ref": exhausted.CredentialRef,
			})
		}
		slog.Error("chat turn failed", "user_id", req.UserID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}

	memories := make([]memoryPayload, 0, len(result.MemoriesUsed))
	for _, f := range result.MemoriesUsed {
		memories = append(memories, memoryPayload{Text: f.Display(), Metadata: factMetadata(f)})
	}

	return c.JSON(http.StatusOK, &chatResponse{
		Response:        result.Response,
		MemoriesUsed:    memories,
		FactsExtracted:  result.FactsExtracted,
		ModeTransitions: result.ModeTransitions,
	})
}

func factMetadata(f *store.Fact) map[string]any {
	return map[string]any{
		"id":                 f.ID,
		"user_id":            f.UserID,
		"entity_type":        string(f.Type),
		"entity_value":       f.Value,
		"confidence":         f.Confidence,
		"importance":         f.Importance,
		"temporal_status":    string(f.TemporalStatus),
		"reference_sentence": f.ReferenceSentence,
		"original_message":   f.OriginMessage,
		"context":            f.Context,
		"created_ts":         f.CreatedTs,
	}
}
