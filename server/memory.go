package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/memorychat/internal/version"
	"github.com/hrygo/memorychat/store"
)

func (s *Server) health(c echo.Context) error {
	payload := map[string]any{
		"status":  "ok",
		"message": "memory chat api is running",
		"version": version.GetCurrentVersion(s.profile.Mode),
		"build":   version.String(),
	}
	if s.profile.InstanceURL != "" {
		payload["instance_url"] = s.profile.InstanceURL
	}
	return c.JSON(http.StatusOK, payload)
}

func (s *Server) getConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"short_term_message_limit": s.composer.ShortTermLimit(),
	})
}

// getConversation returns the short-term window for a user: the most recent
// turns of the shared thread, oldest first.
func (s *Server) getConversation(c echo.Context) error {
	userID := c.Param("user_id")
	limit := s.composer.ShortTermLimit()
	turns, err := s.store.ListConversationTurns(c.Request().Context(), &store.FindConversationTurn{
		ThreadID: &userID,
		Limit:    &limit,
	})
	if err != nil {
		slog.Error("failed to list conversation turns", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}

	messages := make([]map[string]any, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, map[string]any{
			"role":    t.Role,
			"content": t.Content,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"user_id":  userID,
		"total":    len(messages),
		"messages": messages,
	})
}

func (s *Server) getMemories(c echo.Context) error {
	userID := c.Param("user_id")
	facts, err := s.store.ListFacts(c.Request().Context(), &store.FindFact{UserID: &userID})
	if err != nil {
		slog.Error("failed to list memories", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}

	memories := make([]memoryPayload, 0, len(facts))
	for _, f := range facts {
		memories = append(memories, memoryPayload{Text: f.Display(), Metadata: factMetadata(f)})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"user_id":  userID,
		"total":    len(memories),
		"memories": memories,
	})
}

func (s *Server) deleteMemories(c echo.Context) error {
	userID := c.Param("user_id")
	deleted, err := s.store.DeleteFacts(c.Request().Context(), &store.DeleteFact{UserID: userID})
	if err != nil {
		slog.Error("failed to delete memories", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"user_id": userID,
		"deleted": deleted,
		"message": fmt.Sprintf("deleted %d memories for user %s", deleted, userID),
	})
}

// clearAllMemories wipes both memory tiers for every user.
func (s *Server) clearAllMemories(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.store.DeleteAllFacts(ctx); err != nil {
		slog.Error("failed to clear facts", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}
	if err := s.store.DeleteAllConversationTurns(ctx); err != nil {
		slog.Error("failed to clear conversation turns", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "success",
		"message": "all memories and conversations cleared",
	})
}

// inspectMemories is a debugging view over the fact table, optionally scoped
// to one user via ?user_id= or to one fact via ?id=.
func (s *Server) inspectMemories(c echo.Context) error {
	find := &store.FindFact{}
	if userID := c.QueryParam("user_id"); userID != "" {
		find.UserID = &userID
	}
	if id := c.QueryParam("id"); id != "" {
		find.ID = &id
	}
	facts, err := s.store.ListFacts(c.Request().Context(), find)
	if err != nil {
		slog.Error("failed to inspect memories", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}

	memories := make([]memoryPayload, 0, len(facts))
	for _, f := range facts {
		memories = append(memories, memoryPayload{Text: f.Display(), Metadata: factMetadata(f)})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"total":    len(memories),
		"memories": memories,
	})
}

// getMemoryBank renders a user's facts as a small set of markdown documents,
// grouped by fact type.
func (s *Server) getMemoryBank(c echo.Context) error {
	userID := c.Param("user_id")
	facts, err := s.store.ListFacts(c.Request().Context(), &store.FindFact{UserID: &userID})
	if err != nil {
		slog.Error("failed to build memory bank", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}

	grouped := make(map[store.FactType][]*store.Fact)
	for _, f := range facts {
		grouped[f.Type] = append(grouped[f.Type], f)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Knowledge Base for %s\n", userID))
	for _, t := range []store.FactType{
		store.FactTypePersonName, store.FactTypeAge, store.FactTypeProfession,
		store.FactTypeLocation, store.FactTypePreference, store.FactTypeRelationship,
		store.FactTypeFact,
	} {
		entries := grouped[t]
		if len(entries) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n## %s\n", t))
		for _, f := range entries {
			sb.WriteString(fmt.Sprintf("- %s [Reference: '%s']\n", f.Display(), f.ReferenceSentence))
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user_id": userID,
		"total":   len(facts),
		"files": map[string]string{
			"knowledge_base.md": sb.String(),
		},
	})
}

// listServices exposes the selectable service catalog. Prompt text stays
// server-side.
func (s *Server) listServices(c echo.Context) error {
	services := s.catalog.Services()
	out := make([]map[string]string, 0, len(services))
	for _, svc := range services {
		out = append(out, map[string]string{"id": svc.ID, "name": svc.Name})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"services": out,
	})
}

// listUsers enumerates every user that has at least one stored fact.
func (s *Server) listUsers(c echo.Context) error {
	facts, err := s.store.ListFacts(c.Request().Context(), &store.FindFact{})
	if err != nil {
		slog.Error("failed to list users", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}

	seen := make(map[string]bool)
	users := make([]string, 0)
	for _, f := range facts {
		if !seen[f.UserID] {
			seen[f.UserID] = true
			users = append(users, f.UserID)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"total": len(users),
		"users": users,
	})
}
