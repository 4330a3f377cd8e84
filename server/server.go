// Package server exposes the memory pipeline over a thin JSON HTTP shell.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/memorychat/ai/compose"
	"github.com/hrygo/memorychat/ai/core/llm"
	"github.com/hrygo/memorychat/ai/extract"
	"github.com/hrygo/memorychat/ai/failover"
	"github.com/hrygo/memorychat/ai/metrics"
	"github.com/hrygo/memorychat/ai/turn"
	"github.com/hrygo/memorychat/catalog"
	"github.com/hrygo/memorychat/internal/profile"
	"github.com/hrygo/memorychat/store"
)

type Server struct {
	echo    *echo.Echo
	profile *profile.Profile
	store   *store.Store

	catalog      *catalog.Catalog
	composer     *compose.Composer
	orchestrator *turn.Orchestrator
	metrics      *metrics.Registry
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	if !profile.IsAIEnabled() {
		return nil, errors.New("no LLM credential configured")
	}

	pool, err := failover.NewPool(profile.LLMAPIKeys)
	if err != nil {
		return nil, err
	}

	client := llm.NewClient(&llm.Config{
		Provider: profile.LLMProvider,
		Model:    profile.LLMModel,
		BaseURL:  profile.LLMBaseURL,
		Timeout:  profile.LLMTimeout,
	})

	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	registry := metrics.NewRegistry()
	composer := compose.NewComposer(store, profile.ShortTermMessageLimit)
	extractor := extract.NewExtractor(client)
	orchestrator := turn.NewOrchestrator(
		client, pool, composer, extractor, store, cat, registry,
		profile.ExtractionConcurrency,
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:         e,
		profile:      profile,
		store:        store,
		catalog:      cat,
		composer:     composer,
		orchestrator: orchestrator,
		metrics:      registry,
	}
	s.registerRoutes()

	slog.Info("server initialized",
		"mode", profile.Mode,
		"driver", profile.Driver,
		"llm_provider", profile.LLMProvider,
		"llm_model", profile.LLMModel,
		"credential_pool_size", pool.Size(),
		"short_term_limit", profile.ShortTermMessageLimit,
	)
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.health)
	s.echo.POST("/chat", s.chat)
	s.echo.GET("/conversation/:user_id", s.getConversation)
	s.echo.GET("/memories/:user_id", s.getMemories)
	s.echo.DELETE("/memories/:user_id", s.deleteMemories)
	s.echo.DELETE("/memories/all/clear", s.clearAllMemories)
	s.echo.GET("/memories/all/inspect", s.inspectMemories)
	s.echo.GET("/memory-bank/:user_id", s.getMemoryBank)
	s.echo.GET("/users/list", s.listUsers)
	s.echo.GET("/services", s.listServices)
	s.echo.GET("/api/config", s.getConfig)
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
}

// Start launches the HTTP listener. It returns immediately; server errors
// other than a normal shutdown are logged.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	go func() {
		if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped unexpectedly", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shutdown complete")
}
