// Package turn drives the request-level state machine for one chat
// exchange: compose context, invoke the model under the failover policy,
// extract new facts post-hoc, commit accepted facts and the turn log, and
// return a structured result.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/memorychat/ai/compose"
	"github.com/hrygo/memorychat/ai/core/llm"
	"github.com/hrygo/memorychat/ai/extract"
	"github.com/hrygo/memorychat/ai/failover"
	"github.com/hrygo/memorychat/ai/metrics"
	"github.com/hrygo/memorychat/catalog"
	"github.com/hrygo/memorychat/store"
)

// minConfidence is the persistence threshold: entities below it are parsed
// but never committed.
const minConfidence = 0.5

// extractionTimeout bounds the post-hoc extraction call. It runs on a
// detached context so a client disconnect after the primary response does
// not abort memory bookkeeping.
const extractionTimeout = 90 * time.Second

// Store is the subset of store operations the orchestrator needs.
type Store interface {
	compose.FactStore
	CreateFact(ctx context.Context, create *store.Fact) (*store.Fact, error)
	CreateConversationTurns(ctx context.Context, creates []*store.ConversationTurn) error
	ListConversationTurns(ctx context.Context, find *store.FindConversationTurn) ([]*store.ConversationTurn, error)
	MaxSequence(ctx context.Context, threadID string) (int64, error)
}

// Request is one inbound chat turn.
type Request struct {
	Message         string
	UserID          string
	MemorySource    string
	Messages        []compose.TurnView
	SelectedService string
}

// Result is the structured outcome of a completed turn.
type Result struct {
	Response        string
	MemoriesUsed    []*store.Fact
	FactsExtracted  []string
	ModeTransitions []string
}

type Orchestrator struct {
	llm           llm.Invoker
	pool          *failover.Pool
	composer      *compose.Composer
	extractor     *extract.Extractor
	store         Store
	catalog       *catalog.Catalog
	metrics       *metrics.Registry
	extractionSem *semaphore.Weighted
}

func NewOrchestrator(
	invoker llm.Invoker,
	pool *failover.Pool,
	composer *compose.Composer,
	extractor *extract.Extractor,
	st Store,
	cat *catalog.Catalog,
	reg *metrics.Registry,
	extractionConcurrency int,
) *Orchestrator {
	if extractionConcurrency <= 0 {
		extractionConcurrency = 4
	}
	return &Orchestrator{
		llm:           invoker,
		pool:          pool,
		composer:      composer,
		extractor:     extractor,
		store:         st,
		catalog:       cat,
		metrics:       reg,
		extractionSem: semaphore.NewWeighted(int64(extractionConcurrency)),
	}
}

// Run executes one turn. The returned error is either a
// *failover.ExhaustedError (rate limit, pool exhausted) or an internal
// failure; extraction problems never surface here.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*Result, error) {
	mode := compose.NormalizeMode(req.MemorySource)
	threadID := compose.ThreadID(req.UserID, mode)
	turnID := uuid.NewString()

	slog.Debug("turn: starting",
		"turn_id", turnID,
		"user_id", req.UserID,
		"mode", mode,
		"thread_id", threadID,
	)

	history, err := o.resolveHistory(ctx, req, mode, threadID)
	if err != nil {
		o.metrics.TurnCompleted(string(mode), "error")
		return nil, err
	}

	var servicePrompt string
	if req.SelectedService != "" && o.catalog != nil {
		servicePrompt = o.catalog.Prompt(req.SelectedService)
	}

	composed, err := o.composer.Compose(ctx, &compose.Request{
		UserID:        req.UserID,
		Mode:          mode,
		Message:       req.Message,
		History:       history,
		ServicePrompt: servicePrompt,
	})
	if err != nil {
		o.metrics.TurnCompleted(string(mode), "error")
		return nil, fmt.Errorf("failed to compose context: %w", err)
	}

	response, cursor, err := o.invokeWithFailover(ctx, composed.Messages)
	if err != nil {
		var exhausted *failover.ExhaustedError
		if errors.As(err, &exhausted) {
			o.metrics.TurnCompleted(string(mode), "rate_limited")
		} else {
			o.metrics.TurnCompleted(string(mode), "error")
		}
		return nil, err
	}

	result := &Result{
		Response:        response,
		MemoriesUsed:    composed.MemoriesUsed,
		FactsExtracted:  []string{},
		ModeTransitions: modeTransitions(mode),
	}

	// Memory extraction only participates when the long-term tier does, and
	// its failure never moves the turn to a failed state.
	if mode.IncludesLong() {
		result.FactsExtracted = o.extractAndCommit(ctx, req, history, cursor.Credential())
	}

	if err := o.appendTurns(ctx, threadID, req.Message, response); err != nil {
		o.metrics.TurnCompleted(string(mode), "error")
		return nil, err
	}

	o.metrics.TurnCompleted(string(mode), "ok")
	slog.Debug("turn: done",
		"turn_id", turnID,
		"user_id", req.UserID,
		"memories_used", len(result.MemoriesUsed),
		"facts_extracted", len(result.FactsExtracted),
	)
	return result, nil
}

// resolveHistory prefers client-provided messages; when absent and the
// short-term tier participates, it falls back to the thread's turn log.
func (o *Orchestrator) resolveHistory(ctx context.Context, req *Request, mode compose.Mode, threadID string) ([]compose.TurnView, error) {
	if len(req.Messages) > 0 || !mode.IncludesShort() {
		return req.Messages, nil
	}

	limit := o.composer.ShortTermLimit()
	turns, err := o.store.ListConversationTurns(ctx, &store.FindConversationTurn{
		ThreadID: &threadID,
		Limit:    &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	history := make([]compose.TurnView, 0, len(turns))
	for _, t := range turns {
		history = append(history, compose.TurnView{Role: t.Role, Content: t.Content})
	}
	return history, nil
}

// invokeWithFailover calls the model under the active credential, rotating
// forward on rate limits until success or pool exhaustion.
func (o *Orchestrator) invokeWithFailover(ctx context.Context, messages []llm.Message) (string, *failover.Cursor, error) {
	cursor := o.pool.Cursor()

	for {
		startTime := time.Now()
		response, err := o.llm.Invoke(ctx, messages, cursor.Credential())
		o.metrics.ObserveModelLatency(time.Since(startTime).Seconds())

		if err == nil {
			cursor.Commit()
			return response, cursor, nil
		}

		var rateLimited *llm.RateLimitError
		if !errors.As(err, &rateLimited) {
			return "", nil, fmt.Errorf("model call failed: %w", err)
		}

		o.metrics.FailoverRotation()
		slog.Warn("turn: credential rate limited, rotating",
			"credential", llm.MaskCredential(cursor.Credential()),
			"index", cursor.Index(),
			"pool_size", o.pool.Size(),
		)

		if !cursor.Next() {
			return "", nil, cursor.Exhausted(rateLimited.WaitHint())
		}
	}
}

// extractAndCommit runs the post-hoc extraction under a concurrency bound
// and persists accepted entities. All failures are soft.
func (o *Orchestrator) extractAndCommit(ctx context.Context, req *Request, history []compose.TurnView, credential string) []string {
	// Detach from the request context: a disconnecting caller should not
	// abort bookkeeping for a turn whose response already completed.
	extractCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), extractionTimeout)
	defer cancel()

	if err := o.extractionSem.Acquire(extractCtx, 1); err != nil {
		slog.Warn("turn: extraction concurrency wait aborted", "user_id", req.UserID, "error", err)
		o.metrics.ExtractionFailure()
		return []string{}
	}
	defer o.extractionSem.Release(1)

	recent := make([]extract.TurnView, 0, len(history))
	for _, t := range history {
		recent = append(recent, extract.TurnView{Role: t.Role, Content: t.Content})
	}

	extraction := o.extractor.Extract(extractCtx, req.Message, recent, req.UserID, credential)
	if extraction == nil {
		o.metrics.ExtractionFailure()
		return []string{}
	}
	if !extraction.ShouldStore || len(extraction.Entities) == 0 {
		slog.Debug("turn: no memorable information to store",
			"user_id", req.UserID,
			"should_store", extraction.ShouldStore,
			"entities", len(extraction.Entities),
		)
		return []string{}
	}

	factsExtracted := []string{}
	persisted := 0
	for _, entity := range extraction.Entities {
		// Low-confidence entities are dropped here, at commit time, so the
		// batch summary and importance remain attributable to the parse.
		if entity.Confidence < minConfidence {
			continue
		}

		fact := &store.Fact{
			ID:                shortuuid.New(),
			Category:          store.NamespaceCategory,
			UserID:            req.UserID,
			Type:              store.FactType(entity.Type),
			Value:             entity.Value,
			Confidence:        entity.Confidence,
			Importance:        extraction.Importance,
			TemporalStatus:    temporalStatus(entity.TemporalStatus),
			ReferenceSentence: entity.ReferenceSentence,
			OriginMessage:     req.Message,
			Context:           entityContext(entity, extraction),
			CreatedTs:         time.Now().Unix(),
		}
		if _, err := o.store.CreateFact(extractCtx, fact); err != nil {
			slog.Warn("turn: failed to persist fact",
				"user_id", req.UserID,
				"type", entity.Type,
				"error", err,
			)
			continue
		}
		persisted++
		factsExtracted = append(factsExtracted,
			fmt.Sprintf("%s: %s (confidence: %.2f)", entity.Type, entity.Value, entity.Confidence))
	}
	o.metrics.FactsPersisted(persisted)

	if len(factsExtracted) > 0 && extraction.Summary != "" {
		factsExtracted = append([]string{"[LLM Extraction] " + extraction.Summary}, factsExtracted...)
	}
	return factsExtracted
}

// appendTurns writes the user and assistant turns to the thread's log as one
// atomic exchange.
func (o *Orchestrator) appendTurns(ctx context.Context, threadID, userMessage, assistantResponse string) error {
	maxSeq, err := o.store.MaxSequence(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to resolve turn sequence: %w", err)
	}

	now := time.Now().Unix()
	if err := o.store.CreateConversationTurns(ctx, []*store.ConversationTurn{
		{
			ThreadID:  threadID,
			Sequence:  maxSeq + 1,
			Role:      store.RoleUser,
			Content:   userMessage,
			CreatedTs: now,
		},
		{
			ThreadID:  threadID,
			Sequence:  maxSeq + 2,
			Role:      store.RoleAssistant,
			Content:   assistantResponse,
			CreatedTs: now,
		},
	}); err != nil {
		return fmt.Errorf("failed to append conversation turns: %w", err)
	}
	return nil
}

func temporalStatus(raw string) store.TemporalStatus {
	switch store.TemporalStatus(raw) {
	case store.TemporalPast, store.TemporalCurrent, store.TemporalFuture:
		return store.TemporalStatus(raw)
	default:
		return store.TemporalNone
	}
}

func entityContext(entity extract.Entity, extraction *extract.Extraction) string {
	if entity.Context != "" {
		return entity.Context
	}
	return extraction.Summary
}

func modeTransitions(mode compose.Mode) []string {
	if mode == compose.ModeShort {
		return []string{"short_term"}
	}
	return []string{"long_term"}
}
