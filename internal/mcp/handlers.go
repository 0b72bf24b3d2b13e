package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/auralabs/aura/internal/budget"
	"github.com/auralabs/aura/internal/composer"
	"github.com/auralabs/aura/internal/config"
	"github.com/auralabs/aura/internal/errors"
	"github.com/auralabs/aura/internal/memory"
	"github.com/auralabs/aura/internal/persona"
	"github.com/auralabs/aura/internal/retrieval"
	"github.com/auralabs/aura/internal/situation"
	"github.com/auralabs/aura/internal/triggers"
)

// defaultRecallLimit caps memory_recall when no limit is given.
const defaultRecallLimit = 10

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	cfg      *config.Config
	store    *memory.Store
	composer *composer.Composer
	detector *triggers.Detector
	budget   *budget.Manager
}

// NewHandlers wires the composition pipeline from config. The store may
// be nil; memory tools then report an invalid request instead of
// panicking.
func NewHandlers(cfg *config.Config, store *memory.Store) (*Handlers, error) {
	patterns, err := cfg.PatternSet()
	if err != nil {
		return nil, err
	}

	mgr := budget.NewManager(cfg.Budgets, nil)
	loader := persona.NewIdentityLoader(cfg.Identity, mgr.Estimator())
	return &Handlers{
		cfg:      cfg,
		store:    store,
		composer: composer.New(loader, cfg.StageTable(), mgr, mgr.Estimator()),
		detector: triggers.NewDetector(patterns),
		budget:   mgr,
	}, nil
}

// Request types for each tool

// ComposeRequest represents the arguments for context_compose.
type ComposeRequest struct {
	UserID             string                     `json:"user_id"`
	Stage              int                        `json:"stage"`
	EmotionalState     *persona.EmotionalState    `json:"emotional_state,omitempty"`
	Package            *retrieval.ContextPackage  `json:"package,omitempty"`
	CurrentTime        string                     `json:"current_time,omitempty"`
	LastInteraction    string                     `json:"last_interaction,omitempty"`
	ConversationActive bool                       `json:"conversation_active,omitempty"`
	Message            string                     `json:"message,omitempty"`
	CurrentMood        string                     `json:"current_mood,omitempty"`
}

// SituationRequest represents the arguments for context_situation.
type SituationRequest struct {
	CurrentTime        string `json:"current_time,omitempty"`
	LastInteraction    string `json:"last_interaction,omitempty"`
	ConversationActive bool   `json:"conversation_active,omitempty"`
}

// DetectRequest represents the arguments for context_detect_triggers.
type DetectRequest struct {
	Message     string `json:"message"`
	CurrentMood string `json:"current_mood,omitempty"`
}

// BudgetRequest represents the arguments for context_budget.
type BudgetRequest struct {
	History          string `json:"history,omitempty"`
	Today            string `json:"today,omitempty"`
	Threads          string `json:"threads,omitempty"`
	LastConversation string `json:"last_conversation,omitempty"`
}

// RememberRequest represents the arguments for memory_remember.
type RememberRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// RecallRequest represents the arguments for memory_recall.
type RecallRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// composeResponse is the context_compose payload: the composition result
// plus any modifications detected from the message.
type composeResponse struct {
	composer.Result
	Modifications []triggers.Modification `json:"modifications,omitempty"`
}

// situationResponse is the context_situation payload.
type situationResponse struct {
	Situation situation.Situation `json:"situation"`
	Text      string              `json:"text"`
	Guidance  situation.Guidance  `json:"guidance"`
}

// Handler implementations

// HandleCompose handles the context_compose tool call.
func (h *Handlers) HandleCompose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ComposeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	now, err := parseTime(input.CurrentTime)
	if err != nil {
		return errorResult(errors.NewInvalidRequest("invalid current_time: " + err.Error())), nil
	}
	last, err := parseTimePtr(input.LastInteraction)
	if err != nil {
		return errorResult(errors.NewInvalidRequest("invalid last_interaction: " + err.Error())), nil
	}

	result, err := h.composer.Compose(composer.Input{
		UserID:             input.UserID,
		Stage:              input.Stage,
		Emotional:          input.EmotionalState,
		Package:            input.Package,
		Now:                now,
		LastInteraction:    last,
		ConversationActive: input.ConversationActive,
	})
	if err != nil {
		return errorResult(err), nil
	}

	var mods []triggers.Modification
	if input.Message != "" {
		mods = h.detector.Detect(input.Message, input.CurrentMood)
		if len(mods) > 0 {
			result = h.applyModifications(ctx, input.UserID, result, mods)
		}
	}

	return successResult(composeResponse{Result: *result, Modifications: mods})
}

// applyModifications runs the detected modifications against the result,
// bounding memory lookups by the configured retrieval timeout.
func (h *Handlers) applyModifications(ctx context.Context, userID string, result *composer.Result, mods []triggers.Modification) *composer.Result {
	var searcher triggers.MemorySearcher
	if h.store != nil {
		searcher = triggers.SearcherFunc(h.store.SearchContents)
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.RetrievalTimeout())
	defer cancel()
	return h.composer.ApplyModifications(ctx, searcher, userID, result, mods)
}

// HandleSituation handles the context_situation tool call.
func (h *Handlers) HandleSituation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SituationRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	now, err := parseTime(input.CurrentTime)
	if err != nil {
		return errorResult(errors.NewInvalidRequest("invalid current_time: " + err.Error())), nil
	}
	if now.IsZero() {
		now = time.Now()
	}
	last, err := parseTimePtr(input.LastInteraction)
	if err != nil {
		return errorResult(errors.NewInvalidRequest("invalid last_interaction: " + err.Error())), nil
	}

	s := situation.Detect(now, last, input.ConversationActive)
	return successResult(situationResponse{
		Situation: s,
		Text:      situation.Text(s),
		Guidance:  situation.Hints(s),
	})
}

// HandleDetectTriggers handles the context_detect_triggers tool call.
func (h *Handlers) HandleDetectTriggers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DetectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Message == "" {
		return errorResult(errors.NewInvalidRequest("message is required")), nil
	}

	mods := h.detector.Detect(input.Message, input.CurrentMood)
	return successResult(map[string]any{"modifications": mods})
}

// HandleBudget handles the context_budget tool call.
func (h *Handlers) HandleBudget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BudgetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	usage := h.budget.Allocate(budget.TierContent{
		History:          input.History,
		Today:            input.Today,
		Threads:          input.Threads,
		LastConversation: input.LastConversation,
	})
	return successResult(usage)
}

// HandleRemember handles the memory_remember tool call.
func (h *Handlers) HandleRemember(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RememberRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if h.store == nil {
		return errorResult(errors.NewInvalidRequest("no memory store configured")), nil
	}

	fact, err := h.store.Remember(ctx, input.UserID, input.Content)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(fact)
}

// HandleRecall handles the memory_recall tool call.
func (h *Handlers) HandleRecall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecallRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if h.store == nil {
		return errorResult(errors.NewInvalidRequest("no memory store configured")), nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	var facts []memory.Fact
	if input.Query != "" {
		facts, err = h.store.Search(ctx, input.UserID, input.Query, limit)
	} else {
		facts, err = h.store.Recent(ctx, input.UserID, limit)
	}
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"facts": facts, "count": len(facts)})
}

// Time parsing helpers

// parseTime parses an optional RFC3339 timestamp; empty means zero.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// parseTimePtr parses an optional RFC3339 timestamp; empty means nil.
func parseTimePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if auraErr, ok := err.(*errors.AuraError); ok {
		errorObj := map[string]any{
			"code":    auraErr.Code,
			"message": auraErr.Message,
			"status":  auraErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if auraErr.Code != errors.ErrInternal && auraErr.Details != nil {
			errorObj["details"] = auraErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
