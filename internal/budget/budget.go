// Package budget enforces per-tier and global token budgets on retrieved
// context before it is injected into a prompt.
//
// Content arrives as four named tiers (history, today, threads,
// last_conversation). Each tier is first truncated to its own soft budget,
// then a second pass reduces tiers in fixed priority order until the
// combined total fits under the hard cap. Truncation is lossy by design
// and never fails; every cut is recorded for observability.
package budget

import (
	"github.com/auralabs/aura/internal/tokens"
)

// Tier names used in truncation audit entries.
const (
	TierHistory          = "history"
	TierToday            = "today"
	TierThreads          = "threads"
	TierLastConversation = "last_conversation"
)

// Default budgets in tokens.
const (
	DefaultHistoryBudget          = 3000
	DefaultTodayBudget            = 500
	DefaultThreadsBudget          = 400
	DefaultLastConversationBudget = 300
	DefaultHardCap                = 6150

	// HistoryFloor is the minimum history size preserved even when the
	// hard cap is exceeded. The cap can be violated by at most the
	// shortfall needed to hold history at this floor.
	HistoryFloor = 100
)

// Budgets holds the per-tier soft budgets and the global hard cap.
type Budgets struct {
	History          int `yaml:"history"`
	Today            int `yaml:"today"`
	Threads          int `yaml:"threads"`
	LastConversation int `yaml:"last_conversation"`
	HardCap          int `yaml:"hard_cap"`
}

// DefaultBudgets returns the default tier budgets.
func DefaultBudgets() Budgets {
	return Budgets{
		History:          DefaultHistoryBudget,
		Today:            DefaultTodayBudget,
		Threads:          DefaultThreadsBudget,
		LastConversation: DefaultLastConversationBudget,
		HardCap:          DefaultHardCap,
	}
}

// TierContent holds the raw, unbounded text for each tier. Constructed
// fresh per request by the caller; Allocate never mutates it.
type TierContent struct {
	History          string `json:"history,omitempty"`
	Today            string `json:"today,omitempty"`
	Threads          string `json:"threads,omitempty"`
	LastConversation string `json:"last_conversation,omitempty"`
}

// TruncationEntry records one tier's cut for the audit trail.
type TruncationEntry struct {
	OriginalTokens int `json:"original_tokens"`
	ReducedBy      int `json:"reduced_by"`
	NewTokens      int `json:"new_tokens"`
}

// TokenUsageResult is the outcome of one allocation pass. Immutable
// after return.
type TokenUsageResult struct {
	HistoryTokens          int `json:"history_tokens"`
	TodayTokens            int `json:"today_tokens"`
	ThreadsTokens          int `json:"threads_tokens"`
	LastConversationTokens int `json:"last_conversation_tokens"`
	TotalTokens            int `json:"total_tokens"`

	Truncated   bool                       `json:"truncated"`
	Truncations map[string]TruncationEntry `json:"truncations,omitempty"`

	History          string `json:"history"`
	Today            string `json:"today"`
	Threads          string `json:"threads"`
	LastConversation string `json:"last_conversation"`
}

// Manager applies tier budgets and the hard cap.
type Manager struct {
	budgets   Budgets
	estimator *tokens.Estimator
}

// NewManager creates a Manager with the given budgets. Zero-valued fields
// in budgets fall back to the defaults.
func NewManager(budgets Budgets, estimator *tokens.Estimator) *Manager {
	def := DefaultBudgets()
	if budgets.History <= 0 {
		budgets.History = def.History
	}
	if budgets.Today <= 0 {
		budgets.Today = def.Today
	}
	if budgets.Threads <= 0 {
		budgets.Threads = def.Threads
	}
	if budgets.LastConversation <= 0 {
		budgets.LastConversation = def.LastConversation
	}
	if budgets.HardCap <= 0 {
		budgets.HardCap = def.HardCap
	}
	if estimator == nil {
		estimator = tokens.NewEstimator()
	}
	return &Manager{budgets: budgets, estimator: estimator}
}
