package budget

import (
	"unicode/utf8"

	"github.com/auralabs/aura/internal/tokens"
)

// charsPerToken mirrors the fast estimator's heuristic: truncation cuts
// on a character boundary at budget*4 chars.
const charsPerToken = 4

// ellipsis marks a truncated tier. Skipped when the cut leaves 3 chars
// or fewer, where a marker would dominate the content.
const ellipsis = "..."

// minCharsForEllipsis is the cut length at or below which no marker is appended.
const minCharsForEllipsis = 3

// Allocate truncates each tier to its soft budget, then reduces tiers in
// priority order until the combined accurate token count fits under the
// hard cap. It always returns a best-effort result and never fails.
//
// The fast estimator drives every truncation decision; the accurate
// estimator is consulted once per tier to report final counts. History
// refuses to drop below HistoryFloor, so the hard cap may be exceeded by
// exactly the shortfall needed to preserve that floor.
func (m *Manager) Allocate(content TierContent) *TokenUsageResult {
	result := &TokenUsageResult{
		Truncations: make(map[string]TruncationEntry),
	}

	// Pass 1: independent per-tier truncation to soft budgets.
	result.History = m.truncateTier(TierHistory, content.History, m.budgets.History, result)
	result.Today = m.truncateTier(TierToday, content.Today, m.budgets.Today, result)
	result.Threads = m.truncateTier(TierThreads, content.Threads, m.budgets.Threads, result)
	result.LastConversation = m.truncateTier(TierLastConversation, content.LastConversation, m.budgets.LastConversation, result)

	result.HistoryTokens = m.estimator.Estimate(result.History, true)
	result.TodayTokens = m.estimator.Estimate(result.Today, true)
	result.ThreadsTokens = m.estimator.Estimate(result.Threads, true)
	result.LastConversationTokens = m.estimator.Estimate(result.LastConversation, true)
	result.TotalTokens = result.HistoryTokens + result.TodayTokens +
		result.ThreadsTokens + result.LastConversationTokens

	// Pass 2: hard-cap priority reduction, lowest-value tier first.
	if result.TotalTokens > m.budgets.HardCap {
		m.applyCapReductions(result)
	}

	if len(result.Truncations) == 0 {
		result.Truncations = nil
	}
	return result
}

// truncateTier cuts text to its soft budget and records the truncation.
// Returns the possibly-truncated text.
func (m *Manager) truncateTier(name, text string, budgetTokens int, result *TokenUsageResult) string {
	if text == "" {
		return ""
	}
	estimated := m.estimator.Estimate(text, false)
	if estimated <= budgetTokens {
		return text
	}

	truncated := cutAtTokenBoundary(text, budgetTokens)
	result.Truncated = true
	newTokens := m.estimator.Estimate(truncated, false)
	result.Truncations[name] = TruncationEntry{
		OriginalTokens: estimated,
		ReducedBy:      estimated - newTokens,
		NewTokens:      newTokens,
	}
	return truncated
}

// applyCapReductions runs the pure reduction plan over the current tier
// counts and applies it: token counts shrink, texts are re-cut to the
// reduced budgets, and audit entries are updated.
func (m *Manager) applyCapReductions(result *TokenUsageResult) {
	excess := result.TotalTokens - m.budgets.HardCap
	plan := ReduceForCap([]TierState{
		{Name: TierLastConversation, Tokens: result.LastConversationTokens},
		{Name: TierThreads, Tokens: result.ThreadsTokens},
		{Name: TierToday, Tokens: result.TodayTokens},
		{Name: TierHistory, Tokens: result.HistoryTokens, Floor: HistoryFloor},
	}, excess)

	for _, r := range plan {
		if r.ReduceBy <= 0 {
			continue
		}
		result.Truncated = true
		switch r.Name {
		case TierLastConversation:
			before := result.LastConversationTokens
			result.LastConversationTokens -= r.ReduceBy
			result.LastConversation = cutAtTokenBoundary(result.LastConversation, result.LastConversationTokens)
			recordReduction(result, r.Name, before, result.LastConversationTokens)
		case TierThreads:
			before := result.ThreadsTokens
			result.ThreadsTokens -= r.ReduceBy
			result.Threads = cutAtTokenBoundary(result.Threads, result.ThreadsTokens)
			recordReduction(result, r.Name, before, result.ThreadsTokens)
		case TierToday:
			before := result.TodayTokens
			result.TodayTokens -= r.ReduceBy
			result.Today = cutAtTokenBoundary(result.Today, result.TodayTokens)
			recordReduction(result, r.Name, before, result.TodayTokens)
		case TierHistory:
			before := result.HistoryTokens
			result.HistoryTokens -= r.ReduceBy
			result.History = cutAtTokenBoundary(result.History, result.HistoryTokens)
			recordReduction(result, r.Name, before, result.HistoryTokens)
		}
	}

	result.TotalTokens = result.HistoryTokens + result.TodayTokens +
		result.ThreadsTokens + result.LastConversationTokens
}

// recordReduction merges a priority-pass cut into the audit map. A tier
// already cut in the per-tier pass keeps its original count; only the
// final count and the cumulative reduction change.
func recordReduction(result *TokenUsageResult, name string, before, after int) {
	entry, ok := result.Truncations[name]
	if !ok {
		entry = TruncationEntry{OriginalTokens: before}
	}
	entry.NewTokens = after
	entry.ReducedBy = entry.OriginalTokens - after
	result.Truncations[name] = entry
}

// cutAtTokenBoundary truncates text to budgetTokens*4 characters, backing
// up to a rune start so multi-byte characters are never split. An ellipsis
// marker is appended unless the cut is 3 chars or shorter.
func cutAtTokenBoundary(text string, budgetTokens int) string {
	if budgetTokens <= 0 {
		return ""
	}
	maxChars := budgetTokens * charsPerToken
	if len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut <= minCharsForEllipsis {
		return text[:cut]
	}
	return text[:cut] + ellipsis
}

// Estimator exposes the manager's estimator for callers that report
// final counts alongside allocation results.
func (m *Manager) Estimator() *tokens.Estimator {
	return m.estimator
}

// HardCap returns the configured global ceiling.
func (m *Manager) HardCap() int {
	return m.budgets.HardCap
}
