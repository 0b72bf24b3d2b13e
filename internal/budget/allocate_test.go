package budget

import (
	"strings"
	"testing"

	"github.com/auralabs/aura/internal/tokens"
)

func newTestManager() *Manager {
	return NewManager(DefaultBudgets(), tokens.NewEstimator())
}

func TestAllocate_TotalEqualsSumOfTiers(t *testing.T) {
	m := newTestManager()

	cases := []TierContent{
		{},
		{History: "short history", Today: "short today"},
		{
			History:          strings.Repeat("a", 20000),
			Today:            strings.Repeat("b", 2000),
			Threads:          strings.Repeat("c", 1500),
			LastConversation: strings.Repeat("d", 1000),
		},
	}

	for i, tc := range cases {
		result := m.Allocate(tc)
		sum := result.HistoryTokens + result.TodayTokens +
			result.ThreadsTokens + result.LastConversationTokens
		if result.TotalTokens != sum {
			t.Errorf("case %d: TotalTokens = %d, sum of tiers = %d", i, result.TotalTokens, sum)
		}
	}
}

func TestAllocate_EmptyContent(t *testing.T) {
	m := newTestManager()
	result := m.Allocate(TierContent{})

	if result.TotalTokens != 0 {
		t.Errorf("TotalTokens = %d, want 0", result.TotalTokens)
	}
	if result.Truncated {
		t.Error("Truncated = true, want false")
	}
	if result.Truncations != nil {
		t.Errorf("Truncations = %v, want nil", result.Truncations)
	}
}

func TestAllocate_UnderBudgetPassesThrough(t *testing.T) {
	m := newTestManager()
	content := TierContent{
		History: "We talked about her new job at the hospital.",
		Today:   "She mentioned being tired this morning.",
	}
	result := m.Allocate(content)

	if result.History != content.History {
		t.Errorf("History modified: %q", result.History)
	}
	if result.Today != content.Today {
		t.Errorf("Today modified: %q", result.Today)
	}
	if result.Truncated {
		t.Error("Truncated = true for under-budget content")
	}
}

func TestAllocate_PerTierTruncation(t *testing.T) {
	m := newTestManager()
	// Today's soft budget is 500 tokens = 2000 chars.
	content := TierContent{Today: strings.Repeat("x", 5000)}
	result := m.Allocate(content)

	if !result.Truncated {
		t.Fatal("Truncated = false, want true")
	}
	if !strings.HasSuffix(result.Today, "...") {
		t.Errorf("truncated tier missing ellipsis marker: %q", result.Today[len(result.Today)-10:])
	}
	if len(result.Today) > 500*4+len("...") {
		t.Errorf("Today length = %d, want <= %d", len(result.Today), 500*4+3)
	}

	entry, ok := result.Truncations[TierToday]
	if !ok {
		t.Fatal("no truncation entry for today tier")
	}
	if entry.OriginalTokens <= entry.NewTokens {
		t.Errorf("entry = %+v, want original > new", entry)
	}
	if entry.ReducedBy != entry.OriginalTokens-entry.NewTokens {
		t.Errorf("ReducedBy = %d, want %d", entry.ReducedBy, entry.OriginalTokens-entry.NewTokens)
	}
}

func TestAllocate_HardCapEndToEnd(t *testing.T) {
	m := newTestManager()
	result := m.Allocate(TierContent{
		History:          strings.Repeat("a", 20000),
		Today:            strings.Repeat("b", 2000),
		Threads:          strings.Repeat("c", 1500),
		LastConversation: strings.Repeat("d", 1000),
	})

	if result.TotalTokens > DefaultHardCap {
		t.Errorf("TotalTokens = %d, want <= %d", result.TotalTokens, DefaultHardCap)
	}
	if !result.Truncated {
		t.Error("Truncated = false, want true")
	}
}

func TestAllocate_HardCapCutsLowValueTiersFirst(t *testing.T) {
	// Tight cap forces the priority pass: last_conversation must be
	// reduced at or before threads, threads at or before today, today
	// at or before history.
	m := NewManager(Budgets{
		History:          3000,
		Today:            500,
		Threads:          400,
		LastConversation: 300,
		HardCap:          3200,
	}, tokens.NewEstimator())

	result := m.Allocate(TierContent{
		History:          strings.Repeat("a", 20000),
		Today:            strings.Repeat("b", 4000),
		Threads:          strings.Repeat("c", 4000),
		LastConversation: strings.Repeat("d", 4000),
	})

	if result.TotalTokens > 3200 {
		t.Errorf("TotalTokens = %d, want <= 3200", result.TotalTokens)
	}
	// The excess is small enough that the low-value tiers absorb it all;
	// history keeps its full soft-budget allocation.
	if result.LastConversationTokens != 0 {
		t.Errorf("LastConversationTokens = %d, want 0 (cut first)", result.LastConversationTokens)
	}
}

func TestAllocate_HistoryFloorCanExceedCap(t *testing.T) {
	// Cap so tight that even zeroing the other three tiers leaves
	// history above it: history stops at the floor and the cap is
	// exceeded by exactly the shortfall.
	m := NewManager(Budgets{
		History:          3000,
		Today:            500,
		Threads:          400,
		LastConversation: 300,
		HardCap:          50,
	}, tokens.NewEstimator())

	result := m.Allocate(TierContent{
		History:          strings.Repeat("a", 20000),
		Today:            strings.Repeat("b", 4000),
		Threads:          strings.Repeat("c", 4000),
		LastConversation: strings.Repeat("d", 4000),
	})

	if result.HistoryTokens != HistoryFloor {
		t.Errorf("HistoryTokens = %d, want %d", result.HistoryTokens, HistoryFloor)
	}
	if result.TodayTokens != 0 || result.ThreadsTokens != 0 || result.LastConversationTokens != 0 {
		t.Errorf("non-history tiers not exhausted: %d/%d/%d",
			result.TodayTokens, result.ThreadsTokens, result.LastConversationTokens)
	}
	if result.TotalTokens != HistoryFloor {
		t.Errorf("TotalTokens = %d, want %d", result.TotalTokens, HistoryFloor)
	}
}

func TestCutAtTokenBoundary(t *testing.T) {
	// Under budget: unchanged, no marker.
	if got := cutAtTokenBoundary("abc", 10); got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}

	// Over budget: cut at budget*4 chars with marker.
	long := strings.Repeat("x", 100)
	got := cutAtTokenBoundary(long, 5)
	if got != strings.Repeat("x", 20)+"..." {
		t.Errorf("got %q (len %d), want 20 x's + ellipsis", got, len(got))
	}

	// Tiny cut: no marker at or below 3 chars.
	got = cutAtTokenBoundary("abcdefgh", 0)
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}

	// Multi-byte runes are never split.
	got = cutAtTokenBoundary(strings.Repeat("é", 50), 5)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("got %q, want ellipsis suffix", got)
	}
	for _, r := range got {
		if r == '�' {
			t.Error("cut produced an invalid rune")
		}
	}
}
