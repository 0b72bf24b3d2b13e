package composer_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auralabs/aura/internal/budget"
	"github.com/auralabs/aura/internal/composer"
	"github.com/auralabs/aura/internal/config"
	"github.com/auralabs/aura/internal/memory"
	"github.com/auralabs/aura/internal/persona"
	"github.com/auralabs/aura/internal/retrieval"
	"github.com/auralabs/aura/internal/situation"
	"github.com/auralabs/aura/internal/triggers"
)

// TestFullTurnWorkflow exercises a complete turn:
// remember facts → compose with package → detect triggers → apply
// modifications with a live memory lookup.
func TestFullTurnWorkflow(t *testing.T) {
	store, err := memory.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	cfg := config.DefaultConfig()
	patterns, err := cfg.PatternSet()
	require.NoError(t, err)

	mgr := budget.NewManager(cfg.Budgets, nil)
	loader := persona.NewIdentityLoader(cfg.Identity, mgr.Estimator())
	c := composer.New(loader, cfg.StageTable(), mgr, mgr.Estimator())
	detector := triggers.NewDetector(patterns)

	ctx := context.Background()
	userID := "workflow-user"

	// 1. Remember some facts
	_, err = store.Remember(ctx, userID, "her sister Dana moved to Lisbon")
	require.NoError(t, err)
	fact, err := store.Remember(ctx, userID, "she is training for a half marathon")
	require.NoError(t, err)
	require.NotEmpty(t, fact.ID)

	// 2. Compose an evening turn with a retrieved package
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	last := now.Add(-30 * time.Minute)
	pkg := &retrieval.ContextPackage{
		UserID:         userID,
		CreatedAt:      now.Add(-time.Hour),
		ExpiresAt:      now.Add(time.Hour),
		Facts:          []string{"works as a nurse", "allergic to shellfish"},
		TodayNarrative: "Long shift; mentioned being nervous about tomorrow's race.",
		ActiveThreads: []retrieval.Thread{
			{Topic: "half marathon prep", Status: retrieval.ThreadOpen, LastMentioned: last},
		},
	}

	result, err := c.Compose(composer.Input{
		UserID:          userID,
		Stage:           4,
		Emotional:       &persona.EmotionalState{Arousal: 0.3, Valence: 0.6},
		Package:         pkg,
		Now:             now,
		LastInteraction: &last,
	})
	require.NoError(t, err)
	require.False(t, result.Degraded)
	require.False(t, result.PackageExpired)
	require.Equal(t, situation.Evening, result.Situation)
	require.Contains(t, result.Text, "shellfish")
	require.Contains(t, result.Text, "half marathon prep")
	require.LessOrEqual(t, result.Usage.TotalTokens, budget.DefaultHardCap)

	// 3. Detect triggers on the incoming message
	mods := detector.Detect("Remember when I told you about my sister?", "")
	require.Len(t, mods, 1)
	require.Equal(t, triggers.MemoryRetrieval, mods[0].Kind)

	// 4. Apply with a live memory lookup
	updated := c.ApplyModifications(ctx,
		triggers.SearcherFunc(store.SearchContents), userID, result, mods)
	require.Contains(t, updated.Text, "Lisbon")
	require.Greater(t, updated.TotalTokens, result.TotalTokens)
	require.Positive(t, updated.Layers.Modifications)

	// The composed prompt ends with the recalled section
	idx := strings.LastIndex(updated.Text, "Recalled just now")
	require.Greater(t, idx, strings.LastIndex(updated.Text, "shellfish"))
}

// TestOversizedPackageStaysUnderCap verifies the budget engine holds an
// oversized package under the hard cap end to end.
func TestOversizedPackageStaysUnderCap(t *testing.T) {
	cfg := config.DefaultConfig()
	mgr := budget.NewManager(cfg.Budgets, nil)
	loader := persona.NewIdentityLoader(cfg.Identity, mgr.Estimator())
	c := composer.New(loader, cfg.StageTable(), mgr, mgr.Estimator())

	facts := make([]string, 500)
	for i := range facts {
		facts[i] = strings.Repeat("an extremely detailed fact about their life. ", 3)
	}
	pkg := &retrieval.ContextPackage{
		UserID:         "u1",
		Facts:          facts,
		TodayNarrative: strings.Repeat("the day had many events. ", 200),
	}

	result, err := c.Compose(composer.Input{UserID: "u1", Stage: 2, Package: pkg})
	require.NoError(t, err)
	require.True(t, result.Usage.Truncated)
	require.LessOrEqual(t, result.Usage.TotalTokens, budget.DefaultHardCap)
	require.Contains(t, result.Usage.Truncations, budget.TierHistory)
}
