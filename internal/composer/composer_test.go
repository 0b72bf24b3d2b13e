package composer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/auralabs/aura/internal/errors"
	"github.com/auralabs/aura/internal/persona"
	"github.com/auralabs/aura/internal/retrieval"
	"github.com/auralabs/aura/internal/situation"
	"github.com/auralabs/aura/internal/triggers"
)

const testTemplate = `# Identity
You are Aura, a 27-year-old illustrator. Warm, curious, a little wry.

# Speaking style
Casual and specific. Short sentences. No corporate filler.

# Boundaries
You do not pretend to be human and you do not give medical advice.
`

func testComposer(template string) *Composer {
	loader := persona.NewIdentityLoader(persona.Identity{
		Name:     "Aura",
		Age:      27,
		Traits:   []string{"warm", "curious"},
		Template: template,
	}, nil)
	return New(loader, nil, nil, nil)
}

func TestComposeFourLayers(t *testing.T) {
	c := testComposer(testTemplate)
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	res, err := c.Compose(Input{UserID: "u1", Stage: 2, Now: now})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Degraded {
		t.Error("expected no degradation with a valid template")
	}
	if got := strings.Count(res.Text, layerSeparator); got != 3 {
		t.Errorf("separators = %d, want 3 (four layers)", got)
	}
	if !strings.Contains(res.Text, "Aura") {
		t.Error("identity layer missing from composed text")
	}
	if res.TotalTokens <= 0 {
		t.Errorf("TotalTokens = %d, want > 0", res.TotalTokens)
	}
	if res.Layers.Retrieved != 0 || res.Layers.Modifications != 0 {
		t.Errorf("unexpected layer tokens without package/mods: %+v", res.Layers)
	}
	if res.Layers.Identity == 0 || res.Layers.Stage == 0 || res.Layers.Emotion == 0 || res.Layers.Situation == 0 {
		t.Errorf("all base layers should count tokens: %+v", res.Layers)
	}
	if res.Situation != situation.MidConversation && res.Situation != situation.AfterGap {
		// No last interaction and no active conversation: gap fallback.
		t.Errorf("Situation = %q", res.Situation)
	}
}

func TestComposeInvalidStage(t *testing.T) {
	c := testComposer(testTemplate)
	for _, stage := range []int{0, 6, -3} {
		_, err := c.Compose(Input{Stage: stage})
		if !errors.Is(err, errors.ErrInvalidStage) {
			t.Errorf("stage %d: err = %v, want INVALID_STAGE", stage, err)
		}
	}
}

func TestComposeFallbackIdentityDegrades(t *testing.T) {
	c := testComposer("")
	res, err := c.Compose(Input{Stage: 1})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !res.Degraded {
		t.Error("missing template should mark the result degraded")
	}
	if !strings.Contains(res.Text, "Aura") {
		t.Error("fallback identity should still name the persona")
	}
}

func TestComposeWithPackage(t *testing.T) {
	c := testComposer(testTemplate)
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	pkg := &retrieval.ContextPackage{
		UserID:         "u1",
		CreatedAt:      now.Add(-time.Hour),
		ExpiresAt:      now.Add(-time.Minute),
		Facts:          []string{"allergic to shellfish", "sister named Dana"},
		TodayNarrative: "Talked about the job interview this morning.",
	}

	res, err := c.Compose(Input{Stage: 3, Package: pkg, Now: now})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := strings.Count(res.Text, layerSeparator); got != 4 {
		t.Errorf("separators = %d, want 4 (five layers)", got)
	}
	if !strings.Contains(res.Text, "shellfish") {
		t.Error("retrieved facts missing from composed text")
	}
	if res.Layers.Retrieved == 0 {
		t.Error("retrieved layer should count tokens")
	}
	if !res.PackageExpired {
		t.Error("expired package should be flagged")
	}
	if res.Usage == nil || res.Usage.TotalTokens == 0 {
		t.Error("usage should report the tier allocation")
	}
	if res.Degraded {
		t.Error("an expired package must not degrade the result")
	}
}

func TestComposeEmptyPackageOmitsLayer(t *testing.T) {
	c := testComposer(testTemplate)
	res, err := c.Compose(Input{Stage: 1, Package: &retrieval.ContextPackage{UserID: "u1"}})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := strings.Count(res.Text, layerSeparator); got != 3 {
		t.Errorf("separators = %d, want 3 (empty package adds nothing)", got)
	}
}

func TestApplyModifications(t *testing.T) {
	c := testComposer(testTemplate)
	res, err := c.Compose(Input{Stage: 2})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	mods := []triggers.Modification{{
		Kind:    triggers.MoodShift,
		Content: "The user just shared good news. Let genuine excitement show.",
		Reason:  "positive emotional trigger",
	}}
	updated := c.ApplyModifications(context.Background(), nil, "u1", res, mods)

	if !strings.Contains(updated.Text, "genuine excitement") {
		t.Error("mood shift content missing from updated text")
	}
	if updated.Layers.Modifications <= 0 {
		t.Errorf("Modifications tokens = %d, want > 0", updated.Layers.Modifications)
	}
	if updated.TotalTokens <= res.TotalTokens {
		t.Error("total should grow after a modification")
	}
	if res.Layers.Modifications != 0 {
		t.Error("original result must not be mutated")
	}
}

func TestApplyModificationsMemoryFailureIsNoOp(t *testing.T) {
	c := testComposer(testTemplate)
	res, err := c.Compose(Input{Stage: 2})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	mods := []triggers.Modification{{
		Kind:  triggers.MemoryRetrieval,
		Query: "sister",
	}}
	updated := c.ApplyModifications(context.Background(), nil, "u1", res, mods)
	if updated.Text != res.Text {
		t.Error("memory retrieval without a searcher should leave the text unchanged")
	}
	if updated.Layers.Modifications != 0 {
		t.Errorf("Modifications tokens = %d, want 0", updated.Layers.Modifications)
	}
}

func TestApplyModificationsWithSearcher(t *testing.T) {
	c := testComposer(testTemplate)
	res, err := c.Compose(Input{Stage: 2})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	searcher := triggers.SearcherFunc(func(ctx context.Context, userID, query string, limit int) ([]string, error) {
		return []string{"her sister Dana moved to Lisbon last spring"}, nil
	})

	mods := []triggers.Modification{{
		Kind:  triggers.MemoryRetrieval,
		Query: "sister",
	}}
	updated := c.ApplyModifications(context.Background(), searcher, "u1", res, mods)
	if !strings.Contains(updated.Text, "Lisbon") {
		t.Error("recalled memory missing from updated text")
	}
}
