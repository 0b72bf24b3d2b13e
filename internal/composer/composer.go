// Package composer assembles the full instruction text for a turn from
// the independent layers: identity, stage overlay, emotional overlay,
// situation, and budgeted retrieved context. Live trigger modifications
// are appended afterwards without recomposing earlier layers.
package composer

import (
	"context"
	"strings"
	"time"

	"github.com/auralabs/aura/internal/budget"
	"github.com/auralabs/aura/internal/persona"
	"github.com/auralabs/aura/internal/retrieval"
	"github.com/auralabs/aura/internal/situation"
	"github.com/auralabs/aura/internal/tokens"
	"github.com/auralabs/aura/internal/triggers"
)

// layerSeparator joins the composed layers.
const layerSeparator = "\n\n---\n\n"

// Input gathers everything a composition needs for one turn. Emotional
// and Package may be nil; a zero Now means time.Now().
type Input struct {
	UserID             string
	Stage              int
	Emotional          *persona.EmotionalState
	Package            *retrieval.ContextPackage
	Now                time.Time
	LastInteraction    *time.Time
	ConversationActive bool
}

// LayerBreakdown reports accurate token counts per layer.
type LayerBreakdown struct {
	Identity      int `json:"identity"`
	Stage         int `json:"stage"`
	Emotion       int `json:"emotion"`
	Situation     int `json:"situation"`
	Retrieved     int `json:"retrieved"`
	Modifications int `json:"modifications"`
}

// Result is the outcome of one composition.
type Result struct {
	Text        string         `json:"text"`
	TotalTokens int            `json:"total_tokens"`
	Layers      LayerBreakdown `json:"layers"`

	// Degraded is set when a layer failed to produce content and a
	// static fallback was substituted. Absent optional inputs alone
	// never set it.
	Degraded bool `json:"degraded"`

	// Situation is the detected temporal/activity context.
	Situation situation.Situation `json:"situation"`

	// PackageExpired records that the injected context package was past
	// its expiry. Informational; the text is unaffected.
	PackageExpired bool `json:"package_expired,omitempty"`

	// Usage is the tier allocation for the retrieved layer, when a
	// package was injected.
	Usage *budget.TokenUsageResult `json:"usage,omitempty"`
}

// Composer orchestrates the layers. Construct one per process and share
// it; the only mutable state is the identity loader's write-once cache.
type Composer struct {
	identity  *persona.IdentityLoader
	stages    persona.StageTable
	budget    *budget.Manager
	estimator *tokens.Estimator
}

// New creates a Composer. A nil stage table uses the built-in overlays;
// a nil budget manager uses default budgets.
func New(identity *persona.IdentityLoader, stages persona.StageTable, mgr *budget.Manager, estimator *tokens.Estimator) *Composer {
	if estimator == nil {
		estimator = tokens.NewEstimator()
	}
	if stages == nil {
		stages = persona.DefaultStages()
	}
	if mgr == nil {
		mgr = budget.NewManager(budget.DefaultBudgets(), estimator)
	}
	return &Composer{
		identity:  identity,
		stages:    stages,
		budget:    mgr,
		estimator: estimator,
	}
}

// Compose builds the instruction text for a turn. Layers 1-4 always
// contribute; the retrieved layer contributes only when a package is
// supplied. An invalid stage is the single fatal input; every other
// absence degrades to a documented default and the result is never
// empty.
func (c *Composer) Compose(input Input) (*Result, error) {
	stageText, err := c.stages.Overlay(input.Stage)
	if err != nil {
		return nil, err
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	result := &Result{}

	identityText := c.identity.Prompt()
	if c.identity.UsedFallback() {
		result.Degraded = true
	}

	emotionText := persona.EmotionalOverlay(input.Emotional)

	result.Situation = situation.Detect(now, input.LastInteraction, input.ConversationActive)
	situationText := situation.Text(result.Situation)

	layers := []string{identityText, stageText, emotionText, situationText}

	var retrievedText string
	if input.Package != nil {
		injection := retrieval.Inject(input.Package, c.budget, now)
		result.PackageExpired = injection.Expired
		result.Usage = injection.Usage
		retrievedText = injection.Text
		if retrievedText != "" {
			layers = append(layers, retrievedText)
		}
	}

	result.Text = strings.Join(layers, layerSeparator)
	result.Layers = LayerBreakdown{
		Identity:  c.estimator.Estimate(identityText, true),
		Stage:     c.estimator.Estimate(stageText, true),
		Emotion:   c.estimator.Estimate(emotionText, true),
		Situation: c.estimator.Estimate(situationText, true),
		Retrieved: c.estimator.Estimate(retrievedText, true),
	}
	result.TotalTokens = c.estimator.Estimate(result.Text, true)

	return result, nil
}

// ApplyModifications processes live trigger modifications against an
// existing result and returns an updated copy. Memory lookups run
// through the searcher under ctx; failures degrade to no-ops, so the
// returned result is always usable.
func (c *Composer) ApplyModifications(ctx context.Context, searcher triggers.MemorySearcher, userID string, result *Result, mods []triggers.Modification) *Result {
	updated := *result
	text := result.Text
	for _, mod := range mods {
		text = triggers.Process(ctx, searcher, userID, text, mod)
	}
	if text == result.Text {
		return &updated
	}

	updated.Text = text
	updated.TotalTokens = c.estimator.Estimate(text, true)
	updated.Layers.Modifications = updated.TotalTokens - result.TotalTokens
	return &updated
}

// Guidance exposes the structured situation hints for the result's
// detected situation.
func (r *Result) Guidance() situation.Guidance {
	return situation.Hints(r.Situation)
}
