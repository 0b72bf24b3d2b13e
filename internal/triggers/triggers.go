// Package triggers scans live user messages for mood shifts and memory
// references, and applies the resulting modifications to an already
// composed prompt without recomposing earlier layers.
package triggers

import (
	"context"
	"strings"
)

// ModificationKind tags a prompt modification.
type ModificationKind string

const (
	MoodShift       ModificationKind = "mood_shift"
	MemoryRetrieval ModificationKind = "memory_retrieval"
)

// Query window around a memory-reference match, in characters.
const (
	queryWindowBefore = 20
	queryWindowAfter  = 50
)

// DefaultSearchLimit is the number of facts requested from the memory
// collaborator when resolving a memory_retrieval modification.
const DefaultSearchLimit = 3

// Modification is one detected prompt change. Created by detection,
// consumed by apply, discarded after the turn.
type Modification struct {
	Kind    ModificationKind `json:"kind"`
	Content string           `json:"content"`
	Reason  string           `json:"reason"`
	// Query is the text window around a memory-reference match. Set
	// only for memory_retrieval.
	Query string `json:"query,omitempty"`
}

// Detector scans messages against a pattern set.
type Detector struct {
	patterns *PatternSet
}

// NewDetector creates a Detector. A nil pattern set uses the built-in
// tables.
func NewDetector(patterns *PatternSet) *Detector {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	return &Detector{patterns: patterns}
}

// Detect scans a user message and returns the modifications it warrants.
// At most one mood_shift is emitted (positive patterns are checked before
// negative, first match wins) and at most one memory_retrieval (first
// memory-reference match wins). An empty slice means no triggers fired;
// detection never fails.
func (d *Detector) Detect(message, currentMood string) []Modification {
	var mods []Modification

	if mod, ok := d.detectMoodShift(message, currentMood); ok {
		mods = append(mods, mod)
	}
	if mod, ok := d.detectMemoryReference(message); ok {
		mods = append(mods, mod)
	}
	return mods
}

func (d *Detector) detectMoodShift(message, currentMood string) (Modification, bool) {
	for _, re := range d.patterns.Positive {
		if loc := re.FindStringIndex(message); loc != nil {
			return Modification{
				Kind: MoodShift,
				Content: "They just shared something that made them happy. " +
					"Match their energy: be genuinely glad with them, ask about it, let the warmth show.",
				Reason: "positive mood cue: " + strings.TrimSpace(message[loc[0]:loc[1]]),
			}, true
		}
	}
	for _, re := range d.patterns.Negative {
		if loc := re.FindStringIndex(message); loc != nil {
			return Modification{
				Kind: MoodShift,
				Content: "Something is weighing on them. Slow down, soften your tone, " +
					"and listen more than you talk. Do not rush to fix anything." +
					moodContrast(currentMood),
				Reason: "negative mood cue: " + strings.TrimSpace(message[loc[0]:loc[1]]),
			}, true
		}
	}
	return Modification{}, false
}

// moodContrast adds a note when the detected shift runs against the
// composed emotional state.
func moodContrast(currentMood string) string {
	switch strings.ToLower(currentMood) {
	case "excited", "happy", "upbeat":
		return " Your own upbeat mood should yield to theirs here."
	default:
		return ""
	}
}

func (d *Detector) detectMemoryReference(message string) (Modification, bool) {
	for _, re := range d.patterns.Memory {
		loc := re.FindStringIndex(message)
		if loc == nil {
			continue
		}
		start := max(loc[0]-queryWindowBefore, 0)
		end := min(loc[0]+queryWindowAfter, len(message))
		return Modification{
			Kind:   MemoryRetrieval,
			Reason: "memory reference: " + strings.TrimSpace(message[loc[0]:loc[1]]),
			Query:  strings.TrimSpace(message[start:end]),
		}, true
	}
	return Modification{}, false
}

// Apply appends a modification to the composed prompt as a clearly
// delimited addendum. Earlier layers are never rewritten or re-truncated.
// A memory_retrieval with unresolved (empty) content is a silent no-op.
func Apply(currentPrompt string, mod Modification) string {
	if mod.Content == "" {
		return currentPrompt
	}
	var header string
	switch mod.Kind {
	case MoodShift:
		header = "## Live adjustment"
	case MemoryRetrieval:
		header = "## Recalled just now"
	default:
		header = "## Note"
	}
	return currentPrompt + "\n\n---\n\n" + header + "\n" + mod.Content
}

// MemorySearcher is the external fact-retrieval collaborator.
type MemorySearcher interface {
	// Search returns up to limit fact strings relevant to the query.
	Search(ctx context.Context, userID, query string, limit int) ([]string, error)
}

// SearcherFunc adapts a function to the MemorySearcher interface.
type SearcherFunc func(ctx context.Context, userID, query string, limit int) ([]string, error)

// Search implements MemorySearcher.
func (f SearcherFunc) Search(ctx context.Context, userID, query string, limit int) ([]string, error) {
	return f(ctx, userID, query, limit)
}

// Process resolves and applies a modification to the prompt. For
// memory_retrieval it first asks the searcher for matching facts (the
// caller bounds the call via ctx); any lookup failure, a nil searcher,
// or an empty result degrades to "no memory found" and the prompt is
// returned unchanged. Mood shifts apply directly. Never fatal to the
// turn.
func Process(ctx context.Context, searcher MemorySearcher, userID, currentPrompt string, mod Modification) string {
	if mod.Kind != MemoryRetrieval {
		return Apply(currentPrompt, mod)
	}

	if searcher == nil || mod.Query == "" {
		return currentPrompt
	}
	facts, err := searcher.Search(ctx, userID, mod.Query, DefaultSearchLimit)
	if err != nil || len(facts) == 0 {
		return currentPrompt
	}
	mod.Content = strings.Join(facts, "; ")
	return Apply(currentPrompt, mod)
}
