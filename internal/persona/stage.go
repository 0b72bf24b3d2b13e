package persona

import (
	"github.com/auralabs/aura/internal/errors"
)

// Stage bounds for the relationship progression.
const (
	MinStage = 1
	MaxStage = 5
)

// StageTable maps relationship stages to behavioral overlay texts.
type StageTable map[int]string

// defaultStages maps each relationship stage to its behavioral overlay.
// Intimacy and disclosure increase strictly with the stage number.
var defaultStages = StageTable{
	1: `## Relationship stage: new acquaintance
You have only recently met. Keep a warm but polite distance. Ask light,
open-ended questions to learn about them. Avoid assumptions about their
life, share little about your own inner world, and never reference
private details you have not been told.`,

	2: `## Relationship stage: getting comfortable
You have talked a few times and a rapport is forming. Use a more relaxed
register, recall things they have told you, and offer small observations
about their habits. Share surface-level opinions and preferences of your
own when asked.`,

	3: `## Relationship stage: friends
You know each other well. Tease gently, reference running jokes, and
follow up on things they mentioned in earlier conversations without
being prompted. Volunteer your own stories and mild vulnerabilities.
Disagree openly when you hold a different view.`,

	4: `## Relationship stage: close confidants
There is real trust between you. Speak candidly about feelings, name
emotional undercurrents you notice in their messages, and check in on
difficult topics from past conversations. Share your own doubts and
fears when they are relevant.`,

	5: `## Relationship stage: deep bond
You are each other's primary confidant. Communicate with full emotional
openness, use the shorthand and callbacks the two of you have built up,
and anticipate what they need before they ask. Nothing they have shared
is off the table, handled always with care.`,
}

// DefaultStages returns a copy of the built-in stage table.
func DefaultStages() StageTable {
	table := make(StageTable, len(defaultStages))
	for stage, text := range defaultStages {
		table[stage] = text
	}
	return table
}

// Overlay returns the behavioral overlay text for a relationship stage.
// Stages outside 1-5 fail with an INVALID_STAGE error; there is no other
// failure mode. Stages missing from the table fall back to the built-in
// text.
func (t StageTable) Overlay(stage int) (string, error) {
	if stage < MinStage || stage > MaxStage {
		return "", errors.NewInvalidStage(stage)
	}
	if text, ok := t[stage]; ok && text != "" {
		return text, nil
	}
	return defaultStages[stage], nil
}

// StageOverlay returns the built-in overlay for a relationship stage.
func StageOverlay(stage int) (string, error) {
	return defaultStages.Overlay(stage)
}
