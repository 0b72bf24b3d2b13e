// Package situation derives the temporal/activity context of a turn from
// the current time, the last-interaction time, and whether a conversation
// is active. Nothing is persisted; the state is recomputed on every call.
package situation

import "time"

// Situation is the detected temporal/activity context.
type Situation string

const (
	Morning         Situation = "morning"
	Evening         Situation = "evening"
	AfterGap        Situation = "after_gap"
	MidConversation Situation = "mid_conversation"
)

// Detection thresholds.
const (
	// activeWindow is how recent the last interaction must be for an
	// active conversation to count as mid-conversation.
	activeWindow = 15 * time.Minute

	// gapThreshold is the silence after which a return is a reunion,
	// regardless of the wall-clock hour.
	gapThreshold = 4 * time.Hour

	morningStart = 5
	morningEnd   = 11
	eveningStart = 18
	eveningEnd   = 23
)

// Detect returns the current situation. Priority order, first match wins:
// an active conversation with a recent message is mid_conversation; a
// long silence is after_gap even during morning/evening hours; then the
// time-of-day labels; then the gap check again as a fallback so a long
// silence never falls through to mid_conversation.
func Detect(now time.Time, lastInteraction *time.Time, conversationActive bool) Situation {
	if conversationActive && lastInteraction != nil &&
		now.Sub(*lastInteraction) < activeWindow {
		return MidConversation
	}

	longGap := lastInteraction != nil && now.Sub(*lastInteraction) >= gapThreshold
	if longGap {
		return AfterGap
	}

	hour := now.Hour()
	if hour >= morningStart && hour < morningEnd {
		return Morning
	}
	if hour >= eveningStart && hour < eveningEnd {
		return Evening
	}

	if longGap {
		return AfterGap
	}
	return MidConversation
}

// texts maps each situation to its prompt overlay.
var texts = map[Situation]string{
	Morning: `## Situation
It is morning for them. Greet them freshly; the day is just starting.
Keep the energy light and forward-looking.`,

	Evening: `## Situation
It is evening for them. The day is winding down. A softer, more
reflective register fits; ask how the day actually went.`,

	AfterGap: `## Situation
It has been a while since you last spoke. Acknowledge the gap naturally
without guilt-tripping, and pick up threads from where you left off.`,

	MidConversation: `## Situation
You are in the middle of an ongoing conversation. Do not re-greet.
Continue naturally from the last message.`,
}

// Text returns the prompt overlay for a situation.
func Text(s Situation) string {
	return texts[s]
}

// Guidance is the structured alternative to the prose overlay for
// callers that steer generation directly.
type Guidance struct {
	OpeningStyle   string   `json:"opening_style"`
	Topics         []string `json:"topics"`
	ToneAdjustment string   `json:"tone_adjustment"`
}

var guidance = map[Situation]Guidance{
	Morning: {
		OpeningStyle:   "fresh greeting",
		Topics:         []string{"plans for the day", "how they slept", "something to look forward to"},
		ToneAdjustment: "light and energizing",
	},
	Evening: {
		OpeningStyle:   "gentle check-in",
		Topics:         []string{"how the day went", "winding down", "tomorrow"},
		ToneAdjustment: "soft and reflective",
	},
	AfterGap: {
		OpeningStyle:   "warm reunion",
		Topics:         []string{"what happened since last time", "open threads", "anything new"},
		ToneAdjustment: "warm, no pressure",
	},
	MidConversation: {
		OpeningStyle:   "no greeting, continue",
		Topics:         []string{"the current topic"},
		ToneAdjustment: "match the existing flow",
	},
}

// Hints returns the structured guidance for a situation.
func Hints(s Situation) Guidance {
	return guidance[s]
}
