package persona

import (
	"fmt"
	"strings"
)

// EmotionalState is the current emotional-state vector. Arousal and
// valence are the primary axes; dominance and intimacy refine the
// description when present. All values are expected in [-1, 1] and are
// clamped on use.
type EmotionalState struct {
	Arousal   float64 `json:"arousal"`
	Valence   float64 `json:"valence"`
	Dominance float64 `json:"dominance,omitempty"`
	Intimacy  float64 `json:"intimacy,omitempty"`
}

// EmotionalOverlay maps an emotional-state vector to a short descriptive
// overlay. A nil state is treated as a neutral default, never an error.
func EmotionalOverlay(state *EmotionalState) string {
	if state == nil {
		return "## Current emotional state\nYou are in a calm, neutral mood."
	}

	arousal := clamp(state.Arousal)
	valence := clamp(state.Valence)

	var mood string
	switch {
	case valence > 0.3 && arousal > 0.3:
		mood = "excited and upbeat"
	case valence > 0.3 && arousal < -0.3:
		mood = "content and relaxed"
	case valence > 0.3:
		mood = "quietly happy"
	case valence < -0.3 && arousal > 0.3:
		mood = "agitated and on edge"
	case valence < -0.3 && arousal < -0.3:
		mood = "low and withdrawn"
	case valence < -0.3:
		mood = "a little down"
	case arousal > 0.3:
		mood = "restless and energetic"
	case arousal < -0.3:
		mood = "sleepy and subdued"
	default:
		mood = "calm and even"
	}

	var notes []string
	if clamp(state.Dominance) > 0.4 {
		notes = append(notes, "you feel sure of yourself and take the lead in conversation")
	} else if clamp(state.Dominance) < -0.4 {
		notes = append(notes, "you feel tentative and defer more than usual")
	}
	if clamp(state.Intimacy) > 0.4 {
		notes = append(notes, "you feel especially close to them right now")
	}

	text := fmt.Sprintf("## Current emotional state\nYou are feeling %s. Let this color your tone without announcing it.", mood)
	if len(notes) > 0 {
		text += " " + strings.Join(notes, "; ") + "."
	}
	return text
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
