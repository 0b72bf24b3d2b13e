// Package retrieval models the externally supplied context package and
// injects its facts, threads, and summaries into a prompt under tier
// budgets.
package retrieval

import "time"

// ThreadStatus is the lifecycle state of an active thread.
type ThreadStatus string

const (
	ThreadOpen     ThreadStatus = "open"
	ThreadResolved ThreadStatus = "resolved"
)

// Thread is one ongoing conversational topic.
type Thread struct {
	Topic         string       `json:"topic"`
	Status        ThreadStatus `json:"status"`
	LastMentioned time.Time    `json:"last_mentioned"`
}

// MoodSnapshot is the optional mood/energy reading attached to a package.
type MoodSnapshot struct {
	Mood   string  `json:"mood"`
	Energy float64 `json:"energy"`
}

// ContextPackage is the bundle of retrieved long-term context produced by
// the external summarization process. Read-only to the pipeline; expiry
// is informational and never causes rejection.
type ContextPackage struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	Facts              []string      `json:"facts,omitempty"`
	RelationshipEvents []string      `json:"relationship_events,omitempty"`
	ActiveThreads      []Thread      `json:"active_threads,omitempty"`
	TodayNarrative     string        `json:"today_narrative,omitempty"`
	WeeklyNarratives   []string      `json:"weekly_narratives,omitempty"`
	Mood               *MoodSnapshot `json:"mood,omitempty"`
}

// Expired reports whether the package is past its expiry at the given
// time. A zero ExpiresAt never expires.
func (p *ContextPackage) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// Empty reports whether the package carries no injectable content.
func (p *ContextPackage) Empty() bool {
	return len(p.Facts) == 0 &&
		len(p.RelationshipEvents) == 0 &&
		len(p.ActiveThreads) == 0 &&
		p.TodayNarrative == "" &&
		len(p.WeeklyNarratives) == 0
}
