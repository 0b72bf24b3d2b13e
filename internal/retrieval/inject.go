package retrieval

import (
	"fmt"
	"strings"
	"time"

	"github.com/auralabs/aura/internal/budget"
)

// Injection is the budgeted Layer-5 contribution to a prompt.
type Injection struct {
	// Text is the formatted, budget-enforced context text. Empty when
	// the package carried nothing injectable.
	Text string

	// Usage is the allocation result for the four tiers.
	Usage *budget.TokenUsageResult

	// Expired records that the package was past its expiry when
	// injected. Informational only; the text is unaffected.
	Expired bool
}

// Inject formats the package into the four content tiers, runs them
// through the budget manager, and assembles the surviving text. It never
// fails; an empty package yields an empty injection.
func Inject(pkg *ContextPackage, mgr *budget.Manager, now time.Time) *Injection {
	inj := &Injection{Expired: pkg.Expired(now)}
	if pkg.Empty() {
		inj.Usage = mgr.Allocate(budget.TierContent{})
		return inj
	}

	usage := mgr.Allocate(budget.TierContent{
		History:          formatHistory(pkg),
		Today:            formatToday(pkg),
		Threads:          formatThreads(pkg, now),
		LastConversation: formatWeekly(pkg),
	})
	inj.Usage = usage
	inj.Text = assemble(usage)
	return inj
}

// formatHistory renders atomic facts and relationship events as the
// history tier.
func formatHistory(pkg *ContextPackage) string {
	var sb strings.Builder
	if len(pkg.Facts) > 0 {
		sb.WriteString("Things you know about them:\n")
		for _, fact := range pkg.Facts {
			sb.WriteString("- ")
			sb.WriteString(fact)
			sb.WriteString("\n")
		}
	}
	if len(pkg.RelationshipEvents) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Moments you shared:\n")
		for _, event := range pkg.RelationshipEvents {
			sb.WriteString("- ")
			sb.WriteString(event)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatToday renders the today narrative plus the mood snapshot.
func formatToday(pkg *ContextPackage) string {
	var parts []string
	if pkg.TodayNarrative != "" {
		parts = append(parts, pkg.TodayNarrative)
	}
	if pkg.Mood != nil && pkg.Mood.Mood != "" {
		parts = append(parts, fmt.Sprintf("Their recent mood: %s (energy %.1f).", pkg.Mood.Mood, pkg.Mood.Energy))
	}
	return strings.Join(parts, "\n")
}

// formatThreads renders active threads, open ones first.
func formatThreads(pkg *ContextPackage, now time.Time) string {
	if len(pkg.ActiveThreads) == 0 {
		return ""
	}
	var open, resolved []string
	for _, th := range pkg.ActiveThreads {
		line := fmt.Sprintf("- %s (last mentioned %s)", th.Topic, relativeDay(th.LastMentioned, now))
		if th.Status == ThreadResolved {
			resolved = append(resolved, line)
		} else {
			open = append(open, line)
		}
	}

	var sb strings.Builder
	if len(open) > 0 {
		sb.WriteString("Open threads to follow up on:\n")
		sb.WriteString(strings.Join(open, "\n"))
	}
	if len(resolved) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Recently resolved:\n")
		sb.WriteString(strings.Join(resolved, "\n"))
	}
	return sb.String()
}

// formatWeekly renders the weekly narratives as the last_conversation tier.
func formatWeekly(pkg *ContextPackage) string {
	return strings.Join(pkg.WeeklyNarratives, "\n")
}

// assemble joins the surviving tier texts under stable headings.
func assemble(usage *budget.TokenUsageResult) string {
	var sections []string
	if usage.History != "" {
		sections = append(sections, "## What you remember\n"+usage.History)
	}
	if usage.Today != "" {
		sections = append(sections, "## Today\n"+usage.Today)
	}
	if usage.Threads != "" {
		sections = append(sections, "## Conversation threads\n"+usage.Threads)
	}
	if usage.LastConversation != "" {
		sections = append(sections, "## Recent weeks\n"+usage.LastConversation)
	}
	return strings.Join(sections, "\n\n")
}

// relativeDay renders a timestamp as a conversational day reference.
func relativeDay(t, now time.Time) string {
	if t.IsZero() {
		return "a while ago"
	}
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("Jan 2")
	}
}
