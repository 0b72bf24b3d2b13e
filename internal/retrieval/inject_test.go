package retrieval

import (
	"strings"
	"testing"
	"time"

	"github.com/auralabs/aura/internal/budget"
	"github.com/auralabs/aura/internal/tokens"
)

var testNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func testManager() *budget.Manager {
	return budget.NewManager(budget.DefaultBudgets(), tokens.NewEstimator())
}

func samplePackage() *ContextPackage {
	return &ContextPackage{
		UserID:    "user-1",
		CreatedAt: testNow.Add(-time.Hour),
		ExpiresAt: testNow.Add(time.Hour),
		Facts: []string{
			"Her sister's name is Maya.",
			"She works night shifts at the hospital.",
		},
		RelationshipEvents: []string{
			"You stayed up late talking about her move to Lisbon.",
		},
		ActiveThreads: []Thread{
			{Topic: "the job interview", Status: ThreadOpen, LastMentioned: testNow.Add(-24 * time.Hour)},
			{Topic: "fixing her bike", Status: ThreadResolved, LastMentioned: testNow.Add(-72 * time.Hour)},
		},
		TodayNarrative:   "She seemed anxious about tomorrow's interview.",
		WeeklyNarratives: []string{"A quiet week, mostly small talk and one long conversation about family."},
		Mood:             &MoodSnapshot{Mood: "anxious", Energy: 0.4},
	}
}

func TestInject_FormatsAllTiers(t *testing.T) {
	inj := Inject(samplePackage(), testManager(), testNow)

	for _, want := range []string{
		"Maya",
		"## What you remember",
		"## Today",
		"anxious",
		"## Conversation threads",
		"the job interview",
		"yesterday",
		"## Recent weeks",
	} {
		if !strings.Contains(inj.Text, want) {
			t.Errorf("injection text missing %q", want)
		}
	}

	if inj.Expired {
		t.Error("Expired = true for a live package")
	}
	if inj.Usage == nil || inj.Usage.TotalTokens == 0 {
		t.Error("Usage missing or zero for non-empty package")
	}
}

func TestInject_OpenThreadsBeforeResolved(t *testing.T) {
	inj := Inject(samplePackage(), testManager(), testNow)
	openIdx := strings.Index(inj.Text, "the job interview")
	resolvedIdx := strings.Index(inj.Text, "fixing her bike")
	if openIdx == -1 || resolvedIdx == -1 || openIdx > resolvedIdx {
		t.Errorf("open thread not before resolved: open=%d resolved=%d", openIdx, resolvedIdx)
	}
}

func TestInject_EmptyPackage(t *testing.T) {
	pkg := &ContextPackage{UserID: "user-1"}
	inj := Inject(pkg, testManager(), testNow)
	if inj.Text != "" {
		t.Errorf("Text = %q, want empty", inj.Text)
	}
	if inj.Usage.TotalTokens != 0 {
		t.Errorf("TotalTokens = %d, want 0", inj.Usage.TotalTokens)
	}
}

func TestInject_ExpiredStillInjected(t *testing.T) {
	pkg := samplePackage()
	pkg.ExpiresAt = testNow.Add(-time.Minute)
	inj := Inject(pkg, testManager(), testNow)

	if !inj.Expired {
		t.Error("Expired = false for an expired package")
	}
	if !strings.Contains(inj.Text, "Maya") {
		t.Error("expired package content was dropped; expiry is informational only")
	}
}

func TestInject_RespectsHardCap(t *testing.T) {
	pkg := samplePackage()
	pkg.Facts = nil
	for range 2000 {
		pkg.Facts = append(pkg.Facts, "She mentioned a detail about her week that matters.")
	}
	mgr := testManager()
	inj := Inject(pkg, mgr, testNow)

	if inj.Usage.TotalTokens > mgr.HardCap() {
		t.Errorf("TotalTokens = %d, want <= %d", inj.Usage.TotalTokens, mgr.HardCap())
	}
	if !inj.Usage.Truncated {
		t.Error("Truncated = false for oversized package")
	}
}

func TestRelativeDay(t *testing.T) {
	cases := []struct {
		t    time.Time
		want string
	}{
		{testNow, "today"},
		{testNow.Add(-25 * time.Hour), "yesterday"},
		{testNow.Add(-3 * 24 * time.Hour), "3 days ago"},
		{time.Time{}, "a while ago"},
	}
	for _, tc := range cases {
		if got := relativeDay(tc.t, testNow); got != tc.want {
			t.Errorf("relativeDay(%v) = %q, want %q", tc.t, got, tc.want)
		}
	}
}
