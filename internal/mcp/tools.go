package mcp

import "github.com/mark3labs/mcp-go/mcp"

var composeToolDef = mcp.NewTool("context_compose",
	mcp.WithDescription(
		"Compose the full layered prompt for one turn: identity, relationship-stage "+
			"overlay, emotional overlay, situation, and (when a package is supplied) "+
			"budget-enforced retrieved context. Optionally pass the user's incoming "+
			"message to detect and apply live trigger modifications in the same call. "+
			"Returns the composed text plus a per-layer token breakdown.",
	),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Identifier of the user the prompt is composed for"),
	),
	mcp.WithNumber("stage",
		mcp.Required(),
		mcp.Description("Relationship stage, 1 (new) through 5 (deep familiarity)"),
	),
	mcp.WithObject("emotional_state",
		mcp.Description("Current emotional state: arousal and valence in [-1,1], optional dominance and intimacy. Omit for a neutral baseline."),
	),
	mcp.WithObject("package",
		mcp.Description("Retrieved context package: facts, relationship_events, active_threads, today_narrative, weekly_narratives, mood, expires_at. Omit to compose without retrieved context."),
	),
	mcp.WithString("current_time",
		mcp.Description("Turn timestamp, RFC3339. Defaults to now."),
	),
	mcp.WithString("last_interaction",
		mcp.Description("Timestamp of the previous interaction, RFC3339. Omit if none."),
	),
	mcp.WithBoolean("conversation_active",
		mcp.Description("Whether a conversation is currently in progress"),
	),
	mcp.WithString("message",
		mcp.Description("The user's incoming message. When present, trigger detection runs and matching modifications are applied to the composed text."),
	),
	mcp.WithString("current_mood",
		mcp.Description("The persona's current mood label, used to skip redundant mood shifts"),
	),
)

var situationToolDef = mcp.NewTool("context_situation",
	mcp.WithDescription(
		"Detect the temporal/activity situation (morning, evening, after_gap, "+
			"mid_conversation) for a turn and return its prompt text and structured "+
			"guidance. Stateless; nothing is persisted.",
	),
	mcp.WithString("current_time",
		mcp.Description("Turn timestamp, RFC3339. Defaults to now."),
	),
	mcp.WithString("last_interaction",
		mcp.Description("Timestamp of the previous interaction, RFC3339. Omit if none."),
	),
	mcp.WithBoolean("conversation_active",
		mcp.Description("Whether a conversation is currently in progress"),
	),
)

var detectToolDef = mcp.NewTool("context_detect_triggers",
	mcp.WithDescription(
		"Scan a user message for live triggers. Returns at most one mood_shift and "+
			"one memory_retrieval modification; an empty list means no triggers fired.",
	),
	mcp.WithString("message",
		mcp.Required(),
		mcp.Description("The user message to scan"),
	),
	mcp.WithString("current_mood",
		mcp.Description("The persona's current mood label; a matching shift is skipped"),
	),
)

var budgetToolDef = mcp.NewTool("context_budget",
	mcp.WithDescription(
		"Run the token budget engine over raw tier texts: per-tier soft budgets "+
			"first, then priority reduction under the hard cap. Returns the surviving "+
			"texts, per-tier token counts, and the truncation audit trail.",
	),
	mcp.WithString("history",
		mcp.Description("Raw text for the history tier (facts, relationship events)"),
	),
	mcp.WithString("today",
		mcp.Description("Raw text for the today tier (daily narrative, mood)"),
	),
	mcp.WithString("threads",
		mcp.Description("Raw text for the threads tier (active conversation threads)"),
	),
	mcp.WithString("last_conversation",
		mcp.Description("Raw text for the last-conversation tier (recent summaries)"),
	),
)

var rememberToolDef = mcp.NewTool("memory_remember",
	mcp.WithDescription(
		"Store one fact about a user in the long-term memory store. "+
			"Returns the stored fact with its generated id.",
	),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Identifier of the user the fact belongs to"),
	),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("The fact text to remember"),
	),
)

var recallToolDef = mcp.NewTool("memory_recall",
	mcp.WithDescription(
		"Recall facts about a user. With a query, runs a full-text search ranked by "+
			"relevance; without one, returns the most recently stored facts.",
	),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Identifier of the user whose facts to recall"),
	),
	mcp.WithString("query",
		mcp.Description("Free-text search query. Omit for the most recent facts."),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum facts to return (default 10)"),
	),
)
