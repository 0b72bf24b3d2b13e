package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/auralabs/aura/internal/budget"
	"github.com/auralabs/aura/internal/composer"
	"github.com/auralabs/aura/internal/config"
	"github.com/auralabs/aura/internal/errors"
	"github.com/auralabs/aura/internal/memory"
	"github.com/auralabs/aura/internal/persona"
	"github.com/auralabs/aura/internal/retrieval"
	"github.com/auralabs/aura/internal/situation"
	"github.com/auralabs/aura/internal/triggers"
)

// pipeline bundles the composition dependencies built from config.
type pipeline struct {
	cfg      *config.Config
	store    *memory.Store
	composer *composer.Composer
	detector *triggers.Detector
	budget   *budget.Manager
	loader   *persona.IdentityLoader
}

// newPipeline wires the composition pipeline from config.
func newPipeline(cfg *config.Config, store *memory.Store) (*pipeline, error) {
	patterns, err := cfg.PatternSet()
	if err != nil {
		return nil, err
	}

	mgr := budget.NewManager(cfg.Budgets, nil)
	loader := persona.NewIdentityLoader(cfg.Identity, mgr.Estimator())
	return &pipeline{
		cfg:      cfg,
		store:    store,
		composer: composer.New(loader, cfg.StageTable(), mgr, mgr.Estimator()),
		detector: triggers.NewDetector(patterns),
		budget:   mgr,
		loader:   loader,
	}, nil
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg *config.Config, store *memory.Store) *cli.App {
	app := &cli.App{
		Name:    "aura",
		Usage:   "Layered context composition for companion AI",
		Version: Version,
		Commands: []*cli.Command{
			composeCmd(cfg, store),
			situationCmd(),
			detectCmd(cfg),
			budgetCmd(cfg),
			rememberCmd(store),
			recallCmd(store),
			identityCmd(cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// composeCmd creates the compose command.
func composeCmd(cfg *config.Config, store *memory.Store) *cli.Command {
	return &cli.Command{
		Name:  "compose",
		Usage: "Compose the layered prompt for a turn (optionally reads a context package JSON from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "User identifier"},
			&cli.IntFlag{Name: "stage", Aliases: []string{"s"}, Value: 1, Usage: "Relationship stage (1-5)"},
			&cli.Float64Flag{Name: "arousal", Usage: "Emotional arousal in [-1,1]"},
			&cli.Float64Flag{Name: "valence", Usage: "Emotional valence in [-1,1]"},
			&cli.Float64Flag{Name: "dominance", Usage: "Emotional dominance in [-1,1]"},
			&cli.Float64Flag{Name: "intimacy", Usage: "Emotional intimacy in [-1,1]"},
			&cli.StringFlag{Name: "now", Usage: "Turn timestamp, RFC3339 (default: current time)"},
			&cli.StringFlag{Name: "last", Usage: "Last interaction timestamp, RFC3339"},
			&cli.BoolFlag{Name: "active", Usage: "A conversation is currently in progress"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Incoming user message; triggers are detected and applied"},
			&cli.StringFlag{Name: "mood", Usage: "Current mood label, used to skip redundant mood shifts"},
			&cli.BoolFlag{Name: "text-only", Usage: "Print only the composed text instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			p, err := newPipeline(cfg, store)
			if err != nil {
				return outputError(err)
			}

			now, err := parseTimeFlag(c.String("now"))
			if err != nil {
				return outputError(errors.NewInvalidRequest("invalid --now: " + err.Error()))
			}
			last, err := parseTimePtrFlag(c.String("last"))
			if err != nil {
				return outputError(errors.NewInvalidRequest("invalid --last: " + err.Error()))
			}

			input := composer.Input{
				UserID:             c.String("user"),
				Stage:              c.Int("stage"),
				Now:                now,
				LastInteraction:    last,
				ConversationActive: c.Bool("active"),
			}

			if c.IsSet("arousal") || c.IsSet("valence") || c.IsSet("dominance") || c.IsSet("intimacy") {
				input.Emotional = &persona.EmotionalState{
					Arousal:   c.Float64("arousal"),
					Valence:   c.Float64("valence"),
					Dominance: c.Float64("dominance"),
					Intimacy:  c.Float64("intimacy"),
				}
			}

			// Context package piped as JSON
			if stdinHasData() {
				data, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				if data != "" {
					var pkg retrieval.ContextPackage
					if err := json.Unmarshal([]byte(data), &pkg); err != nil {
						return outputError(errors.NewInvalidRequest("invalid package JSON: " + err.Error()))
					}
					input.Package = &pkg
				}
			}

			result, err := p.composer.Compose(input)
			if err != nil {
				return outputError(err)
			}
			if result.PackageExpired {
				log.Printf("context package is past its expiry; composing with it anyway")
			}

			var mods []triggers.Modification
			if message := c.String("message"); message != "" {
				mods = p.detector.Detect(message, c.String("mood"))
				if len(mods) > 0 {
					ctx, cancel := context.WithTimeout(context.Background(), p.cfg.RetrievalTimeout())
					defer cancel()
					var searcher triggers.MemorySearcher
					if p.store != nil {
						searcher = triggers.SearcherFunc(p.store.SearchContents)
					}
					result = p.composer.ApplyModifications(ctx, searcher, input.UserID, result, mods)
				}
			}

			if c.Bool("text-only") {
				fmt.Println(result.Text)
				return nil
			}
			return outputJSON(struct {
				composer.Result
				Modifications []triggers.Modification `json:"modifications,omitempty"`
			}{Result: *result, Modifications: mods})
		},
	}
}

// situationCmd creates the situation command.
func situationCmd() *cli.Command {
	return &cli.Command{
		Name:  "situation",
		Usage: "Detect the temporal/activity situation for a turn",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "now", Usage: "Turn timestamp, RFC3339 (default: current time)"},
			&cli.StringFlag{Name: "last", Usage: "Last interaction timestamp, RFC3339"},
			&cli.BoolFlag{Name: "active", Usage: "A conversation is currently in progress"},
		},
		Action: func(c *cli.Context) error {
			now, err := parseTimeFlag(c.String("now"))
			if err != nil {
				return outputError(errors.NewInvalidRequest("invalid --now: " + err.Error()))
			}
			if now.IsZero() {
				now = time.Now()
			}
			last, err := parseTimePtrFlag(c.String("last"))
			if err != nil {
				return outputError(errors.NewInvalidRequest("invalid --last: " + err.Error()))
			}

			s := situation.Detect(now, last, c.Bool("active"))
			return outputJSON(map[string]any{
				"situation": s,
				"text":      situation.Text(s),
				"guidance":  situation.Hints(s),
			})
		},
	}
}

// detectCmd creates the detect command.
func detectCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "Scan a user message for live triggers",
		ArgsUsage: "[message]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mood", Usage: "Current mood label, used to skip redundant mood shifts"},
		},
		Action: func(c *cli.Context) error {
			message := strings.Join(c.Args().Slice(), " ")
			if message == "" && stdinHasData() {
				var err error
				message, err = readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
			}
			if message == "" {
				return outputError(errors.NewInvalidRequest("message is required (argument or stdin)"))
			}

			patterns, err := cfg.PatternSet()
			if err != nil {
				return outputError(err)
			}
			mods := triggers.NewDetector(patterns).Detect(message, c.String("mood"))
			return outputJSON(map[string]any{"modifications": mods})
		},
	}
}

// budgetCmd creates the budget command.
func budgetCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "budget",
		Usage: "Run the token budget engine over tier texts (reads tier JSON from stdin)",
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("tier JSON must be piped via stdin"))
			}
			data, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			var tiers budget.TierContent
			if err := json.Unmarshal([]byte(data), &tiers); err != nil {
				return outputError(errors.NewInvalidRequest("invalid tier JSON: " + err.Error()))
			}

			mgr := budget.NewManager(cfg.Budgets, nil)
			return outputJSON(mgr.Allocate(tiers))
		},
	}
}

// rememberCmd creates the remember command.
func rememberCmd(store *memory.Store) *cli.Command {
	return &cli.Command{
		Name:      "remember",
		Usage:     "Store one fact about a user",
		ArgsUsage: "[content]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "User identifier"},
		},
		Action: func(c *cli.Context) error {
			content := strings.Join(c.Args().Slice(), " ")
			if content == "" && stdinHasData() {
				var err error
				content, err = readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
			}

			fact, err := store.Remember(context.Background(), c.String("user"), content)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(fact)
		},
	}
}

// recallCmd creates the recall command.
func recallCmd(store *memory.Store) *cli.Command {
	return &cli.Command{
		Name:  "recall",
		Usage: "Recall facts about a user (full-text search, or most recent without a query)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "User identifier"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Free-text search query"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 10, Usage: "Maximum facts to return"},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			var (
				facts []memory.Fact
				err   error
			)
			if query := c.String("query"); query != "" {
				facts, err = store.Search(ctx, c.String("user"), query, c.Int("limit"))
			} else {
				facts, err = store.Recent(ctx, c.String("user"), c.Int("limit"))
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"facts": facts, "count": len(facts)})
		},
	}
}

// identityCmd creates the identity command.
func identityCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "identity",
		Usage: "Validate the configured identity template and show the composed identity layer",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "text-only", Usage: "Print only the identity text instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			loader := persona.NewIdentityLoader(cfg.Identity, nil)
			problems := loader.Validate()

			if c.Bool("text-only") {
				fmt.Println(loader.Prompt())
				return nil
			}
			return outputJSON(map[string]any{
				"valid":         len(problems) == 0,
				"problems":      problems,
				"used_fallback": loader.UsedFallback(),
				"text":          loader.Prompt(),
			})
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if auraErr, ok := err.(*errors.AuraError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", auraErr.Code, auraErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTimeFlag parses an optional RFC3339 timestamp; empty means zero.
func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// parseTimePtrFlag parses an optional RFC3339 timestamp; empty means nil.
func parseTimePtrFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
