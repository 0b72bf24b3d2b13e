// Package persona produces the stable personality layers of a composed
// prompt: the cached base identity text, the relationship-stage overlay,
// and the emotional-state overlay.
package persona

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/auralabs/aura/internal/tokens"
)

// IdentityTokenCeiling is the validation ceiling for the identity
// template. The identity layer is composed into every prompt, so an
// oversized template squeezes every other layer's budget.
const IdentityTokenCeiling = 2500

// Identity holds the configured identity fields and the base template.
type Identity struct {
	Name          string   `yaml:"name"`
	Age           int      `yaml:"age"`
	Occupation    string   `yaml:"occupation"`
	Traits        []string `yaml:"traits"`
	Values        []string `yaml:"values"`
	SpeakingStyle string   `yaml:"speaking_style"`
	Boundaries    string   `yaml:"boundaries"`
	Template      string   `yaml:"template"`
}

// requiredSections lists the canonical template sections in order.
var requiredSections = []string{
	"Identity",
	"Speaking style",
	"Boundaries",
}

// sectionSynonyms maps canonical section names to accepted heading
// synonyms (lowercase).
var sectionSynonyms = map[string][]string{
	"Identity":       {"identity", "who you are", "persona", "character"},
	"Speaking style": {"speaking style", "voice", "style", "how you speak"},
	"Boundaries":     {"boundaries", "limits", "safety", "what you avoid"},
}

// IdentityLoader composes and caches the Layer-1 identity text. The
// cache is filled on first access and only an explicit Reset clears it;
// initialization is idempotent, so concurrent first calls racing to fill
// it are benign.
type IdentityLoader struct {
	identity  Identity
	estimator *tokens.Estimator

	cached string
	loaded bool
}

// NewIdentityLoader creates a loader for the given identity.
func NewIdentityLoader(identity Identity, estimator *tokens.Estimator) *IdentityLoader {
	if estimator == nil {
		estimator = tokens.NewEstimator()
	}
	return &IdentityLoader{identity: identity, estimator: estimator}
}

// Prompt returns the identity layer text, loading and caching it on
// first call. When the template is absent, a minimal deterministic
// paragraph is synthesized from the identity fields so the layer is
// never empty.
func (l *IdentityLoader) Prompt() string {
	if !l.loaded {
		l.cached = l.build()
		l.loaded = true
	}
	return l.cached
}

// UsedFallback reports whether the loader had to synthesize the identity
// text because no template was configured. Forces a load.
func (l *IdentityLoader) UsedFallback() bool {
	l.Prompt()
	return strings.TrimSpace(l.identity.Template) == ""
}

// Reset clears the cached prompt. The next Prompt call rebuilds it.
func (l *IdentityLoader) Reset() {
	l.cached = ""
	l.loaded = false
}

func (l *IdentityLoader) build() string {
	if t := strings.TrimSpace(l.identity.Template); t != "" {
		return t
	}
	return FallbackIdentity(l.identity)
}

// FallbackIdentity synthesizes a minimal identity paragraph from the
// structured fields. Used when no template is configured.
func FallbackIdentity(id Identity) string {
	name := id.Name
	if name == "" {
		name = "a conversational companion"
	}

	var sb strings.Builder
	sb.WriteString("You are ")
	sb.WriteString(name)
	if id.Age > 0 {
		fmt.Fprintf(&sb, ", %d years old", id.Age)
	}
	if id.Occupation != "" {
		fmt.Fprintf(&sb, ", working as %s", id.Occupation)
	}
	sb.WriteString(".")
	if len(id.Traits) > 0 {
		fmt.Fprintf(&sb, " You are %s.", strings.Join(id.Traits, ", "))
	}
	if id.SpeakingStyle != "" {
		fmt.Fprintf(&sb, " You speak in a %s way.", id.SpeakingStyle)
	}
	return sb.String()
}

// Validate checks the identity template at startup/test time and returns
// human-readable problems. An empty slice means the identity is valid.
// Per-call composition never validates; a broken template degrades to
// the fallback instead.
func (l *IdentityLoader) Validate() []string {
	var problems []string

	template := strings.TrimSpace(l.identity.Template)
	if template == "" {
		problems = append(problems, "identity template is empty")
		return problems
	}

	headings := markdownHeadings(template)
	for _, canonical := range requiredSections {
		if !hasHeading(headings, sectionSynonyms[canonical]) {
			problems = append(problems, fmt.Sprintf("missing required section: %s", canonical))
		}
	}

	if est := l.estimator.Estimate(template, false); est > IdentityTokenCeiling {
		problems = append(problems,
			fmt.Sprintf("identity template too large: ~%d tokens (ceiling %d)", est, IdentityTokenCeiling))
	}

	return problems
}

// markdownHeadings parses the template and returns all heading texts,
// lowercased and trimmed.
func markdownHeadings(src string) []string {
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var headings []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		for i := 0; i < h.Lines().Len(); i++ {
			seg := h.Lines().At(i)
			buf.Write(seg.Value(source))
		}
		headings = append(headings, strings.ToLower(strings.TrimSpace(buf.String())))
		return ast.WalkContinue, nil
	})
	return headings
}

func hasHeading(headings, synonyms []string) bool {
	for _, h := range headings {
		for _, s := range synonyms {
			if h == s {
				return true
			}
		}
	}
	return false
}
