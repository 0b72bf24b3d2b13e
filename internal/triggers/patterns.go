package triggers

import "regexp"

// Default pattern tables. Kept as data so the lists can be unit-tested
// independently of the detection loop and overridden from config.

var defaultPositivePatterns = []string{
	`got the job`,
	`i passed`,
	`got promoted|got a promotion`,
	`(so|really) happy`,
	`great news|good news|amazing news`,
	`i'?m (so |really )?excited`,
	`best day`,
	`we did it`,
	`finally did it`,
}

var defaultNegativePatterns = []string{
	`i'?m (so |really )?(sad|down|depressed)`,
	`terrible day|awful day|worst day`,
	`i failed`,
	`lost my`,
	`broke up|breakup`,
	`(so|really) stressed`,
	`i'?m anxious|anxiety is`,
	`can'?t stop crying|been crying`,
	`i'?m upset`,
	`feeling lonely|i'?m lonely`,
}

var defaultMemoryPatterns = []string{
	`remember when`,
	`remember (that|what|how)`,
	`you said`,
	`i told you`,
	`we talked about`,
	`last time we`,
	`that time (we|i|you)`,
	`my (sister|brother|mom|mum|dad|mother|father|parents|best friend)`,
	`like i mentioned`,
}

// PatternSet holds the three compiled pattern lists used by detection.
type PatternSet struct {
	Positive []*regexp.Regexp
	Negative []*regexp.Regexp
	Memory   []*regexp.Regexp
}

// DefaultPatterns compiles the built-in pattern tables.
func DefaultPatterns() *PatternSet {
	set, err := CompilePatterns(defaultPositivePatterns, defaultNegativePatterns, defaultMemoryPatterns)
	if err != nil {
		// The built-in tables are constants; a compile failure is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return set
}

// CompilePatterns compiles user-supplied pattern lists. All matching is
// case-insensitive.
func CompilePatterns(positive, negative, memory []string) (*PatternSet, error) {
	set := &PatternSet{}
	var err error
	if set.Positive, err = compileAll(positive); err != nil {
		return nil, err
	}
	if set.Negative, err = compileAll(negative); err != nil {
		return nil, err
	}
	if set.Memory, err = compileAll(memory); err != nil {
		return nil, err
	}
	return set, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
