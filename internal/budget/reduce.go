package budget

// TierState is one tier's standing in a reduction plan: its current token
// count and the floor below which it refuses to shrink.
type TierState struct {
	Name   string
	Tokens int
	Floor  int
}

// Reduction is one step of a reduction plan.
type Reduction struct {
	Name     string
	ReduceBy int
}

// ReduceForCap computes the cuts needed to absorb excess tokens, taking
// from tiers in the order given (lowest-value first). Each cut is capped
// at the tier's current tokens minus its floor. The input slice is not
// modified. If every tier is exhausted to its floor before the excess
// reaches zero, the remaining excess is left unabsorbed — the caller's
// hard cap is exceeded by exactly that shortfall.
func ReduceForCap(tiers []TierState, excess int) []Reduction {
	if excess <= 0 {
		return nil
	}

	plan := make([]Reduction, 0, len(tiers))
	for _, tier := range tiers {
		if excess == 0 {
			break
		}
		available := tier.Tokens - tier.Floor
		if available <= 0 {
			continue
		}
		cut := min(available, excess)
		plan = append(plan, Reduction{Name: tier.Name, ReduceBy: cut})
		excess -= cut
	}
	return plan
}
