// Package dedup reduces the deliberately over-complete candidate set to the
// items that count. Reductions run in a fixed order: span-overlap resolution
// first (the cascade matches the same money several ways), then same-value
// collapse per claimant (a figure restated in prose after an itemized line),
// then digit-suffix containment (a partial match inside a longer numeral),
// and only then the removal of calculation-basis amounts. Basis amounts are
// kept through the earlier reductions so they can still suppress the partial
// matches they overlap.
package dedup

import (
	"sort"
	"strconv"
	"strings"

	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// familyRank orders pattern families by structural specificity, used only to
// break confidence ties between overlapping candidates.
var familyRank = map[damages.PatternFamily]int{
	damages.FamilyStructuredEnumerated: 5,
	damages.FamilyNumberedList:         4,
	damages.FamilyFreeNarrative:        3,
	damages.FamilyMixedNumeral:         2,
	damages.FamilyGenericFallback:      1,
}

// Deduplicator reduces candidate sets. Stateless and safe for concurrent use.
type Deduplicator struct {
	logger logging.Logger
}

// NewDeduplicator constructs a Deduplicator. A nil logger falls back to a
// no-op.
func NewDeduplicator(logger logging.Logger) *Deduplicator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Deduplicator{logger: logger}
}

// Deduplicate returns the surviving claim-amount candidates in document
// order. The input slice is not modified.
func (d *Deduplicator) Deduplicate(cands []damages.AmountCandidate) []damages.AmountCandidate {
	if len(cands) == 0 {
		return nil
	}

	out := d.reduceOverlaps(cands)
	out = d.collapseEqualValues(out)
	out = d.dropContainedValues(out)

	// Basis removal runs last: a basis figure may have been the winning
	// candidate that suppressed a weaker partial match of itself.
	n := 0
	for _, c := range out {
		if c.Role == damages.RoleClaimAmount {
			out[n] = c
			n++
		}
	}
	dropped := len(out) - n
	out = out[:n]

	d.logger.Debug("deduplication finished",
		logging.Int("in", len(cands)),
		logging.Int("out", len(out)),
		logging.Int("basis_dropped", dropped),
	)
	return out
}

// reduceOverlaps groups candidates whose spans share bytes and keeps exactly
// one per group: highest confidence, then most specific family, then widest
// span.
func (d *Deduplicator) reduceOverlaps(cands []damages.AmountCandidate) []damages.AmountCandidate {
	sorted := make([]damages.AmountCandidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Span.Start < sorted[j].Span.Start
	})

	var out []damages.AmountCandidate
	groupEnd := -1
	for _, c := range sorted {
		if len(out) > 0 && c.Span.Start < groupEnd {
			best := &out[len(out)-1]
			if betterThan(c, *best) {
				*best = c
			}
			if c.Span.End > groupEnd {
				groupEnd = c.Span.End
			}
			continue
		}
		out = append(out, c)
		groupEnd = c.Span.End
	}
	return out
}

func betterThan(a, b damages.AmountCandidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if familyRank[a.PatternFamily] != familyRank[b.PatternFamily] {
		return familyRank[a.PatternFamily] > familyRank[b.PatternFamily]
	}
	return a.Span.End-a.Span.Start > b.Span.End-b.Span.Start
}

// collapseEqualValues keeps one candidate per (claimant, value) pair, the one
// with the highest confidence. A structured line item followed by a prose
// restatement of the same figure is one claim, not two.
func (d *Deduplicator) collapseEqualValues(cands []damages.AmountCandidate) []damages.AmountCandidate {
	type key struct {
		claimant string
		value    int64
	}
	best := make(map[key]int, len(cands))
	for i, c := range cands {
		k := key{c.Claimant, c.Value}
		if j, ok := best[k]; !ok || c.Confidence > cands[j].Confidence {
			best[k] = i
		}
	}
	keep := make([]bool, len(cands))
	for _, i := range best {
		keep[i] = true
	}
	var out []damages.AmountCandidate
	for i, c := range cands {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

// dropContainedValues removes, per claimant, a value whose digit string is a
// proper suffix of another value's digit string with at most one extra
// leading digit, when the suffix is at least three digits long. Such pairs
// come from a narrower pattern matching the tail of a longer numeral
// (43,795 also seen as 3,795), never from two real costs.
func (d *Deduplicator) dropContainedValues(cands []damages.AmountCandidate) []damages.AmountCandidate {
	drop := make([]bool, len(cands))
	for i, a := range cands {
		for j, b := range cands {
			if i == j || drop[j] || a.Claimant != b.Claimant {
				continue
			}
			if containedIn(a.Value, b.Value) {
				drop[i] = true
				d.logger.Debug("contained value dropped",
					logging.Int64("value", a.Value),
					logging.Int64("containing", b.Value),
				)
				break
			}
		}
	}
	var out []damages.AmountCandidate
	for i, c := range cands {
		if !drop[i] {
			out = append(out, c)
		}
	}
	return out
}

// containedIn reports whether small's decimal form is a proper suffix of
// big's, with the length and magnitude constraints described above.
func containedIn(small, big int64) bool {
	if small >= big {
		return false
	}
	s := strconv.FormatInt(small, 10)
	b := strconv.FormatInt(big, 10)
	return len(s) >= 3 && len(b)-len(s) <= 1 && strings.HasSuffix(b, s)
}
