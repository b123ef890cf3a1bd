// Package aggregate promotes the surviving candidates into damage items,
// builds per-claimant breakdowns and totals, and cross-checks the computed
// grand total against a total the document states for itself. The computed
// total is always authoritative; a mismatch is reported, never corrected.
package aggregate

import (
	"github.com/caselens/claimsift/internal/engine/numeral"
	"github.com/caselens/claimsift/internal/engine/rules"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// Aggregator assembles the final result. Stateless and safe for concurrent
// use.
type Aggregator struct {
	rules  *rules.Rules
	logger logging.Logger
}

// NewAggregator constructs an Aggregator. A nil rule set or logger falls back
// to defaults.
func NewAggregator(r *rules.Rules, logger logging.Logger) *Aggregator {
	if r == nil {
		r = rules.Default()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Aggregator{rules: r, logger: logger}
}

// Aggregate turns deduplicated candidates into the engine result. Claimant
// breakdowns appear in order of each claimant's first item; a jointly borne
// cost is split evenly, with the integer remainder going to the first
// claimant so the split always sums exactly to the source amount.
func (a *Aggregator) Aggregate(cands []damages.AmountCandidate, structure *damages.CaseStructure, text string) *damages.AggregationResult {
	result := &damages.AggregationResult{Structure: *structure}

	byClaimant := map[string]int{}
	addItem := func(item damages.DamageItem) {
		idx, ok := byClaimant[item.Claimant]
		if !ok {
			idx = len(result.Claimants)
			byClaimant[item.Claimant] = idx
			result.Claimants = append(result.Claimants, damages.ClaimantBreakdown{ID: item.Claimant})
		}
		b := &result.Claimants[idx]
		b.Items = append(b.Items, item)
		b.Subtotal += item.Amount
		result.GrandTotal += item.Amount
	}

	for _, c := range cands {
		if len(c.SharedAmong) >= 2 {
			n := int64(len(c.SharedAmong))
			share := c.Value / n
			remainder := c.Value - share*n
			for i, claimant := range c.SharedAmong {
				amount := share
				if i == 0 {
					amount += remainder
				}
				addItem(damages.DamageItem{
					Claimant:    claimant,
					Category:    c.Category,
					Amount:      amount,
					Description: c.Description,
					SharedAmong: c.SharedAmong,
					Span:        c.Span,
				})
			}
			continue
		}
		addItem(damages.DamageItem{
			Claimant:    c.Claimant,
			Category:    c.Category,
			Amount:      c.Value,
			Description: c.Description,
			Span:        c.Span,
		})
	}

	result.Validation = a.validate(text, result.GrandTotal)

	a.logger.Debug("aggregation finished",
		logging.Int("claimants", len(result.Claimants)),
		logging.Int("items", result.ItemCount()),
		logging.Int64("grand_total", result.GrandTotal),
	)
	return result
}

// tailFraction bounds the search for a stated grand total to the document's
// concluding region; subtotals earlier in the body must not be mistaken for
// the conclusion. Short documents are searched whole.
const (
	tailFraction = 0.3
	minTailBytes = 200
)

// validate looks for the document's own concluding total and compares it with
// the computed one. Returns nil when the document states no total.
func (a *Aggregator) validate(text string, calculated int64) *damages.ValidationReport {
	if text == "" {
		return nil
	}
	tail := int(float64(len(text)) * tailFraction)
	if tail < minTailBytes {
		tail = minTailBytes
	}
	start := len(text) - tail
	if start < 0 {
		start = 0
	}

	matches := a.rules.StatedTotalPattern.FindAllStringSubmatchIndex(text[start:], -1)
	if len(matches) == 0 {
		return nil
	}
	last := matches[len(matches)-1]
	raw := text[start:][last[4]:last[5]]
	stated, err := numeral.Normalize(raw)
	if err != nil {
		a.logger.Warn("stated total unparseable, validation skipped",
			logging.String("raw", raw), logging.Err(err))
		return nil
	}

	diff := calculated - stated
	report := &damages.ValidationReport{
		CalculatedTotal: calculated,
		StatedTotal:     stated,
		Match:           diff == 0,
		Difference:      diff,
		Direction:       damages.DirectionNone,
	}
	switch {
	case diff > 0:
		report.Direction = damages.DirectionUnderstated
	case diff < 0:
		report.Direction = damages.DirectionOverstated
	}
	return report
}
