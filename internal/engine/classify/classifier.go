// Package classify assigns each amount candidate a damage category and a
// role. The role logic is the engine's single most important correctness
// mechanism: a figure preceded by a basis-indicator phrase (a daily wage, a
// statutory monthly salary) is not itself claimed, unless a claim verb sits
// strictly between the indicator and the amount: a basis phrase can open the
// same sentence that ends in the actual claimed figure.
package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/caselens/claimsift/internal/engine/rules"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// Config holds the classifier's tunable parameters.
type Config struct {
	// BasisWindow is how many runes before the amount are searched for a
	// basis indicator. Indicators further away describe a different figure.
	BasisWindow int
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{BasisWindow: 30}
}

// Classifier annotates candidates in place. Stateless and safe for concurrent
// use.
type Classifier struct {
	cfg    Config
	rules  *rules.Rules
	logger logging.Logger
}

// NewClassifier constructs a Classifier. Zero-value config fields fall back
// to defaults; a nil logger falls back to a no-op.
func NewClassifier(cfg Config, r *rules.Rules, logger logging.Logger) *Classifier {
	if cfg.BasisWindow == 0 {
		cfg.BasisWindow = DefaultConfig().BasisWindow
	}
	if r == nil {
		r = rules.Default()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Classifier{cfg: cfg, rules: r, logger: logger}
}

// Classify fills Role and Category on every candidate. Candidates arrive with
// Role pre-set to ClaimAmount by the extractor; only the basis rule changes it.
func (c *Classifier) Classify(cands []damages.AmountCandidate) {
	for i := range cands {
		cands[i].Category = c.categoryFor(&cands[i])
		if c.isCalculationBasis(&cands[i]) {
			cands[i].Role = damages.RoleCalculationBasis
			c.logger.Debug("candidate downgraded to calculation basis",
				logging.Int64("value", cands[i].Value),
				logging.String("raw", cands[i].RawText),
			)
		}
	}
}

// categoryFor prefers the item label when a line-shaped family captured one:
// a label like 交通費用 is authoritative even when the explanatory sentence
// mentions another category's vocabulary. Unlabeled candidates fall back to
// keyword proximity over the context window, nearest keyword wins, ties
// resolved by category order.
func (c *Classifier) categoryFor(cand *damages.AmountCandidate) damages.Category {
	labeled := cand.PatternFamily == damages.FamilyStructuredEnumerated ||
		cand.PatternFamily == damages.FamilyNumberedList
	if labeled && cand.Description != "" {
		if cat := c.rules.CategoryFor(cand.Description); cat != damages.CategoryOther {
			return cat
		}
	}

	amountStart := cand.Span.Start - cand.ContextStart
	amountEnd := cand.Span.End - cand.ContextStart
	if amountStart < 0 || amountEnd > len(cand.Context) {
		return c.rules.CategoryFor(cand.Context)
	}

	best := damages.CategoryOther
	bestDist := -1
	for _, ck := range c.rules.Categories {
		for _, k := range ck.Keywords {
			from := 0
			for {
				idx := strings.Index(cand.Context[from:], k)
				if idx < 0 {
					break
				}
				idx += from
				from = idx + len(k)

				var dist int
				switch {
				case idx+len(k) <= amountStart:
					dist = amountStart - (idx + len(k))
				case idx >= amountEnd:
					dist = idx - amountEnd
				default:
					dist = 0
				}
				if bestDist < 0 || dist < bestDist {
					bestDist = dist
					best = ck.Category
				}
			}
		}
	}
	return best
}

// isCalculationBasis applies the distance-bounded indicator lookup followed
// by the claim-verb override check, in that order.
//
// The override is interpreted defensively: it fires only when the verb lies
// strictly between the indicator and the amount. A verb before the indicator
// or after the amount proves nothing about this figure.
func (c *Classifier) isCalculationBasis(cand *damages.AmountCandidate) bool {
	// Byte offset of the amount inside the context window.
	amountPos := cand.Span.Start - cand.ContextStart
	if amountPos <= 0 || amountPos > len(cand.Context) {
		return false
	}
	prefix := cand.Context[:amountPos]
	windowStart := runeSuffixStart(prefix, c.cfg.BasisWindow)
	window := prefix[windowStart:]

	// Literal indicators: take the one nearest to the amount.
	bestEnd := -1
	for _, ind := range c.rules.BasisIndicators {
		if idx := strings.LastIndex(window, ind); idx >= 0 {
			if end := idx + len(ind); end > bestEnd {
				bestEnd = end
			}
		}
	}
	// Pattern indicators.
	for _, re := range c.rules.BasisPatterns {
		locs := re.FindAllStringIndex(window, -1)
		if len(locs) > 0 {
			if end := locs[len(locs)-1][1]; end > bestEnd {
				bestEnd = end
			}
		}
	}
	if bestEnd < 0 {
		return false
	}

	between := window[bestEnd:]
	for _, verb := range c.rules.ClaimVerbs {
		if strings.Contains(between, verb) {
			return false
		}
	}
	return true
}

// runeSuffixStart returns the byte offset where the last n runes of s begin.
func runeSuffixStart(s string, n int) int {
	pos := len(s)
	for i := 0; i < n && pos > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:pos])
		pos -= size
	}
	return pos
}
