// Package damages defines the shared data model of the amount extraction
// engine: candidates, finalized damage items, document structure metadata,
// and the aggregation result returned to callers. These types are plain data
// carriers; all behaviour lives in internal/engine.
package damages

import "fmt"

// Category classifies what kind of loss a damage item compensates.
type Category string

const (
	CategoryMedical        Category = "medical"
	CategoryTransportation Category = "transportation"
	CategoryCare           Category = "care"
	CategoryLostWork       Category = "lost_work"
	CategoryMentalDistress Category = "mental_distress"
	CategoryVehicleDamage  Category = "vehicle_damage"
	CategoryOther          Category = "other"
)

// Label returns the Traditional Chinese label used when rendering documents.
func (c Category) Label() string {
	switch c {
	case CategoryMedical:
		return "醫療費用"
	case CategoryTransportation:
		return "交通費用"
	case CategoryCare:
		return "看護費用"
	case CategoryLostWork:
		return "工作損失"
	case CategoryMentalDistress:
		return "精神慰撫金"
	case CategoryVehicleDamage:
		return "車輛損失"
	default:
		return "其他費用"
	}
}

// Role distinguishes amounts actually claimed from amounts that merely feed a
// calculation (a daily wage, a monthly salary).
type Role string

const (
	RoleClaimAmount      Role = "claim_amount"
	RoleCalculationBasis Role = "calculation_basis"
)

// PatternFamily identifies which extraction strategy produced a candidate.
// It is used for overlap tie-breaking, never for semantics.
type PatternFamily string

const (
	FamilyStructuredEnumerated PatternFamily = "structured_enumerated"
	FamilyNumberedList         PatternFamily = "numbered_list"
	FamilyFreeNarrative        PatternFamily = "free_narrative"
	FamilyMixedNumeral         PatternFamily = "mixed_numeral"
	FamilyGenericFallback      PatternFamily = "generic_fallback"
)

// DocumentFormat is the layout archetype detected for a whole document.
type DocumentFormat string

const (
	FormatStructuredEnumerated DocumentFormat = "structured_enumerated"
	FormatNumberedList         DocumentFormat = "numbered_list"
	FormatMultiClaimant        DocumentFormat = "multi_claimant_narrative"
	FormatFree                 DocumentFormat = "free_format"
)

// UnattributedClaimant is the synthetic claimant identifier that receives
// amounts which could not be attributed to any named party, keeping totals
// auditable instead of silently dropping money.
const UnattributedClaimant = "未能歸屬"

// DefaultClaimant is used for single-claimant documents with no named party.
const DefaultClaimant = "原告"

// Span marks a half-open byte range [Start, End) in the source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// AmountCandidate is one detected numeral-plus-currency occurrence. It is
// created by the extractor and progressively annotated by the classifier and
// attributor; the deduplicator either promotes it into a DamageItem or drops
// it. Candidates never outlive a single pipeline run.
type AmountCandidate struct {
	// RawText is the exact substring matched, e.g. "5萬4,741元".
	RawText string `json:"raw_text"`

	// Value is the normalized integer amount in whole NTD.
	Value int64 `json:"value"`

	// Span locates the match in the source text.
	Span Span `json:"span"`

	// Context is a bounded window of text surrounding the match. All
	// downstream classification reads it; it is kept until the candidate is
	// finalized or dropped.
	Context string `json:"context"`

	// ContextStart is the byte offset of Context within the source text, so
	// stages can convert between document and window positions.
	ContextStart int `json:"context_start"`

	// PatternFamily records which strategy produced the candidate.
	PatternFamily PatternFamily `json:"pattern_family"`

	// Confidence is a heuristic well-formedness score in [0,1].
	Confidence float64 `json:"confidence"`

	// Annotation fields, filled by later pipeline stages.
	Role     Role     `json:"role,omitempty"`
	Category Category `json:"category,omitempty"`
	Claimant string   `json:"claimant,omitempty"`

	// SharedAmong lists the claimants of a jointly borne cost (e.g. a care
	// bill split between two injured plaintiffs). Empty for ordinary items.
	SharedAmong []string `json:"shared_among,omitempty"`

	// Description is a short human-readable justification for the item,
	// derived from the matched line or window.
	Description string `json:"description,omitempty"`
}

// DamageItem is a surviving, classified, deduplicated amount owned by one
// claimant.
type DamageItem struct {
	Claimant    string   `json:"claimant"`
	Category    Category `json:"category"`
	Amount      int64    `json:"amount"`
	Description string   `json:"description"`

	// SharedAmong carries the full claimant list when this item is one
	// share of a jointly borne cost. Empty for ordinary items.
	SharedAmong []string `json:"shared_among,omitempty"`

	// Span traces the item back to the candidate that produced it. Split
	// shares of a joint cost carry the span of their common source.
	Span Span `json:"span"`
}

// CaseStructure is document-level metadata computed once by the format
// detector and consumed read-only by every later stage.
type CaseStructure struct {
	Format         DocumentFormat `json:"format"`
	Confidence     float64        `json:"confidence"`
	ClaimantNames  []string       `json:"claimant_names,omitempty"`
	ClaimantCount  int            `json:"claimant_count"`
	NarrativeStyle string         `json:"narrative_style,omitempty"`
}

// MultiClaimant reports whether the document involves more than one claimant.
func (s *CaseStructure) MultiClaimant() bool {
	return s.ClaimantCount > 1
}

// Document is the engine's input: the damages narrative plus optional
// pre-known hints the surrounding system may already have derived.
type Document struct {
	// ID is an opaque caller-supplied identifier used in logs and persistence.
	ID string `json:"id,omitempty"`

	// Text is the UTF-8 damages narrative.
	Text string `json:"text"`

	// Roster optionally pre-seeds the validated claimant names; when set the
	// format detector's own name discovery is skipped.
	Roster []string `json:"roster,omitempty"`

	// ClaimantCount optionally pre-seeds the number of claimants.
	ClaimantCount int `json:"claimant_count,omitempty"`
}

// ClaimantBreakdown is one claimant's ordered items and subtotal.
type ClaimantBreakdown struct {
	ID       string       `json:"id"`
	Items    []DamageItem `json:"items"`
	Subtotal int64        `json:"subtotal"`
}

// Direction describes how a stated total deviates from the computed total.
type Direction string

const (
	// DirectionUnderstated means the document's stated total is lower than
	// the bottom-up computed total.
	DirectionUnderstated Direction = "understated"
	// DirectionOverstated means the stated total exceeds the computed total.
	DirectionOverstated Direction = "overstated"
	// DirectionNone means the two totals agree.
	DirectionNone Direction = "none"
)

// ValidationReport compares the computed grand total with a total the source
// document states for itself. The computed total is always authoritative;
// the report only surfaces drafting errors in the source.
type ValidationReport struct {
	CalculatedTotal int64     `json:"calculated_total"`
	StatedTotal     int64     `json:"stated_total"`
	Match           bool      `json:"match"`
	Difference      int64     `json:"difference"`
	Direction       Direction `json:"direction"`
}

// AggregationResult is the engine's only externally visible output.
type AggregationResult struct {
	Claimants  []ClaimantBreakdown `json:"claimants"`
	GrandTotal int64               `json:"grand_total"`

	// Validation is nil when the document states no total of its own.
	Validation *ValidationReport `json:"validation,omitempty"`

	// Structure echoes the detected document structure for diagnostics.
	Structure CaseStructure `json:"structure"`
}

// Empty reports whether the analysis produced no items at all. Callers must
// treat an empty result as "manual review required", not as a failure.
func (r *AggregationResult) Empty() bool {
	return r == nil || len(r.Claimants) == 0
}

// ItemCount returns the total number of damage items across all claimants.
func (r *AggregationResult) ItemCount() int {
	n := 0
	for _, c := range r.Claimants {
		n += len(c.Items)
	}
	return n
}

// FormatAmount renders an integer NTD amount with thousands separators, the
// way the generated documents print money ("43,795元" style without the unit).
func FormatAmount(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	if len(s) > 3 {
		var out []byte
		lead := len(s) % 3
		if lead > 0 {
			out = append(out, s[:lead]...)
		}
		for i := lead; i < len(s); i += 3 {
			if len(out) > 0 {
				out = append(out, ',')
			}
			out = append(out, s[i:i+3]...)
		}
		s = string(out)
	}
	if neg {
		return "-" + s
	}
	return s
}
