// Package format classifies a damages narrative into one of a small set of
// layout archetypes and discovers the claimant roster. The detected structure
// is computed once per document and consumed read-only by every later
// pipeline stage.
package format

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/caselens/claimsift/internal/engine/rules"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/types/damages"
)

var (
	enumeratedLineRe = regexp.MustCompile(`^[（(][一二三四五六七八九十㈠㈡㈢㈣㈤㈥㈦㈧㈨㈩][）)]\s*[^：:]+[：:]`)
	numberedLineRe   = regexp.MustCompile(`^\d+[\.、]\s*[^：:0-9]+[：:]?\s*[0-9０-９,，]+\s*元`)
	// claimantNameRe captures the token directly after the claimant marker.
	// A name occurrence only counts when followed by punctuation, a
	// connective particle (因/之/於/與/及/和/等) or end of line; occurrences
	// fused into a verb phrase are picked up via another mention instead.
	claimantNameRe = regexp.MustCompile(`原告([\p{Han}A-Za-z]{1,6})(?:[，、。；：！？\s因之於與及和等]|$)`)
)

// Detector analyzes document layout. It is stateless and safe for concurrent
// use by multiple goroutines.
type Detector struct {
	rules  *rules.Rules
	logger logging.Logger
}

// NewDetector constructs a Detector. A nil logger falls back to a no-op.
func NewDetector(r *rules.Rules, logger logging.Logger) *Detector {
	if r == nil {
		r = rules.Default()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Detector{rules: r, logger: logger}
}

// Detect scans the document line by line and returns its structure. When the
// caller already knows the roster (doc.Roster non-empty), name discovery is
// skipped and the supplied roster is authoritative.
func (d *Detector) Detect(doc *damages.Document) *damages.CaseStructure {
	text := doc.Text
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return &damages.CaseStructure{Format: damages.FormatFree, ClaimantCount: 1}
	}

	names := doc.Roster
	if len(names) == 0 {
		names = d.discoverClaimants(lines)
	}
	claimantCount := doc.ClaimantCount
	if claimantCount == 0 {
		claimantCount = len(names)
		if claimantCount == 0 {
			claimantCount = 1
		}
	}

	enumerated, numbered := 0, 0
	for _, line := range lines {
		if enumeratedLineRe.MatchString(line) {
			enumerated++
		}
		if numberedLineRe.MatchString(line) {
			numbered++
		}
	}

	structure := &damages.CaseStructure{
		ClaimantNames: names,
		ClaimantCount: claimantCount,
	}

	switch {
	case len(names) >= 2:
		structure.Format = damages.FormatMultiClaimant
		structure.Confidence = multiClaimantConfidence(lines, names)
		structure.NarrativeStyle = narrativeStyle(text)
	case enumerated > 0 && enumerated >= numbered:
		structure.Format = damages.FormatStructuredEnumerated
		structure.Confidence = float64(enumerated) / float64(len(lines))
	case numbered > 0:
		structure.Format = damages.FormatNumberedList
		structure.Confidence = float64(numbered) / float64(len(lines))
	default:
		structure.Format = damages.FormatFree
		structure.Confidence = 0
		structure.NarrativeStyle = narrativeStyle(text)
	}

	d.logger.Debug("document structure detected",
		logging.String("format", string(structure.Format)),
		logging.Float64("confidence", structure.Confidence),
		logging.Int("claimants", structure.ClaimantCount),
	)
	return structure
}

// discoverClaimants collects distinct validated names following the claimant
// marker, preserving first-appearance order.
func (d *Detector) discoverClaimants(lines []string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, line := range lines {
		for _, m := range claimantNameRe.FindAllStringSubmatch(line, -1) {
			name := m[1]
			if seen[name] || !ValidName(name, d.rules) {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// ValidName reports whether a token captured after the claimant marker is a
// plausible person name. The filter is mandatory: without it, verbs and
// clause openers that happen to follow 原告 ("主張", "因此") masquerade as
// claimants and corrupt attribution.
func ValidName(name string, r *rules.Rules) bool {
	runes := []rune(name)
	if len(runes) < 2 || len(runes) > 4 {
		return false
	}
	han := 0
	for _, c := range runes {
		if unicode.IsDigit(c) {
			return false
		}
		if unicode.Is(unicode.Han, c) {
			han++
		}
	}
	if han*2 < len(runes) {
		return false
	}
	for _, excl := range r.NameExclusions {
		if strings.Contains(name, excl) {
			return false
		}
	}
	return true
}

// multiClaimantConfidence scores how strongly the document separates its
// claimants: a claimant mentioned on several lines suggests a per-claimant
// section rather than a passing reference.
func multiClaimantConfidence(lines []string, names []string) float64 {
	if len(names) == 0 {
		return 0
	}
	score := 0
	for _, name := range names {
		mentions := 0
		for _, line := range lines {
			if strings.Contains(line, "原告"+name) {
				mentions++
			}
		}
		if mentions > 1 {
			score += 2
		} else if mentions == 1 {
			score++
		}
	}
	conf := float64(score) / float64(len(names)*2)
	if conf > 1 {
		conf = 1
	}
	return conf
}

func narrativeStyle(text string) string {
	if strings.Count(text, "\n\n") >= 3 {
		return "paragraph"
	}
	if strings.Count(text, "。") > 10 {
		return "continuous"
	}
	return "free"
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
