// Package attribute assigns each amount candidate to a claimant. For
// single-claimant documents this is trivial. Multi-claimant documents are
// resolved in two steps: amounts inside an enumerated section whose header
// names a claimant (（一）原告Ｘ部分：) belong to that claimant regardless of
// any incidental mention of another party inside the section; everything else
// falls back to the nearest preceding mention of a validated claimant name.
// Jointly borne costs named alongside several claimants in one unfenced
// sentence are split. Amounts with no resolvable owner go to a synthetic
// unattributed bucket so totals stay auditable.
package attribute

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/caselens/claimsift/internal/engine/rules"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// Attributor resolves candidate ownership. Stateless and safe for concurrent
// use.
type Attributor struct {
	rules  *rules.Rules
	logger logging.Logger
}

// NewAttributor constructs an Attributor. A nil rule set or logger falls back
// to defaults.
func NewAttributor(r *rules.Rules, logger logging.Logger) *Attributor {
	if r == nil {
		r = rules.Default()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Attributor{rules: r, logger: logger}
}

// Attribute fills Claimant (and SharedAmong for joint costs) on every
// candidate, in place.
func (a *Attributor) Attribute(cands []damages.AmountCandidate, structure *damages.CaseStructure, text string) {
	if len(cands) == 0 {
		return
	}

	if !structure.MultiClaimant() {
		claimant := damages.DefaultClaimant
		if len(structure.ClaimantNames) > 0 {
			claimant = structure.ClaimantNames[0]
		}
		for i := range cands {
			cands[i].Claimant = claimant
		}
		return
	}

	mentions := make(map[string][]int, len(structure.ClaimantNames))
	for _, name := range structure.ClaimantNames {
		mentions[name] = allOccurrences(text, name)
	}
	sections := sectionsOf(text, structure.ClaimantNames)

	for i := range cands {
		a.attributeOne(&cands[i], structure.ClaimantNames, mentions, sections, text)
	}
}

func (a *Attributor) attributeOne(cand *damages.AmountCandidate, names []string, mentions map[string][]int, sections []section, text string) {
	pos := cand.Span.Start

	// An enumerated section that names its claimant fences everything inside
	// it: an incidental mention of another party never pulls the amount out.
	if owner := ownerAt(sections, pos); owner != "" {
		cand.Claimant = owner
		return
	}

	best := ""
	bestPos := -1
	for _, name := range names {
		if p := lastBefore(mentions[name], pos); p > bestPos {
			best, bestPos = name, p
		}
	}

	if best == "" {
		cand.Claimant = damages.UnattributedClaimant
		a.logger.Debug("candidate has no preceding claimant mention",
			logging.Int64("value", cand.Value),
			logging.String("raw", cand.RawText),
		)
		return
	}
	cand.Claimant = best

	// Joint cost: several claimants named in the sentence that states the
	// amount, for a category commonly borne together.
	if !a.rules.IsSharedCategory(cand.Category) {
		return
	}
	sentence := sentenceAround(text, pos, cand.Span.End)
	var shared []string
	for _, name := range names {
		if strings.Contains(sentence, name) {
			shared = append(shared, name)
		}
	}
	if len(shared) >= 2 {
		cand.SharedAmong = shared
		cand.Claimant = shared[0]
	}
}

// section is one enumerated span of the document. Owner is empty when the
// header names no claimant, or more than one.
type section struct {
	start, end int
	owner      string
}

var sectionHeaderPattern = regexp.MustCompile(`（[一二三四五六七八九十]{1,3}）`)

// sectionsOf splits text at enumerated headers （一）/（二）… and records the
// claimant each header names, if any.
func sectionsOf(text string, names []string) []section {
	locs := sectionHeaderPattern.FindAllStringIndex(text, -1)
	sections := make([]section, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections = append(sections, section{
			start: loc[0],
			end:   end,
			owner: headerOwner(text[loc[1]:end], names),
		})
	}
	return sections
}

// headerOwner returns the single claimant named in the header, the text
// between the enumeration marker and the first colon, full stop or newline.
// Two names in one header leave the section unowned.
func headerOwner(body string, names []string) string {
	limit := len(body)
	for i, r := range body {
		if r == '：' || r == ':' || r == '。' || r == '\n' {
			limit = i
			break
		}
	}
	header := body[:limit]
	owner := ""
	for _, name := range names {
		if strings.Contains(header, name) {
			if owner != "" {
				return ""
			}
			owner = name
		}
	}
	return owner
}

// ownerAt returns the owning claimant of the section enclosing pos, or "".
func ownerAt(sections []section, pos int) string {
	for _, s := range sections {
		if pos >= s.start && pos < s.end {
			return s.owner
		}
	}
	return ""
}

// allOccurrences returns every byte offset where needle occurs in text.
func allOccurrences(text, needle string) []int {
	var out []int
	from := 0
	for {
		idx := strings.Index(text[from:], needle)
		if idx < 0 {
			return out
		}
		out = append(out, from+idx)
		from += idx + len(needle)
	}
}

// lastBefore returns the greatest occurrence strictly before pos, or -1.
func lastBefore(occurrences []int, pos int) int {
	best := -1
	for _, p := range occurrences {
		if p >= pos {
			break
		}
		best = p
	}
	return best
}

// sentenceAround returns the sentence enclosing [start, end): the text between
// the previous and next full-stop or line boundary.
func sentenceAround(text string, start, end int) string {
	boundary := func(r rune) bool {
		return r == '。' || r == '\n' || r == '；'
	}
	s := start
	for s > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:s])
		if boundary(r) {
			break
		}
		s -= size
	}
	e := end
	for e < len(text) {
		r, size := utf8.DecodeRuneInString(text[e:])
		if boundary(r) {
			break
		}
		e += size
	}
	return text[s:e]
}
