// Package extract runs the layered pattern cascade that turns raw document
// text into amount candidates. Recall is favored over precision here: the
// primary pattern family indicated by the detected structure runs first, and
// a format-agnostic fallback cascade always runs afterwards, because no
// single family has full recall on real court documents. Precision is
// recovered downstream by the classifier and the deduplicator.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/caselens/claimsift/internal/engine/numeral"
	"github.com/caselens/claimsift/internal/engine/rules"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// Config holds the extractor's tunable parameters.
type Config struct {
	// MinAmount drops candidates below a plausible damage amount; item
	// indices and statute article numbers otherwise leak in as money.
	MinAmount int64

	// ContextWindow is the number of runes captured on each side of a match.
	ContextWindow int
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		MinAmount:     100,
		ContextWindow: 150,
	}
}

// pattern is one member of the extraction cascade.
type pattern struct {
	re         *regexp.Regexp
	family     damages.PatternFamily
	confidence float64
	// numGroup is the submatch index holding the numeral text.
	numGroup int
	// labelGroup, when non-zero, is the submatch index holding the item
	// label used as the candidate description.
	labelGroup int
	// requireKeyword demands a damage-vocabulary keyword in the context
	// window; only the lowest-precision generic pattern sets it.
	requireKeyword bool
}

var (
	structuredLineRe = regexp.MustCompile(`(?m)^[（(][一二三四五六七八九十㈠㈡㈢㈣㈤㈥㈦㈧㈨㈩][）)]\s*([^：:\n]+)[：:]\s*([0-9０-９]{1,3}(?:[,，][0-9０-９]{3})*|[0-9０-９]+)\s*元`)
	numberedLineRe   = regexp.MustCompile(`(?m)^(?:\d+)[\.、]\s*([^：:\n0-9]+)[：:]\s*([0-9０-９]{1,3}(?:[,，][0-9０-９]{3})*|[0-9０-９]+)\s*元`)

	ntdRe      = regexp.MustCompile(`新台幣\s*([0-9０-９]{1,3}(?:[,，][0-9０-９]{3})*|[0-9０-９]+)\s*元`)
	mixedWanRe = regexp.MustCompile(`([0-9０-９]+萬(?:[0-9０-９]{1,3}(?:[,，][0-9０-９]{3})*)?)\s*元`)
	chineseRe  = regexp.MustCompile(`([零一二三四五六七八九十百千萬億壹貳參肆伍陸柒捌玖拾佰仟]+)\s*元`)
	romanRe    = regexp.MustCompile(`([IVXLCDMⅠⅡⅢⅣⅤⅥⅦⅧⅨⅩⅪⅫⅰⅱⅲⅳⅴⅵⅶⅷⅸⅹ]+[千萬億]?)\s*元`)
	wanUnitRe  = regexp.MustCompile(`([0-9０-９]+\s*萬)\s*元`)
	qianUnitRe = regexp.MustCompile(`([0-9０-９]+\s*千)\s*元`)
	arabicRe   = regexp.MustCompile(`([0-9０-９]{1,3}(?:[,，][0-9０-９]{3})*|[0-9０-９]+)\s*元`)
)

// fallbackCascade is the format-agnostic family, ordered by decreasing
// well-formedness. Confidence values are calibrated so the overlap reduction
// keeps the most specific match: an explicit currency prefix beats a mixed
// form, which beats a bare digit run.
var fallbackCascade = []pattern{
	{re: ntdRe, family: damages.FamilyFreeNarrative, confidence: 1.0, numGroup: 1},
	{re: mixedWanRe, family: damages.FamilyMixedNumeral, confidence: 0.95, numGroup: 1},
	{re: chineseRe, family: damages.FamilyMixedNumeral, confidence: 0.90, numGroup: 1},
	{re: romanRe, family: damages.FamilyMixedNumeral, confidence: 0.85, numGroup: 1},
	{re: wanUnitRe, family: damages.FamilyMixedNumeral, confidence: 0.90, numGroup: 1},
	{re: qianUnitRe, family: damages.FamilyMixedNumeral, confidence: 0.90, numGroup: 1},
	{re: arabicRe, family: damages.FamilyGenericFallback, confidence: 0.75, numGroup: 1, requireKeyword: true},
}

// Extractor produces amount candidates from document text. Stateless and safe
// for concurrent use.
type Extractor struct {
	cfg    Config
	rules  *rules.Rules
	logger logging.Logger
}

// NewExtractor constructs an Extractor. Zero-value config fields fall back to
// defaults; a nil logger falls back to a no-op.
func NewExtractor(cfg Config, r *rules.Rules, logger logging.Logger) *Extractor {
	def := DefaultConfig()
	if cfg.MinAmount == 0 {
		cfg.MinAmount = def.MinAmount
	}
	if cfg.ContextWindow == 0 {
		cfg.ContextWindow = def.ContextWindow
	}
	if r == nil {
		r = rules.Default()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{cfg: cfg, rules: r, logger: logger}
}

// Extract runs the primary family selected by the detected structure, then
// always the fallback cascade, and returns candidates sorted by span start.
// A numeral that fails to normalize drops that one candidate only.
func (e *Extractor) Extract(text string, structure *damages.CaseStructure) []damages.AmountCandidate {
	if text == "" {
		return nil
	}

	var cands []damages.AmountCandidate

	switch structure.Format {
	case damages.FormatStructuredEnumerated:
		cands = append(cands, e.runPattern(text, pattern{
			re: structuredLineRe, family: damages.FamilyStructuredEnumerated,
			confidence: 1.0, numGroup: 2, labelGroup: 1,
		})...)
	case damages.FormatNumberedList:
		cands = append(cands, e.runPattern(text, pattern{
			re: numberedLineRe, family: damages.FamilyNumberedList,
			confidence: 1.0, numGroup: 2, labelGroup: 1,
		})...)
	default:
		// Multi-claimant and free documents have no reliable line shape;
		// the fallback cascade below carries the full load. Enumerated
		// lines still occasionally appear inside them, so both structured
		// families run at reduced confidence.
		cands = append(cands, e.runPattern(text, pattern{
			re: structuredLineRe, family: damages.FamilyStructuredEnumerated,
			confidence: 0.95, numGroup: 2, labelGroup: 1,
		})...)
		cands = append(cands, e.runPattern(text, pattern{
			re: numberedLineRe, family: damages.FamilyNumberedList,
			confidence: 0.95, numGroup: 2, labelGroup: 1,
		})...)
	}

	for _, p := range fallbackCascade {
		cands = append(cands, e.runPattern(text, p)...)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Span.Start != cands[j].Span.Start {
			return cands[i].Span.Start < cands[j].Span.Start
		}
		return cands[i].Confidence > cands[j].Confidence
	})

	e.logger.Debug("extraction cascade finished",
		logging.String("format", string(structure.Format)),
		logging.Int("candidates", len(cands)),
	)
	return cands
}

func (e *Extractor) runPattern(text string, p pattern) []damages.AmountCandidate {
	var out []damages.AmountCandidate
	for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
		numStart, numEnd := loc[2*p.numGroup], loc[2*p.numGroup+1]
		if numStart < 0 {
			continue
		}
		value, err := numeral.Normalize(text[numStart:numEnd])
		if err != nil {
			e.logger.Debug("candidate numeral unparseable, dropped",
				logging.String("raw", text[numStart:numEnd]), logging.Err(err))
			continue
		}
		if value < e.cfg.MinAmount {
			continue
		}
		if precededByTotalKeyword(text, numStart, e.rules) {
			// Summary restatement of already-itemized figures; the
			// validator reads these from the source text directly.
			continue
		}

		matchStart, matchEnd := loc[0], loc[1]
		context, ctxStart := contextWindow(text, matchStart, matchEnd, e.cfg.ContextWindow)
		if p.requireKeyword && !e.rules.HasDamageKeyword(context) {
			continue
		}

		cand := damages.AmountCandidate{
			RawText:       text[matchStart:matchEnd],
			Value:         value,
			Span:          damages.Span{Start: numStart, End: matchEnd},
			Context:       context,
			ContextStart:  ctxStart,
			PatternFamily: p.family,
			Confidence:    p.confidence,
			Role:          damages.RoleClaimAmount,
		}
		if p.labelGroup != 0 && loc[2*p.labelGroup] >= 0 {
			cand.Description = strings.TrimSpace(text[loc[2*p.labelGroup]:loc[2*p.labelGroup+1]])
		} else {
			cand.Description = describeFromContext(text, matchStart, matchEnd)
		}
		out = append(out, cand)
	}
	return out
}

// precededByTotalKeyword reports whether the amount at byte offset start is
// directly introduced by a summing keyword (共計/合計/總計/小計), allowing an
// intervening currency marker or whitespace. Such figures restate amounts
// already counted elsewhere and are never line items themselves.
func precededByTotalKeyword(text string, start int, r *rules.Rules) bool {
	prefix := text[:start]
	// Skip back over whitespace, 新台幣 and full-width colons.
	prefix = strings.TrimRight(prefix, " \t　：:")
	prefix = strings.TrimSuffix(prefix, "新台幣")
	prefix = strings.TrimRight(prefix, " \t　")
	for _, kw := range r.TotalKeywords {
		if strings.HasSuffix(prefix, kw) {
			return true
		}
	}
	return false
}

// contextWindow returns up to window runes on each side of [start, end) and
// the byte offset of the returned slice within text. Boundaries are aligned
// to rune starts so the window is always valid UTF-8.
func contextWindow(text string, start, end, window int) (string, int) {
	ctxStart := start
	for i := 0; i < window && ctxStart > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:ctxStart])
		ctxStart -= size
	}
	ctxEnd := end
	for i := 0; i < window && ctxEnd < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[ctxEnd:])
		ctxEnd += size
	}
	return text[ctxStart:ctxEnd], ctxStart
}

// describeFromContext derives a short human-readable justification from the
// clause enclosing the match: the text between the previous and next clause
// boundary, truncated to a sane length.
func describeFromContext(text string, start, end int) string {
	boundary := func(r rune) bool {
		switch r {
		case '。', '，', '；', '\n', ',', ';':
			return true
		}
		return false
	}
	clauseStart := start
	for clauseStart > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:clauseStart])
		if boundary(r) {
			break
		}
		clauseStart -= size
	}
	clauseEnd := end
	for clauseEnd < len(text) {
		r, size := utf8.DecodeRuneInString(text[clauseEnd:])
		if boundary(r) {
			break
		}
		clauseEnd += size
	}
	desc := strings.TrimSpace(text[clauseStart:clauseEnd])
	const maxDescRunes = 50
	if utf8.RuneCountInString(desc) > maxDescRunes {
		runes := []rune(desc)
		desc = string(runes[:maxDescRunes])
	}
	return desc
}
