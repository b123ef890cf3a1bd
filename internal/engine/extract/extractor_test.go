package extract

import (
	"testing"

	"github.com/caselens/claimsift/internal/engine/rules"
	"github.com/caselens/claimsift/pkg/types/damages"
)

func newTestExtractor() *Extractor {
	return NewExtractor(DefaultConfig(), rules.Default(), nil)
}

func structureOf(format damages.DocumentFormat) *damages.CaseStructure {
	return &damages.CaseStructure{Format: format, ClaimantCount: 1}
}

func findValue(cands []damages.AmountCandidate, value int64) []damages.AmountCandidate {
	var out []damages.AmountCandidate
	for _, c := range cands {
		if c.Value == value {
			out = append(out, c)
		}
	}
	return out
}

func TestExtractStructuredLine(t *testing.T) {
	text := "（一）醫療費用：43,795元\n（二）交通費用：9,600元"
	cands := newTestExtractor().Extract(text, structureOf(damages.FormatStructuredEnumerated))

	med := findValue(cands, 43795)
	if len(med) == 0 {
		t.Fatal("43,795 not extracted")
	}
	var structured *damages.AmountCandidate
	for i := range med {
		if med[i].PatternFamily == damages.FamilyStructuredEnumerated {
			structured = &med[i]
		}
	}
	if structured == nil {
		t.Fatal("no structured-family candidate for 43,795")
	}
	if structured.Description != "醫療費用" {
		t.Errorf("description = %q, want 醫療費用", structured.Description)
	}
	if structured.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", structured.Confidence)
	}
	if len(findValue(cands, 9600)) == 0 {
		t.Error("9,600 not extracted")
	}
}

func TestExtractMixedNumeral(t *testing.T) {
	text := "原告支出醫療費用5萬4,741元。"
	cands := newTestExtractor().Extract(text, structureOf(damages.FormatFree))

	matches := findValue(cands, 54741)
	if len(matches) == 0 {
		t.Fatal("5萬4,741 not normalized to 54741")
	}
	found := false
	for _, c := range matches {
		if c.PatternFamily == damages.FamilyMixedNumeral {
			found = true
			if c.Confidence != 0.95 {
				t.Errorf("mixed-numeral confidence = %v, want 0.95", c.Confidence)
			}
		}
	}
	if !found {
		t.Error("no mixed-numeral family candidate")
	}
}

func TestExtractSkipsSummaryRestatement(t *testing.T) {
	text := "原告因本次事故受傷就醫，支出醫療費用共計43,795元。"
	cands := newTestExtractor().Extract(text, structureOf(damages.FormatFree))

	if got := findValue(cands, 43795); len(got) != 0 {
		t.Errorf("amount directly after 共計 must be skipped, got %d candidates", len(got))
	}
}

func TestExtractSkipsStatedTotal(t *testing.T) {
	text := "（一）醫療費用：43,795元\n綜上，總計新台幣858,000元。"
	cands := newTestExtractor().Extract(text, structureOf(damages.FormatStructuredEnumerated))

	if got := findValue(cands, 858000); len(got) != 0 {
		t.Error("stated grand total must not become a candidate")
	}
	if got := findValue(cands, 43795); len(got) == 0 {
		t.Error("line item beside a stated total must survive")
	}
}

func TestExtractMinAmountFilter(t *testing.T) {
	text := "第3條規定，原告支出醫療費用43,795元，另支付掛號費50元。"
	cands := newTestExtractor().Extract(text, structureOf(damages.FormatFree))

	if got := findValue(cands, 50); len(got) != 0 {
		t.Error("amounts below MinAmount must be dropped")
	}
	if got := findValue(cands, 3); len(got) != 0 {
		t.Error("article numbers must never appear as candidates")
	}
	if got := findValue(cands, 43795); len(got) == 0 {
		t.Error("regular amount must survive the filter")
	}
}

func TestExtractGenericFallbackRequiresKeyword(t *testing.T) {
	// A bare number + 元 with no damage vocabulary anywhere near it.
	text := "系爭契約約定違約金為每坪單價之百分之二十，房屋總價9,999,999元。"
	cands := newTestExtractor().Extract(text, structureOf(damages.FormatFree))

	if got := findValue(cands, 9999999); len(got) != 0 {
		t.Error("generic fallback must require a damage keyword in the window")
	}
}

func TestExtractFallbackAlwaysRuns(t *testing.T) {
	// Structured document whose narrative hides an extra small item the
	// primary family cannot see.
	text := "（一）醫療費用：43,795元\n原告另因就醫往返支出交通費用980元。"
	cands := newTestExtractor().Extract(text, structureOf(damages.FormatStructuredEnumerated))

	if got := findValue(cands, 980); len(got) == 0 {
		t.Error("fallback cascade must catch items the primary family missed")
	}
}

func TestExtractChineseAndRoman(t *testing.T) {
	text := "原告支出醫療費用十二萬三千四百五十六元，另有車輛修復費用XII萬元。"
	cands := newTestExtractor().Extract(text, structureOf(damages.FormatFree))

	if got := findValue(cands, 123456); len(got) == 0 {
		t.Error("pure Chinese numeral not extracted")
	}
	if got := findValue(cands, 120000); len(got) == 0 {
		t.Error("Roman numeral with magnitude not extracted")
	}
}

func TestExtractSpansAndContext(t *testing.T) {
	text := "原告支出醫療費用43,795元。"
	cands := newTestExtractor().Extract(text, structureOf(damages.FormatFree))
	if len(cands) == 0 {
		t.Fatal("no candidates")
	}
	c := cands[0]
	if c.Span.Start < 0 || c.Span.End > len(text) || c.Span.Start >= c.Span.End {
		t.Errorf("invalid span %+v", c.Span)
	}
	if c.ContextStart > c.Span.Start {
		t.Error("context must start at or before the match")
	}
	if c.Context == "" {
		t.Error("context window must not be empty")
	}
}

func TestExtractEmptyText(t *testing.T) {
	if cands := newTestExtractor().Extract("", structureOf(damages.FormatFree)); len(cands) != 0 {
		t.Error("empty text must yield no candidates")
	}
}
