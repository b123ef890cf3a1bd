package engine

import (
	"context"
	"testing"

	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

func newTestEngine() Engine {
	return New(Config{}, nil, nil, nil)
}

func analyze(t *testing.T, text string) *damages.AggregationResult {
	t.Helper()
	r, err := newTestEngine().Analyze(context.Background(), &damages.Document{Text: text})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return r
}

func itemAmounts(r *damages.AggregationResult) map[int64]int {
	out := map[int64]int{}
	for _, c := range r.Claimants {
		for _, it := range c.Items {
			out[it.Amount]++
		}
	}
	return out
}

func TestAnalyzeStructuredDocument(t *testing.T) {
	text := "（一）醫療費用：43,795元\n" +
		"（二）交通費用：9,600元\n" +
		"（三）看護費用：270,000元\n" +
		"綜上所述，總計323,395元。"
	r := analyze(t, text)

	if r.Structure.Format != damages.FormatStructuredEnumerated {
		t.Errorf("format = %s, want structured_enumerated", r.Structure.Format)
	}
	if r.ItemCount() != 3 {
		t.Fatalf("items = %d, want 3", r.ItemCount())
	}
	if r.GrandTotal != 323395 {
		t.Errorf("grand total = %d, want 323395", r.GrandTotal)
	}
	if r.Validation == nil || !r.Validation.Match {
		t.Errorf("validation = %+v, want an exact match", r.Validation)
	}
	amounts := itemAmounts(r)
	for _, want := range []int64{43795, 9600, 270000} {
		if amounts[want] != 1 {
			t.Errorf("amount %d appears %d times, want once", want, amounts[want])
		}
	}
}

func TestAnalyzeRestatementYieldsOneItem(t *testing.T) {
	// The itemized line and its prose restatement are the same money.
	text := "（一）醫療費用：43,795元\n" +
		"原告因本次事故受傷就醫，支出醫療費用共計43,795元。"
	r := analyze(t, text)

	if got := itemAmounts(r)[43795]; got != 1 {
		t.Errorf("43,795 appears %d times, want exactly once", got)
	}
	if r.GrandTotal != 43795 {
		t.Errorf("grand total = %d, want 43795", r.GrandTotal)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	text := "（一）醫療費用：43,795元\n（二）交通費用：9,600元"
	a := analyze(t, text)
	b := analyze(t, text)

	if a.GrandTotal != b.GrandTotal || a.ItemCount() != b.ItemCount() {
		t.Errorf("repeat analysis differs: %d/%d vs %d/%d",
			a.GrandTotal, a.ItemCount(), b.GrandTotal, b.ItemCount())
	}
}

func TestAnalyzeMixedNumeral(t *testing.T) {
	r := analyze(t, "原告支出醫療費用5萬4,741元。")

	if r.ItemCount() != 1 {
		t.Fatalf("items = %d, want 1 (partial matches must be folded)", r.ItemCount())
	}
	if r.GrandTotal != 54741 {
		t.Errorf("grand total = %d, want 54741", r.GrandTotal)
	}
}

func TestAnalyzeBasisExcluded(t *testing.T) {
	text := "原告有看護之必要，以每日2000元作為計算基準，共請求270000元。"
	r := analyze(t, text)

	amounts := itemAmounts(r)
	if amounts[2000] != 0 {
		t.Error("calculation basis 2000 must not surface as an item")
	}
	if amounts[270000] != 1 {
		t.Errorf("270000 appears %d times, want once", amounts[270000])
	}
	if r.GrandTotal != 270000 {
		t.Errorf("grand total = %d, want 270000", r.GrandTotal)
	}
}

func TestAnalyzeMultiClaimantIsolation(t *testing.T) {
	text := "原告陳慶華因本次事故受傷，支出醫療費用200,000元。\n" +
		"原告陳慶華另受有工作損失152,500元。\n" +
		"原告朱庭慧因本次事故臉部受傷，支出醫療費用210,000元。\n" +
		"原告朱庭慧請求精神慰撫金300,000元。"
	r := analyze(t, text)

	if r.Structure.Format != damages.FormatMultiClaimant {
		t.Fatalf("format = %s, want multi_claimant_narrative", r.Structure.Format)
	}
	if len(r.Claimants) != 2 {
		t.Fatalf("claimants = %d, want 2", len(r.Claimants))
	}
	subtotals := map[string]int64{}
	for _, c := range r.Claimants {
		subtotals[c.ID] = c.Subtotal
	}
	if subtotals["陳慶華"] != 352500 {
		t.Errorf("陳慶華 subtotal = %d, want 352500", subtotals["陳慶華"])
	}
	if subtotals["朱庭慧"] != 510000 {
		t.Errorf("朱庭慧 subtotal = %d, want 510000", subtotals["朱庭慧"])
	}
	if r.GrandTotal != 862500 {
		t.Errorf("grand total = %d, want 862500", r.GrandTotal)
	}
}

func TestAnalyzeSectionedClaimantIsolation(t *testing.T) {
	// 朱庭慧 is mentioned incidentally inside 陳慶華's enumerated section;
	// the money stated there must stay with the section's claimant.
	text := "（一）原告陳慶華部分：原告陳慶華因本次事故受傷，經原告朱庭慧送醫救治，支出醫療費用200,000元。\n" +
		"（二）原告朱庭慧部分：原告朱庭慧因處理本件事故，支出交通費用50,000元。"
	r := analyze(t, text)

	if len(r.Claimants) != 2 {
		t.Fatalf("claimants = %d, want 2", len(r.Claimants))
	}
	subtotals := map[string]int64{}
	for _, c := range r.Claimants {
		subtotals[c.ID] = c.Subtotal
	}
	if subtotals["陳慶華"] != 200000 {
		t.Errorf("陳慶華 subtotal = %d, want 200000", subtotals["陳慶華"])
	}
	if subtotals["朱庭慧"] != 50000 {
		t.Errorf("朱庭慧 subtotal = %d, want 50000", subtotals["朱庭慧"])
	}
	if r.GrandTotal != 250000 {
		t.Errorf("grand total = %d, want 250000", r.GrandTotal)
	}
}

func TestAnalyzeValidationUnderstated(t *testing.T) {
	text := "原告支出醫療費用520,000元，另受有工作損失338,748元。" +
		"綜上，總計新台幣858,000元。"
	r := analyze(t, text)

	v := r.Validation
	if v == nil {
		t.Fatal("expected a validation report")
	}
	if v.Match || v.Difference != 748 || v.Direction != damages.DirectionUnderstated {
		t.Errorf("validation = %+v, want difference 748, understated", v)
	}
	if v.CalculatedTotal != 858748 || v.StatedTotal != 858000 {
		t.Errorf("totals = %d/%d, want 858748/858000", v.CalculatedTotal, v.StatedTotal)
	}
}

func TestAnalyzeEmptyDocument(t *testing.T) {
	_, err := newTestEngine().Analyze(context.Background(), &damages.Document{Text: "  \n "})
	if !errors.IsCode(err, errors.ErrCodeEmptyDocument) {
		t.Errorf("err = %v, want code %s", err, errors.ErrCodeEmptyDocument)
	}
	_, err = newTestEngine().Analyze(context.Background(), nil)
	if !errors.IsCode(err, errors.ErrCodeEmptyDocument) {
		t.Errorf("nil document err = %v, want code %s", err, errors.ErrCodeEmptyDocument)
	}
}

func TestAnalyzeNoAmountsIsNotAnError(t *testing.T) {
	r := analyze(t, "本件兩造爭執之事實及法律上之主張如前所述。")

	if !r.Empty() || r.GrandTotal != 0 {
		t.Errorf("document without amounts must yield an empty result, got %+v", r)
	}
}

func TestAnalyzeOversizedDocument(t *testing.T) {
	e := New(Config{MaxDocumentBytes: 16}, nil, nil, nil)
	_, err := e.Analyze(context.Background(), &damages.Document{
		Text: "原告支出醫療費用43,795元。",
	})
	if !errors.IsCode(err, errors.ErrCodeValidation) {
		t.Errorf("err = %v, want code %s", err, errors.ErrCodeValidation)
	}
}

func TestAnalyzeBatchPreservesOrder(t *testing.T) {
	docs := []*damages.Document{
		{ID: "a", Text: "原告支出醫療費用43,795元。"},
		{ID: "b", Text: "   "},
		{ID: "c", Text: "原告支出交通費用9,600元。"},
	}
	results, errs := newTestEngine().AnalyzeBatch(context.Background(), docs)

	if len(results) != 3 || len(errs) != 3 {
		t.Fatalf("lengths = %d/%d, want 3/3", len(results), len(errs))
	}
	if errs[0] != nil || errs[2] != nil {
		t.Errorf("unexpected errors: %v, %v", errs[0], errs[2])
	}
	if !errors.IsCode(errs[1], errors.ErrCodeEmptyDocument) {
		t.Errorf("errs[1] = %v, want empty-document code", errs[1])
	}
	if results[0] == nil || results[0].GrandTotal != 43795 {
		t.Errorf("results[0] = %+v, want grand total 43795", results[0])
	}
	if results[2] == nil || results[2].GrandTotal != 9600 {
		t.Errorf("results[2] = %+v, want grand total 9600", results[2])
	}
}
