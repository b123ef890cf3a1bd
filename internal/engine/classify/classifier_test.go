package classify

import (
	"strings"
	"testing"

	"github.com/caselens/claimsift/internal/engine/extract"
	"github.com/caselens/claimsift/internal/engine/rules"
	"github.com/caselens/claimsift/pkg/types/damages"
)

func classifyText(t *testing.T, text string) []damages.AmountCandidate {
	t.Helper()
	ex := extract.NewExtractor(extract.DefaultConfig(), rules.Default(), nil)
	cands := ex.Extract(text, &damages.CaseStructure{Format: damages.FormatFree, ClaimantCount: 1})
	NewClassifier(DefaultConfig(), rules.Default(), nil).Classify(cands)
	return cands
}

func rolesByValue(cands []damages.AmountCandidate, value int64) []damages.Role {
	var out []damages.Role
	for _, c := range cands {
		if c.Value == value {
			out = append(out, c.Role)
		}
	}
	return out
}

func TestBasisDowngrade(t *testing.T) {
	text := "原告有看護之必要，以每日2000元作為計算基準，共請求270000元。"
	cands := classifyText(t, text)

	roles := rolesByValue(cands, 2000)
	if len(roles) == 0 {
		t.Fatal("2000 not extracted")
	}
	for _, r := range roles {
		if r != damages.RoleCalculationBasis {
			t.Errorf("2000 role = %s, want calculation_basis", r)
		}
	}
}

func TestClaimVerbOverridesBasisIndicator(t *testing.T) {
	// The indicator phrase 作為計算基準 sits within the window before
	// 270000, but 請求 lies strictly between them.
	text := "原告有看護之必要，以每日2000元作為計算基準，共請求270000元。"
	cands := classifyText(t, text)

	roles := rolesByValue(cands, 270000)
	if len(roles) == 0 {
		t.Fatal("270000 not extracted")
	}
	for _, r := range roles {
		if r != damages.RoleClaimAmount {
			t.Errorf("270000 role = %s, want claim_amount", r)
		}
	}
}

func TestMonthlyWageBasis(t *testing.T) {
	text := "原告無法工作，以111年度每月基本工資25250元計算，受有之薪資損失為113625元。"
	cands := classifyText(t, text)

	for _, r := range rolesByValue(cands, 25250) {
		if r != damages.RoleCalculationBasis {
			t.Errorf("25250 role = %s, want calculation_basis", r)
		}
	}
	roles := rolesByValue(cands, 113625)
	if len(roles) == 0 {
		t.Fatal("113625 not extracted")
	}
	for _, r := range roles {
		if r != damages.RoleClaimAmount {
			t.Errorf("113625 role = %s, want claim_amount (受有/損失為 override)", r)
		}
	}
}

func TestIndicatorOutsideWindowIgnored(t *testing.T) {
	// 每月 appears, but more than 30 runes before the amount.
	padding := strings.Repeat("本件事故經過情形如前所述，", 3)
	text := "原告每月固定回診。" + padding + "原告支出醫療費用43,795元。"
	cands := classifyText(t, text)

	roles := rolesByValue(cands, 43795)
	if len(roles) == 0 {
		t.Fatal("43,795 not extracted")
	}
	for _, r := range roles {
		if r != damages.RoleClaimAmount {
			t.Errorf("role = %s, want claim_amount when indicator is out of range", r)
		}
	}
}

func TestCategoryAssignment(t *testing.T) {
	cases := []struct {
		text  string
		value int64
		want  damages.Category
	}{
		{"原告支出醫療費用43,795元。", 43795, damages.CategoryMedical},
		{"原告就醫往返支出交通費用9,600元。", 9600, damages.CategoryTransportation},
		{"原告住院期間支出看護費用54,000元。", 54000, damages.CategoryCare},
		{"原告請求精神慰撫金300,000元。", 300000, damages.CategoryMentalDistress},
		{"原告之機車修復費用19,685元。", 19685, damages.CategoryVehicleDamage},
		{"原告受有其他費用損失1,200元。", 1200, damages.CategoryOther},
	}
	for _, tc := range cases {
		cands := classifyText(t, tc.text)
		found := false
		for _, c := range cands {
			if c.Value == tc.value {
				found = true
				if c.Category != tc.want {
					t.Errorf("%q category = %s, want %s", tc.text, c.Category, tc.want)
				}
			}
		}
		if !found {
			t.Errorf("%q: value %d not extracted", tc.text, tc.value)
		}
	}
}
