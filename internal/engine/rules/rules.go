// Package rules holds the tunable keyword and pattern tables consumed by the
// extraction pipeline. Confidence scoring and keyword lists are configuration
// data, not control flow: stages receive a Rules value and never hard-code
// lexical knowledge, so the tables can be iterated against new court documents
// without touching the pipeline.
package rules

import (
	"regexp"
	"strings"

	"github.com/caselens/claimsift/pkg/types/damages"
)

// CategoryKeywords maps one damage category to the context keywords that
// signal it. Order within a set does not matter; order across categories does,
// so Rules keeps categories in a slice.
type CategoryKeywords struct {
	Category damages.Category
	Keywords []string
}

// Rules is the complete lexical rule set for one pipeline instance. A Rules
// value is immutable after construction and safe for concurrent use.
type Rules struct {
	// Categories are checked in order; the first category with a keyword hit
	// in the candidate's context wins.
	Categories []CategoryKeywords

	// BasisIndicators are literal phrases that mark a preceding amount as a
	// calculation basis (daily wage, statutory monthly salary, ...).
	BasisIndicators []string

	// BasisPatterns are regular expressions for indicator shapes that cannot
	// be expressed as literals, e.g. "每月X元計算".
	BasisPatterns []*regexp.Regexp

	// ClaimVerbs override a basis indicator: when one appears strictly
	// between the indicator and the amount, the amount is a claim after all.
	ClaimVerbs []string

	// TotalKeywords introduce a restated or summed figure. An amount directly
	// preceded by one of these is a summary mention, not a line item.
	TotalKeywords []string

	// StatedTotalPattern matches the document's own concluding total. 共計 is
	// deliberately absent: it restates individual items, never the grand total.
	StatedTotalPattern *regexp.Regexp

	// ClaimantMarker precedes a claimant name in prose ("原告陳慶華").
	ClaimantMarker string

	// NameExclusions are tokens that follow the claimant marker but are
	// verbs, adjectives or clause openers rather than names.
	NameExclusions []string

	// SharedCategories are the damage categories a single cost is commonly
	// split over when two claimants appear in the same context.
	SharedCategories []damages.Category

	// DamageKeywords is the union of all category keywords, used by the
	// generic fallback extractor as a co-occurrence requirement.
	DamageKeywords []string
}

// Default returns the production rule set, tuned against Taiwanese civil
// damage claims.
func Default() *Rules {
	r := &Rules{
		Categories: []CategoryKeywords{
			{damages.CategoryMedical, []string{"醫療", "治療", "就醫", "醫院", "診所", "手術", "復健", "藥費"}},
			{damages.CategoryTransportation, []string{"交通", "車資", "計程車", "公車", "捷運", "往返"}},
			{damages.CategoryCare, []string{"看護", "照護", "照顧", "護理", "陪伴"}},
			{damages.CategoryLostWork, []string{"無法工作", "工作", "勞動", "薪資", "收入", "工資", "請假", "休養"}},
			{damages.CategoryMentalDistress, []string{"慰撫", "精神", "痛苦", "身心", "心理"}},
			{damages.CategoryVehicleDamage, []string{"車輛", "機車", "汽車", "修復", "維修", "修理", "貶值"}},
		},
		BasisIndicators: []string{
			"作為計算基準", "計算基準", "作為基準",
			"基本工資", "每個月月薪", "月薪", "日薪", "時薪", "薪資標準",
			"每日照護費用", "每日", "每月", "每年",
		},
		BasisPatterns: []*regexp.Regexp{
			regexp.MustCompile(`每月.{0,8}計算`),
			regexp.MustCompile(`依每月.{0,8}計算`),
			regexp.MustCompile(`勞動能力.{0,8}減少`),
			regexp.MustCompile(`每月工資.{0,4}為`),
			regexp.MustCompile(`月工資.{0,4}為`),
		},
		ClaimVerbs: []string{"請求", "賠償", "支出", "受有", "損失為", "共計"},
		TotalKeywords: []string{"共計", "合計", "總計", "小計"},
		StatedTotalPattern: regexp.MustCompile(
			`(總計|合計|小計)\s*(?:新台幣)?\s*([0-9０-９]{1,3}(?:[,，][0-9０-９]{3})*|[0-9０-９]+)\s*元`),
		ClaimantMarker: "原告",
		NameExclusions: []string{
			"主張", "因此", "受傷", "因本", "為大", "所受", "後續", "需專", "出院", "住院",
			"因", "而", "與", "及", "等", "之", "者", "所", "有", "其", "該",
			"車禍", "事故", "損害", "賠償", "請求", "支出", "費用",
		},
		SharedCategories: []damages.Category{damages.CategoryCare, damages.CategoryTransportation},
	}

	seen := make(map[string]bool)
	for _, c := range r.Categories {
		for _, k := range c.Keywords {
			if !seen[k] {
				seen[k] = true
				r.DamageKeywords = append(r.DamageKeywords, k)
			}
		}
	}
	// Generic damage vocabulary that belongs to no single category.
	for _, k := range []string{"費用", "支出", "花費", "損失", "慰撫金"} {
		if !seen[k] {
			seen[k] = true
			r.DamageKeywords = append(r.DamageKeywords, k)
		}
	}
	return r
}

// CategoryFor returns the first category whose keyword set hits the given
// context, or CategoryOther when none match.
func (r *Rules) CategoryFor(context string) damages.Category {
	for _, c := range r.Categories {
		for _, k := range c.Keywords {
			if strings.Contains(context, k) {
				return c.Category
			}
		}
	}
	return damages.CategoryOther
}

// IsSharedCategory reports whether the category is one typically borne
// jointly by multiple claimants.
func (r *Rules) IsSharedCategory(cat damages.Category) bool {
	for _, c := range r.SharedCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// HasDamageKeyword reports whether any damage-vocabulary keyword occurs in
// the given window.
func (r *Rules) HasDamageKeyword(window string) bool {
	for _, k := range r.DamageKeywords {
		if strings.Contains(window, k) {
			return true
		}
	}
	return false
}
