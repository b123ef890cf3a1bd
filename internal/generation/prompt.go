// Package generation drafts the itemized damages section of a brief from a
// finished analysis. The model is given only computed amounts, retrieved
// precedents and statute citations; it writes prose, it never does math.
package generation

import (
	"fmt"
	"strconv"
	"strings"

	graphrepo "github.com/caselens/claimsift/internal/infrastructure/database/neo4j/repositories"
	"github.com/caselens/claimsift/internal/infrastructure/search/opensearch"
	"github.com/caselens/claimsift/pkg/types/damages"
)

const systemPrompt = "你是一位台灣民事損害賠償案件的書狀撰寫助理。" +
	"根據提供的損害項目金額、法條與參考判決，撰寫起訴狀中「損害賠償金額」段落。" +
	"所有金額必須與提供的數字完全一致，不得自行計算或更改。"

// DraftRequest carries everything the prompt renders.
type DraftRequest struct {
	DocumentID string
	Result     *damages.AggregationResult
	Statutes   map[damages.Category][]graphrepo.Statute
	Precedents []opensearch.PrecedentHit
}

// BuildPrompt renders the user prompt. Amounts are written with thousand
// separators the way briefs state them.
func BuildPrompt(req *DraftRequest) string {
	var b strings.Builder

	b.WriteString("請依下列整理完成的損害項目撰寫損害賠償段落：\n\n")

	for _, claimant := range req.Result.Claimants {
		fmt.Fprintf(&b, "【請求權人：%s】\n", claimant.ID)
		for i, item := range claimant.Items {
			fmt.Fprintf(&b, "%d. %s：%s元", i+1, item.Category.Label(), FormatAmount(item.Amount))
			if len(item.SharedAmong) > 1 {
				fmt.Fprintf(&b, "（與%s共同支出之分擔額）", strings.Join(item.SharedAmong, "、"))
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "小計：%s元\n\n", FormatAmount(claimant.Subtotal))
	}

	fmt.Fprintf(&b, "請求總額：%s元\n", FormatAmount(req.Result.GrandTotal))

	if v := req.Result.Validation; v != nil && !v.Match {
		fmt.Fprintf(&b, "（注意：原文件記載總額%s元與逐項計算結果不符，請以逐項計算之%s元為準）\n",
			FormatAmount(v.StatedTotal), FormatAmount(v.CalculatedTotal))
	}

	if statutes := statuteLines(req); len(statutes) > 0 {
		b.WriteString("\n適用法條：\n")
		for _, line := range statutes {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if len(req.Precedents) > 0 {
		b.WriteString("\n參考判決段落：\n")
		for _, hit := range req.Precedents {
			fmt.Fprintf(&b, "- %s：%s\n", hit.Doc.CaseID, hit.Doc.Paragraph)
		}
	}

	return b.String()
}

// statuteLines renders one citation line per category, in the order the
// categories appear in the result.
func statuteLines(req *DraftRequest) []string {
	var lines []string
	seen := make(map[damages.Category]bool)
	for _, claimant := range req.Result.Claimants {
		for _, item := range claimant.Items {
			if seen[item.Category] {
				continue
			}
			seen[item.Category] = true
			statutes := req.Statutes[item.Category]
			if len(statutes) == 0 {
				continue
			}
			citations := make([]string, len(statutes))
			for i, s := range statutes {
				citations[i] = s.Citation()
			}
			lines = append(lines, fmt.Sprintf("%s：%s", item.Category.Label(), strings.Join(citations, "、")))
		}
	}
	return lines
}

// FormatAmount writes an amount with thousand separators.
func FormatAmount(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		return "-" + out
	}
	return out
}
