package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caselens/claimsift/internal/generation"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// newAnalyzeCmd analyzes one document locally, without a running server.
func newAnalyzeCmd() *cobra.Command {
	var documentID string
	var roster []string

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Extract and aggregate damage amounts from one document",
		Long:  "Reads a Traditional Chinese civil claim document from a file (or stdin\nwhen the argument is \"-\" or omitted) and prints the per-claimant damage\nbreakdown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			text, err := readDocument(cmd, args)
			if err != nil {
				return err
			}

			result, err := cliCtx.Engine().Analyze(cmd.Context(), &damages.Document{
				ID:     documentID,
				Text:   text,
				Roster: roster,
			})
			if err != nil {
				return err
			}

			if strings.EqualFold(cliCtx.Output, "json") {
				return printJSON(cmd, result)
			}
			return printText(cmd, renderResult(result))
		},
	}

	cmd.Flags().StringVar(&documentID, "id", "", "document identifier carried into the result")
	cmd.Flags().StringSliceVar(&roster, "roster", nil, "known claimant names (comma separated)")
	return cmd
}

// readDocument reads the document text from the named file or stdin.
func readDocument(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(raw), nil
}

// renderResult formats an aggregation result for terminal reading.
func renderResult(result *damages.AggregationResult) string {
	if result.Empty() {
		return "未偵測到任何請求金額（需人工確認）"
	}

	var sb strings.Builder
	for _, claimant := range result.Claimants {
		fmt.Fprintf(&sb, "請求權人：%s\n", claimant.ID)
		for _, item := range claimant.Items {
			label := item.Category.Label()
			if len(item.SharedAmong) > 1 {
				label += "（共同分擔）"
			}
			fmt.Fprintf(&sb, "  %-14s %12s 元\n", label, generation.FormatAmount(item.Amount))
		}
		fmt.Fprintf(&sb, "  %-14s %12s 元\n", "小計", generation.FormatAmount(claimant.Subtotal))
	}
	fmt.Fprintf(&sb, "請求總額：%s 元\n", generation.FormatAmount(result.GrandTotal))

	if v := result.Validation; v != nil {
		if v.Match {
			fmt.Fprintf(&sb, "驗證：與原文件記載總額相符（%s 元）\n", generation.FormatAmount(v.StatedTotal))
		} else {
			fmt.Fprintf(&sb, "驗證：不符，原文件記載 %s 元，逐項計算 %s 元（差額 %s 元）\n",
				generation.FormatAmount(v.StatedTotal),
				generation.FormatAmount(v.CalculatedTotal),
				generation.FormatAmount(v.Difference))
		}
	}
	return sb.String()
}
