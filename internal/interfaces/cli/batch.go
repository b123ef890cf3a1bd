package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caselens/claimsift/internal/generation"
	"github.com/caselens/claimsift/internal/infrastructure/messaging/kafka"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// newBatchCmd analyzes many documents at once, either locally with the
// engine's bounded concurrency or by enqueuing jobs for the workers.
func newBatchCmd() *cobra.Command {
	var enqueue bool

	cmd := &cobra.Command{
		Use:   "batch <file>...",
		Short: "Analyze multiple documents",
		Long:  "Analyzes every named file locally and prints a summary line per document.\nWith --enqueue the documents are published to the analysis job topic\ninstead, to be processed by the batch workers.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if enqueue {
				return enqueueFiles(cmd, cliCtx, args)
			}
			return analyzeFiles(cmd, cliCtx, args)
		},
	}

	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "publish jobs to Kafka instead of analyzing locally")
	return cmd
}

func analyzeFiles(cmd *cobra.Command, cliCtx *CLIContext, paths []string) error {
	docs := make([]*damages.Document, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		docs = append(docs, &damages.Document{ID: documentIDFor(p), Text: string(raw)})
	}

	results, errs := cliCtx.Engine().AnalyzeBatch(cmd.Context(), docs)

	if strings.EqualFold(cliCtx.Output, "json") {
		type entry struct {
			DocumentID string                     `json:"document_id"`
			Result     *damages.AggregationResult `json:"result,omitempty"`
			Error      string                     `json:"error,omitempty"`
		}
		out := make([]entry, len(docs))
		for i := range docs {
			out[i] = entry{DocumentID: docs[i].ID, Result: results[i]}
			if errs[i] != nil {
				out[i].Error = errs[i].Error()
			}
		}
		if err := printJSON(cmd, out); err != nil {
			return err
		}
	} else {
		for i := range docs {
			if errs[i] != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: 失敗：%s\n", docs[i].ID, errs[i])
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d 位請求權人，總額 %s 元\n",
				docs[i].ID, len(results[i].Claimants), generation.FormatAmount(results[i].GrandTotal))
		}
	}

	var failed int
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}

func enqueueFiles(cmd *cobra.Command, cliCtx *CLIContext, paths []string) error {
	producer, err := kafka.NewJobProducer(cliCtx.Config.Kafka, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		job := &kafka.AnalysisJob{DocumentID: documentIDFor(p), Text: string(raw)}
		if err := producer.Enqueue(cmd.Context(), job); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: enqueued (job %s)\n", job.DocumentID, job.JobID)
	}
	return nil
}

// documentIDFor derives a stable document ID from a file path.
func documentIDFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
