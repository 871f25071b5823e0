// Package cmd holds auxiliary subcommands of the bankmail-to-sheets CLI.
package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/kashbor/bankmail-to-sheets/extract"
	"github.com/kashbor/bankmail-to-sheets/filter"
	"github.com/kashbor/bankmail-to-sheets/identity"
	"github.com/kashbor/bankmail-to-sheets/mailbox"
	"github.com/kashbor/bankmail-to-sheets/model"
	"github.com/kashbor/bankmail-to-sheets/stats"
)

// NewAnalyzeCommand builds the analyze subcommand: a dry run of the
// extraction engine over an mbox archive, reporting hit rates and
// distributions without touching any spreadsheet.
func NewAnalyzeCommand() *cobra.Command {
	var (
		senders    []string
		topN       int
		reportPath string
	)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [mbox file]",
		Short: "Run the extraction engine over an mbox archive and report statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mboxPath := args[0]

			f, err := filter.New(filter.Options{Senders: senders})
			if err != nil {
				return fmt.Errorf("create filter: %w", err)
			}

			extractor, err := extract.NewExtractor(extract.DefaultVocabulary())
			if err != nil {
				return fmt.Errorf("create extractor: %w", err)
			}

			var (
				total      int
				skipped    int
				withAmount int
				duplicates int

				movements   = make(map[string]int)
				currencies  = make(map[string]int)
				senderCount = make(map[string]int)
				seen        = identity.NewSet()
				rows        [][]string
			)

			err = mailbox.ReadArchive(mboxPath, func(msg model.RawMessage) error {
				if !f.Allows(msg) {
					skipped++
					return nil
				}
				total++

				stableID := identity.StableID(msg)
				if seen.Contains(stableID) {
					duplicates++
				}
				seen.Add(stableID)

				result := extractor.Extract(msg.Text())
				if result.HasAmount {
					withAmount++
				}
				movements[result.Movement]++
				currencies[result.Currency]++
				senderCount[msg.From]++

				rows = append(rows, []string{
					stableID,
					msg.From,
					msg.Subject,
					strconv.FormatInt(result.Amount, 10),
					result.Movement,
					result.Currency,
				})
				return nil
			})
			if err != nil {
				return fmt.Errorf("read mbox: %w", err)
			}

			pterm.DefaultSection.Println("Extraction Statistics")
			pterm.Info.Printf("Messages analyzed: %d (skipped by filters: %d)\n", total, skipped)
			pterm.Info.Printf("With amount: %d\n", withAmount)
			pterm.Info.Printf("Without amount: %d\n", total-withAmount)
			pterm.Info.Printf("Duplicate ids: %d\n", duplicates)
			pterm.Println()

			fmt.Println("Movement types:")
			stats.PrettyPrintTop(movements, topN)
			fmt.Println()
			fmt.Println("Currencies:")
			stats.PrettyPrintTop(currencies, topN)
			fmt.Println()
			fmt.Printf("Top %d senders:\n", topN)
			stats.PrettyPrintTop(senderCount, topN)

			if reportPath != "" {
				if err := saveReport(reportPath, rows); err != nil {
					return fmt.Errorf("save report: %w", err)
				}
				fmt.Printf("\nReport saved to: %s\n", reportPath)
			}

			return nil
		},
	}

	analyzeCmd.Flags().StringArrayVar(&senders, "sender", nil, "Bank sender address to analyze (repeatable; default all senders)")
	analyzeCmd.Flags().IntVarP(&topN, "top", "t", 10, "Number of top items to display in statistics")
	analyzeCmd.Flags().StringVarP(&reportPath, "output", "o", "", "Write per-message extraction results to this CSV file")

	return analyzeCmd
}

func saveReport(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write([]string{"stable_id", "from", "subject", "amount", "movement_type", "currency"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
