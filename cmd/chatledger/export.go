package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pocketmoney/chatledger/internal/cli"
	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/export"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export extractions to an Excel workbook",
		Long: `Write stored extractions to an .xlsx workbook, one row per message,
with category, status, confidence, sender, amount and a summary of the
extracted fields.

Dates use the 2006-01-02 format; --to is inclusive of the whole day.

Examples:
  chatledger export
  chatledger export --from 2026-08-01 --to 2026-08-31 -o august.xlsx`,
		RunE: runExport,
	}

	cmd.Flags().String("from", "", "start of the date window (2006-01-02)")
	cmd.Flags().String("to", "", "end of the date window (2006-01-02)")
	cmd.Flags().StringP("output", "o", "extractions.xlsx", "output file path")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	output, _ := cmd.Flags().GetString("output")

	var from, to *time.Time
	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from date (use 2006-01-02): %w", err)
		}
		from = &parsed
	}
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return fmt.Errorf("invalid --to date (use 2006-01-02): %w", err)
		}
		to = &parsed
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	data, err := export.NewService(store).ExtractionsXLSX(ctx, currentUser(), from, to)
	if err != nil {
		if errors.Is(err, common.ErrEmptyExport) {
			fmt.Println(cli.FormatWarning("No extractions in the selected window - nothing exported"))
			return nil
		}
		return fmt.Errorf("failed to build export: %w", err)
	}

	if err := os.WriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported to %s (%d KB)", output, len(data)/1024)))
	return nil
}
