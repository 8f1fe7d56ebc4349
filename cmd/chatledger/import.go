package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pocketmoney/chatledger/internal/chatexport"
	"github.com/pocketmoney/chatledger/internal/cli"
	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/engine"
	"github.com/pocketmoney/chatledger/internal/extract"
	"github.com/pocketmoney/chatledger/internal/ingest"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files or directories...]",
		Short: "Import exported WhatsApp chats",
		Long: `Import one or more WhatsApp chat export files (.txt) and run every
message through the extraction pipeline.

Directories are scanned recursively for .txt exports. Both the iOS and
Android export layouts are recognized. Each message counts against the
monthly quota; the import stops cleanly when the quota runs out.

Examples:
  # Import a single exported chat
  chatledger import ~/Downloads/WhatsApp_Chat_Ali.txt

  # Import every export in a folder
  chatledger import ~/Downloads/whatsapp-exports/

  # Preview the category breakdown without saving anything
  chatledger import --dry-run ~/Downloads/WhatsApp_Chat_Ali.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("dry-run", false, "classify without saving or consuming quota")
	cmd.Flags().Bool("create-orders", false, "create orders from processed order messages")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	createOrders, _ := cmd.Flags().GetBool("create-orders")

	files, err := collectExportFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no chat export files found")
	}

	slog.Info("💬 Importing chat exports...",
		"file_count", len(files),
		"dry_run", dryRun)

	// Parse every file up front so the progress bar knows the total
	parser := chatexport.NewParser()
	var messages []model.Message
	fileCounts := make(map[string]int)

	for _, path := range files {
		parsed, parseErr := parser.ParsePath(ctx, path)
		if parseErr != nil {
			slog.Error("Failed to parse chat export",
				"file", path,
				"error", parseErr)
			continue
		}
		if len(parsed) == 0 {
			slog.Warn("No messages found in file", "file", filepath.Base(path))
			continue
		}
		fileCounts[filepath.Base(path)] = len(parsed)
		messages = append(messages, parsed...)
	}

	if len(messages) == 0 {
		slog.Warn("No messages found in any file")
		return nil
	}

	fmt.Println("\n📁 Parsed files:")
	for file, count := range fileCounts {
		fmt.Printf("  - %s: %d messages\n", file, count)
	}
	fmt.Println()

	if dryRun {
		return previewImport(ctx, messages)
	}

	eng, _, cleanup, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	bar := newImportBar(len(messages))
	stats, err := processMessages(ctx, eng, currentUser(), messages, createOrders, bar)
	if err != nil {
		return err
	}

	printImportSummary(stats)
	return nil
}

// importStats tallies what happened to each message during an import run.
type importStats struct {
	processed   int
	needsReview int
	orders      int
	skipped     int
	failed      int
	quotaHit    bool
}

// processMessages runs messages through the engine one by one. A quota error
// stops the run; everything already stored stays stored.
func processMessages(ctx context.Context, eng *engine.ExtractionEngine, userID string, messages []model.Message, createOrders bool, bar *progressbar.ProgressBar) (importStats, error) {
	var stats importStats

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		result, err := eng.ProcessAndMaybeCreateOrder(ctx, userID, msg, createOrders)
		if bar != nil {
			_ = bar.Add(1)
		}
		if err != nil {
			switch {
			case errors.Is(err, common.ErrQuotaExceeded):
				stats.quotaHit = true
				return stats, nil
			case errors.Is(err, common.ErrInvalidInput):
				stats.skipped++
			default:
				stats.failed++
				slog.Warn("Failed to process message",
					"sender", msg.SenderName,
					"error", err)
			}
			continue
		}

		stats.processed++
		if result.Extraction.Status == model.StatusNeedsReview {
			stats.needsReview++
		}
		if result.OrderID != "" {
			stats.orders++
		}
		if result.OrderErr != nil {
			slog.Warn("Order creation failed",
				"extraction_id", result.Extraction.ID,
				"error", result.OrderErr)
		}
	}

	return stats, nil
}

// previewImport classifies without touching storage or quota.
func previewImport(ctx context.Context, messages []model.Message) error {
	extractor := extract.New()
	byCategory := make(map[model.Category]int)
	skipped := 0

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		ext, err := extractor.Extract(ctx, msg)
		if err != nil {
			skipped++
			continue
		}
		byCategory[ext.Category]++
	}

	content := fmt.Sprintf("Messages: %d\n\n", len(messages))
	for _, cat := range model.Categories() {
		if byCategory[cat] == 0 {
			continue
		}
		content += fmt.Sprintf("%s %s: %d\n", cli.CategoryIcon(cat), cat, byCategory[cat])
	}
	if skipped > 0 {
		content += fmt.Sprintf("\nUnparseable: %d\n", skipped)
	}

	fmt.Println(cli.RenderBox("Dry Run Preview", content))
	fmt.Println(cli.FormatWarning("Dry run mode - nothing saved, no quota used"))
	return nil
}

func printImportSummary(stats importStats) {
	content := fmt.Sprintf(`Extracted: %d
Needs review: %d
Orders created: %d
Skipped: %d
Failed: %d`,
		stats.processed, stats.needsReview, stats.orders, stats.skipped, stats.failed)

	fmt.Println(cli.RenderBox("Import Summary", content))

	if stats.quotaHit {
		fmt.Println(cli.FormatWarning("Monthly quota exhausted - remaining messages were not imported"))
		fmt.Println(cli.SubtleStyle.Render("Run 'chatledger quota' to see your usage."))
		return
	}
	if stats.needsReview > 0 {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("%d extractions need review: chatledger review list", stats.needsReview)))
	}
	fmt.Println(cli.FormatSuccess("Import complete!"))
}

func newImportBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Extracting messages...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

// collectExportFiles expands the command arguments into a flat list of
// export files. Directories are scanned recursively, glob patterns are
// expanded, and plain paths are kept as-is.
func collectExportFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			found, scanErr := ingest.ScanDirectory(arg, nil)
			if scanErr != nil {
				return nil, fmt.Errorf("failed to scan directory %s: %w", arg, scanErr)
			}
			if len(found) == 0 {
				slog.Warn("No chat exports found in directory", "dir", arg)
			}
			files = append(files, found...)
			continue
		}
		if err == nil {
			files = append(files, arg)
			continue
		}

		// Not a direct path; try it as a glob pattern
		matches, globErr := filepath.Glob(arg)
		if globErr != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, globErr)
		}
		if len(matches) == 0 {
			slog.Warn("No files found matching pattern", "pattern", arg)
			continue
		}
		files = append(files, matches...)
	}

	return files, nil
}
