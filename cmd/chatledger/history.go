package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pocketmoney/chatledger/internal/cli"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/service"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored extractions",
		Long: `Display stored extractions, newest first.

Filter by category, status, sender or date range. Dates use the
2006-01-02 format; --until is inclusive of the whole day.

Examples:
  chatledger history
  chatledger history --category payment --since 2026-08-01
  chatledger history --status needs-review --limit 50`,
		RunE: runHistory,
	}

	cmd.Flags().IntP("limit", "n", 20, "maximum rows to show")
	cmd.Flags().Int("offset", 0, "rows to skip (for paging)")
	cmd.Flags().StringP("category", "c", "", "filter by category (order, payment, delivery, inquiry)")
	cmd.Flags().String("status", "", "filter by status (processed, needs-review)")
	cmd.Flags().String("sender", "", "filter by sender name or phone")
	cmd.Flags().String("since", "", "only extractions on or after this date (2006-01-02)")
	cmd.Flags().String("until", "", "only extractions up to this date (2006-01-02)")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	filter, err := historyFilter(cmd)
	if err != nil {
		return err
	}

	eng, _, cleanup, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	extractions, err := eng.History(ctx, currentUser(), filter)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(extractions) == 0 {
		fmt.Println(cli.InfoStyle.Render("No extractions found. Use 'chatledger parse' or 'chatledger import' to add some."))
		return nil
	}

	printExtractionTable(extractions)
	return nil
}

func historyFilter(cmd *cobra.Command) (service.ExtractionFilter, error) {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	categoryStr, _ := cmd.Flags().GetString("category")
	statusStr, _ := cmd.Flags().GetString("status")
	sender, _ := cmd.Flags().GetString("sender")
	sinceStr, _ := cmd.Flags().GetString("since")
	untilStr, _ := cmd.Flags().GetString("until")

	filter := service.ExtractionFilter{
		Limit:  limit,
		Offset: offset,
		Sender: sender,
	}

	if categoryStr != "" {
		category, err := parseCategory(categoryStr)
		if err != nil {
			return filter, err
		}
		filter.Category = &category
	}
	if statusStr != "" {
		status, err := parseStatus(statusStr)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if sinceStr != "" {
		since, err := time.Parse("2006-01-02", sinceStr)
		if err != nil {
			return filter, fmt.Errorf("invalid --since date (use 2006-01-02): %w", err)
		}
		filter.Since = &since
	}
	if untilStr != "" {
		until, err := time.Parse("2006-01-02", untilStr)
		if err != nil {
			return filter, fmt.Errorf("invalid --until date (use 2006-01-02): %w", err)
		}
		// Until is exclusive in storage; cover the named day fully.
		end := until.AddDate(0, 0, 1)
		filter.Until = &end
	}

	return filter, nil
}

func printExtractionTable(extractions []model.StoredExtraction) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Date"),
		headerStyle.Render("Category"),
		headerStyle.Render("Status"),
		headerStyle.Render("Conf"),
		headerStyle.Render("Sender"),
		headerStyle.Render("Message"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 8),
		strings.Repeat("─", 16),
		strings.Repeat("─", 12),
		strings.Repeat("─", 12),
		strings.Repeat("─", 5),
		strings.Repeat("─", 15),
		strings.Repeat("─", 30))

	for _, ext := range extractions {
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%.0f%%\t%s\t%s\n",
			shortID(ext.ID),
			ext.CreatedAt.Format("2006-01-02 15:04"),
			cli.CategoryIcon(ext.Category),
			ext.Category,
			ext.Status,
			ext.Confidence*100,
			cli.SenderLabel(ext.SenderName, ext.SenderPhone),
			summarize(ext.RawText, 40))
	}
}

// shortID trims a UUID down to its first block for display.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// summarize flattens a message onto one line and truncates it.
func summarize(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
