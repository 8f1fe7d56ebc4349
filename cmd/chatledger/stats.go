package main

import (
	"fmt"
	"strings"

	"github.com/pocketmoney/chatledger/internal/cli"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show extraction statistics",
		Long: `Summarize stored extractions: category and status breakdowns, average
confidence and the most active senders.

Examples:
  chatledger stats            # last 30 days
  chatledger stats --days 7   # last week
  chatledger stats --days 0   # everything`,
		RunE: runStats,
	}

	cmd.Flags().IntP("days", "d", 30, "window in days (0 = all time)")

	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	days, _ := cmd.Flags().GetInt("days")

	eng, _, cleanup, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := eng.GetStats(ctx, currentUser(), days)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	period := "All time"
	if days > 0 {
		period = fmt.Sprintf("Last %d days", days)
	}

	if summary.Total == 0 {
		fmt.Println(cli.InfoStyle.Render(fmt.Sprintf("No extractions in this period (%s).", strings.ToLower(period))))
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Messages extracted: %d\n", summary.Total)
	fmt.Fprintf(&b, "Average confidence: %.0f%%\n", summary.AverageConfidence*100)
	if summary.ManualCorrections > 0 {
		fmt.Fprintf(&b, "Manual corrections: %d\n", summary.ManualCorrections)
	}

	b.WriteString("\nBy category:\n")
	for _, cat := range model.Categories() {
		count := summary.ByCategory[cat]
		if count == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s %-21s %d\n", cli.CategoryIcon(cat), cat, count)
	}

	b.WriteString("\nBy status:\n")
	for _, status := range []model.ExtractionStatus{model.StatusProcessed, model.StatusNeedsReview} {
		count := summary.ByStatus[status]
		if count == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %-23s %d\n", status, count)
	}

	if len(summary.TopSenders) > 0 {
		b.WriteString("\nTop senders:\n")
		for i, sc := range summary.TopSenders {
			fmt.Fprintf(&b, "  %d. %s (%d messages)\n", i+1, sc.Sender, sc.Count)
		}
	}

	fmt.Println(cli.RenderBox(fmt.Sprintf("%s %s", cli.ChartIcon, period), b.String()))

	if pending := summary.ByStatus[model.StatusNeedsReview]; pending > 0 {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("%d extractions waiting for review: chatledger review list", pending)))
	}

	return nil
}
