package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pocketmoney/chatledger/internal/chatexport"
	"github.com/pocketmoney/chatledger/internal/cli"
	"github.com/pocketmoney/chatledger/internal/ingest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [directories...]",
		Short: "Watch folders for new chat exports",
		Long: `Watch one or more directories for WhatsApp chat export files and import
them as they appear.

New and modified .txt files are picked up automatically, including in
subdirectories created after the watch starts. Saving the same export
twice imports it twice; point the watcher at a drop folder you clear
out, not at a permanent archive.

Press Ctrl+C to stop watching.

Examples:
  chatledger watch ~/Downloads/whatsapp-exports
  chatledger watch --initial-scan --debounce 5s ~/exports ~/backups/chats`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().Duration("debounce", 2*time.Second, "how long to wait for a file to stop changing")
	cmd.Flags().Bool("initial-scan", false, "import exports already present when the watch starts")
	cmd.Flags().Bool("create-orders", false, "create orders from processed order messages")

	_ = viper.BindPFlag("watch.debounce", cmd.Flags().Lookup("debounce"))
	_ = viper.BindPFlag("watch.initial_scan", cmd.Flags().Lookup("initial-scan"))

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	createOrders, _ := cmd.Flags().GetBool("create-orders")

	eng, _, cleanup, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		Debounce:    viper.GetDuration("watch.debounce"),
		InitialScan: viper.GetBool("watch.initial_scan"),
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Println(cli.FormatTitle("Watching for chat exports"))
	for _, dir := range args {
		fmt.Printf("  %s\n", dir)
	}
	fmt.Println(cli.SubtleStyle.Render("Press Ctrl+C to stop."))

	parser := chatexport.NewParser()
	user := currentUser()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch stopped")
			return nil
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", "error", err)
		case path, ok := <-paths:
			if !ok {
				return nil
			}

			messages, parseErr := parser.ParsePath(ctx, path)
			if parseErr != nil {
				slog.Error("Failed to parse chat export",
					"file", path,
					"error", parseErr)
				continue
			}
			if len(messages) == 0 {
				continue
			}

			stats, procErr := processMessages(ctx, eng, user, messages, createOrders, nil)
			if procErr != nil {
				// Context cancellation; the next select iteration returns.
				continue
			}

			slog.Info("Imported chat export",
				"file", filepath.Base(path),
				"extracted", stats.processed,
				"needs_review", stats.needsReview,
				"orders", stats.orders,
				"skipped", stats.skipped,
				"failed", stats.failed)
			if stats.quotaHit {
				fmt.Println(cli.FormatWarning("Monthly quota exhausted - new exports will not be imported until next month"))
			}
		}
	}
}
