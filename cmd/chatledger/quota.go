package main

import (
	"fmt"

	"github.com/pocketmoney/chatledger/internal/cli"
	"github.com/spf13/cobra"
)

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show this month's extraction quota",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			eng, _, cleanup, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			usage, err := eng.Usage(ctx, currentUser())
			if err != nil {
				return fmt.Errorf("failed to load usage: %w", err)
			}

			fmt.Println(cli.RenderBox("Monthly Quota", cli.RenderUsage(usage)))

			if usage.Exceeded() {
				fmt.Println(cli.SubtleStyle.Render("The quota resets at the start of the next month."))
			}
			return nil
		},
	}
}
