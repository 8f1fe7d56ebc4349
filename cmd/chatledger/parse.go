package main

import (
	"errors"
	"fmt"

	"github.com/pocketmoney/chatledger/internal/cli"
	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <message>",
		Short: "Extract structured data from a single message",
		Long: `Classify one WhatsApp message and extract its structured fields.

The message is stored in the local database and counts against the
monthly quota. High-confidence order messages can create an order
record directly with --create-order.

Examples:
  chatledger parse "Nak order 2 nasi lemak rm15"
  chatledger parse --sender "Ali" --phone 0123456789 "dah transfer rm50 maybank"
  chatledger parse --create-order "2x kek coklat, total RM60"`,
		Args: cobra.ExactArgs(1),
		RunE: runParse,
	}

	cmd.Flags().StringP("sender", "s", "", "sender display name")
	cmd.Flags().StringP("phone", "p", "", "sender phone number")
	cmd.Flags().Bool("create-order", false, "create an order from a processed order message")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sender, _ := cmd.Flags().GetString("sender")
	phone, _ := cmd.Flags().GetString("phone")
	createOrder, _ := cmd.Flags().GetBool("create-order")

	eng, _, cleanup, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	msg := model.Message{
		Content:     args[0],
		SenderName:  sender,
		SenderPhone: phone,
	}

	result, err := eng.ProcessAndMaybeCreateOrder(ctx, currentUser(), msg, createOrder)
	if err != nil {
		var quotaErr *common.QuotaExceededError
		if errors.As(err, &quotaErr) {
			fmt.Println(cli.FormatError(fmt.Sprintf("Monthly quota exhausted: %d of %d extractions used in %s",
				quotaErr.CurrentUsage, quotaErr.Limit, quotaErr.MonthKey)))
			fmt.Println(cli.SubtleStyle.Render("Upgrade your plan or wait for the next month to continue."))
			return common.ErrQuotaExceeded
		}
		if errors.Is(err, common.ErrInvalidInput) {
			return fmt.Errorf("message rejected: %w", err)
		}
		return fmt.Errorf("failed to process message: %w", err)
	}

	fmt.Println(cli.RenderExtraction(result.Extraction))

	if result.OrderID != "" {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Order created: %s", result.OrderID)))
	}
	if result.OrderErr != nil {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Extraction saved, but order creation failed: %v", result.OrderErr)))
	}

	return nil
}
