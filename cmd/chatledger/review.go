package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pocketmoney/chatledger/internal/cli"
	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/engine"
	"github.com/pocketmoney/chatledger/internal/model"
	"github.com/pocketmoney/chatledger/internal/service"
	"github.com/spf13/cobra"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review and correct low-confidence extractions",
		Long: `List extractions waiting for review and fix the ones the extractor got
wrong. A corrected extraction is marked processed with full confidence,
and the previous values are kept in an audit trail.`,
	}

	cmd.AddCommand(reviewListCmd())
	cmd.AddCommand(reviewCorrectCmd())
	cmd.AddCommand(reviewShowCmd())

	return cmd
}

func reviewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List extractions that need review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")

			eng, _, cleanup, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			status := model.StatusNeedsReview
			extractions, err := eng.History(ctx, currentUser(), service.ExtractionFilter{
				Status: &status,
				Limit:  limit,
			})
			if err != nil {
				return fmt.Errorf("failed to load review queue: %w", err)
			}

			if len(extractions) == 0 {
				fmt.Println(cli.FormatSuccess("Nothing to review!"))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%d extractions need review", len(extractions))))
			fmt.Println()
			printExtractionTable(extractions)
			fmt.Println()
			fmt.Println(cli.SubtleStyle.Render("Fix one with: chatledger review correct <id> --category <category> [field flags]"))
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "maximum rows to show")

	return cmd
}

func reviewCorrectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct <id>",
		Short: "Correct an extraction",
		Long: `Override the category or extracted fields of a stored extraction.

The id may be the short prefix shown by 'review list'. Field flags
belong to one category each; supplying them implies the category, so
--category is only needed when changing the category alone.

Examples:
  # It was an order, not an inquiry
  chatledger review correct 1b9d6bcd --category order

  # Fix the payment details
  chatledger review correct 1b9d6bcd --amount 50 --method "Bank Transfer" --bank Maybank

  # Rebuild the order lines
  chatledger review correct 1b9d6bcd --item "2x nasi lemak @ 15" --item "1x teh ais @ 3" --total 33`,
		Args: cobra.ExactArgs(1),
		RunE: runReviewCorrect,
	}

	cmd.Flags().StringP("category", "c", "", "corrected category (order, payment, delivery, inquiry)")

	// Order fields
	cmd.Flags().StringSlice("item", nil, `order line, "QTYx NAME @ PRICE" (repeatable)`)
	cmd.Flags().Float64("total", 0, "order total amount in RM")
	cmd.Flags().String("customer", "", "customer name")
	cmd.Flags().String("notes", "", "order notes")

	// Payment fields
	cmd.Flags().Float64("amount", 0, "payment amount in RM")
	cmd.Flags().String("method", "", "payment method")
	cmd.Flags().String("bank", "", "bank name")
	cmd.Flags().String("reference", "", "payment reference number")

	// Delivery fields
	cmd.Flags().String("address", "", "delivery address")
	cmd.Flags().String("time", "", "delivery time")
	cmd.Flags().String("instructions", "", "delivery instructions")

	return cmd
}

func runReviewCorrect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	corr, err := buildCorrection(cmd)
	if err != nil {
		return err
	}

	eng, _, cleanup, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := resolveExtractionID(ctx, eng, currentUser(), args[0])
	if err != nil {
		return err
	}

	corrected, err := eng.ApplyManualCorrection(ctx, id, corr)
	if err != nil {
		return fmt.Errorf("failed to apply correction: %w", err)
	}

	fmt.Println(cli.FormatSuccess("Extraction corrected"))
	fmt.Println()
	fmt.Println(cli.RenderExtraction(corrected))
	return nil
}

func reviewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an extraction and its correction history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			eng, store, cleanup, err := initEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveExtractionID(ctx, eng, currentUser(), args[0])
			if err != nil {
				return err
			}

			ext, err := eng.GetExtraction(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load extraction: %w", err)
			}

			fmt.Println(cli.RenderExtraction(ext))

			corrections, err := store.GetCorrections(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load correction history: %w", err)
			}
			if len(corrections) == 0 {
				return nil
			}

			fmt.Println(cli.BoldStyle.Render("Correction history:"))
			for _, rec := range corrections {
				fmt.Printf("  %s  was %s at %.0f%% confidence\n",
					rec.CorrectedAt.Format("2006-01-02 15:04"),
					rec.PreviousCategory,
					rec.PreviousConfidence*100)
			}
			return nil
		},
	}
}

// buildCorrection assembles a correction from the field flags. Field flags
// imply their category; mixing families is rejected.
func buildCorrection(cmd *cobra.Command) (model.Correction, error) {
	var corr model.Correction

	categoryStr, _ := cmd.Flags().GetString("category")
	if categoryStr != "" {
		category, err := parseCategory(categoryStr)
		if err != nil {
			return corr, err
		}
		corr.Category = &category
	}

	orderFlags := cmd.Flags().Changed("item") || cmd.Flags().Changed("total") ||
		cmd.Flags().Changed("customer") || cmd.Flags().Changed("notes")
	paymentFlags := cmd.Flags().Changed("amount") || cmd.Flags().Changed("method") ||
		cmd.Flags().Changed("bank") || cmd.Flags().Changed("reference")
	deliveryFlags := cmd.Flags().Changed("address") || cmd.Flags().Changed("time") ||
		cmd.Flags().Changed("instructions")

	families := 0
	for _, set := range []bool{orderFlags, paymentFlags, deliveryFlags} {
		if set {
			families++
		}
	}
	if families > 1 {
		return corr, fmt.Errorf("field flags mix categories; correct one category at a time")
	}

	switch {
	case orderFlags:
		if err := requireCategory(&corr, model.CategoryOrder); err != nil {
			return corr, err
		}
		payload := &model.OrderPayload{}
		itemSpecs, _ := cmd.Flags().GetStringSlice("item")
		for _, spec := range itemSpecs {
			item, err := parseItemFlag(spec)
			if err != nil {
				return corr, err
			}
			payload.Items = append(payload.Items, item)
		}
		if cmd.Flags().Changed("total") {
			total, _ := cmd.Flags().GetFloat64("total")
			payload.TotalAmount = &total
		}
		payload.CustomerName, _ = cmd.Flags().GetString("customer")
		payload.Notes, _ = cmd.Flags().GetString("notes")
		corr.Order = payload

	case paymentFlags:
		if err := requireCategory(&corr, model.CategoryPayment); err != nil {
			return corr, err
		}
		payload := &model.PaymentPayload{}
		payload.Amount, _ = cmd.Flags().GetFloat64("amount")
		payload.Method, _ = cmd.Flags().GetString("method")
		if payload.Method == "" {
			payload.Method = model.PaymentMethodUnknown
		}
		payload.BankName, _ = cmd.Flags().GetString("bank")
		payload.ReferenceNumber, _ = cmd.Flags().GetString("reference")
		corr.Payment = payload

	case deliveryFlags:
		if err := requireCategory(&corr, model.CategoryDelivery); err != nil {
			return corr, err
		}
		payload := &model.DeliveryPayload{}
		payload.Address, _ = cmd.Flags().GetString("address")
		payload.DeliveryTime, _ = cmd.Flags().GetString("time")
		payload.Instructions, _ = cmd.Flags().GetString("instructions")
		corr.Delivery = payload
	}

	if corr.Empty() {
		return corr, fmt.Errorf("nothing to correct; pass --category or field flags")
	}
	return corr, nil
}

// requireCategory pins the correction to the category its field flags imply.
func requireCategory(corr *model.Correction, implied model.Category) error {
	if corr.Category == nil {
		corr.Category = &implied
		return nil
	}
	if *corr.Category != implied {
		return fmt.Errorf("field flags are for %s but --category is %s", implied, *corr.Category)
	}
	return nil
}

// parseItemFlag parses "QTYx NAME @ PRICE"; quantity and price are optional.
func parseItemFlag(spec string) (model.OrderItem, error) {
	item := model.OrderItem{Quantity: 1}

	name := spec
	if at := strings.LastIndex(spec, "@"); at >= 0 {
		priceStr := strings.TrimSpace(spec[at+1:])
		priceStr = strings.TrimPrefix(strings.ToUpper(priceStr), "RM")
		price, err := strconv.ParseFloat(strings.TrimSpace(priceStr), 64)
		if err != nil {
			return item, fmt.Errorf("invalid price in item %q", spec)
		}
		item.UnitPrice = &price
		name = spec[:at]
	}

	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, "xX"); i > 0 {
		if qty, err := strconv.Atoi(strings.TrimSpace(name[:i])); err == nil && qty > 0 {
			item.Quantity = qty
			name = strings.TrimSpace(name[i+1:])
		}
	}

	if name == "" {
		return item, fmt.Errorf("item %q has no name", spec)
	}
	item.Name = name
	return item, nil
}

// resolveExtractionID expands a short id prefix to the full stored id.
func resolveExtractionID(ctx context.Context, eng *engine.ExtractionEngine, userID, id string) (string, error) {
	id = strings.TrimSpace(id)
	if len(id) >= 36 {
		return id, nil
	}

	extractions, err := eng.History(ctx, userID, service.ExtractionFilter{Limit: 500})
	if err != nil {
		return "", fmt.Errorf("failed to resolve extraction id: %w", err)
	}

	var match string
	for _, ext := range extractions {
		if strings.HasPrefix(ext.ID, id) {
			if match != "" && match != ext.ID {
				return "", fmt.Errorf("extraction id %q is ambiguous; use more characters", id)
			}
			match = ext.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no extraction with id %q: %w", id, common.ErrNotFound)
	}
	return match, nil
}
