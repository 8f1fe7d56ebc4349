package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/pocketmoney/chatledger/internal/cli"
	"github.com/pocketmoney/chatledger/internal/common"
	"github.com/pocketmoney/chatledger/internal/storage"
	"github.com/spf13/cobra"
)

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Browse orders created from chat messages",
		Long: `List and inspect the orders created from processed order extractions,
either automatically (--create-orders on parse/import/watch) or after a
manual correction.`,
	}

	cmd.AddCommand(ordersListCmd())
	cmd.AddCommand(ordersShowCmd())

	return cmd
}

func ordersListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			orders, err := store.QueryOrders(ctx, currentUser(), limit)
			if err != nil {
				return fmt.Errorf("failed to load orders: %w", err)
			}

			if len(orders) == 0 {
				fmt.Println(cli.InfoStyle.Render("No orders yet. Parse order messages with --create-order to create some."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() {
				if flushErr := w.Flush(); flushErr != nil {
					slog.Error("failed to flush table writer", "error", flushErr)
				}
			}()

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Date"),
				headerStyle.Render("Customer"),
				headerStyle.Render("Items"),
				headerStyle.Render("Total"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("─", 8),
				strings.Repeat("─", 16),
				strings.Repeat("─", 15),
				strings.Repeat("─", 5),
				strings.Repeat("─", 10))

			for _, order := range orders {
				total := "-"
				if order.TotalAmount != nil {
					total = cli.Money(*order.TotalAmount)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					shortID(order.ID),
					order.CreatedAt.Format("2006-01-02 15:04"),
					cli.SenderLabel(order.CustomerName, order.CustomerPhone),
					len(order.Items),
					total)
			}
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "maximum rows to show")

	return cmd
}

func ordersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one order in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := resolveOrderID(ctx, store, currentUser(), args[0])
			if err != nil {
				return err
			}

			order, err := store.GetOrder(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load order: %w", err)
			}

			fmt.Println(cli.RenderOrder(order))
			return nil
		},
	}
}

// resolveOrderID expands a short id prefix to the full stored id.
func resolveOrderID(ctx context.Context, store *storage.SQLiteStorage, userID, id string) (string, error) {
	id = strings.TrimSpace(id)
	if len(id) >= 36 {
		return id, nil
	}

	orders, err := store.QueryOrders(ctx, userID, 500)
	if err != nil {
		return "", fmt.Errorf("failed to resolve order id: %w", err)
	}

	var match string
	for _, order := range orders {
		if strings.HasPrefix(order.ID, id) {
			if match != "" && match != order.ID {
				return "", fmt.Errorf("order id %q is ambiguous; use more characters", id)
			}
			match = order.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no order with id %q: %w", id, common.ErrNotFound)
	}
	return match, nil
}
