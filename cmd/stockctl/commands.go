package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rl1809/sales-ledger/internal/core/domain"
)

var (
	sellQty       string
	sellPrice     string
	sellRequestID string
)

var descriptionsCmd = &cobra.Command{
	Use:   "descriptions",
	Short: "List item descriptions",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		printOptions(cmd, a.session.Descriptions())
		return nil
	}),
}

var finishesCmd = &cobra.Command{
	Use:   "finishes <description>",
	Short: "List the finishes available for a description",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		printOptions(cmd, a.session.Finishes(args[0]))
		return nil
	}),
}

var thicknessesCmd = &cobra.Command{
	Use:   "thicknesses <description> <finish>",
	Short: "List the thicknesses available for a description and finish",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		printOptions(cmd, a.session.Thicknesses(args[0], args[1]))
		return nil
	}),
}

var showCmd = &cobra.Command{
	Use:   "show <description> <finish> <thickness>",
	Short: "Show stock and price of one item",
	Args:  cobra.ExactArgs(3),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		row, err := a.session.Resolve(itemKey(args))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s / %s / %s\n", row.Description, row.Finish, row.Thickness)
		if row.Size != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Size:   %s\n", row.Size)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stock:  %d\n", row.StockQuantity)
		fmt.Fprintf(cmd.OutOrStdout(), "Price:  %s\n", formatTZS(row.UnitPrice))
		return nil
	}),
}

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Print the current stock of every item",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		out, err := render(stockMarkdown(a.session.Rows()))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}),
}

var sellCmd = &cobra.Command{
	Use:   "sell <description> <finish> <thickness>",
	Short: "Record a sale and decrement stock",
	Args:  cobra.ExactArgs(3),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		qty, err := domain.ParseQuantity(sellQty)
		if err != nil {
			return err
		}
		var price decimal.NullDecimal
		if sellPrice != "" {
			p, err := domain.ParsePrice(sellPrice)
			if err != nil {
				return err
			}
			price = decimal.NewNullDecimal(p)
		}

		res, err := a.session.Sell(cmd.Context(), itemKey(args), qty, price, sellRequestID)
		if err != nil {
			return err
		}
		e := res.Entry
		fmt.Fprintf(cmd.OutOrStdout(), "Sold %d x %s %s %s at %s = %s\n",
			e.Quantity, e.Description, e.Finish, e.Thickness, formatTZS(e.UnitPrice), formatTZS(e.Total))
		fmt.Fprintf(cmd.OutOrStdout(), "Stock remaining: %d (request %s)\n", res.NewStock, e.RequestID)
		return nil
	}),
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Print the sales ledger",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
		entries, err := a.session.Ledger(cmd.Context())
		if err != nil {
			return err
		}
		out, err := render(ledgerMarkdown(entries))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}),
}

var retryLedgerCmd = &cobra.Command{
	Use:   "retry-ledger <request-id>",
	Short: "Log a sale whose stock was updated but whose ledger entry failed",
	Long: "Appends the ledger entry of a sale that ended in a partial write. " +
		"Stock is never touched again. Needs redis.addr so the request survives between invocations.",
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		res, err := a.session.RetryLedger(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ledger entry recorded for request %s (stock %d)\n", args[0], res.NewStock)
		return nil
	}),
}

func init() {
	sellCmd.Flags().StringVarP(&sellQty, "qty", "q", "", "quantity to sell (required)")
	sellCmd.Flags().StringVarP(&sellPrice, "price", "p", "", "unit price in TZS (defaults to the catalog price)")
	sellCmd.Flags().StringVar(&sellRequestID, "request-id", "", "idempotency key for this sale")
	sellCmd.MarkFlagRequired("qty")

	rootCmd.AddCommand(descriptionsCmd, finishesCmd, thicknessesCmd, showCmd, stockCmd, sellCmd, ledgerCmd, retryLedgerCmd)
}

func itemKey(args []string) domain.ItemKey {
	return domain.ItemKey{Description: args[0], Finish: args[1], Thickness: args[2]}
}

func printOptions(cmd *cobra.Command, options []string) {
	if len(options) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(none)")
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(options, "\n"))
}

// describe turns the error taxonomy into operator guidance.
func describe(err error) string {
	var partial *domain.PartialWriteError
	switch {
	case errors.As(err, &partial):
		return fmt.Sprintf("stock was set to %d but the sale was not logged; run `stockctl retry-ledger %s`",
			partial.NewStock, partial.RequestID)
	case errors.Is(err, domain.ErrStaleRead):
		return "stock changed since it was read; check `stockctl show` and try again"
	case errors.Is(err, domain.ErrDuplicateCommit):
		return err.Error() + "; use a new --request-id for a new sale"
	case errors.Is(err, domain.ErrNotFound):
		return "no item matches that description, finish and thickness"
	}
	return err.Error()
}
