package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"settlement-core/internal/bootstrap"
	"settlement-core/internal/core/domain"
	"settlement-core/internal/service"

	"github.com/spf13/cobra"
)

var (
	outputJSON   bool
	ordersStatus string
)

var walletCmd = &cobra.Command{
	Use:   "wallet [account-id]",
	Short: "Show a wallet balance and its ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runWallet,
}

var ordersCmd = &cobra.Command{
	Use:   "orders [account-id]",
	Short: "List an account's orders, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrders,
}

func init() {
	walletCmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON instead of a table")
	ordersCmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON instead of a table")
	ordersCmd.Flags().StringVar(&ordersStatus, "status", "", "only orders in this status")
}

func openQueries(ctx context.Context) (*service.QueryServiceImpl, func(), error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := bootstrap.OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return service.NewQueryService(store.Ledger, store.Orders), store.Close, nil
}

func runWallet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queries, closeFn, err := openQueries(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	wallet, err := queries.GetWallet(ctx, args[0])
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(wallet)
	}

	fmt.Printf("Account: %s\n", wallet.AccountID)
	fmt.Printf("Balance: %s %s\n\n", wallet.Balance.StringFixed(domain.MinorUnitExponent), wallet.Currency)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tAMOUNT\tREFERENCE\tCREATED")
	for _, t := range wallet.Transactions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Kind, t.Signed().StringFixed(domain.MinorUnitExponent), t.Reference, t.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runOrders(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queries, closeFn, err := openQueries(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	var status *domain.OrderStatus
	if ordersStatus != "" {
		s := domain.OrderStatus(ordersStatus)
		status = &s
	}
	orders, err := queries.ListOrders(ctx, args[0], status)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(orders)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tSTATUS\tMETHOD\tTOTAL\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\t%s\n",
			o.OrderID, o.Status, o.PaymentMethod, o.TotalAmount.StringFixed(domain.MinorUnitExponent), o.Currency, o.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
