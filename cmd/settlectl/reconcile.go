package main

import (
	"context"
	"fmt"
	"time"

	"settlement-core/internal/bootstrap"
	"settlement-core/internal/core/domain"
	"settlement-core/internal/core/ports"

	"github.com/spf13/cobra"
)

var (
	reconcileAccount string
	reconcileTimeout time.Duration
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [reference]",
	Short: "Settle a gateway payment by reference",
	Long: `Retrieve a payment intent from the gateway and settle it if it succeeded.

Use this when neither the client confirmation nor the gateway callback
arrived. Settlement is idempotent: a payment that was already settled is
reported with its recorded outcome and nothing is applied twice.

Examples:
  settlectl reconcile pi_3Nq...
  settlectl reconcile pi_3Nq... --account acct_42`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileAccount, "account", "", "expected owner of the intent")
	reconcileCmd.Flags().DurationVar(&reconcileTimeout, "timeout", 30*time.Second, "overall deadline")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	store, err := bootstrap.OpenStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()
	if !cfg.Storage.UsePostgres() {
		fmt.Println("Warning: in-memory storage, the settlement will not persist")
	}

	rds, err := bootstrap.OpenRedis(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	if rds != nil {
		defer rds.Client.Close()
	}

	svc, _, err := bootstrap.NewSettlementService(cfg, store, rds, log)
	if err != nil {
		return err
	}

	record, err := svc.Reconcile(ctx, ports.ReconcileRequest{
		Reference: args[0],
		AccountID: reconcileAccount,
		Channel:   domain.ChannelCLI,
	})
	if err != nil {
		return err
	}

	printSettlement(record)
	return nil
}

func printSettlement(r *domain.SettlementRecord) {
	fmt.Printf("Reference:  %s\n", r.Reference)
	fmt.Printf("Status:     %s\n", r.Status)
	if r.Outcome != nil {
		fmt.Printf("Kind:       %s\n", r.Outcome.Kind)
		fmt.Printf("Target:     %s\n", r.Outcome.TargetID)
		fmt.Printf("Account:    %s\n", r.Outcome.AccountID)
		fmt.Printf("Amount:     %s %s\n", r.Outcome.Amount.StringFixed(domain.MinorUnitExponent), r.Outcome.Currency)
	}
	if r.SettledAt != nil {
		fmt.Printf("Settled at: %s\n", r.SettledAt.Format(time.RFC3339))
	}
}
