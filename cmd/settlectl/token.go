package main

import (
	"fmt"
	"os"
	"time"

	"settlement-core/internal/service"

	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token [account-id]",
	Short: "Mint a bearer token for local testing",
	Long: `Mint a bearer token signed with jwt.secret for the given account.

Production tokens come from the session service; this exists for local
development and smoke tests against a running API.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is not configured")
	}

	token, expiresAt, err := service.NewJWTTokenService(cfg.JWT.Secret, tokenTTL, cfg.JWT.Issuer).Generate(args[0])
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
