package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
)

// ecomctl migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the relational schema (safe to re-run)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		pool, err := postgres.Connect(ctx, postgres.Options{
			DSN:      cfg.Postgres.ConnectionString(),
			MaxConns: 2,
			MinConns: 1,
		})
		if err != nil {
			return err
		}
		defer pool.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "Applying schema…")
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date.")
		return nil
	},
}
