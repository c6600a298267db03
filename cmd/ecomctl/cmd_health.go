package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-ecom-chatbot/internal/mongox"
	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
	"github.com/ariefcatur/go-ecom-chatbot/internal/redisx"
)

type probe struct {
	name string
	run  func(ctx context.Context) error
}

// ecomctl health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Ping postgres, redis and mongodb",
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		probes := []probe{
			{"postgres", func(ctx context.Context) error {
				pool, err := postgres.Connect(ctx, postgres.Options{DSN: cfg.Postgres.ConnectionString(), MaxConns: 1})
				if err != nil {
					return err
				}
				pool.Close()
				return nil
			}},
			{"redis", func(ctx context.Context) error {
				rdb := redisx.New(cfg.RedisAddr, cfg.RedisPassword)
				defer rdb.Close()
				return rdb.Ping(ctx).Err()
			}},
			{"mongodb", func(ctx context.Context) error {
				mc, _, err := mongox.Connect(ctx, cfg.MongoURI)
				if err != nil {
					return err
				}
				return mc.Disconnect(ctx)
			}},
		}

		failed := 0
		for _, p := range probes {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			err := p.run(ctx)
			cancel()
			if err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "%-9s FAIL  %v\n", p.name, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-9s ok\n", p.name)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d stores unreachable", failed, len(probes))
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().Duration("timeout", 5*time.Second, "per-store timeout")
}
