// Command coincraftctl runs operator tasks against a CoinCraft deployment.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/coincraft/coincraft/internal/app"
	"github.com/coincraft/coincraft/internal/platform/db"
)

var rootCmd = &cobra.Command{
	Use:           "coincraftctl",
	Short:         "Operate a CoinCraft deployment",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctl.cfg = cfg
		ctl.logger = app.NewLogger(cfg).With(slog.String("component", "coincraftctl"))
		return nil
	},
}

// ctl is populated before any subcommand runs.
var ctl struct {
	cfg    *app.Config
	logger *slog.Logger
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	return db.New(ctx, ctl.cfg.PGDSN, ctl.cfg.PGMaxConns)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
