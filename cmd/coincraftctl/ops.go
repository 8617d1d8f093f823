package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coincraft/coincraft/internal/app"
	"github.com/coincraft/coincraft/internal/auth"
	"github.com/coincraft/coincraft/internal/platform/cache"
	"github.com/coincraft/coincraft/internal/shared"
)

func init() {
	rootCmd.AddCommand(seedCmd, reconcileCmd, sessionCmd)
	sessionCmd.AddCommand(sessionIssueCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default reward catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		services := app.NewServices(pool, ctl.cfg, ctl.logger, nil)
		added, err := services.Catalog.SeedDefaults(ctx)
		if err != nil {
			return err
		}
		ctl.logger.Info("catalog seeded", slog.Int("added", added))
		fmt.Fprintf(cmd.OutOrStdout(), "%d catalog items added\n", added)
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <actor-id>",
	Short: "Compare a stored balance against its ledger",
	Long:  "Recomputes an account balance from its ledger entries and reports any drift. Exits non-zero when the two disagree.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actorID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("actor id: %w", err)
		}
		ctx := cmd.Context()
		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		services := app.NewServices(pool, ctl.cfg, ctl.logger, nil)
		rec, err := services.Ledger.Reconcile(ctx, actorID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "stored:   %d\n", rec.Stored)
		fmt.Fprintf(out, "computed: %d\n", rec.Computed)
		if drift := rec.Drift(); drift != 0 {
			return fmt.Errorf("balance drift of %d coins", drift)
		}
		fmt.Fprintln(out, "balanced")
		return nil
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage bearer sessions",
}

var sessionIssueCmd = &cobra.Command{
	Use:   "issue <actor-id> <role>",
	Short: "Issue a bearer token for an actor",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, err := parseActor(args[0], args[1])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		client, err := cache.New(ctx, cache.Options{Addr: ctl.cfg.RedisAddr})
		if err != nil {
			return err
		}
		defer client.Close()

		sessions := auth.NewSessionStore(client, ctl.cfg.SessionPrefix, ctl.cfg.SessionTTL)
		token, err := sessions.Issue(ctx, actor)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func parseActor(rawID, rawRole string) (shared.Actor, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return shared.Actor{}, fmt.Errorf("actor id: %w", err)
	}
	role := shared.Role(rawRole)
	if !role.IsValid() {
		return shared.Actor{}, fmt.Errorf("unknown role %q", rawRole)
	}
	return shared.Actor{ID: id, Role: role}, nil
}
