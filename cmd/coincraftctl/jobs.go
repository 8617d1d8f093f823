package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/coincraft/coincraft/jobs"
)

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsSweepCmd, jobsPayoutCmd, jobsStatsCmd)
	jobsSweepCmd.Flags().Int("batch", 100, "maximum redemptions to requeue")
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Trigger and inspect background jobs",
}

var jobsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Requeue payout notices for approved redemptions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		batch, err := cmd.Flags().GetInt("batch")
		if err != nil {
			return err
		}
		client, err := jobs.NewClient(redisOpts())
		if err != nil {
			return err
		}
		defer client.Close()

		info, err := client.EnqueueSweep(cmd.Context(), batch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", info.ID, info.Queue)
		return nil
	},
}

var jobsPayoutCmd = &cobra.Command{
	Use:   "payout <request-id>",
	Short: "Enqueue the payout notice for one approved redemption",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requestID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("request id: %w", err)
		}
		client, err := jobs.NewClient(redisOpts())
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.EnqueuePayout(cmd.Context(), requestID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "payout queued for %s\n", requestID)
		return nil
	},
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue depth for every payout queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		inspector := asynq.NewInspector(redisOpts())
		defer inspector.Close()

		for queue := range jobs.Queues() {
			info, err := inspector.GetQueueInfo(queue)
			if errors.Is(err, asynq.ErrQueueNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "queue=%s empty\n", queue)
				continue
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Archived)
		}
		return nil
	},
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: ctl.cfg.RedisAddr}
}
