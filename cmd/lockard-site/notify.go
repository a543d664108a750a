package main

import (
	"errors"
	"fmt"

	"github.com/lockard-llc/lockard-site/config"
	"github.com/lockard-llc/lockard-site/realtime"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify [message]",
	Short: "Tell running servers that the remote config changed",
	Long: `notify publishes on redis.updates_channel. Every server with
enable_realtime_sync on refreshes right away instead of waiting for the
next poll.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr is required to notify servers")
		}
		payload := "updated"
		if len(args) == 1 {
			payload = args[0]
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := realtime.Publish(cmd.Context(), client, cfg.Redis.UpdatesChannel, payload); err != nil {
			return fmt.Errorf("publishing config update: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "config update published")
		return nil
	},
}
