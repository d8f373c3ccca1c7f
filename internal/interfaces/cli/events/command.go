// Package events publishes billing change notifications by hand.
package events

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vendora-inc/vendora/internal/infrastructure/cache"
	"github.com/vendora-inc/vendora/internal/infrastructure/config"
	"github.com/vendora-inc/vendora/internal/infrastructure/pubsub"
	"github.com/vendora-inc/vendora/internal/shared/logger"
)

var (
	configPath string
	userID     string
	reason     string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Billing event tools",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Directory containing config.yaml (default: ./configs)")

	publish := &cobra.Command{
		Use:   "publish",
		Short: "Announce that a user's subscription record changed",
		Long: `Publish a billing change event so running servers refresh every session of
the user. Use after fixing a subscriber row by hand.`,
		RunE: runPublish,
	}
	publish.Flags().StringVar(&userID, "user", "", "User id whose record changed (required)")
	publish.Flags().StringVar(&reason, "reason", "manual", "Reason recorded with the event")
	_ = publish.MarkFlagRequired("user")

	cmd.AddCommand(publish)
	return cmd
}

func runPublish(cmd *cobra.Command, args []string) error {
	var searchPaths []string
	if configPath != "" {
		searchPaths = append(searchPaths, configPath)
	}
	cfg, err := config.Load("", searchPaths...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, false); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	defer client.Close()

	bus := pubsub.NewRedisBillingEventBus(client, cfg.Subscription.EventChannel, log)
	if err := bus.Publish(ctx, userID, reason); err != nil {
		return err
	}
	log.Infow("billing event published", "user_id", userID, "reason", reason, "channel", cfg.Subscription.EventChannel)
	return nil
}
