/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zidesign/catalog/config"
	"github.com/zidesign/catalog/internal/mq"
	"github.com/zidesign/catalog/pkg/logger"
)

// eventsCmd tails the work lifecycle channel.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume and log work lifecycle events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logger.New("zidesign-events", cfg.Env, cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("open mq: %w", err)
		}
		if queue == nil {
			return errors.New("no message queue configured; set MQ_BACKEND")
		}
		defer queue.Close()

		log.WithField("channel", queue.Channel()).Info("consuming events")
		err = queue.ConsumeEvents(ctx, func(_ context.Context, id string, ev mq.WorkEvent) error {
			log.WithFields(logrus.Fields{
				"message_id": id,
				"event":      ev.Type,
				"work_id":    ev.WorkID,
				"actor_id":   ev.ActorID,
				"status":     ev.Work.Status.String(),
				"at":         ev.OccurredAt,
			}).Info("work event")
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
