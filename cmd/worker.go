/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tienda-api/authserver/config"
	"github.com/tienda-api/authserver/internal/mq"
	"github.com/tienda-api/authserver/internal/notify"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Runs the reset-email delivery worker",
	Long: `Consumes queued password-reset email jobs from the configured broker
and delivers them over SMTP. Only needed when NOTIFIER_BACKEND is a queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "worker").Logger()

		backend, err := mq.NewBackend(cmd.Context(), cfg.Notifier)
		if err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
		defer func() {
			_ = backend.Close()
		}()

		mailer := notify.NewMailer(cfg.SMTP, cfg.Origin, logger)
		worker := notify.NewWorker(backend, cfg.Notifier.Channel, mailer, logger)

		if err := worker.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
