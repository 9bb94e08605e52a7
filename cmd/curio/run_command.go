package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"curio/internal/batch"
	"curio/internal/joblock"
	"curio/internal/logstream"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run [locator...]",
		Short: "Enrich items in the foreground",
		Long:  "Run a batch without the API server, printing live progress to stdout.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.newLogger()
			if err != nil {
				return err
			}
			if err := cfg.RequireLLM(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			lock := joblock.New(cfg.LockPath())
			orch := batch.New(cfg, cmdCtx.configPath, lock, logstream.NewChannel(), logger)
			if _, err := orch.Submit(ctx, args); err != nil {
				return err
			}

			idle := time.Duration(cfg.Enricher.LogIdleTimeoutSeconds) * time.Second
			if idle <= 0 {
				idle = time.Minute
			}
			for {
				event, ok := orch.Channel().Consume(idle)
				if !ok || event.Terminal {
					break
				}
				fmt.Fprintln(cmd.OutOrStdout(), event.Text)
			}
			orch.Wait()
			return nil
		},
	}
}
