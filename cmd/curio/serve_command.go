package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"curio/internal/batch"
	"curio/internal/catalog"
	"curio/internal/joblock"
	"curio/internal/logging"
	"curio/internal/logstream"
	"curio/internal/server"
)

func newServeCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the enrichment API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.newLogger()
			if err != nil {
				return err
			}

			store, err := catalog.Open(cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()

			lock := joblock.New(cfg.LockPath())
			orch := batch.New(cfg, cmdCtx.configPath, lock, logstream.NewChannel(), logger)
			srv := server.New(cfg, store, orch, logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := srv.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			logger.Info("shutting down", logging.String("reason", "signal"))
			srv.Stop()
			orch.Wait()
			return nil
		},
	}
}
