package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"curio/internal/catalog"
	"curio/internal/enrich"
	"curio/internal/llm"
	"curio/internal/services/webpage"
	"curio/internal/services/ytdlp"
	"curio/internal/transcript"
	"curio/internal/worker"
)

// newWorkerCommand builds the hidden per-item subprocess entry point the
// orchestrator spawns. One invocation enriches exactly one locator.
func newWorkerCommand(cmdCtx *commandContext) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:    "worker <locator>",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if model != "" {
				cfg.LLM.Model = model
			}
			logger, err := cmdCtx.newLogger()
			if err != nil {
				return err
			}
			if err := cfg.RequireLLM(); err != nil {
				return err
			}

			store, err := catalog.Open(cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()

			videos := ytdlp.NewCLI(ytdlp.WithBinary(cfg.YtDlpBinary()))
			pages := webpage.NewFetcher(time.Duration(cfg.Enricher.FetchTimeoutSeconds) * time.Second)
			transcripts := transcript.NewService(
				transcript.NewTimedTextSource(),
				videos,
				cfg.ScratchDir(),
				cfg.Transcript.Languages,
				logger,
			)
			completer := llm.NewClient(llm.Config{
				APIKey:         cfg.LLM.APIKey,
				BaseURL:        cfg.LLM.BaseURL,
				Model:          cfg.LLM.Model,
				TimeoutSeconds: cfg.LLM.TimeoutSeconds,
			})
			enricher := enrich.New(completer, logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := worker.New(cfg, store, videos, pages, transcripts, enricher, cmd.OutOrStdout(), logger)
			return w.Run(ctx, args[0])
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "override the configured generative model for this item")
	return cmd
}
