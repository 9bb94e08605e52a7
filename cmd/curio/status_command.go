package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"curio/internal/deps"
	"curio/internal/joblock"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show batch lock and storage status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			lock := joblock.New(cfg.LockPath())
			running, probeErr := lock.Probe()

			colorize := isatty.IsTerminal(os.Stdout.Fd())
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Curio status")
			if probeErr != nil {
				fmt.Fprintln(out, renderStatusLine("Batch", statusWarn, fmt.Sprintf("lock probe failed: %v", probeErr), colorize))
			} else if running {
				fmt.Fprintln(out, renderStatusLine("Batch", statusOK, "running", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Batch", statusInfo, "idle", colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, cfg.LockPath(), colorize))
			fmt.Fprintln(out, renderStatusLine("Catalog", statusInfo, cfg.DatabasePath(), colorize))
			fmt.Fprintln(out, renderStatusLine("Uploads", statusInfo, cfg.Paths.UploadsDir, colorize))
			fmt.Fprintln(out, renderStatusLine("API bind", statusInfo, cfg.Paths.APIBind, colorize))
			for _, dep := range deps.CheckBinaries(deps.Requirements(cfg)) {
				if dep.Available {
					fmt.Fprintln(out, renderStatusLine(dep.Name, statusOK, "available", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine(dep.Name, statusWarn, dep.Detail, colorize))
				}
			}
			return nil
		},
	}
}
