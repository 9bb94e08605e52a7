package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"curio/internal/catalog"
)

func newLibraryCommand(cmdCtx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "library",
		Short: "List the enriched catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Library(context.Background())
			if err != nil {
				return err
			}

			if jsonOutput || !isatty.IsTerminal(os.Stdout.Fd()) {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(entries)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderLibrary(entries))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

// renderLibrary lays the catalog out as one table: a playlist row carries a
// "P"-prefixed ID and its video count, its member records follow indented
// beneath it, and standalone records sit at the top level.
func renderLibrary(entries []catalog.LibraryEntry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Name", "Type", "Category", "Uploader", "Processed"})

	for _, entry := range entries {
		if entry.Playlist != nil {
			tw.AppendRow(table.Row{
				"P" + strconv.FormatInt(entry.Playlist.ID, 10),
				entry.Playlist.Title,
				"playlist",
				fmt.Sprintf("%d videos", len(entry.Records)),
				entry.Playlist.Uploader,
				formatProcessedAt(entry.Playlist.ProcessedAt),
			})
			for _, record := range entry.Records {
				tw.AppendRow(recordRow(record, "  "))
			}
			continue
		}
		if entry.Record != nil {
			tw.AppendRow(recordRow(entry.Record, ""))
		}
	}

	// Right-aligned IDs keep numeric record IDs flush under the wider
	// "P<id>" playlist markers.
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func recordRow(record *catalog.Record, indent string) table.Row {
	return table.Row{
		strconv.FormatInt(record.ID, 10),
		indent + record.Name,
		string(record.Kind),
		record.Category,
		record.Uploader,
		formatProcessedAt(record.ProcessedAt),
	}
}

func formatProcessedAt(at time.Time) string {
	if at.IsZero() {
		return ""
	}
	return at.Local().Format("2006-01-02 15:04")
}
