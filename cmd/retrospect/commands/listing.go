package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/retrospect/internal/config"
	"github.com/Sumatoshi-tech/retrospect/internal/snapshot"
)

// listProjects renders the project listing table. Only projects with at
// least two snapshots appear, since a single snapshot has no history.
func listProjects(cmd *cobra.Command, cfg *config.Config) error {
	projects, err := snapshot.ListProjects(cfg.ZipDirectory)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No projects with 2+ snapshots found in %s\n", cfg.ZipDirectory)

		return nil
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"Project", "Snapshots", "Size"})
	for _, p := range projects {
		tbl.AppendRow(table.Row{p.Name, p.Count, humanize.Bytes(uint64(p.TotalBytes))})
	}
	fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d projects found.\n", len(projects))

	return nil
}
