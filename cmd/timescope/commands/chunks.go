package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.trai.ch/timescope/internal/app"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/ui/style"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(style.Iris).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(style.Slate)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func (c *CLI) newChunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks <source>",
		Short: "List the tiles a source is split into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunks, err := c.app.Chunks(cmd.Context(), app.ChunksOptions{
				Config: configPath(cmd),
				Source: args[0],
				Window: window(cmd),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(chunks)
			}

			t := newTable("ID", "SEQ", "START", "END", "RESOLUTION")
			for _, ch := range chunks {
				t.Row(ch.ID, strconv.FormatInt(ch.Seq, 10), side(ch.Range.Start), side(ch.Range.End), ch.Resolution.String())
			}
			_, err = fmt.Fprintln(out, t.Render())
			return err
		},
	}
	addWindowFlags(cmd)
	return cmd
}

func side(v domain.Value) string {
	if !v.Valid {
		return "~"
	}
	return v.Decimal.String()
}
