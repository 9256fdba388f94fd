package commands

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/timescope/internal/app"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/ui/style"
)

func (c *CLI) newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <series>",
		Short: "Load the rows of a series and print its scale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Load(cmd.Context(), app.LoadOptions{
				Config: configPath(cmd),
				Series: args[0],
				Window: window(cmd),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Range  domain.Range      `json:"range"`
					Rows   []domain.Row      `json:"rows"`
					Meta   domain.SeriesMeta `json:"meta"`
					Failed []string          `json:"failed,omitempty"`
				}{res.Range, res.Rows, res.Meta, slices.Sorted(maps.Keys(res.Failed))})
			}

			fields := valueFields(res.Rows)
			headers := []string{"TIME"}
			for _, f := range fields {
				headers = append(headers, strings.ToUpper(f))
			}
			t := newTable(headers...)
			for _, row := range res.Rows {
				cells := []string{side(row.MinTime)}
				for _, f := range fields {
					cells = append(cells, side(row.Value[f]))
				}
				t.Row(cells...)
			}
			if _, err := fmt.Fprintln(out, t.Render()); err != nil {
				return err
			}

			m := res.Meta
			_, err = fmt.Fprintf(out, "%d rows in %s · pmin %s · pmax %s · nmin %s · nmax %s · zero %s\n",
				len(res.Rows), res.Range, side(m.PMin), side(m.PMax), side(m.NMin), side(m.NMax), side(m.Zero))
			if err != nil {
				return err
			}
			for _, id := range slices.Sorted(maps.Keys(res.Failed)) {
				if _, err := fmt.Fprintf(out, "%s tile %s: %v\n", style.Cross, id, res.Failed[id]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addWindowFlags(cmd)
	return cmd
}

func valueFields(rows []domain.Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row.Value {
			seen[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
