package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/timescope/internal/app"
)

func (c *CLI) newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Open the interactive time axis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.View(cmd.Context(), app.ViewOptions{Config: configPath(cmd)})
		},
	}
}
