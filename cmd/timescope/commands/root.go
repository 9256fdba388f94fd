// Package commands implements the CLI commands for timescope.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/timescope/internal/adapters/config"
	"go.trai.ch/timescope/internal/app"
	"go.trai.ch/timescope/internal/build"
	"go.trai.ch/timescope/internal/core/domain"
)

// CLI represents the command line interface for timescope.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Chunks(ctx context.Context, opts app.ChunksOptions) ([]domain.ChunkDesc, error)
	Load(ctx context.Context, opts app.LoadOptions) (*app.LoadResult, error)
	View(ctx context.Context, opts app.ViewOptions) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "timescope",
		Short:         "Browse time series along a zoomable time axis",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultFilename, "Path to the configuration file or its directory")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newViewCmd())
	rootCmd.AddCommand(c.newChunksCmd())
	rootCmd.AddCommand(c.newLoadCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

// addWindowFlags registers the flags selecting a stretch of the time axis.
func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().String("start", "", "Start of the window (RFC 3339, date or epoch seconds); defaults to one screen before --end")
	cmd.Flags().String("end", "now", "End of the window")
	cmd.Flags().Float64P("zoom", "z", 0, "Zoom level; each step halves the seconds per cell")
	cmd.Flags().Bool("json", false, "Print JSON instead of a table")
}

func window(cmd *cobra.Command) app.Window {
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	zoom, _ := cmd.Flags().GetFloat64("zoom")
	return app.Window{Start: start, End: end, Zoom: zoom}
}
