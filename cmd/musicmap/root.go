package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/musicmap/config"
)

// runFlags holds the command-line overrides of the run command.
type runFlags struct {
	configPath    string
	input         string
	output        string
	encoding      string
	logLevel      string
	plot          string
	sqlite        string
	affinity      string
	skipReference bool
}

func newRootCommand() *cobra.Command {
	flags := &runFlags{}

	rootCmd := &cobra.Command{
		Use:           "musicmap",
		Short:         "Project track audio features onto a 2D t-SNE map",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, flags)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	addRunFlags(rootCmd, flags)

	rootCmd.AddCommand(newRunCommand(flags))
	rootCmd.AddCommand(newConfigCommand(flags))

	return rootCmd
}

func addRunFlags(cmd *cobra.Command, flags *runFlags) {
	f := cmd.Flags()
	f.StringVarP(&flags.input, "input", "i", "", "Input CSV path")
	f.StringVarP(&flags.output, "output", "o", "", "Output CSV path")
	f.StringVar(&flags.encoding, "encoding", "", "IANA encoding name of the input file")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&flags.plot, "plot", "", "Write a scatter plot of the embedding (png, svg or pdf)")
	f.StringVar(&flags.sqlite, "sqlite", "", "Export the output table to a SQLite database")
	f.StringVar(&flags.affinity, "affinity", "", "Write platform affinity correlations as JSON")
	f.BoolVar(&flags.skipReference, "skip-reference", false, "Skip the reference embedding run")
}

// loadConfig layers the configuration file, environment and the flags
// explicitly set on cmd.
func loadConfig(cmd *cobra.Command, flags *runFlags) (*config.Config, error) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	return config.Load(flags.configPath, func(c *config.Config) {
		if changed("input") {
			c.Input.Path = flags.input
		}
		if changed("output") {
			c.Output.Path = flags.output
		}
		if changed("encoding") {
			c.Input.Encoding = flags.encoding
		}
		if changed("log-level") {
			c.Logging.Level = flags.logLevel
		}
		if changed("plot") {
			c.Output.PlotPath = flags.plot
		}
		if changed("sqlite") {
			c.Output.SQLitePath = flags.sqlite
		}
		if changed("affinity") {
			c.Output.AffinityPath = flags.affinity
		}
		if changed("skip-reference") {
			c.Embedding.SkipReferenceRun = flags.skipReference
		}
	})
}
