package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/musicmap/pipeline"
	"github.com/YuminosukeSato/musicmap/pkg/log"
)

func newRunCommand(flags *runFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean, embed and write the track table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, flags)
		},
	}
	addRunFlags(cmd, flags)
	return cmd
}

func runPipeline(cmd *cobra.Command, flags *runFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	logger, err := log.Setup(cfg.Logging.Level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	res, err := pipeline.Run(cmd.Context(), cfg)
	if err != nil {
		logger.Error("Run failed", err)
		return err
	}
	return pipeline.WriteSummary(cmd.OutOrStdout(), res)
}
