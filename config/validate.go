package config

import (
	"strings"

	"github.com/YuminosukeSato/musicmap/manifold"
	"github.com/YuminosukeSato/musicmap/pkg/errors"
	"github.com/YuminosukeSato/musicmap/pkg/log"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input.Path) == "" {
		return errors.NewValidationError("input.path", "must be set", c.Input.Path)
	}
	if strings.TrimSpace(c.Input.Encoding) == "" {
		return errors.NewValidationError("input.encoding", "must be set", c.Input.Encoding)
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return errors.NewValidationError("output.path", "must be set", c.Output.Path)
	}
	if err := c.validateFeatures(); err != nil {
		return err
	}
	if err := validateRun("embedding.final", c.Embedding.Final); err != nil {
		return err
	}
	if !c.Embedding.SkipReferenceRun {
		if err := validateRun("embedding.reference", c.Embedding.Reference); err != nil {
			return err
		}
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFeatures() error {
	if len(c.Features.Columns) == 0 {
		return errors.NewValidationError("features.columns", "at least one feature column is required", c.Features.Columns)
	}
	seen := make(map[string]bool, len(c.Features.Columns))
	for _, name := range c.Features.Columns {
		if strings.TrimSpace(name) == "" {
			return errors.NewValidationError("features.columns", "column names must not be empty", c.Features.Columns)
		}
		if seen[name] {
			return errors.NewValidationError("features.columns", "duplicate column "+name, c.Features.Columns)
		}
		seen[name] = true
	}
	if strings.TrimSpace(c.Features.ModeColumn) == "" {
		return errors.NewValidationError("features.mode_column", "must be set", c.Features.ModeColumn)
	}
	return nil
}

func validateRun(section string, r Run) error {
	if !(r.Perplexity > 0) {
		return errors.NewValidationError(section+".perplexity", "must be positive", r.Perplexity)
	}
	if r.Init != manifold.InitPCA && r.Init != manifold.InitRandom {
		return errors.NewValidationError(section+".init", `must be "pca" or "random"`, r.Init)
	}
	if r.LearningRate < 0 {
		return errors.NewValidationError(section+".learning_rate", "must be 0 (auto) or positive", r.LearningRate)
	}
	if r.MaxIter < 250 {
		return errors.NewValidationError(section+".max_iter", "must be at least 250", r.MaxIter)
	}
	return nil
}
