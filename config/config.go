// Package config loads musicmap run settings. Values are layered: built-in
// defaults, then an optional TOML file, then MUSICMAP_* environment
// variables, then caller overrides (command-line flags).
package config

import (
	_ "embed"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. MUSICMAP_INPUT_PATH.
const EnvPrefix = "musicmap"

//go:embed sample_config.toml
var sampleConfig string

// Input describes the source CSV.
type Input struct {
	Path     string `toml:"path"`
	Encoding string `toml:"encoding"`
}

// Output lists the files a run produces. Only Path is required; the others
// are skipped when empty. SQLitePath is read from MUSICMAP_OUTPUT_SQLITE_PATH.
type Output struct {
	Path         string `toml:"path"`
	PlotPath     string `toml:"plot_path" split_words:"true"`
	SQLitePath   string `toml:"sqlite_path" envconfig:"sqlite_path"`
	AffinityPath string `toml:"affinity_path" split_words:"true"`
}

// Features names the numeric columns embedded and the column mapped to colors.
type Features struct {
	Columns    []string `toml:"columns"`
	ModeColumn string   `toml:"mode_column" split_words:"true"`
}

// Run holds the hyperparameters of one t-SNE run. LearningRate 0 selects
// the automatic rate.
type Run struct {
	Perplexity   float64 `toml:"perplexity"`
	RandomState  int64   `toml:"random_state" split_words:"true"`
	Init         string  `toml:"init"`
	LearningRate float64 `toml:"learning_rate" split_words:"true"`
	MaxIter      int     `toml:"max_iter" split_words:"true"`
}

// Embedding configures the reference run, whose result is only reported,
// and the final run, whose coordinates are written.
type Embedding struct {
	Reference        Run  `toml:"reference"`
	Final            Run  `toml:"final"`
	SkipReferenceRun bool `toml:"skip_reference_run" split_words:"true"`
}

// Logging configures log output.
type Logging struct {
	Level string `toml:"level"`
}

// Config encapsulates all configuration values for a run.
type Config struct {
	Input     Input     `toml:"input"`
	Output    Output    `toml:"output"`
	Features  Features  `toml:"features"`
	Embedding Embedding `toml:"embedding"`
	Logging   Logging   `toml:"logging"`
}

// Override adjusts a loaded configuration before validation.
type Override func(*Config)

// Load builds the configuration from defaults, the TOML file at path (if
// path is non-empty), the environment and overrides, then validates it.
// A path that does not exist is an error.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "musicmap: read environment")
	}

	for _, o := range overrides {
		o(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) decodeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.NewIOError("open config", path, err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(c); err != nil {
		return errors.Wrapf(err, "musicmap: parse config %s", path)
	}
	return nil
}

// SampleConfig returns an annotated configuration file holding the defaults.
func SampleConfig() string {
	return sampleConfig
}
