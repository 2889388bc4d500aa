package config

import "github.com/YuminosukeSato/musicmap/manifold"

const (
	defaultInputPath  = "data/Spotify-2023.csv"
	defaultEncoding   = "ISO-8859-1"
	defaultOutputPath = "data/spotify_with_tsne.csv"
	defaultModeColumn = "mode"
	defaultLogLevel   = "info"
	defaultMaxIter    = 1000
)

// DefaultFeatures are the audio feature columns of the Spotify 2023 dataset.
var DefaultFeatures = []string{
	"danceability_%",
	"valence_%",
	"energy_%",
	"acousticness_%",
	"instrumentalness_%",
	"liveness_%",
	"speechiness_%",
	"bpm",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Input: Input{
			Path:     defaultInputPath,
			Encoding: defaultEncoding,
		},
		Output: Output{
			Path: defaultOutputPath,
		},
		Features: Features{
			Columns:    append([]string(nil), DefaultFeatures...),
			ModeColumn: defaultModeColumn,
		},
		Embedding: Embedding{
			Reference: Run{
				Perplexity:   30,
				RandomState:  42,
				Init:         manifold.InitPCA,
				LearningRate: manifold.LearningRateAuto,
				MaxIter:      defaultMaxIter,
			},
			Final: Run{
				Perplexity:   25,
				RandomState:  33,
				Init:         manifold.InitPCA,
				LearningRate: manifold.LearningRateAuto,
				MaxIter:      defaultMaxIter,
			},
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
