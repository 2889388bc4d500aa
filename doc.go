// Package musicmap prepares a track table for a 2D "music map": it coerces
// the audio feature columns to numbers, drops incomplete rows, standardizes
// the features, projects them onto a plane with t-SNE and writes the table
// back with the coordinates and a color per musical mode.
//
// # Installation
//
//	go install github.com/YuminosukeSato/musicmap/cmd/musicmap@latest
//
// # Quick Start
//
// With the Spotify 2023 dataset at data/Spotify-2023.csv:
//
//	musicmap run
//	musicmap run --input tracks.csv --encoding UTF-8 --plot map.png
//	musicmap config sample > musicmap.toml
//
// The same pipeline is available as a library:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//	    "os"
//
//	    "github.com/YuminosukeSato/musicmap/config"
//	    "github.com/YuminosukeSato/musicmap/pipeline"
//	)
//
//	func main() {
//	    cfg := config.Default()
//	    res, err := pipeline.Run(context.Background(), &cfg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = pipeline.WriteSummary(os.Stdout, res)
//	}
//
// # Packages
//
//   - dataset: CSV loading with charset decoding, coercion, cleaning, augmentation and writing
//   - preprocessing: StandardScaler
//   - manifold: exact t-SNE
//   - metrics: platform affinity correlations and embedding trustworthiness
//   - visualize: embedding scatter plots
//   - store: SQLite export
//   - config: TOML and environment configuration
//   - pipeline: the end-to-end run and its summary
//   - core/model: estimator interfaces and base types
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// # Determinism
//
// A run is reproducible: for the same input and configuration every
// written coordinate is identical bit for bit, regardless of GOMAXPROCS.
package musicmap
