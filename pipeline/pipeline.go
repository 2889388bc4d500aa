// Package pipeline wires the musicmap stages together: load, coerce and
// clean, standardize, embed twice, augment and write, plus the optional
// affinity report, plot and SQLite export.
package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/musicmap/config"
	"github.com/YuminosukeSato/musicmap/dataset"
	"github.com/YuminosukeSato/musicmap/manifold"
	"github.com/YuminosukeSato/musicmap/metrics"
	"github.com/YuminosukeSato/musicmap/pkg/errors"
	"github.com/YuminosukeSato/musicmap/pkg/log"
	"github.com/YuminosukeSato/musicmap/preprocessing"
	"github.com/YuminosukeSato/musicmap/store"
	"github.com/YuminosukeSato/musicmap/visualize"
)

// Stage names used in logs and the run summary.
const (
	StageLoad      = "load"
	StageClean     = "clean"
	StageScale     = "scale"
	StageReference = "embed_reference"
	StageEmbed     = "embed"
	StageEvaluate  = "evaluate"
	StageWrite     = "write"
	StagePlot      = "plot"
	StageExport    = "export"
	StageAffinity  = "affinity"
)

// EmbeddingRun describes one fitted t-SNE run.
type EmbeddingRun struct {
	Perplexity   float64
	RandomState  int64
	Init         string
	LearningRate float64
	Iterations   int
	KLDivergence float64
	Duration     time.Duration
}

// StageTiming records the wall time of one stage.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Result is everything a run produced.
type Result struct {
	RunID string

	InputRows int
	// KeptRows are the indexes of loaded rows that survived cleaning.
	KeptRows []int
	Features []string

	Output *dataset.Table

	// ReferenceEmbedding is the first run's layout. It is never written
	// and is nil when the reference run is skipped.
	ReferenceEmbedding mat.Matrix
	Reference          *EmbeddingRun

	// Embedding is the layout written to the output table.
	Embedding mat.Matrix
	Final     EmbeddingRun

	// Trustworthiness of Embedding against the standardized features over
	// TrustworthinessNeighbors neighbors. Neighbors is 0 when the table is
	// too small to evaluate.
	Trustworthiness          float64
	TrustworthinessNeighbors int

	Affinity []metrics.Affinity

	// Written lists every file produced, in order.
	Written []string
	Timings []StageTiming
}

// Run executes the pipeline described by cfg. ctx is checked between stages
// and during embedding. A panic in any stage is returned as an
// *errors.PanicError.
func Run(ctx context.Context, cfg *config.Config) (res *Result, err error) {
	defer errors.Recover(&err, "pipeline.Run")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res = &Result{
		RunID:    uuid.NewString(),
		Features: append([]string(nil), cfg.Features.Columns...),
	}
	logger := log.GetLoggerWithName("pipeline").With(log.RunIDKey, res.RunID)
	logger.Info("Run started", log.PathKey, cfg.Input.Path, log.EncodingKey, cfg.Input.Encoding)
	runStart := time.Now()

	r := &runner{ctx: ctx, cfg: cfg, res: res, logger: logger}
	stages := []struct {
		name string
		fn   func() error
		skip bool
	}{
		{StageLoad, r.load, false},
		{StageAffinity, r.affinity, cfg.Output.AffinityPath == ""},
		{StageClean, r.clean, false},
		{StageScale, r.scale, false},
		{StageReference, r.embedReference, cfg.Embedding.SkipReferenceRun},
		{StageEmbed, r.embed, false},
		{StageEvaluate, r.evaluate, false},
		{StageWrite, r.write, false},
		{StagePlot, r.plot, cfg.Output.PlotPath == ""},
		{StageExport, r.export, cfg.Output.SQLitePath == ""},
	}
	for _, s := range stages {
		if s.skip {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := s.fn(); err != nil {
			logger.Error("Stage failed", err, log.StageKey, s.name)
			return nil, err
		}
		res.Timings = append(res.Timings, StageTiming{Stage: s.name, Duration: time.Since(start)})
	}

	logger.Info("Run finished",
		log.SamplesKey, len(res.KeptRows),
		log.DroppedKey, res.InputRows-len(res.KeptRows),
		log.DurationMsKey, time.Since(runStart).Milliseconds(),
	)
	return res, nil
}

// runner carries state between stages.
type runner struct {
	ctx    context.Context
	cfg    *config.Config
	res    *Result
	logger log.Logger

	reference *dataset.Table
	working   *dataset.Table
	cleaned   *dataset.Table
	coerced   dataset.Coerced
	scaled    mat.Matrix
}

// load reads the input once and keeps two independent copies: the
// reference, never mutated, and the working copy that is coerced.
func (r *runner) load() error {
	t, err := dataset.Load(r.cfg.Input.Path, r.cfg.Input.Encoding)
	if err != nil {
		return err
	}
	r.reference = t
	r.working = t.Clone()
	r.res.InputRows = t.Nrow()
	r.logger.Info("Input loaded",
		log.OperationKey, log.OperationLoad,
		log.SamplesKey, t.Nrow(),
		log.FeaturesKey, len(t.Names()),
	)
	return nil
}

func (r *runner) affinity() error {
	aff, err := metrics.PlatformAffinity(r.reference, metrics.DefaultAffinityFeatures, metrics.DefaultPlatforms)
	if err != nil {
		return err
	}
	r.res.Affinity = aff

	data, err := json.MarshalIndent(aff, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode affinity")
	}
	path := r.cfg.Output.AffinityPath
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.NewIOError("write affinity", path, err)
	}
	r.res.Written = append(r.res.Written, path)
	return nil
}

// clean filters rows on the coerced working copy and keeps the reference
// cells of the surviving rows.
func (r *runner) clean() error {
	c, err := dataset.Coerce(r.working, r.cfg.Features.Columns)
	if err != nil {
		return err
	}
	cleaned, kept, err := dataset.Clean(r.reference, c)
	if err != nil {
		return err
	}
	r.coerced = c
	r.cleaned = cleaned
	r.res.KeptRows = kept
	return nil
}

func (r *runner) scale() error {
	X, err := r.coerced.FeatureMatrix(r.res.KeptRows)
	if err != nil {
		return err
	}
	scaled, err := preprocessing.NewStandardScalerDefault().FitTransform(X)
	if err != nil {
		return err
	}
	r.scaled = scaled
	return nil
}

func (r *runner) embedReference() error {
	emb, run, err := r.fit(r.cfg.Embedding.Reference, "reference")
	if err != nil {
		return err
	}
	r.res.ReferenceEmbedding = emb
	r.res.Reference = &run
	return nil
}

func (r *runner) embed() error {
	emb, run, err := r.fit(r.cfg.Embedding.Final, "final")
	if err != nil {
		return err
	}
	r.res.Embedding = emb
	r.res.Final = run
	return nil
}

func (r *runner) fit(rc config.Run, name string) (mat.Matrix, EmbeddingRun, error) {
	start := time.Now()
	tsne := manifold.NewTSNE(
		manifold.WithPerplexity(rc.Perplexity),
		manifold.WithRandomState(rc.RandomState),
		manifold.WithInit(rc.Init),
		manifold.WithLearningRate(rc.LearningRate),
		manifold.WithMaxIter(rc.MaxIter),
		manifold.WithLogger(r.logger.With(log.ComponentKey, "manifold", "run", name)),
	)
	r.logger.Debug("Embedding parameters", "run", name, "params", tsne.GetParams())
	emb, err := tsne.FitTransformContext(r.ctx, r.scaled)
	if err != nil {
		return nil, EmbeddingRun{}, err
	}
	return emb, EmbeddingRun{
		Perplexity:   rc.Perplexity,
		RandomState:  rc.RandomState,
		Init:         rc.Init,
		LearningRate: tsne.LearningRate(),
		Iterations:   tsne.NIter(),
		KLDivergence: tsne.KLDivergence(),
		Duration:     time.Since(start),
	}, nil
}

// evaluate scores how well the final layout keeps each track's nearest
// neighbors. Tables with at most 2·k rows are not scored.
func (r *runner) evaluate() error {
	n, _ := r.scaled.Dims()
	k := metrics.DefaultNeighbors
	if 2*k >= n {
		r.logger.Debug("Too few rows to score the embedding", log.SamplesKey, n)
		return nil
	}
	tw, err := metrics.Trustworthiness(r.scaled, r.res.Embedding, k)
	if err != nil {
		return err
	}
	r.res.Trustworthiness = tw
	r.res.TrustworthinessNeighbors = k
	r.logger.Info("Embedding evaluated", "trustworthiness", tw, "neighbors", k)
	return nil
}

func (r *runner) write() error {
	out, err := dataset.Augment(r.cleaned, r.res.Embedding, r.cfg.Features.ModeColumn)
	if err != nil {
		return err
	}
	if err := dataset.WriteCSV(out, r.cfg.Output.Path); err != nil {
		return err
	}
	r.res.Output = out
	r.res.Written = append(r.res.Written, r.cfg.Output.Path)
	return nil
}

func (r *runner) plot() error {
	colors, err := r.res.Output.Column(dataset.ColumnColorMode)
	if err != nil {
		return err
	}
	path := r.cfg.Output.PlotPath
	if err := visualize.SaveEmbedding(r.res.Embedding, colors, "Spotify 2023 t-SNE", path); err != nil {
		return err
	}
	r.res.Written = append(r.res.Written, path)
	return nil
}

func (r *runner) export() error {
	path := r.cfg.Output.SQLitePath
	if err := store.Export(r.ctx, r.res.Output, path); err != nil {
		return err
	}
	r.res.Written = append(r.res.Written, path)
	return nil
}
