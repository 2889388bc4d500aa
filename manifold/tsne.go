// Package manifold implements t-distributed Stochastic Neighbor Embedding
// (t-SNE) for projecting standardized feature vectors onto a plane.
//
// The implementation is the exact O(N²) variant with the optimization
// schedule of scikit-learn's TSNE: early exaggeration with momentum 0.5,
// then momentum 0.8, per-parameter adaptive gains and periodic progress
// checks. For a fixed input, seed and option set the result is identical
// bit for bit across runs.
package manifold

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/musicmap/core/model"
	"github.com/YuminosukeSato/musicmap/pkg/errors"
	"github.com/YuminosukeSato/musicmap/pkg/log"
)

// Initialization strategies.
const (
	InitPCA    = "pca"
	InitRandom = "random"
)

// LearningRateAuto selects max(N / early_exaggeration / 4, 50).
const LearningRateAuto = 0.0

const (
	explorationIter = 250
	progressCheck   = 50
	minGain         = 0.01
	minMaxIter      = 250
)

// TSNE はscikit-learn互換のt-SNE埋め込み
type TSNE struct {
	model.BaseEstimator

	// ハイパーパラメータ
	nComponents          int
	perplexity           float64
	earlyExaggeration    float64
	learningRate         float64
	maxIter              int
	nIterWithoutProgress int
	minGradNorm          float64
	init                 string
	randomState          int64
	logger               log.Logger

	// 学習結果
	embedding_    *mat.Dense
	klDivergence_ float64
	nIter_        int
	learningRate_ float64
}

// TSNEOption はTSNEの設定オプション
type TSNEOption func(*TSNE)

// NewTSNE creates a TSNE with scikit-learn's defaults: two components,
// perplexity 30, early exaggeration 12, automatic learning rate, 1000
// iterations, PCA initialization and seed 0.
func NewTSNE(options ...TSNEOption) *TSNE {
	t := &TSNE{
		nComponents:          2,
		perplexity:           30,
		earlyExaggeration:    12,
		learningRate:         LearningRateAuto,
		maxIter:              1000,
		nIterWithoutProgress: 300,
		minGradNorm:          1e-7,
		init:                 InitPCA,
		randomState:          0,
	}
	for _, opt := range options {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("manifold")
	}
	return t
}

// WithComponents は埋め込み次元数を設定。t分布の自由度は max(k-1, 1)
func WithComponents(n int) TSNEOption {
	return func(t *TSNE) { t.nComponents = n }
}

// WithPerplexity はperplexityを設定
func WithPerplexity(p float64) TSNEOption {
	return func(t *TSNE) { t.perplexity = p }
}

// WithEarlyExaggeration は初期誇張係数を設定
func WithEarlyExaggeration(e float64) TSNEOption {
	return func(t *TSNE) { t.earlyExaggeration = e }
}

// WithLearningRate は学習率を設定。LearningRateAutoで自動決定
func WithLearningRate(lr float64) TSNEOption {
	return func(t *TSNE) { t.learningRate = lr }
}

// WithMaxIter は最大イテレーション数を設定
func WithMaxIter(n int) TSNEOption {
	return func(t *TSNE) { t.maxIter = n }
}

// WithNIterWithoutProgress は改善なしで打ち切るイテレーション数を設定
func WithNIterWithoutProgress(n int) TSNEOption {
	return func(t *TSNE) { t.nIterWithoutProgress = n }
}

// WithMinGradNorm は勾配ノルムの収束閾値を設定
func WithMinGradNorm(v float64) TSNEOption {
	return func(t *TSNE) { t.minGradNorm = v }
}

// WithInit は初期化方法を設定 ("pca" or "random")
func WithInit(init string) TSNEOption {
	return func(t *TSNE) { t.init = init }
}

// WithRandomState は乱数シードを設定
func WithRandomState(seed int64) TSNEOption {
	return func(t *TSNE) { t.randomState = seed }
}

// WithLogger sets the logger receiving progress records.
func WithLogger(l log.Logger) TSNEOption {
	return func(t *TSNE) { t.logger = l }
}

// Fit computes the embedding of X.
func (t *TSNE) Fit(X mat.Matrix) error {
	return t.FitContext(context.Background(), X)
}

// FitTransform computes the embedding of X and returns it.
func (t *TSNE) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	return t.FitTransformContext(context.Background(), X)
}

// FitTransformContext is FitTransform with cancellation.
func (t *TSNE) FitTransformContext(ctx context.Context, X mat.Matrix) (mat.Matrix, error) {
	if err := t.FitContext(ctx, X); err != nil {
		return nil, err
	}
	return t.Embedding()
}

// FitContext computes the embedding of X. ctx is checked at every progress
// check of the optimizer.
func (t *TSNE) FitContext(ctx context.Context, X mat.Matrix) error {
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("TSNE.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := t.validate(n, d); err != nil {
		return err
	}
	if err := errors.CheckMatrix("TSNE.Fit", X, n, d, 0); err != nil {
		return err
	}

	start := time.Now()
	t.Reset()

	lr := t.learningRate
	if lr <= 0 {
		lr = math.Max(float64(n)/t.earlyExaggeration/4, 50)
	}
	t.learningRate_ = lr

	logger := t.logger.With(log.ModelNameKey, "TSNE")
	logger.Info("Fitting embedding",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, d,
		log.PerplexityKey, t.perplexity,
		log.RandomSeedKey, t.randomState,
		log.LearningRateKey, lr,
		"init", t.init,
	)

	P := jointProbabilities(squaredDistances(X), n, t.perplexity)

	Y, err := t.initialEmbedding(X)
	if err != nil {
		return err
	}

	obj := newObjective(n, t.nComponents)
	opt := &descent{
		obj:          obj,
		P:            P,
		learningRate: lr,
		minGradNorm:  t.minGradNorm,
		logger:       logger,
	}

	// early exaggeration
	scaleInPlace(P, t.earlyExaggeration)
	kl, it, err := opt.run(ctx, Y, 0, explorationIter, 0.5, explorationIter)
	if err != nil {
		return err
	}
	logger.Debug("Early exaggeration finished", log.IterationKey, it+1, log.LossKey, kl)

	scaleInPlace(P, 1/t.earlyExaggeration)
	if it < t.maxIter-1 {
		kl, it, err = opt.run(ctx, Y, it+1, t.maxIter, 0.8, t.nIterWithoutProgress)
		if err != nil {
			return err
		}
	}

	embedding := mat.NewDense(n, t.nComponents, Y)
	if err := errors.CheckMatrix("TSNE.Fit", embedding, n, t.nComponents, it); err != nil {
		return err
	}
	if err := errors.CheckScalar("TSNE.Fit", kl, it); err != nil {
		return err
	}

	t.embedding_ = embedding
	t.klDivergence_ = kl
	t.nIter_ = it + 1
	t.SetFitted()

	logger.Info("Embedding fitted",
		log.OperationKey, log.OperationFit,
		log.IterationKey, t.nIter_,
		log.LossKey, kl,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (t *TSNE) validate(n, d int) error {
	switch {
	case t.nComponents < 1:
		return errors.NewValidationError("n_components", "must be at least 1", t.nComponents)
	case n < 2:
		return errors.NewValidationError("n_samples", "t-SNE needs at least 2 samples", n)
	case !(t.perplexity > 0):
		return errors.NewValidationError("perplexity", "must be positive", t.perplexity)
	case t.perplexity >= float64(n):
		return errors.NewValidationError("perplexity", fmt.Sprintf("must be less than n_samples (%d)", n), t.perplexity)
	case t.earlyExaggeration < 1:
		return errors.NewValidationError("early_exaggeration", "must be at least 1", t.earlyExaggeration)
	case t.maxIter < minMaxIter:
		return errors.NewValidationError("max_iter", fmt.Sprintf("must be at least %d", minMaxIter), t.maxIter)
	case t.init != InitPCA && t.init != InitRandom:
		return errors.NewValidationError("init", `must be "pca" or "random"`, t.init)
	case t.init == InitPCA && d < t.nComponents:
		return errors.NewValidationError("n_components", "PCA initialization needs at least as many features as components", t.nComponents)
	}
	return nil
}

// initialEmbedding returns the starting coordinates, row-major n×k.
func (t *TSNE) initialEmbedding(X mat.Matrix) ([]float64, error) {
	n, _ := X.Dims()
	k := t.nComponents

	if t.init == InitRandom {
		rng := rand.New(rand.NewSource(t.randomState))
		Y := make([]float64, n*k)
		for i := range Y {
			Y[i] = 1e-4 * rng.NormFloat64()
		}
		return Y, nil
	}
	return pcaInit(X, k)
}

// Embedding returns the fitted coordinates.
func (t *TSNE) Embedding() (mat.Matrix, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("TSNE", "Embedding")
	}
	return mat.DenseCopyOf(t.embedding_), nil
}

// KLDivergence returns the Kullback-Leibler divergence after optimization.
func (t *TSNE) KLDivergence() float64 { return t.klDivergence_ }

// NIter returns the number of iterations run.
func (t *TSNE) NIter() int { return t.nIter_ }

// LearningRate returns the learning rate used by the last fit.
func (t *TSNE) LearningRate() float64 { return t.learningRate_ }

// GetParams はハイパーパラメータを取得する
func (t *TSNE) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_components":            t.nComponents,
		"perplexity":              t.perplexity,
		"early_exaggeration":      t.earlyExaggeration,
		"learning_rate":           t.learningRate,
		"max_iter":                t.maxIter,
		"n_iter_without_progress": t.nIterWithoutProgress,
		"min_grad_norm":           t.minGradNorm,
		"init":                    t.init,
		"random_state":            t.randomState,
	}
}

// String はTSNEの文字列表現を返す
func (t *TSNE) String() string {
	return fmt.Sprintf("TSNE(n_components=%d, perplexity=%g, init=%s, random_state=%d)",
		t.nComponents, t.perplexity, t.init, t.randomState)
}

func scaleInPlace(x []float64, s float64) {
	for i := range x {
		x[i] *= s
	}
}

var (
	_ model.Embedder        = (*TSNE)(nil)
	_ model.ParameterGetter = (*TSNE)(nil)
)
