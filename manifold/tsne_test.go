package manifold

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

// blobs returns two Gaussian clusters of size m in d dimensions whose
// centers are sep apart along every axis. Rows [0, m) belong to the first.
func blobs(m, d int, sep float64, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(2*m, d, nil)
	for i := 0; i < 2*m; i++ {
		offset := 0.0
		if i >= m {
			offset = sep
		}
		for j := 0; j < d; j++ {
			X.Set(i, j, offset+rng.NormFloat64())
		}
	}
	return X
}

func TestJointProbabilities(t *testing.T) {
	X := blobs(10, 4, 3, 1)
	n, _ := X.Dims()
	perplexity := 5.0

	dist := squaredDistances(X)
	cond := conditionalProbabilities(dist, n, perplexity)

	for i := 0; i < n; i++ {
		sum, entropy := 0.0, 0.0
		for j := 0; j < n; j++ {
			p := cond[i*n+j]
			sum += p
			if p > 0 {
				entropy -= p * math.Log(p)
			}
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d sums to %v", i, sum)
		}
		if math.Abs(entropy-math.Log(perplexity)) > 1e-4 {
			t.Errorf("row %d perplexity = %v, want %v", i, math.Exp(entropy), perplexity)
		}
	}

	P := jointProbabilities(dist, n, perplexity)
	total := 0.0
	for i := 0; i < n; i++ {
		if P[i*n+i] != 0 {
			t.Errorf("diagonal P[%d][%d] = %v", i, i, P[i*n+i])
		}
		for j := 0; j < n; j++ {
			total += P[i*n+j]
			if P[i*n+j] != P[j*n+i] {
				t.Fatalf("P not symmetric at (%d, %d)", i, j)
			}
		}
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("P sums to %v, want 1", total)
	}
}

func TestObjectiveGradientMatchesFiniteDifference(t *testing.T) {
	X := blobs(4, 3, 2, 7)
	n, _ := X.Dims()
	P := jointProbabilities(squaredDistances(X), n, 3)

	// k = 3 and 4 use a t distribution with k-1 degrees of freedom
	for _, k := range []int{1, 2, 3, 4} {
		t.Run(fmt.Sprintf("components=%d", k), func(t *testing.T) {
			rng := rand.New(rand.NewSource(3))
			Y := make([]float64, n*k)
			for i := range Y {
				Y[i] = rng.NormFloat64()
			}

			obj := newObjective(n, k)
			obj.evaluate(Y, P, true)
			analytic := append([]float64(nil), obj.grad...)

			const h = 1e-6
			for p := range Y {
				orig := Y[p]
				Y[p] = orig + h
				plus := newObjective(n, k).evaluate(Y, P, true)
				Y[p] = orig - h
				minus := newObjective(n, k).evaluate(Y, P, true)
				Y[p] = orig

				numeric := (plus - minus) / (2 * h)
				if math.Abs(numeric-analytic[p]) > 1e-5*math.Max(1, math.Abs(numeric)) {
					t.Errorf("grad[%d] = %v, finite difference %v", p, analytic[p], numeric)
				}
			}
		})
	}
}

func TestTSNEThreeComponents(t *testing.T) {
	X := blobs(10, 5, 8, 5)
	n, _ := X.Dims()

	emb, err := NewTSNE(WithComponents(3), WithPerplexity(5), WithRandomState(1), WithMaxIter(300)).FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	r, c := emb.Dims()
	if r != n || c != 3 {
		t.Fatalf("embedding dims = %dx%d, want %dx3", r, c, n)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := emb.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("embedding[%d,%d] = %v", i, j, v)
			}
		}
	}
}

func TestTSNEDeterministic(t *testing.T) {
	X := blobs(15, 5, 6, 11)

	for _, init := range []string{InitPCA, InitRandom} {
		t.Run(init, func(t *testing.T) {
			opts := []TSNEOption{WithPerplexity(5), WithRandomState(33), WithInit(init), WithMaxIter(300)}

			a, err := NewTSNE(opts...).FitTransform(X)
			if err != nil {
				t.Fatalf("FitTransform() error = %v", err)
			}
			b, err := NewTSNE(opts...).FitTransform(X)
			if err != nil {
				t.Fatalf("FitTransform() error = %v", err)
			}
			if !mat.Equal(a, b) {
				t.Error("identical input, seed and options produced different embeddings")
			}
		})
	}
}

func TestTSNERandomInitDependsOnSeed(t *testing.T) {
	X := blobs(10, 4, 6, 5)
	opts := []TSNEOption{WithPerplexity(5), WithInit(InitRandom), WithMaxIter(250)}

	a, err := NewTSNE(append(opts, WithRandomState(42))...).FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewTSNE(append(opts, WithRandomState(33))...).FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	if mat.Equal(a, b) {
		t.Error("different seeds with random init should give different embeddings")
	}
}

func TestTSNESeparatesClusters(t *testing.T) {
	const m = 20
	X := blobs(m, 8, 10, 42)

	model := NewTSNE(WithPerplexity(10), WithRandomState(42), WithMaxIter(500))
	Y, err := model.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	r, c := Y.Dims()
	if r != 2*m || c != 2 {
		t.Fatalf("embedding dims = %d×%d, want %d×2", r, c, 2*m)
	}

	centroid := func(lo, hi int) [2]float64 {
		var s [2]float64
		for i := lo; i < hi; i++ {
			s[0] += Y.At(i, 0)
			s[1] += Y.At(i, 1)
		}
		return [2]float64{s[0] / float64(hi-lo), s[1] / float64(hi-lo)}
	}
	a, b := centroid(0, m), centroid(m, 2*m)
	between := math.Hypot(a[0]-b[0], a[1]-b[1])

	spread := 0.0
	for i := 0; i < 2*m; i++ {
		ctr := a
		if i >= m {
			ctr = b
		}
		spread = math.Max(spread, math.Hypot(Y.At(i, 0)-ctr[0], Y.At(i, 1)-ctr[1]))
	}
	if spread >= between {
		t.Errorf("clusters overlap: max within-cluster radius %v >= centroid distance %v", spread, between)
	}

	if model.NIter() < explorationIter || model.NIter() > 500 {
		t.Errorf("NIter() = %d", model.NIter())
	}
	if !(model.KLDivergence() >= 0) {
		t.Errorf("KLDivergence() = %v", model.KLDivergence())
	}
	if model.LearningRate() != 50 {
		t.Errorf("auto learning rate = %v, want 50 for %d samples", model.LearningRate(), 2*m)
	}
}

func TestTSNEValidation(t *testing.T) {
	X := blobs(5, 3, 1, 1)

	tests := []struct {
		name  string
		opts  []TSNEOption
		param string
	}{
		{"perplexity too large", []TSNEOption{WithPerplexity(10)}, "perplexity"},
		{"perplexity zero", []TSNEOption{WithPerplexity(0)}, "perplexity"},
		{"unknown init", []TSNEOption{WithPerplexity(3), WithInit("spectral")}, "init"},
		{"max iter too small", []TSNEOption{WithPerplexity(3), WithMaxIter(10)}, "max_iter"},
		{"pca needs features", []TSNEOption{WithPerplexity(3), WithComponents(4)}, "n_components"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTSNE(tt.opts...).Fit(X)
			var ve *errors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.ParamName != tt.param {
				t.Errorf("ParamName = %q, want %q", ve.ParamName, tt.param)
			}
		})
	}
}

func TestTSNEEmbeddingBeforeFit(t *testing.T) {
	_, err := NewTSNE().Embedding()
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
}

func TestTSNECanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTSNE(WithPerplexity(5)).FitTransformContext(ctx, blobs(10, 3, 4, 2))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPCAInitScale(t *testing.T) {
	X := blobs(12, 4, 5, 9)

	Y, err := pcaInit(X, 2)
	if err != nil {
		t.Fatal(err)
	}
	n, _ := X.Dims()
	col := make([]float64, n)
	for i := range col {
		col[i] = Y[i*2]
	}
	_, variance := stat.PopMeanVariance(col, nil)
	if math.Abs(math.Sqrt(variance)-pcaScale) > 1e-12 {
		t.Errorf("first column std = %v, want %v", math.Sqrt(variance), pcaScale)
	}
}

func TestFlipSigns(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		0.1, 0.2,
		-0.9, 0.7,
		0.3, -0.1,
	})
	flipSigns(m)
	want := mat.NewDense(3, 2, []float64{
		-0.1, 0.2,
		0.9, 0.7,
		-0.3, -0.1,
	})
	if !mat.Equal(m, want) {
		t.Errorf("flipSigns =\n%v", mat.Formatted(m))
	}
}
