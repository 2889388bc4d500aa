package manifold

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

// pcaScale is the standard deviation of the first coordinate after PCA initialization.
const pcaScale = 1e-4

// pcaInit projects X onto its first k principal components and rescales the
// projection so its first column has standard deviation 1e-4. Component
// signs are fixed so the largest-magnitude loading of each is positive.
func pcaInit(X mat.Matrix, k int) ([]float64, error) {
	n, d := X.Dims()

	var pc stat.PC
	if ok := pc.PrincipalComponents(X, nil); !ok {
		return nil, errors.NewModelError("TSNE.pcaInit", "principal component analysis failed", nil)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	if _, nc := vecs.Dims(); nc < k {
		return nil, errors.NewValidationError("n_components", "more components than principal components available", k)
	}
	components := mat.DenseCopyOf(vecs.Slice(0, d, 0, k))
	flipSigns(components)

	means := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, X)
		means[j] = stat.Mean(col, nil)
	}
	centered := mat.NewDense(n, d, nil)
	centered.Apply(func(_, j int, v float64) float64 { return v - means[j] }, X)

	proj := mat.NewDense(n, k, nil)
	proj.Mul(centered, components)

	mat.Col(col, 0, proj)
	_, variance := stat.PopMeanVariance(col, nil)
	std := math.Sqrt(variance)
	if std == 0 || !errors.IsFinite(std) {
		return nil, errors.NewModelError("TSNE.pcaInit", "first principal component has zero variance", nil)
	}
	proj.Scale(pcaScale/std, proj)

	Y := make([]float64, n*k)
	for i := 0; i < n; i++ {
		copy(Y[i*k:(i+1)*k], proj.RawRowView(i))
	}
	return Y, nil
}

// flipSigns negates every column whose largest-magnitude entry is negative.
func flipSigns(m *mat.Dense) {
	r, c := m.Dims()
	for j := 0; j < c; j++ {
		best := 0
		for i := 1; i < r; i++ {
			if math.Abs(m.At(i, j)) > math.Abs(m.At(best, j)) {
				best = i
			}
		}
		if m.At(best, j) < 0 {
			for i := 0; i < r; i++ {
				m.Set(i, j, -m.At(i, j))
			}
		}
	}
}
