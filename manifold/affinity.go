package manifold

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/musicmap/core/parallel"
)

const (
	// machineEpsilon is the float64 machine epsilon, used as a probability floor.
	machineEpsilon = 2.220446049250313e-16

	perplexityTolerance = 1e-5
	perplexitySteps     = 100
	entropyFloor        = 1e-8

	// rows below this count are processed without goroutines
	parallelThreshold = 64
)

// squaredDistances returns the n×n matrix of squared Euclidean distances
// between the rows of X, row-major.
func squaredDistances(X mat.Matrix) []float64 {
	n, d := X.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, X)
	}

	dist := make([]float64, n*n)
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			ri := rows[i]
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				rj := rows[j]
				s := 0.0
				for k := 0; k < d; k++ {
					diff := ri[k] - rj[k]
					s += diff * diff
				}
				dist[i*n+j] = s
			}
		}
	})
	return dist
}

// conditionalProbabilities finds, for each point, the Gaussian precision
// whose conditional distribution over the other points has the requested
// perplexity, and returns those conditional probabilities p(j|i), row-major.
func conditionalProbabilities(dist []float64, n int, perplexity float64) []float64 {
	P := make([]float64, n*n)
	desiredEntropy := math.Log(perplexity)

	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := P[i*n : (i+1)*n]
			di := dist[i*n : (i+1)*n]

			beta := 1.0
			betaMin := math.Inf(-1)
			betaMax := math.Inf(1)

			for step := 0; step < perplexitySteps; step++ {
				sumP := 0.0
				for j := 0; j < n; j++ {
					if j == i {
						row[j] = 0
						continue
					}
					row[j] = math.Exp(-di[j] * beta)
					sumP += row[j]
				}
				if sumP == 0 {
					sumP = entropyFloor
				}

				sumDistP := 0.0
				for j := 0; j < n; j++ {
					row[j] /= sumP
					sumDistP += di[j] * row[j]
				}

				entropyDiff := math.Log(sumP) + beta*sumDistP - desiredEntropy
				if math.Abs(entropyDiff) <= perplexityTolerance {
					break
				}

				if entropyDiff > 0 {
					betaMin = beta
					if math.IsInf(betaMax, 1) {
						beta *= 2
					} else {
						beta = (beta + betaMax) / 2
					}
				} else {
					betaMax = beta
					if math.IsInf(betaMin, -1) {
						beta /= 2
					} else {
						beta = (beta + betaMin) / 2
					}
				}
			}
		}
	})
	return P
}

// jointProbabilities symmetrizes the conditional probabilities into the
// joint distribution p_ij = (p(j|i) + p(i|j)) / sum, floored at machine
// epsilon off the diagonal. The diagonal is zero.
func jointProbabilities(dist []float64, n int, perplexity float64) []float64 {
	cond := conditionalProbabilities(dist, n, perplexity)

	sum := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum += cond[i*n+j] + cond[j*n+i]
		}
	}
	sum = math.Max(sum, machineEpsilon)

	P := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p := math.Max((cond[i*n+j]+cond[j*n+i])/sum, machineEpsilon)
			P[i*n+j] = p
			P[j*n+i] = p
		}
	}
	return P
}
