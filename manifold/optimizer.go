package manifold

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/musicmap/core/parallel"
	"github.com/YuminosukeSato/musicmap/pkg/log"
)

// objective evaluates the KL divergence between P and the Student-t
// similarities Q of an embedding, and its gradient. The t distribution has
// max(k-1, 1) degrees of freedom. Scratch buffers are reused across
// iterations.
type objective struct {
	n, k   int
	dof    float64
	num    []float64 // (1 + |y_i - y_j|²/dof)^(-(dof+1)/2), row-major n×n
	kernel []float64 // (1 + |y_i - y_j|²/dof)⁻¹; aliases num when dof == 1
	rowSum []float64
	rowKL  []float64
	grad   []float64 // row-major n×k
}

func newObjective(n, k int) *objective {
	o := &objective{
		n:      n,
		k:      k,
		dof:    math.Max(float64(k-1), 1),
		num:    make([]float64, n*n),
		rowSum: make([]float64, n),
		rowKL:  make([]float64, n),
		grad:   make([]float64, n*k),
	}
	o.kernel = o.num
	if o.dof != 1 {
		o.kernel = make([]float64, n*n)
	}
	return o
}

// evaluate fills o.grad for embedding Y and returns the KL divergence when
// computeError is set (NaN otherwise). Per-row partial sums are combined
// sequentially so the result does not depend on scheduling.
func (o *objective) evaluate(Y, P []float64, computeError bool) float64 {
	n, k := o.n, o.k
	dof := o.dof
	exponent := (dof + 1) / 2

	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			yi := Y[i*k : (i+1)*k]
			s := 0.0
			for j := 0; j < n; j++ {
				if j == i {
					o.num[i*n+j] = 0
					o.kernel[i*n+j] = 0
					continue
				}
				yj := Y[j*k : (j+1)*k]
				d := 0.0
				for c := 0; c < k; c++ {
					diff := yi[c] - yj[c]
					d += diff * diff
				}
				w := 1 / (1 + d/dof)
				q := w
				if dof != 1 {
					o.kernel[i*n+j] = w
					q = math.Pow(w, exponent)
				}
				o.num[i*n+j] = q
				s += q
			}
			o.rowSum[i] = s
		}
	})

	sumQ := 0.0
	for _, s := range o.rowSum {
		sumQ += s
	}
	sumQ = math.Max(sumQ, machineEpsilon)
	scale := 2 * (dof + 1) / dof

	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			yi := Y[i*k : (i+1)*k]
			g := o.grad[i*k : (i+1)*k]
			for c := range g {
				g[c] = 0
			}
			kl := 0.0
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				num := o.num[i*n+j]
				q := math.Max(num/sumQ, machineEpsilon)
				p := P[i*n+j]
				mult := (p - q) * o.kernel[i*n+j]
				yj := Y[j*k : (j+1)*k]
				for c := 0; c < k; c++ {
					g[c] += mult * (yi[c] - yj[c])
				}
				if computeError {
					kl += p * math.Log(math.Max(p, machineEpsilon)/q)
				}
			}
			for c := range g {
				g[c] *= scale
			}
			o.rowKL[i] = kl
		}
	})

	if !computeError {
		return math.NaN()
	}
	kl := 0.0
	for _, v := range o.rowKL {
		kl += v
	}
	return kl
}

// descent runs gradient descent with momentum and adaptive gains.
type descent struct {
	obj          *objective
	P            []float64
	learningRate float64
	minGradNorm  float64
	logger       log.Logger
}

// run optimizes Y in place for iterations [it, nIter) and returns the last
// computed KL divergence and the index of the last iteration run. Progress
// is checked every 50 iterations: the run stops early when the gradient
// norm falls to minGradNorm or the divergence has not improved for
// nIterWithoutProgress iterations.
func (d *descent) run(ctx context.Context, Y []float64, it, nIter int, momentum float64, nIterWithoutProgress int) (float64, int, error) {
	update := make([]float64, len(Y))
	gains := make([]float64, len(Y))
	for i := range gains {
		gains[i] = 1
	}

	kl := math.MaxFloat64
	bestError := math.MaxFloat64
	bestIter := it
	last := it

	for i := it; i < nIter; i++ {
		last = i
		check := (i+1)%progressCheck == 0
		e := d.obj.evaluate(Y, d.P, check || i == nIter-1)
		if check || i == nIter-1 {
			kl = e
		}

		grad := d.obj.grad
		for p := range Y {
			if update[p]*grad[p] < 0 {
				gains[p] += 0.2
			} else {
				gains[p] *= 0.8
			}
			if gains[p] < minGain {
				gains[p] = minGain
			}
			grad[p] *= gains[p]
			update[p] = momentum*update[p] - d.learningRate*grad[p]
			Y[p] += update[p]
		}

		if !check {
			continue
		}
		if err := ctx.Err(); err != nil {
			return kl, last, err
		}

		gradNorm := floats.Norm(grad, 2)
		d.logger.Debug("Optimization progress",
			log.IterationKey, i+1,
			log.LossKey, kl,
			log.GradNormKey, gradNorm,
		)

		if kl < bestError {
			bestError = kl
			bestIter = i
		} else if i-bestIter > nIterWithoutProgress {
			d.logger.Debug("No progress, stopping", log.IterationKey, i+1)
			break
		}
		if gradNorm <= d.minGradNorm {
			d.logger.Debug("Gradient norm below threshold, stopping", log.IterationKey, i+1, log.GradNormKey, gradNorm)
			break
		}
	}
	return kl, last, nil
}
