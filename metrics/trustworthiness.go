package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/musicmap/core/parallel"
	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

// DefaultNeighbors はTrustworthinessの既定の近傍数
const DefaultNeighbors = 5

// Trustworthiness は埋め込みが局所構造をどれだけ保持しているかを返す。
//
//	T(k) = 1 - 2/(n·k·(2n - 3k - 1)) · Σ_i Σ_{j ∈ N_i^k(Y)} max(0, r(i, j) - k)
//
// r(i, j) は元空間 X における i から見た j の近さの順位（最近傍が1）。
// 値は[0, 1]で、1は埋め込み空間のk近傍がすべて元空間のk近傍であることを示す。
// kは n/2 未満でなければならない。
func Trustworthiness(X, Y mat.Matrix, k int) (float64, error) {
	// 入力検証
	n, _ := X.Dims()
	if n == 0 {
		return 0, errors.NewModelError("Trustworthiness", "empty data", errors.ErrEmptyData)
	}
	if ny, _ := Y.Dims(); ny != n {
		return 0, errors.NewDimensionError("Trustworthiness", n, ny, 0)
	}
	if k < 1 || float64(k) >= float64(n)/2 {
		return 0, errors.NewValidationError("n_neighbors", "must be at least 1 and less than n_samples / 2", k)
	}

	distX := pairwiseSquared(X)
	distY := pairwiseSquared(Y)

	penalties := make([]float64, n)
	parallel.Parallelize(n, func(start, end int) {
		order := make([]int, n)
		rank := make([]int, n)
		for i := start; i < end; i++ {
			// 元空間での順位
			byDistance(order, distX[i*n:(i+1)*n], i)
			for r, j := range order[:n-1] {
				rank[j] = r + 1
			}
			// 埋め込み空間でのk近傍
			byDistance(order, distY[i*n:(i+1)*n], i)
			p := 0.0
			for _, j := range order[:k] {
				p += math.Max(0, float64(rank[j]-k))
			}
			penalties[i] = p
		}
	})

	var sum float64
	for _, p := range penalties {
		sum += p
	}
	nf, kf := float64(n), float64(k)
	return 1 - 2/(nf*kf*(2*nf-3*kf-1))*sum, nil
}

// byDistance はselfを除いた全点を距離の昇順に並べてorderに書き込む。
// 同距離はインデックス順。self はorderの末尾に置かれる。
func byDistance(order []int, dist []float64, self int) {
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if ia == self || ib == self {
			return ib == self && ia != self
		}
		return dist[ia] < dist[ib]
	})
}

func pairwiseSquared(X mat.Matrix) []float64 {
	n, d := X.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, X)
	}
	dist := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var s float64
			for c := 0; c < d; c++ {
				diff := rows[i][c] - rows[j][c]
				s += diff * diff
			}
			dist[i*n+j] = s
			dist[j*n+i] = s
		}
	}
	return dist
}
