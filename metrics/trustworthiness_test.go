package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestTrustworthiness(t *testing.T) {
	line := mat.NewDense(6, 1, []float64{0, 1, 3, 6, 10, 15})

	tests := []struct {
		name      string
		X         mat.Matrix
		Y         mat.Matrix
		k         int
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "identical embedding",
			X:         line,
			Y:         line,
			k:         2,
			want:      1.0,
			tolerance: 1e-12,
		},
		{
			name:      "scaled and shifted embedding",
			X:         line,
			Y:         mat.NewDense(6, 2, []float64{5, 0, 7, 0, 11, 0, 17, 0, 25, 0, 35, 0}),
			k:         1,
			want:      1.0,
			tolerance: 1e-12,
		},
		{
			name: "endpoints swapped",
			X:    line,
			Y:    mat.NewDense(6, 1, []float64{15, 1, 3, 6, 10, 0}),
			k:    1,
			// penalties: p0→p4 (rank 4), p1→p5 (rank 5), p5→p1 (rank 4): 3+4+3 = 10
			// 1 - 2/(6·1·8)·10 = 14/24
			want:      14.0 / 24.0,
			tolerance: 1e-12,
		},
		{
			name:    "row mismatch",
			X:       line,
			Y:       mat.NewDense(5, 1, []float64{0, 1, 2, 3, 4}),
			k:       1,
			wantErr: true,
		},
		{
			name:    "too many neighbors",
			X:       line,
			Y:       line,
			k:       3,
			wantErr: true,
		},
		{
			name:    "zero neighbors",
			X:       line,
			Y:       line,
			k:       0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Trustworthiness(tt.X, tt.Y, tt.k)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Trustworthiness() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Trustworthiness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestByDistance(t *testing.T) {
	order := make([]int, 4)
	byDistance(order, []float64{4, 0, 1, 1}, 1)
	want := []int{2, 3, 0, 1}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
