package visualize

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

func TestGroupByColor(t *testing.T) {
	emb := mat.NewDense(5, 2, []float64{
		0, 1,
		2, 3,
		4, 5,
		6, 7,
		8, 9,
	})
	groups, err := groupByColor(emb, []string{"orange", "blue", "", "orange", "violet"})
	if err != nil {
		t.Fatalf("groupByColor() error = %v", err)
	}

	want := []int{2, 1, 2}
	for i, n := range want {
		if len(groups[i]) != n {
			t.Errorf("group %s has %d points, want %d", palette[i].label, len(groups[i]), n)
		}
	}
	if groups[0][1].X != 6 || groups[0][1].Y != 7 {
		t.Errorf("second Major point = %+v, want {6 7}", groups[0][1])
	}
}

func TestGroupByColorDimensions(t *testing.T) {
	tests := []struct {
		name   string
		emb    mat.Matrix
		colors []string
	}{
		{"one column", mat.NewDense(2, 1, []float64{1, 2}), []string{"blue", "blue"}},
		{"short colors", mat.NewDense(2, 2, []float64{1, 2, 3, 4}), []string{"blue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := groupByColor(tt.emb, tt.colors)
			var de *errors.DimensionError
			if !errors.As(err, &de) {
				t.Errorf("expected DimensionError, got %v", err)
			}
		})
	}
}

func TestSaveEmbedding(t *testing.T) {
	emb := mat.NewDense(4, 2, []float64{
		-1, -1,
		1, 1,
		-1, 1,
		1, -1,
	})
	colors := []string{"orange", "blue", "", "blue"}

	for _, ext := range []string{"png", "svg"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "embedding."+ext)
			if err := SaveEmbedding(emb, colors, "Spotify 2023", path); err != nil {
				t.Fatalf("SaveEmbedding() error = %v", err)
			}
			info, err := os.Stat(path)
			if err != nil {
				t.Fatal(err)
			}
			if info.Size() == 0 {
				t.Error("plot file is empty")
			}
		})
	}
}

func TestSaveEmbeddingUnwritable(t *testing.T) {
	emb := mat.NewDense(1, 2, []float64{0, 0})
	path := filepath.Join(t.TempDir(), "missing", "embedding.png")

	err := SaveEmbedding(emb, []string{"blue"}, "", path)
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if ioErr.Path != path {
		t.Errorf("Path = %q, want %q", ioErr.Path, path)
	}
}
