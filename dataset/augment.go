package dataset

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

// Columns appended by Augment.
const (
	ColumnTSNEX     = "tsne_x"
	ColumnTSNEY     = "tsne_y"
	ColumnColorMode = "color_mode"
)

var modeColors = map[string]string{
	"Major": "orange",
	"Minor": "blue",
}

// ColorForMode maps a musical mode to its plot color. Only "Major" and
// "Minor" are mapped; anything else reports false.
func ColorForMode(mode string) (string, bool) {
	c, ok := modeColors[mode]
	return c, ok
}

// Augment returns a copy of t with the first two embedding columns appended
// as tsne_x and tsne_y, and color_mode derived from modeColumn. Rows are
// aligned by position. Unmapped modes leave color_mode empty.
func Augment(t *Table, embedding mat.Matrix, modeColumn string) (*Table, error) {
	r, c := embedding.Dims()
	if r != t.Nrow() {
		return nil, errors.NewDimensionError("Augment", t.Nrow(), r, 0)
	}
	if c < 2 {
		return nil, errors.NewDimensionError("Augment", 2, c, 1)
	}

	modes, err := t.Column(modeColumn)
	if err != nil {
		return nil, err
	}

	xs := make([]string, r)
	ys := make([]string, r)
	colors := make([]string, r)
	for i := 0; i < r; i++ {
		xs[i] = formatFloat(embedding.At(i, 0))
		ys[i] = formatFloat(embedding.At(i, 1))
		colors[i], _ = ColorForMode(modes[i])
	}

	out := t
	for _, col := range []struct {
		name   string
		values []string
	}{
		{ColumnTSNEX, xs},
		{ColumnTSNEY, ys},
		{ColumnColorMode, colors},
	} {
		if out, err = out.withColumn(col.name, col.values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
