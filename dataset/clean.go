package dataset

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/musicmap/pkg/errors"
	"github.com/YuminosukeSato/musicmap/pkg/log"
)

// Coerced holds the numeric view of a table's feature columns.
// Values[j][i] is the coerced cell of feature j in row i.
type Coerced struct {
	Features []string
	Values   [][]Value
}

// Coerce parses every listed column of t with ParseValue. It never fails on
// cell content; a listed column that does not exist is a
// *errors.MissingColumnError. The table is not modified.
func Coerce(t *Table, features []string) (Coerced, error) {
	c := Coerced{
		Features: append([]string(nil), features...),
		Values:   make([][]Value, len(features)),
	}
	logger := log.GetLoggerWithName("dataset")

	for j, name := range features {
		cells, err := t.Column(name)
		if err != nil {
			return Coerced{}, err
		}
		values := make([]Value, len(cells))
		missing := 0
		for i, cell := range cells {
			values[i] = ParseValue(cell)
			if !values[i].Valid {
				missing++
			}
		}
		c.Values[j] = values
		if missing > 0 {
			logger.Debug("Non-numeric cells coerced to missing",
				log.OperationKey, log.OperationCoerce,
				log.ColumnKey, name,
				log.DroppedKey, missing,
			)
		}
	}
	return c, nil
}

// Nrow returns the number of rows covered by the coerced view.
func (c Coerced) Nrow() int {
	if len(c.Values) == 0 {
		return 0
	}
	return len(c.Values[0])
}

// Complete reports whether every feature of row i holds a number.
func (c Coerced) Complete(i int) bool {
	for _, col := range c.Values {
		if !col[i].Valid {
			return false
		}
	}
	return true
}

// CompleteRows returns the indexes of complete rows in ascending order.
func (c Coerced) CompleteRows() []int {
	rows := make([]int, 0, c.Nrow())
	for i := 0; i < c.Nrow(); i++ {
		if c.Complete(i) {
			rows = append(rows, i)
		}
	}
	return rows
}

// Clean keeps the rows of t whose features are all numeric in c, returning
// the filtered table and the kept source row indexes. Cells are kept as
// loaded. It fails with errors.ErrEmptyData when no row is complete.
func Clean(t *Table, c Coerced) (*Table, []int, error) {
	if c.Nrow() != t.Nrow() && len(c.Values) > 0 {
		return nil, nil, errors.NewDimensionError("Clean", t.Nrow(), c.Nrow(), 0)
	}

	rows := c.CompleteRows()
	if len(c.Values) == 0 {
		rows = make([]int, t.Nrow())
		for i := range rows {
			rows[i] = i
		}
	}

	logger := log.GetLoggerWithName("dataset")
	dropped := t.Nrow() - len(rows)
	logger.Info("Incomplete rows dropped",
		log.OperationKey, log.OperationClean,
		log.SamplesKey, len(rows),
		log.DroppedKey, dropped,
	)
	if dropped > 0 && logger.Enabled(context.Background(), log.LevelDebug) {
		for i := 0; i < t.Nrow(); i++ {
			if !c.Complete(i) {
				logger.Debug("Row dropped", log.OperationKey, log.OperationClean, log.RowKey, i)
			}
		}
	}

	if len(rows) == 0 {
		return nil, nil, errors.NewModelError("Clean", "no row has every feature numeric", errors.ErrEmptyData)
	}

	cleaned, err := t.subset(rows)
	if err != nil {
		return nil, nil, err
	}
	return cleaned, rows, nil
}

// FeatureMatrix builds the len(rows) × len(features) matrix of the given
// rows. Every selected row must be complete.
func (c Coerced) FeatureMatrix(rows []int) (*mat.Dense, error) {
	if len(rows) == 0 || len(c.Values) == 0 {
		return nil, errors.NewModelError("FeatureMatrix", "empty data", errors.ErrEmptyData)
	}
	m := mat.NewDense(len(rows), len(c.Values), nil)
	for r, i := range rows {
		for j, col := range c.Values {
			if !col[i].Valid {
				return nil, errors.NewValidationError(c.Features[j], "missing value in selected row", i)
			}
			m.Set(r, j, col[i].Float)
		}
	}
	return m, nil
}
