// Package regress implements the model training building blocks: a tabular
// feature container, preprocessing transforms, three candidate regressor
// families behind one fit/predict contract, k-fold cross-validation, and
// error metrics.
package regress

import "fmt"

// Table is a column-typed feature table. Numeric cells use NaN for missing
// values; categorical cells use the empty string.
type Table struct {
	NumericCols     []string
	CategoricalCols []string

	// Row-major cell storage. Numeric[i] and Categorical[i] describe row i.
	Numeric     [][]float64
	Categorical [][]string
}

// Rows returns the number of rows in the table.
func (t *Table) Rows() int {
	if len(t.Numeric) > 0 {
		return len(t.Numeric)
	}
	return len(t.Categorical)
}

// Append adds one row. Cell counts must match the declared columns.
func (t *Table) Append(numeric []float64, categorical []string) error {
	if len(numeric) != len(t.NumericCols) {
		return fmt.Errorf("expected %d numeric cells, got %d", len(t.NumericCols), len(numeric))
	}
	if len(categorical) != len(t.CategoricalCols) {
		return fmt.Errorf("expected %d categorical cells, got %d", len(t.CategoricalCols), len(categorical))
	}
	t.Numeric = append(t.Numeric, numeric)
	t.Categorical = append(t.Categorical, categorical)
	return nil
}

// Subset returns a new table containing the given rows, sharing row slices
// with the original.
func (t *Table) Subset(rows []int) Table {
	sub := Table{
		NumericCols:     t.NumericCols,
		CategoricalCols: t.CategoricalCols,
		Numeric:         make([][]float64, len(rows)),
		Categorical:     make([][]string, len(rows)),
	}
	for i, r := range rows {
		sub.Numeric[i] = t.Numeric[r]
		sub.Categorical[i] = t.Categorical[r]
	}
	return sub
}
