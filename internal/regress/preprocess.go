package regress

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Preprocessor holds the fitted preprocessing transform: per-numeric-column
// median imputation followed by standardization, and per-categorical-column
// most-frequent imputation followed by one-hot encoding. Unknown categories
// at transform time encode to all zeros instead of failing, so inference
// tolerates categories never seen in training.
//
// All fields are exported for artifact serialization; a fitted Preprocessor
// is immutable and safe for concurrent Transform calls.
type Preprocessor struct {
	NumericCols     []string
	CategoricalCols []string

	Medians []float64
	Means   []float64
	Stds    []float64

	Modes      []string
	Categories [][]string // sorted vocabulary per categorical column
}

// FitPreprocessor learns imputation and scaling statistics from t.
func FitPreprocessor(t Table) (*Preprocessor, error) {
	if t.Rows() == 0 {
		return nil, fmt.Errorf("cannot fit preprocessor on an empty table")
	}

	p := &Preprocessor{
		NumericCols:     t.NumericCols,
		CategoricalCols: t.CategoricalCols,
		Medians:         make([]float64, len(t.NumericCols)),
		Means:           make([]float64, len(t.NumericCols)),
		Stds:            make([]float64, len(t.NumericCols)),
		Modes:           make([]string, len(t.CategoricalCols)),
		Categories:      make([][]string, len(t.CategoricalCols)),
	}

	for j := range t.NumericCols {
		var present []float64
		for i := range t.Numeric {
			if v := t.Numeric[i][j]; !math.IsNaN(v) {
				present = append(present, v)
			}
		}
		if len(present) == 0 {
			// A fully missing column imputes to zero and scales to zero.
			p.Medians[j], p.Means[j], p.Stds[j] = 0, 0, 0
			continue
		}
		sort.Float64s(present)
		p.Medians[j] = median(present)

		// Scaling statistics are computed over the imputed column, the same
		// data the scaler sees at transform time.
		imputed := make([]float64, len(t.Numeric))
		for i := range t.Numeric {
			v := t.Numeric[i][j]
			if math.IsNaN(v) {
				v = p.Medians[j]
			}
			imputed[i] = v
		}
		p.Means[j] = stat.Mean(imputed, nil)
		p.Stds[j] = math.Sqrt(stat.PopVariance(imputed, nil))
	}

	for j := range t.CategoricalCols {
		counts := make(map[string]int)
		for i := range t.Categorical {
			if v := t.Categorical[i][j]; v != "" {
				counts[v]++
			}
		}

		vocab := make([]string, 0, len(counts))
		for v := range counts {
			vocab = append(vocab, v)
		}
		sort.Strings(vocab)
		p.Categories[j] = vocab

		mode := ""
		best := -1
		for _, v := range vocab {
			if counts[v] > best {
				mode, best = v, counts[v]
			}
		}
		p.Modes[j] = mode
	}

	return p, nil
}

// FeatureCount returns the width of the transformed matrix.
func (p *Preprocessor) FeatureCount() int {
	n := len(p.NumericCols)
	for _, vocab := range p.Categories {
		n += len(vocab)
	}
	return n
}

// Transform produces the dense model-input matrix for t. The table's column
// sets must match the ones the preprocessor was fitted on.
func (p *Preprocessor) Transform(t Table) ([][]float64, error) {
	if err := sameColumns(p.NumericCols, t.NumericCols); err != nil {
		return nil, fmt.Errorf("numeric columns: %w", err)
	}
	if err := sameColumns(p.CategoricalCols, t.CategoricalCols); err != nil {
		return nil, fmt.Errorf("categorical columns: %w", err)
	}

	width := p.FeatureCount()
	out := make([][]float64, t.Rows())
	for i := 0; i < t.Rows(); i++ {
		row := make([]float64, width)
		k := 0

		for j := range p.NumericCols {
			v := t.Numeric[i][j]
			if math.IsNaN(v) {
				v = p.Medians[j]
			}
			if p.Stds[j] > 0 {
				row[k] = (v - p.Means[j]) / p.Stds[j]
			} else {
				row[k] = 0
			}
			k++
		}

		for j := range p.CategoricalCols {
			v := t.Categorical[i][j]
			if v == "" {
				v = p.Modes[j]
			}
			// Unknown categories leave the whole block at zero.
			for _, cat := range p.Categories[j] {
				if v == cat {
					row[k] = 1
				}
				k++
			}
		}

		out[i] = row
	}
	return out, nil
}

// median returns the sample median of a sorted, non-empty slice: the middle
// element for odd lengths, the midpoint of the two middle elements for even
// lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sameColumns(want, got []string) error {
	if len(want) != len(got) {
		return fmt.Errorf("expected %d columns, got %d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("column %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	return nil
}
