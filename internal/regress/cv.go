package regress

import (
	"fmt"
	"math/rand"
)

// Factory builds a fresh, unfitted regressor for one fold.
type Factory func() Regressor

// kFoldIndices shuffles row indices with the given rng and slices them into
// k nearly equal folds.
func kFoldIndices(n, k int, rng *rand.Rand) [][]int {
	perm := rng.Perm(n)
	folds := make([][]int, k)
	for i, r := range perm {
		folds[i%k] = append(folds[i%k], r)
	}
	return folds
}

// CrossValPredict returns out-of-fold predictions for every row of t: each
// row is predicted by the fold pipeline that did not see it during fitting.
// The preprocessor is refitted inside each fold so no test-fold statistics
// leak into training.
func CrossValPredict(t Table, y []float64, k int, seed int64, factory Factory) ([]float64, error) {
	n := t.Rows()
	if n != len(y) {
		return nil, fmt.Errorf("table has %d rows but target has %d", n, len(y))
	}
	if k < 2 || k > n {
		return nil, fmt.Errorf("fold count %d invalid for %d rows", k, n)
	}

	rng := rand.New(rand.NewSource(seed))
	folds := kFoldIndices(n, k, rng)

	out := make([]float64, n)
	for fi, testRows := range folds {
		trainRows := make([]int, 0, n-len(testRows))
		for fj, fold := range folds {
			if fj != fi {
				trainRows = append(trainRows, fold...)
			}
		}

		trainTable := t.Subset(trainRows)
		testTable := t.Subset(testRows)

		pre, err := FitPreprocessor(trainTable)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", fi, err)
		}
		trainX, err := pre.Transform(trainTable)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", fi, err)
		}
		testX, err := pre.Transform(testTable)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", fi, err)
		}

		trainY := make([]float64, len(trainRows))
		for i, r := range trainRows {
			trainY[i] = y[r]
		}

		model := factory()
		if err := model.Fit(trainX, trainY); err != nil {
			return nil, fmt.Errorf("fold %d: %s fit failed: %w", fi, model.Name(), err)
		}
		preds, err := model.Predict(testX)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %s predict failed: %w", fi, model.Name(), err)
		}
		for i, r := range testRows {
			out[r] = preds[i]
		}
	}

	return out, nil
}
