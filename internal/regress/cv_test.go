package regress

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cvTable(t *testing.T, n int) (Table, []float64) {
	t.Helper()
	tbl := Table{
		NumericCols:     []string{"x"},
		CategoricalCols: []string{"segment"},
	}
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n)
		segment := "low"
		if x >= 0.5 {
			segment = "high"
		}
		require.NoError(t, tbl.Append([]float64{x}, []string{segment}))
		y[i] = 3*x + 5
	}
	return tbl, y
}

func TestKFoldIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	folds := kFoldIndices(10, 3, rng)

	require.Len(t, folds, 3)
	seen := make(map[int]bool)
	for _, fold := range folds {
		assert.GreaterOrEqual(t, len(fold), 3)
		for _, r := range fold {
			assert.False(t, seen[r], "row assigned to more than one fold")
			seen[r] = true
		}
	}
	assert.Len(t, seen, 10)
}

func TestCrossValPredict(t *testing.T) {
	tbl, y := cvTable(t, 150)

	preds, err := CrossValPredict(tbl, y, 5, 42, func() Regressor {
		return NewGradientBoost()
	})
	require.NoError(t, err)
	require.Len(t, preds, len(y))

	m, err := Evaluate(y, preds)
	require.NoError(t, err)
	assert.Greater(t, m.R2, 0.8, "out-of-fold predictions should track a linear target")
}

func TestCrossValPredict_Deterministic(t *testing.T) {
	tbl, y := cvTable(t, 60)
	factory := func() Regressor { return NewRandomForest() }

	a, err := CrossValPredict(tbl, y, 5, 42, factory)
	require.NoError(t, err)
	b, err := CrossValPredict(tbl, y, 5, 42, factory)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCrossValPredict_InvalidInput(t *testing.T) {
	tbl, y := cvTable(t, 10)
	factory := func() Regressor { return NewGradientBoost() }

	_, err := CrossValPredict(tbl, y[:5], 5, 42, factory)
	assert.Error(t, err, "target length must match the table")

	_, err = CrossValPredict(tbl, y, 1, 42, factory)
	assert.Error(t, err, "fewer than two folds")

	_, err = CrossValPredict(tbl, y, 11, 42, factory)
	assert.Error(t, err, "more folds than rows")
}
