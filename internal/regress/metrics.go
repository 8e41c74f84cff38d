package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics is one candidate model's evaluation record over out-of-fold
// predictions.
type Metrics struct {
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
	MAPE float64 `json:"mape"`
}

// Evaluate computes root-mean-squared error, R², and mean absolute
// percentage error of pred against y. Zero targets are skipped in the MAPE
// term; the validity mask keeps them out of training data anyway.
func Evaluate(y, pred []float64) (Metrics, error) {
	if len(y) == 0 || len(y) != len(pred) {
		return Metrics{}, fmt.Errorf("mismatched evaluation inputs: %d targets, %d predictions", len(y), len(pred))
	}

	var sqErr, absPct float64
	pctN := 0
	for i := range y {
		d := y[i] - pred[i]
		sqErr += d * d
		if y[i] != 0 {
			absPct += math.Abs(d / y[i])
			pctN++
		}
	}

	meanY := stat.Mean(y, nil)
	var ssTot float64
	for _, v := range y {
		d := v - meanY
		ssTot += d * d
	}

	m := Metrics{RMSE: math.Sqrt(sqErr / float64(len(y)))}
	if ssTot > 0 {
		m.R2 = 1 - sqErr/ssTot
	}
	if pctN > 0 {
		m.MAPE = absPct / float64(pctN) * 100
	}
	return m, nil
}
