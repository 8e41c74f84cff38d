package regress

import (
	"fmt"
	"math/rand"
)

// Regressor is the contract every candidate model family satisfies. The
// training pipeline treats implementations as interchangeable black boxes:
// fit on a matrix and a target, predict on a matrix.
type Regressor interface {
	Name() string
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// defaultSeed matches the original training runs so refitting the same
// dataset reproduces the same model.
const defaultSeed = 42

// GradientBoost is a gradient-boosted ensemble of shallow regression trees
// with squared-error loss: each stage fits the residuals of the current
// ensemble and is added back scaled by the learning rate.
type GradientBoost struct {
	Trees        int
	LearningRate float64
	MaxDepth     int
	MinLeaf      int
	Seed         int64

	BasePrediction float64
	Stages         []*regressionTree
}

// NewGradientBoost returns the default configuration.
func NewGradientBoost() *GradientBoost {
	return &GradientBoost{
		Trees:        200,
		LearningRate: 0.1,
		MaxDepth:     3,
		MinLeaf:      5,
		Seed:         defaultSeed,
	}
}

func (g *GradientBoost) Name() string { return "gradient_boosting" }

func (g *GradientBoost) Fit(X [][]float64, y []float64) error {
	if err := checkTrainingInput(X, y); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(g.Seed))
	g.BasePrediction = mean(y)
	g.Stages = g.Stages[:0]

	current := make([]float64, len(y))
	for i := range current {
		current[i] = g.BasePrediction
	}

	rows := allRows(len(y))
	residual := make([]float64, len(y))
	cfg := treeConfig{MaxDepth: g.MaxDepth, MinLeaf: g.MinLeaf}

	for s := 0; s < g.Trees; s++ {
		for i := range y {
			residual[i] = y[i] - current[i]
		}
		tree := fitTree(X, residual, rows, cfg, rng)
		g.Stages = append(g.Stages, tree)
		for i := range current {
			current[i] += g.LearningRate * tree.predict(X[i])
		}
	}
	return nil
}

func (g *GradientBoost) Predict(X [][]float64) ([]float64, error) {
	if len(g.Stages) == 0 {
		return nil, fmt.Errorf("%s: model is not fitted", g.Name())
	}
	out := make([]float64, len(X))
	for i, x := range X {
		p := g.BasePrediction
		for _, tree := range g.Stages {
			p += g.LearningRate * tree.predict(x)
		}
		out[i] = p
	}
	return out, nil
}

// StochasticBoost is the second boosted family: squared-error boosting with
// row subsampling per stage and feature subsampling per split, trading a
// little bias for decorrelated stages.
type StochasticBoost struct {
	Trees        int
	LearningRate float64
	MaxDepth     int
	MinLeaf      int
	Subsample    float64
	MaxFeatures  int
	Seed         int64

	BasePrediction float64
	Stages         []*regressionTree
}

// NewStochasticBoost returns the default configuration. MaxFeatures of zero
// is resolved to sqrt of the feature count at fit time.
func NewStochasticBoost() *StochasticBoost {
	return &StochasticBoost{
		Trees:        200,
		LearningRate: 0.1,
		MaxDepth:     4,
		MinLeaf:      5,
		Subsample:    0.7,
		Seed:         defaultSeed,
	}
}

func (s *StochasticBoost) Name() string { return "stochastic_boosting" }

func (s *StochasticBoost) Fit(X [][]float64, y []float64) error {
	if err := checkTrainingInput(X, y); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(s.Seed))
	s.BasePrediction = mean(y)
	s.Stages = s.Stages[:0]

	maxFeatures := s.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = isqrt(len(X[0]))
	}

	current := make([]float64, len(y))
	for i := range current {
		current[i] = s.BasePrediction
	}

	residual := make([]float64, len(y))
	sampleSize := int(s.Subsample * float64(len(y)))
	if sampleSize < 1 {
		sampleSize = len(y)
	}
	cfg := treeConfig{MaxDepth: s.MaxDepth, MinLeaf: s.MinLeaf, MaxFeatures: maxFeatures}

	for stage := 0; stage < s.Trees; stage++ {
		for i := range y {
			residual[i] = y[i] - current[i]
		}
		rows := rng.Perm(len(y))[:sampleSize]
		tree := fitTree(X, residual, rows, cfg, rng)
		s.Stages = append(s.Stages, tree)
		for i := range current {
			current[i] += s.LearningRate * tree.predict(X[i])
		}
	}
	return nil
}

func (s *StochasticBoost) Predict(X [][]float64) ([]float64, error) {
	if len(s.Stages) == 0 {
		return nil, fmt.Errorf("%s: model is not fitted", s.Name())
	}
	out := make([]float64, len(X))
	for i, x := range X {
		p := s.BasePrediction
		for _, tree := range s.Stages {
			p += s.LearningRate * tree.predict(x)
		}
		out[i] = p
	}
	return out, nil
}

// RandomForest is the bagged family: full-depth trees fitted on bootstrap
// samples with per-split feature subsampling, averaged at predict time.
type RandomForest struct {
	Trees       int
	MaxDepth    int
	MinLeaf     int
	MaxFeatures int
	Seed        int64

	Members []*regressionTree
}

// NewRandomForest returns the default configuration. MaxFeatures of zero is
// resolved to one third of the feature count at fit time.
func NewRandomForest() *RandomForest {
	return &RandomForest{
		Trees:    100,
		MaxDepth: 16,
		MinLeaf:  2,
		Seed:     defaultSeed,
	}
}

func (f *RandomForest) Name() string { return "random_forest" }

func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	if err := checkTrainingInput(X, y); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(f.Seed))
	f.Members = f.Members[:0]

	maxFeatures := f.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = len(X[0]) / 3
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}
	cfg := treeConfig{MaxDepth: f.MaxDepth, MinLeaf: f.MinLeaf, MaxFeatures: maxFeatures}

	n := len(y)
	for t := 0; t < f.Trees; t++ {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = rng.Intn(n)
		}
		f.Members = append(f.Members, fitTree(X, y, rows, cfg, rng))
	}
	return nil
}

func (f *RandomForest) Predict(X [][]float64) ([]float64, error) {
	if len(f.Members) == 0 {
		return nil, fmt.Errorf("%s: model is not fitted", f.Name())
	}
	out := make([]float64, len(X))
	for i, x := range X {
		var sum float64
		for _, tree := range f.Members {
			sum += tree.predict(x)
		}
		out[i] = sum / float64(len(f.Members))
	}
	return out, nil
}

func checkTrainingInput(X [][]float64, y []float64) error {
	if len(X) == 0 || len(y) == 0 {
		return fmt.Errorf("empty training input")
	}
	if len(X) != len(y) {
		return fmt.Errorf("matrix has %d rows but target has %d", len(X), len(y))
	}
	return nil
}

func mean(y []float64) float64 {
	var sum float64
	for _, v := range y {
		sum += v
	}
	return sum / float64(len(y))
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func isqrt(n int) int {
	if n < 1 {
		return 1
	}
	k := 1
	for k*k < n {
		k++
	}
	return k
}
