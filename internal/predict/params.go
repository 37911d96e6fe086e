package predict

import "fmt"

// Params configures gradient-boosted tree training for the binary
// up/down objective.
type Params struct {
	Rounds          int     // boosting iterations
	LearningRate    float64 // shrinkage applied to each leaf value
	NumLeaves       int     // max leaves per tree, grown best-first
	MinDataInLeaf   int
	MinSumHessian   float64
	Lambda          float64 // L2 regularization on leaf values
	MaxBin          int     // histogram bins per feature
	BaggingFraction float64 // row sample per tree, 1 = all rows
	FeatureFraction float64 // feature sample per tree, 1 = all features
	Seed            int64
}

// DefaultParams mirrors common LightGBM defaults with a fixed seed.
func DefaultParams() Params {
	return Params{
		Rounds:          100,
		LearningRate:    0.1,
		NumLeaves:       31,
		MinDataInLeaf:   20,
		MinSumHessian:   1e-3,
		Lambda:          0,
		MaxBin:          255,
		BaggingFraction: 1,
		FeatureFraction: 1,
		Seed:            42,
	}
}

// Validate reports the first out-of-range parameter.
func (p Params) Validate() error {
	switch {
	case p.Rounds < 1:
		return fmt.Errorf("predict: rounds must be >= 1, got %d", p.Rounds)
	case p.LearningRate <= 0:
		return fmt.Errorf("predict: learning rate must be > 0, got %v", p.LearningRate)
	case p.NumLeaves < 2:
		return fmt.Errorf("predict: num leaves must be >= 2, got %d", p.NumLeaves)
	case p.MinDataInLeaf < 1:
		return fmt.Errorf("predict: min data in leaf must be >= 1, got %d", p.MinDataInLeaf)
	case p.Lambda < 0:
		return fmt.Errorf("predict: lambda must be >= 0, got %v", p.Lambda)
	case p.MaxBin < 2:
		return fmt.Errorf("predict: max bin must be >= 2, got %d", p.MaxBin)
	case p.BaggingFraction <= 0 || p.BaggingFraction > 1:
		return fmt.Errorf("predict: bagging fraction must be in (0,1], got %v", p.BaggingFraction)
	case p.FeatureFraction <= 0 || p.FeatureFraction > 1:
		return fmt.Errorf("predict: feature fraction must be in (0,1], got %v", p.FeatureFraction)
	}
	return nil
}
