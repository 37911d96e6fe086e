// Package predict trains a per-ticker direction classifier on a rolling
// window of feature rows and scores the most recent row.
//
// Each call trains from scratch. Nothing is cached between calls, so a
// Model never outlives the ticker and run it was trained for.
package predict

import (
	"errors"
	"fmt"
	"time"

	"stock-signal/internal/model"
)

var (
	// ErrInsufficientData means fewer than MinExamples windowed examples.
	ErrInsufficientData = errors.New("predict: insufficient training data")

	// ErrIncompleteRow means no row has every feature defined.
	ErrIncompleteRow = errors.New("predict: no complete row to score")
)

// Model is a trained classifier. Its only capability is scoring one
// feature vector.
type Model struct {
	init  float64
	trees []tree
}

// PredictProba returns the probability that the next session closes higher.
func (m *Model) PredictProba(x [model.NumFeatures]float64) float64 {
	raw := m.init
	for i := range m.trees {
		raw += m.trees[i].predict(&x)
	}
	return sigmoid(raw)
}

// Result is a successful training run. A zero Result (Model nil) is
// returned together with an error and carries no prediction.
type Result struct {
	Model    *Model
	ProbUp   float64
	Examples int       // windowed training examples used
	From, To time.Time // date span of the training examples
}

// Trained reports whether r carries a prediction.
func (r Result) Trained() bool { return r.Model != nil }

// TrainAndPredict builds examples from rows, keeps the trailing
// TrainWindow, trains a fresh model and scores the latest complete row.
//
// rows should be the full ascending series (incomplete rows included) so
// that every example's target is the close of the following session.
// Incomplete rows never become examples. The scored row and anything after
// it are used for inference only. With fewer than MinExamples windowed
// examples it returns ErrInsufficientData.
func TrainAndPredict(rows []model.FeatureRow, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("%w: no rows", ErrInsufficientData)
	}

	last := len(rows) - 1
	for last >= 0 && !rows[last].Complete() {
		last--
	}
	if last < 0 {
		return Result{}, ErrIncompleteRow
	}
	latest := rows[last]
	rows = rows[:last+1]

	examples := Window(BuildExamples(rows), TrainWindow)
	if len(examples) < MinExamples {
		return Result{Examples: len(examples)}, fmt.Errorf("%w: %d examples, need %d",
			ErrInsufficientData, len(examples), MinExamples)
	}

	m := train(examples, p)
	res := Result{
		Model:    m,
		ProbUp:   m.PredictProba(latest.Vector()),
		Examples: len(examples),
		From:     examples[0].Date,
		To:       examples[len(examples)-1].Date,
	}
	return res, nil
}
