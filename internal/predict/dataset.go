package predict

import (
	"time"

	"stock-signal/internal/model"
)

const (
	// TrainWindow is the trailing span of training examples kept, measured
	// back from the latest example date.
	TrainWindow = 1461 * 24 * time.Hour

	// MinExamples is the fewest windowed examples the model will train on.
	MinExamples = 100
)

// Example is one training sample: the features of a session and whether
// the following session closed strictly higher.
type Example struct {
	Date time.Time
	X    [model.NumFeatures]float64
	Y    float64 // 1 up, 0 flat or down
}

// BuildExamples pairs each complete row except the last with the close of
// the row that follows it, complete or not. The last row has no known
// outcome and is never a training example.
func BuildExamples(rows []model.FeatureRow) []Example {
	if len(rows) < 2 {
		return nil
	}
	out := make([]Example, 0, len(rows)-1)
	for i := 0; i < len(rows)-1; i++ {
		r := &rows[i]
		if !r.Complete() {
			continue
		}
		y := 0.0
		if rows[i+1].Close > r.Close {
			y = 1
		}
		out = append(out, Example{Date: r.Date, X: r.Vector(), Y: y})
	}
	return out
}

// Window keeps examples dated within span of the latest example date,
// inclusive of the boundary day.
func Window(examples []Example, span time.Duration) []Example {
	if len(examples) == 0 {
		return nil
	}
	latest := examples[0].Date
	for _, e := range examples[1:] {
		if e.Date.After(latest) {
			latest = e.Date
		}
	}
	cutoff := latest.Add(-span)

	out := make([]Example, 0, len(examples))
	for _, e := range examples {
		if !e.Date.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}
