package feature

import "stock-signal/internal/model"

// Latest returns the most recent row, or false when rows is empty.
func Latest(rows []model.FeatureRow) (model.FeatureRow, bool) {
	if len(rows) == 0 {
		return model.FeatureRow{}, false
	}
	return rows[len(rows)-1], true
}

// Tail returns at most the last n rows.
func Tail(rows []model.FeatureRow, n int) []model.FeatureRow {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[len(rows)-n:]
}
