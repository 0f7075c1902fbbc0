package service

import (
	"slices"

	"github.com/okian/lapprice/internal/domain/model"
)

// ValidationReport is the outcome of the column checks on the split data.
type ValidationReport struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// ValidateSplit checks column count and presence on both halves. Types and
// ranges are left to feature engineering.
func ValidateSplit(train, test *model.RawTable, required []string) ValidationReport {
	msg := ""
	if len(train.Columns) != len(required) {
		msg += "Train dataframe has missing columns. "
	}
	if len(test.Columns) != len(required) {
		msg += "Test dataframe has missing columns. "
	}
	if !hasAll(train, required) {
		msg += "Train dataframe missing required columns. "
	}
	if !hasAll(test, required) {
		msg += "Test dataframe missing required columns. "
	}
	return ValidationReport{OK: msg == "", Message: msg}
}

func hasAll(t *model.RawTable, required []string) bool {
	for _, c := range required {
		if !slices.Contains(t.Columns, c) {
			return false
		}
	}
	return true
}
