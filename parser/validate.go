package parser

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aluiziolira/go-auction-lister/models"
)

// ValidationResult is the advisory report produced by Validate.
type ValidationResult struct {
	Valid       bool
	Errors      []string
	Warnings    []string
	LineCount   int
	ColumnCount int
}

// Validate checks the header for required columns and compares each data
// row's field count with the header. Count mismatches are warnings only.
func Validate(text string) ValidationResult {
	result := ValidationResult{Valid: true}

	rows, err := readRows(text)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.LineCount = len(rows)

	if len(rows) < 2 {
		result.Valid = false
		result.Errors = append(result.Errors, "a header line and at least one data line are required")
		return result
	}

	headers := rows[0].fields
	result.ColumnCount = len(headers)

	for _, r := range rows[1:] {
		if len(r.fields) != result.ColumnCount {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"line %d: field count mismatch (want %d, got %d)", r.line, result.ColumnCount, len(r.fields)))
		}
	}

	if missing := MissingFields(headers); len(missing) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "missing required columns: "+strings.Join(missing, ", "))
	}

	return result
}

// MissingFields returns the required columns absent from headers.
func MissingFields(headers []string) []string {
	var missing []string
	for _, name := range models.RequiredFields {
		if !slices.Contains(headers, name) {
			missing = append(missing, name)
		}
	}
	return missing
}
