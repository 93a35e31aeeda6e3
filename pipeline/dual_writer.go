package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-auction-lister/models"
)

// DualWriter writes the report as CSV and JSON lines at once.
type DualWriter struct {
	mu      sync.Mutex
	writers []namedWriter
}

type namedWriter struct {
	name string
	OutputWriter
}

// NewDualWriter opens both report files.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create CSV report: %w", err)
	}
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create JSON report: %w", err)
	}

	return &DualWriter{writers: []namedWriter{
		{name: "CSV", OutputWriter: csvWriter},
		{name: "JSON", OutputWriter: jsonWriter},
	}}, nil
}

// Write appends results to both files and stops at the first failure.
func (dw *DualWriter) Write(results []models.ItemResult) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	for _, w := range dw.writers {
		if err := w.Write(results); err != nil {
			return fmt.Errorf("%s write failed: %w", w.name, err)
		}
	}
	return nil
}

// Close closes both writers.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.each(func(w OutputWriter) error { return w.Close() }, "close")
}

// Validate checks both output files.
func (dw *DualWriter) Validate() error {
	return dw.each(func(w OutputWriter) error { return w.Validate() }, "validation")
}

func (dw *DualWriter) each(fn func(OutputWriter) error, op string) error {
	var errs []error
	for _, w := range dw.writers {
		if err := fn(w.OutputWriter); err != nil {
			errs = append(errs, fmt.Errorf("%s %s failed: %w", w.name, op, err))
		}
	}
	return errors.Join(errs...)
}
