package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/go-auction-lister/models"
)

func sampleResult() models.ItemResult {
	return models.ItemResult{
		RunID:    "3f1c",
		Index:    0,
		Title:    "Vintage camera, boxed",
		Attempt:  2,
		Status:   models.StatusPosted,
		Reason:   "",
		Duration: 41.5,
		At:       time.Date(2025, 11, 4, 13, 9, 13, 0, time.UTC),
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	if err := writer.Write([]models.ItemResult{sampleResult()}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0][0] != "run_id" || records[0][4] != "status" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	row := records[1]
	if row[1] != "1" || row[2] != "Vintage camera, boxed" || row[3] != "2" || row[4] != "posted" || row[6] != "41.500" {
		t.Fatalf("unexpected row: %v", row)
	}
	if row[7] != "2025-11-04T13:09:13Z" {
		t.Fatalf("at=%q", row[7])
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	failed := sampleResult()
	failed.Index = 1
	failed.Status = models.StatusFailed
	failed.Reason = "title: element not found: #fleaTitleForm"

	if err := writer.Write([]models.ItemResult{sampleResult(), failed}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var decoded []models.ItemResult
	for scanner.Scan() {
		var r models.ItemResult
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		decoded = append(decoded, r)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("json lines=%d, want 2", len(decoded))
	}
	if decoded[1].Status != models.StatusFailed || decoded[1].Reason != failed.Reason {
		t.Fatalf("second line = %+v", decoded[1])
	}
}

func TestNewWriterFormats(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		format string
		path   string
		files  []string
	}{
		{format: FormatCSV, path: filepath.Join(dir, "a.csv"), files: []string{"a.csv"}},
		{format: FormatJSON, path: filepath.Join(dir, "b.jsonl"), files: []string{"b.jsonl"}},
		{format: FormatBoth, path: filepath.Join(dir, "nested", "c.csv"), files: []string{"nested/c.csv", "nested/c.jsonl"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := NewWriter(tt.format, tt.path)
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			if err := w.Write([]models.ItemResult{sampleResult()}); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := w.Validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			for _, name := range tt.files {
				info, err := os.Stat(filepath.Join(dir, name))
				if err != nil || info.Size() == 0 {
					t.Fatalf("%s missing or empty", name)
				}
			}
		})
	}

	if _, err := NewWriter("xml", filepath.Join(dir, "d.xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestValidateAfterClose(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(FormatBoth, filepath.Join(dir, "report.csv"))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write([]models.ItemResult{sampleResult()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate after close: %v", err)
	}

	empty, err := NewJSONWriter(filepath.Join(dir, "empty.jsonl"))
	if err != nil {
		t.Fatalf("NewJSONWriter: %v", err)
	}
	if err := empty.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := empty.Validate(); err == nil {
		t.Fatal("expected empty json report to fail validation")
	}
}
