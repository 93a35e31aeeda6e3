package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-auction-lister/models"
)

// Report formats accepted by NewWriter.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatBoth = "both"
)

// csvColumns defines the report layout. Index is written 1-based to match
// the sheet rows an operator sees.
var csvColumns = []struct {
	name  string
	value func(models.ItemResult) string
}{
	{"run_id", func(r models.ItemResult) string { return r.RunID }},
	{"index", func(r models.ItemResult) string { return strconv.Itoa(r.Index + 1) }},
	{"title", func(r models.ItemResult) string { return r.Title }},
	{"attempt", func(r models.ItemResult) string { return strconv.Itoa(r.Attempt) }},
	{"status", func(r models.ItemResult) string { return string(r.Status) }},
	{"reason", func(r models.ItemResult) string { return r.Reason }},
	{"duration_seconds", func(r models.ItemResult) string { return strconv.FormatFloat(r.Duration, 'f', 3, 64) }},
	{"at", func(r models.ItemResult) string { return r.At.Format(time.RFC3339) }},
}

// reportFile is one report file on disk. Validate reads the path, so it
// also works after Close.
type reportFile struct {
	kind string
	path string
	file *os.File
}

func createReportFile(kind, path string) (reportFile, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return reportFile{}, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return reportFile{}, fmt.Errorf("create %s file: %w", kind, err)
	}
	return reportFile{kind: kind, path: path, file: f}, nil
}

// Validate ensures the file has content.
func (rf reportFile) Validate() error {
	info, err := os.Stat(rf.path)
	if err != nil {
		return fmt.Errorf("stat %s file: %w", rf.kind, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s file %s is empty", rf.kind, rf.path)
	}
	return nil
}

// CSVWriter writes attempt results to CSV.
type CSVWriter struct {
	reportFile
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates filename and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	rf, err := createReportFile("csv", filename)
	if err != nil {
		return nil, err
	}

	header := make([]string, len(csvColumns))
	for i, c := range csvColumns {
		header[i] = c.name
	}
	cw := &CSVWriter{reportFile: rf, writer: csv.NewWriter(rf.file)}
	if err := cw.writeRows([][]string{header}); err != nil {
		rf.file.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return cw, nil
}

// Write appends results to the CSV output.
func (cw *CSVWriter) Write(results []models.ItemResult) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		row := make([]string, len(csvColumns))
		for i, c := range csvColumns {
			row[i] = c.value(r)
		}
		rows = append(rows, row)
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.writeRows(rows)
}

func (cw *CSVWriter) writeRows(rows [][]string) error {
	if err := cw.writer.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// JSONWriter writes one JSON object per line.
type JSONWriter struct {
	reportFile
	buf     *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter creates filename.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	rf, err := createReportFile("json", filename)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(rf.file)
	return &JSONWriter{reportFile: rf, buf: buf, encoder: json.NewEncoder(buf)}, nil
}

// Write appends results and flushes so the file is readable mid-run.
func (jw *JSONWriter) Write(results []models.ItemResult) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, r := range results {
		if err := jw.encoder.Encode(r); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	if err := jw.buf.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.buf.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// NewWriter opens a report writer for format. With FormatBoth, path names
// the CSV file and the JSON lines go next to it with a .jsonl extension.
func NewWriter(format, path string) (OutputWriter, error) {
	var (
		w   OutputWriter
		err error
	)
	switch strings.ToLower(format) {
	case FormatCSV, "":
		w, err = NewCSVWriter(path)
	case FormatJSON, "jsonl":
		w, err = NewJSONWriter(path)
	case FormatBoth:
		base := strings.TrimSuffix(path, filepath.Ext(path))
		w, err = NewDualWriter(base+".csv", base+".jsonl")
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}
