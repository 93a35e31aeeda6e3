// Package parser turns listing sheets into records.
package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/aluiziolira/go-auction-lister/models"
)

// Delimiter separates fields in a listing sheet.
const Delimiter = ','

// FormatError reports a listing sheet that cannot be turned into records.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format: %s: %v", e.Reason, e.Err)
	}
	return "format: " + e.Reason
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

type row struct {
	fields []string
	line   int
}

// blank reports a row produced by a whitespace-only source line.
func (r row) blank() bool {
	return len(r.fields) == 1 && r.fields[0] == ""
}

func (r row) empty() bool {
	for _, f := range r.fields {
		if f != "" {
			return false
		}
	}
	return true
}

// Parse converts sheet text into records. The first non-blank line is the
// header; rows whose every field is empty are skipped.
func Parse(text string) ([]models.Record, error) {
	rows, err := readRows(text)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, &FormatError{Reason: "a header line and at least one data line are required"}
	}

	headers := rows[0].fields
	if rows[0].empty() {
		return nil, &FormatError{Reason: "header line has no fields"}
	}

	records := make([]models.Record, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if r.empty() {
			continue
		}
		records = append(records, models.NewRecord(headers, r.fields))
	}
	return records, nil
}

// ParseFile reads, decodes and parses the sheet at path.
func ParseFile(path string, enc Encoding) ([]models.Record, error) {
	text, err := ReadFile(path, enc)
	if err != nil {
		return nil, err
	}
	return Parse(text)
}

// ReadFile reads and decodes the sheet at path.
func ReadFile(path string, enc Encoding) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read sheet %q: %w", path, err)
	}
	text, err := Decode(data, enc)
	if err != nil {
		return "", fmt.Errorf("decode sheet %q: %w", path, err)
	}
	return text, nil
}

// readRows splits text into trimmed rows, dropping whitespace-only lines.
// A quote anywhere in a field toggles quoting; inside quotes the delimiter
// and newlines are literal and "" is one quote. Fields are trimmed after
// unquoting, so ` "a, b"` yields `a, b`.
func readRows(text string) ([]row, error) {
	text = strings.TrimPrefix(text, bom)

	var (
		rows     []row
		fields   []string
		field    strings.Builder
		inQuotes bool
		line     = 1
		start    = 1
	)
	endField := func() {
		fields = append(fields, strings.TrimSpace(field.String()))
		field.Reset()
	}
	endRow := func() {
		endField()
		r := row{fields: fields, line: start}
		if !r.blank() {
			rows = append(rows, r)
		}
		fields = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(text) && text[i+1] == '"' {
				field.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == '\r' && i+1 < len(text) && text[i+1] == '\n':
			// folded into the following newline
		case c == '\n':
			line++
			if inQuotes {
				field.WriteByte('\n')
				continue
			}
			endRow()
			start = line
		case c == Delimiter && !inQuotes:
			endField()
		default:
			field.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, &FormatError{Reason: fmt.Sprintf("line %d: unterminated quoted field", start)}
	}
	if field.Len() > 0 || len(fields) > 0 {
		endRow()
	}
	return rows, nil
}
