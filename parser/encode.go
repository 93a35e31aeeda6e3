package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/aluiziolira/go-auction-lister/models"
)

// Encode writes records as sheet text. The header comes from the first
// record's field order; values containing the delimiter, a quote, a newline
// or leading whitespace are quoted.
func Encode(w io.Writer, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	writer := csv.NewWriter(w)
	writer.Comma = Delimiter

	headers := records[0].Fields()
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	values := make([]string, len(headers))
	for i, rec := range records {
		for j, h := range headers {
			values[j] = rec.Get(h)
		}
		if err := writer.Write(values); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush records: %w", err)
	}
	return nil
}
