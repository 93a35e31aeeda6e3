package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

// Encoding names a supported sheet encoding.
type Encoding string

const (
	UTF8     Encoding = "utf-8"
	ShiftJIS Encoding = "shift_jis"
)

const bom = "\ufeff"

// ErrInvalidUTF8 is returned when UTF-8 input contains invalid sequences.
var ErrInvalidUTF8 = errors.New("input is not valid UTF-8 (try --encoding shift_jis)")

// ParseEncoding maps user input to a supported encoding. The empty string
// selects UTF-8.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "shift_jis", "shift-jis", "shiftjis", "sjis", "cp932", "windows-31j":
		return ShiftJIS, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q: use utf-8 or shift_jis", name)
	}
}

// Decode converts raw sheet bytes to text. The encoding is never sniffed.
func Decode(data []byte, enc Encoding) (string, error) {
	switch enc {
	case "", UTF8:
		if !utf8.Valid(data) {
			return "", ErrInvalidUTF8
		}
		return strings.TrimPrefix(string(data), bom), nil
	case ShiftJIS:
		out, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decode shift_jis: %w", err)
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", enc)
	}
}
