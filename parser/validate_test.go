package parser

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantValid    bool
		wantErrors   int
		wantWarnings int
		wantColumns  int
	}{
		{
			name:        "valid sheet",
			input:       sampleSheet,
			wantValid:   true,
			wantColumns: 7,
		},
		{
			name:       "missing data",
			input:      "タイトル,カテゴリ\n",
			wantValid:  false,
			wantErrors: 1,
		},
		{
			name:        "missing columns",
			input:       "タイトル,カテゴリ\nA,B\n",
			wantValid:   false,
			wantErrors:  1,
			wantColumns: 2,
		},
		{
			name:         "count mismatch is a warning",
			input:        strings.TrimSuffix(sampleSheet, "\n") + "\nItemB,Toys\n",
			wantValid:    true,
			wantWarnings: 1,
			wantColumns:  7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)
			if result.Valid != tt.wantValid {
				t.Fatalf("valid=%v, want %v (errors=%v)", result.Valid, tt.wantValid, result.Errors)
			}
			if len(result.Errors) != tt.wantErrors {
				t.Fatalf("errors=%v, want %d", result.Errors, tt.wantErrors)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Fatalf("warnings=%v, want %d", result.Warnings, tt.wantWarnings)
			}
			if result.ColumnCount != tt.wantColumns {
				t.Fatalf("columns=%d, want %d", result.ColumnCount, tt.wantColumns)
			}
		})
	}
}

func TestValidateWarningNamesLine(t *testing.T) {
	result := Validate("a,b\n1,2\n\n3\n")
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings=%v, want 1", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], "line 4") {
		t.Fatalf("warning should name source line 4: %q", result.Warnings[0])
	}
}

func TestMissingFields(t *testing.T) {
	missing := MissingFields([]string{"タイトル", "カテゴリ", "説明", "開始価格", "即決価格", "開催期間"})
	if len(missing) != 1 || missing[0] != "終了時間" {
		t.Fatalf("missing=%v, want [終了時間]", missing)
	}
}
