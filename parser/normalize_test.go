package parser

import "testing"

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "slashes", input: "2024/1/5", expected: "2024-01-05"},
		{name: "dashes", input: "2024-12-31", expected: "2024-12-31"},
		{name: "whitespace", input: " 2024-3-09 ", expected: "2024-03-09"},
		{name: "missing day", input: "2024-03", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "yen suffix", input: "1,000円", expected: "1000"},
		{name: "yen sign", input: " ¥500 ", expected: "500"},
		{name: "already clean", input: "300", expected: "300"},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePrice(tt.input); got != tt.expected {
				t.Errorf("NormalizePrice(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeRelist(t *testing.T) {
	for _, in := range []string{"1", "2", " 3 "} {
		if _, ok := NormalizeRelist(in); !ok {
			t.Errorf("NormalizeRelist(%q) rejected", in)
		}
	}
	for _, in := range []string{"", "0", "4", "two"} {
		if _, ok := NormalizeRelist(in); ok {
			t.Errorf("NormalizeRelist(%q) accepted", in)
		}
	}
}
