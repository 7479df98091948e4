package output

import (
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": JSON, "TEXT": Text} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		format Format
		want   string
	}{
		{"json object", map[string]any{"DomainName": "logs"}, JSON, "{\n  \"DomainName\": \"logs\"\n}\n"},
		{"json nil", nil, JSON, "null\n"},
		{"text nil", nil, Text, ""},
		{"text string", "search-logs.es.amazonaws.com", Text, "search-logs.es.amazonaws.com\n"},
		{"text number", float64(3), Text, "3\n"},
		{"text list", []any{"7.10", "6.8"}, Text, "7.10\n6.8\n"},
		{"text string list", []string{"a", "b"}, Text, "a\nb\n"},
		{"text object list", []any{map[string]any{"Key": "team"}}, Text, "{\"Key\":\"team\"}\n"},
		{"text object", map[string]any{"Enabled": true}, Text, "{\"Enabled\":true}\n"},
		{"text bytes", []byte("<p>Hej</p>"), Text, "<p>Hej</p>"},
		{"json bytes", []byte("Hej"), JSON, "\"SGVq\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			if err := Write(&b, tt.value, tt.format); err != nil {
				t.Fatalf("Write() error: %v", err)
			}
			if b.String() != tt.want {
				t.Errorf("Write() = %q, want %q", b.String(), tt.want)
			}
		})
	}
}
