package debugsql

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValueMarshalJSON(t *testing.T) {
	ts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"null", Value{Kind: KindNull}, `null`},
		{"text", Value{Kind: KindText, Text: "deadbeef"}, `"deadbeef"`},
		{"integer", Value{Kind: KindInteger, Integer: 42}, `42`},
		{"float", Value{Kind: KindFloat, Float: -72.5}, `-72.5`},
		{"bool", Value{Kind: KindBool, Bool: true}, `true`},
		{"timestamp", Value{Kind: KindTimestamp, Timestamp: ts}, `"2025-06-01T10:00:00Z"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.value)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValueOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Kind
	}{
		{"nil", nil, KindNull},
		{"string", "x", KindText},
		{"bytes", []byte("x"), KindText},
		{"int64", int64(1), KindInteger},
		{"float64", 1.5, KindFloat},
		{"bool", true, KindBool},
		{"time", time.Now(), KindTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := valueOf(tt.in)
			if err != nil {
				t.Fatalf("valueOf(%v): %v", tt.in, err)
			}
			if v.Kind != tt.want {
				t.Errorf("kind = %v, want %v", v.Kind, tt.want)
			}
		})
	}

	if _, err := valueOf(struct{}{}); err == nil {
		t.Error("expected error for unsupported type")
	}
}
