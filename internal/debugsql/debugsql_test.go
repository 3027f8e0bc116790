package debugsql_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Lukasxlama/weather-station-web-app/internal/debugsql"
	"github.com/Lukasxlama/weather-station-web-app/internal/model"
	"github.com/Lukasxlama/weather-station-web-app/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{"plain select", "SELECT * FROM received_packet LIMIT 5", nil},
		{"select without limit", "select timestamp from received_packet", nil},
		{"whitespace and case normalized", "   SELECT Timestamp FROM Received_Packet LIMIT 1   ", nil},
		{"delete rejected", "DELETE FROM received_packet", debugsql.ErrNotSelect},
		{"update rejected", "UPDATE received_packet SET rssi_dbm = 0", debugsql.ErrNotSelect},
		{"garbage rejected", "this is not sql", debugsql.ErrInvalidSyntax},
		{"comment token rejected", "select * from received_packet where raw_hex = 'aa--bb'", debugsql.ErrUnsafeToken},
		{"block comment token rejected", "select * from received_packet where raw_hex = 'a/*b'", debugsql.ErrUnsafeToken},
		{"wrong table forbidden", "SELECT * FROM other_table", debugsql.ErrForbiddenTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := debugsql.Validate(tt.query)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate(%q) = %v, want nil", tt.query, err)
				}
				normalized := strings.ToLower(strings.TrimSpace(tt.query))
				if !strings.HasPrefix(got, normalized) {
					t.Errorf("Validate(%q) = %q, want prefix %q", tt.query, got, normalized)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate(%q) = %v, want %v", tt.query, err, tt.wantErr)
			}
		})
	}
}

func TestValidateMultiStatementRejected(t *testing.T) {
	_, err := debugsql.Validate("SELECT * FROM received_packet; DROP TABLE received_packet")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if errors.Is(err, debugsql.ErrForbiddenTable) {
		t.Fatalf("statement splitting must be a bad-request outcome, got %v", err)
	}
}

func TestValidateInjectsLimit(t *testing.T) {
	got, err := debugsql.Validate("SELECT * FROM received_packet")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.HasSuffix(got, " LIMIT 9999") {
		t.Fatalf("expected injected limit, got %q", got)
	}

	got, err = debugsql.Validate("SELECT * FROM received_packet LIMIT 5")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if strings.Contains(got, "9999") {
		t.Fatalf("limit must not be injected when present, got %q", got)
	}
}

func seededStore(t *testing.T, n int) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), store.Config{Backend: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p := model.Packet{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			RSSIdBm:   -80,
			SNRdB:     7,
			RawHex:    "cafe",
			Sensor: &model.SensorData{
				TemperatureC: 20 + float64(i),
				HumidityPct:  50,
				PressureHPa:  1010,
				GasKOhms:     60,
			},
		}
		if err := st.UpsertPacket(context.Background(), p); err != nil {
			t.Fatalf("seed packet %d: %v", i, err)
		}
	}
	return st
}

func TestExecutorRunsSelect(t *testing.T) {
	st := seededStore(t, 10)
	exec := debugsql.NewExecutor(st.DB(), discardLogger())

	result, err := exec.Run(context.Background(), "SELECT * FROM received_packet LIMIT 5")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(result.Rows))
	}
	if len(result.Columns) == 0 || result.Columns[0] != "timestamp" {
		t.Fatalf("unexpected columns %v", result.Columns)
	}
	for _, row := range result.Rows {
		if len(row) != len(result.Columns) {
			t.Fatalf("row width %d != column count %d", len(row), len(result.Columns))
		}
	}
}

func TestExecutorEmptyResult(t *testing.T) {
	st := seededStore(t, 0)
	exec := debugsql.NewExecutor(st.DB(), discardLogger())

	result, err := exec.Run(context.Background(), "SELECT * FROM received_packet")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(result.Rows))
	}
}

func TestExecutorCellKinds(t *testing.T) {
	st := seededStore(t, 1)
	exec := debugsql.NewExecutor(st.DB(), discardLogger())

	result, err := exec.Run(context.Background(), "SELECT timestamp, rssi_dbm, error, error_type FROM received_packet LIMIT 1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected one row, got %d", len(result.Rows))
	}

	row := result.Rows[0]
	if row[0].Kind != debugsql.KindText {
		t.Errorf("timestamp kind = %v, want text", row[0].Kind)
	}
	if row[1].Kind != debugsql.KindFloat {
		t.Errorf("rssi_dbm kind = %v, want float", row[1].Kind)
	}
	if row[2].Kind != debugsql.KindInteger {
		t.Errorf("error kind = %v, want integer", row[2].Kind)
	}
	if row[3].Kind != debugsql.KindNull {
		t.Errorf("error_type kind = %v, want null", row[3].Kind)
	}
}

func TestExecutorIdempotentReads(t *testing.T) {
	st := seededStore(t, 3)
	exec := debugsql.NewExecutor(st.DB(), discardLogger())

	first, err := exec.Run(context.Background(), "SELECT timestamp FROM received_packet")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := exec.Run(context.Background(), "SELECT timestamp FROM received_packet")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(first.Rows) != len(second.Rows) {
		t.Fatalf("row counts differ: %d vs %d", len(first.Rows), len(second.Rows))
	}
	for i := range first.Rows {
		if first.Rows[i][0] != second.Rows[i][0] {
			t.Errorf("row %d differs between reads", i)
		}
	}
}
