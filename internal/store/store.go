package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Lukasxlama/weather-station-web-app/internal/model"
)

// Config holds connection settings for the packet store.
type Config struct {
	Backend string // "sqlite" or "postgres"
	Path    string // sqlite file path
	DSN     string // postgres connection string
}

// Store wraps the database connection and schema lifecycle for the
// received_packet table.
type Store struct {
	db      *sql.DB
	backend string
	rebind  bool // rewrite ? placeholders to $N for postgres
}

// timeLayout is fixed-width so stored timestamps order lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Open initializes the configured backend and applies the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var s *Store

	switch cfg.Backend {
	case "", "sqlite":
		db, err := openSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		s = &Store{db: db, backend: "sqlite"}
	case "postgres":
		db, err := openPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		s = &Store{db: db, backend: "postgres", rebind: true}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if err := s.initSchema(ctx); err != nil {
		_ = s.db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying sql.DB for callers that need raw access.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := sqliteSchema
	if s.backend == "postgres" {
		schema = postgresSchema
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// q rewrites ? placeholders to $N when the backend needs it.
func (s *Store) q(query string) string {
	if !s.rebind {
		return query
	}

	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// UpsertPacket persists a packet, replacing any prior row with the same
// timestamp.
func (s *Store) UpsertPacket(ctx context.Context, p model.Packet) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	errorFlag := 0
	if p.Error {
		errorFlag = 1
	}

	var temperature, humidity, pressure, gas sql.NullFloat64
	if p.Sensor != nil {
		temperature = sql.NullFloat64{Float64: p.Sensor.TemperatureC, Valid: true}
		humidity = sql.NullFloat64{Float64: p.Sensor.HumidityPct, Valid: true}
		pressure = sql.NullFloat64{Float64: p.Sensor.PressureHPa, Valid: true}
		gas = sql.NullFloat64{Float64: p.Sensor.GasKOhms, Valid: true}
	}

	_, err := s.db.ExecContext(
		ctx,
		s.q(`INSERT INTO received_packet (timestamp, rssi_dbm, snr_db, error, error_type, raw_hex, temperature_c, humidity_pct, pressure_hpa, gas_kohms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(timestamp)
		 DO UPDATE SET rssi_dbm = excluded.rssi_dbm,
				 snr_db = excluded.snr_db,
				 error = excluded.error,
				 error_type = excluded.error_type,
				 raw_hex = excluded.raw_hex,
				 temperature_c = excluded.temperature_c,
				 humidity_pct = excluded.humidity_pct,
				 pressure_hpa = excluded.pressure_hpa,
				 gas_kohms = excluded.gas_kohms;`),
		p.Timestamp.UTC().Format(timeLayout),
		p.RSSIdBm,
		p.SNRdB,
		errorFlag,
		nullString(p.ErrorType),
		p.RawHex,
		temperature,
		humidity,
		pressure,
		gas,
	)
	if err != nil {
		return fmt.Errorf("upsert packet: %w", err)
	}

	return nil
}

// LatestPacket returns the packet with the maximum timestamp, or nil when
// the store is empty.
func (s *Store) LatestPacket(ctx context.Context) (*model.Packet, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT timestamp, rssi_dbm, snr_db, error, error_type, raw_hex, temperature_c, humidity_pct, pressure_hpa, gas_kohms
		 FROM received_packet
		 ORDER BY timestamp DESC
		 LIMIT 1;`)

	p, err := scanPacket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest packet: %w", err)
	}
	return p, nil
}

// PacketsInRange returns all packets with timestamps in [from, to],
// ordered ascending.
func (s *Store) PacketsInRange(ctx context.Context, from, to time.Time) ([]model.Packet, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	rows, err := s.db.QueryContext(
		ctx,
		s.q(`SELECT timestamp, rssi_dbm, snr_db, error, error_type, raw_hex, temperature_c, humidity_pct, pressure_hpa, gas_kohms
		 FROM received_packet
		 WHERE timestamp >= ? AND timestamp <= ?
		 ORDER BY timestamp ASC;`),
		from.UTC().Format(timeLayout),
		to.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query packet range: %w", err)
	}
	defer rows.Close()

	var packets []model.Packet
	for rows.Next() {
		p, err := scanPacket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan packet: %w", err)
		}
		packets = append(packets, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packets: %w", err)
	}

	return packets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPacket(row rowScanner) (*model.Packet, error) {
	var (
		timestampStr string
		rssi, snr    float64
		errorFlag    int
		errorType    sql.NullString
		rawHex       sql.NullString
		temperature  sql.NullFloat64
		humidity     sql.NullFloat64
		pressure     sql.NullFloat64
		gas          sql.NullFloat64
	)

	if err := row.Scan(&timestampStr, &rssi, &snr, &errorFlag, &errorType, &rawHex, &temperature, &humidity, &pressure, &gas); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, timestampStr)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", timestampStr, err)
	}

	p := &model.Packet{
		Timestamp: ts,
		RSSIdBm:   rssi,
		SNRdB:     snr,
		Error:     errorFlag != 0,
		ErrorType: errorType.String,
		RawHex:    rawHex.String,
	}

	if temperature.Valid && humidity.Valid && pressure.Valid && gas.Valid {
		p.Sensor = &model.SensorData{
			TemperatureC: temperature.Float64,
			HumidityPct:  humidity.Float64,
			PressureHPa:  pressure.Float64,
			GasKOhms:     gas.Float64,
		}
	}

	return p, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
