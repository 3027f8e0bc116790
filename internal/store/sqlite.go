package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS received_packet (
	timestamp TEXT PRIMARY KEY,
	rssi_dbm REAL NOT NULL,
	snr_db REAL NOT NULL,
	error INTEGER NOT NULL DEFAULT 0,
	error_type TEXT,
	raw_hex TEXT,
	temperature_c REAL,
	humidity_pct REAL,
	pressure_hpa REAL,
	gas_kohms REAL
);`

func openSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
