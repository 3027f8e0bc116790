package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS received_packet (
	timestamp TEXT PRIMARY KEY,
	rssi_dbm DOUBLE PRECISION NOT NULL,
	snr_db DOUBLE PRECISION NOT NULL,
	error INTEGER NOT NULL DEFAULT 0,
	error_type TEXT,
	raw_hex TEXT,
	temperature_c DOUBLE PRECISION,
	humidity_pct DOUBLE PRECISION,
	pressure_hpa DOUBLE PRECISION,
	gas_kohms DOUBLE PRECISION
);`

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}
