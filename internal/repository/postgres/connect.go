package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"

	"medequip-marketplace/internal/logger"
)

// Connect opens the pool and retries Ping with exponential backoff until
// timeout elapses. The database often starts after the service in compose.
func Connect(dsn string, maxOpenConns int, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = timeout

	err = backoff.RetryNotify(db.Ping, bo, func(err error, wait time.Duration) {
		logger.Warn("Database not ready, retrying", "error", err, "retry_in", wait)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
