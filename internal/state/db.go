// ./internal/state/db.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool. It stays nil when the audit
// store is not configured; callers must treat a nil pool as "auditing
// disabled", not as an error.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		DB = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS transaction_batches (
			batch_id SERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			strategy_id VARCHAR(255) NOT NULL,
			protocol VARCHAR(64) NOT NULL,
			strategy_type VARCHAR(64) NOT NULL,
			action VARCHAR(32) NOT NULL,
			chain_id INTEGER NOT NULL,
			user_address VARCHAR(64) NOT NULL,
			amount_decimal DECIMAL(38, 18) NOT NULL,
			step_count INTEGER NOT NULL,
			steps JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_transaction_batches_strategy ON transaction_batches(strategy_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transaction_batches_user ON transaction_batches(user_address, created_at DESC);
	`

	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info().Msg("Database schema verified/created successfully")
	return nil
}
