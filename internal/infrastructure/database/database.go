package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"signflow/internal/config"
)

type Database struct {
	DB     *sql.DB
	logger *zap.Logger
}

// NewDatabase connects to PostgreSQL and applies the schema.
// With the memory driver no connection is opened and DB stays nil.
func NewDatabase(cfg *config.Config, logger *zap.Logger) (*Database, error) {
	if cfg.Database.IsMemory() {
		logger.Info("Memory store selected, skipping database connection")
		return &Database{logger: logger}, nil
	}

	// Build PostgreSQL connection string
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connected successfully",
		zap.String("driver", cfg.Database.Driver),
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("dbname", cfg.Database.DBName),
	)

	database := &Database{
		DB:     db,
		logger: logger,
	}

	// Run migrations
	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

var schema = []struct {
	name string
	sql  string
}{
	{"envelopes", `
	CREATE TABLE IF NOT EXISTS envelopes (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
		signing_order VARCHAR(20) NOT NULL DEFAULT 'PARALLEL',
		user_id BIGINT NOT NULL,
		team_id BIGINT,
		meta JSONB NOT NULL DEFAULT '{}',
		auth_options JSONB NOT NULL DEFAULT '{}',
		page_count INTEGER NOT NULL DEFAULT 0,
		document_data BYTEA,
		completed_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`},
	{"recipients", `
	CREATE TABLE IF NOT EXISTS recipients (
		id BIGSERIAL PRIMARY KEY,
		envelope_id BIGINT NOT NULL REFERENCES envelopes(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL,
		token VARCHAR(64) NOT NULL UNIQUE,
		role VARCHAR(20) NOT NULL DEFAULT 'SIGNER',
		signing_order INTEGER,
		signing_status VARCHAR(20) NOT NULL DEFAULT 'NOT_SIGNED',
		send_status VARCHAR(20) NOT NULL DEFAULT 'NOT_SENT',
		auth_options JSONB NOT NULL DEFAULT '{}',
		signed_at TIMESTAMP,
		rejection_reason TEXT NOT NULL DEFAULT ''
	);`},
	{"fields", `
	CREATE TABLE IF NOT EXISTS fields (
		id BIGSERIAL PRIMARY KEY,
		envelope_id BIGINT NOT NULL REFERENCES envelopes(id) ON DELETE CASCADE,
		recipient_id BIGINT NOT NULL REFERENCES recipients(id) ON DELETE CASCADE,
		type VARCHAR(20) NOT NULL,
		page INTEGER NOT NULL,
		position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
		position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
		width DOUBLE PRECISION NOT NULL DEFAULT 0,
		height DOUBLE PRECISION NOT NULL DEFAULT 0,
		inserted BOOLEAN NOT NULL DEFAULT FALSE,
		autosign BOOLEAN NOT NULL DEFAULT FALSE,
		custom_text TEXT NOT NULL DEFAULT '',
		meta JSONB NOT NULL DEFAULT '{}'
	);`},
	{"signatures", `
	CREATE TABLE IF NOT EXISTS signatures (
		id BIGSERIAL PRIMARY KEY,
		field_id BIGINT NOT NULL UNIQUE REFERENCES fields(id) ON DELETE CASCADE,
		recipient_id BIGINT NOT NULL REFERENCES recipients(id) ON DELETE CASCADE,
		typed_signature TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`},
	{"audit_logs", `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		envelope_id BIGINT NOT NULL REFERENCES envelopes(id) ON DELETE CASCADE,
		type VARCHAR(64) NOT NULL,
		data JSONB NOT NULL DEFAULT '{}',
		name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		user_id BIGINT,
		ip_address VARCHAR(64) NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`},
	{"indexes", `
	CREATE INDEX IF NOT EXISTS idx_recipients_envelope_id ON recipients(envelope_id);
	CREATE INDEX IF NOT EXISTS idx_fields_envelope_id ON fields(envelope_id);
	CREATE INDEX IF NOT EXISTS idx_fields_recipient_id ON fields(recipient_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_envelope_id ON audit_logs(envelope_id, created_at);
	`},
}

func (d *Database) migrate() error {
	for _, step := range schema {
		if _, err := d.DB.Exec(step.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", step.name, err)
		}
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}

func (d *Database) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
