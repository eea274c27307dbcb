package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Conn is the destination connection handle. It is opened on first use
// and must be closed by its owner at the end of every ingestion cycle.
type Conn struct {
	cfg    Config
	logger *zap.Logger
	db     *sql.DB
}

// NewConn returns an unopened handle.
func NewConn(cfg Config, logger *zap.Logger) *Conn {
	return &Conn{cfg: cfg, logger: logger}
}

// DB returns the open database, opening it and bootstrapping the table
// if needed.
func (c *Conn) DB(ctx context.Context) (*sql.DB, error) {
	if c.db != nil {
		return c.db, nil
	}

	driver, dsn, err := c.driverDSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(ctx, db, c.cfg.Table); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	c.logger.Info("connected to destination database",
		zap.String("driver", c.cfg.Driver),
		zap.String("table", c.cfg.Table),
	)
	c.db = db
	return db, nil
}

// Open reports whether the handle currently holds a live database.
func (c *Conn) Open() bool {
	return c.db != nil
}

// Close closes the database if it was opened. The handle can be reused.
func (c *Conn) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.logger.Debug("closed destination database")
	return err
}

func (c *Conn) driverDSN() (string, string, error) {
	switch c.cfg.Driver {
	case DriverSQLite:
		dsn := c.cfg.DSN
		if isMemoryDSN(dsn) {
			return "", "", fmt.Errorf("in-memory sqlite dsn %q is not supported", dsn)
		}
		if !strings.HasPrefix(dsn, "file:") {
			path, _, _ := strings.Cut(dsn, "?")
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return "", "", fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "_pragma=busy_timeout") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=busy_timeout(5000)"
		}
		return "sqlite", dsn, nil
	case DriverPostgres:
		return "pgx", c.cfg.DSN, nil
	default:
		return "", "", fmt.Errorf("unknown driver %q", c.cfg.Driver)
	}
}

// placeholders returns n bind parameters for the configured driver.
func (c *Conn) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		if c.cfg.Driver == DriverPostgres {
			ps[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ps[i] = "?"
		}
	}
	return strings.Join(ps, ", ")
}

func migrate(ctx context.Context, db *sql.DB, table string) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			text TEXT NOT NULL,
			ad_type TEXT NOT NULL,
			price DOUBLE PRECISION NULL,
			currency TEXT NULL,
			payment_type TEXT NULL,
			payment_cost DOUBLE PRECISION NULL,
			"offset" BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + strings.ToLower(table) + `_offset ON ` + table + ` ("offset")`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}
