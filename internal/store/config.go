package store

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config describes the destination database.
type Config struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite" env-description:"sqlite or postgres"`
	DSN    string `yaml:"dsn" env:"DB_DSN" env-default:"./.data/classifieds.db" env-description:"sqlite path or postgres connection string"`
	Table  string `yaml:"table" env:"DB_TABLE" env-default:"Classifieds"`

	// CommitEvery is the number of handled records after which the open
	// transaction is committed.
	CommitEvery int `yaml:"commit_every" env:"COMMIT_EVERY" env-default:"100"`
}

// Validate checks the store section.
func (c Config) Validate() error {
	var errs []error
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("store: unknown driver %q", c.Driver))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("store: dsn is required"))
	}
	// The connection is closed after every cycle, which would wipe an
	// in-memory database and with it the resume position.
	if c.Driver == DriverSQLite && isMemoryDSN(c.DSN) {
		errs = append(errs, fmt.Errorf("store: in-memory sqlite dsn %q is not supported", c.DSN))
	}
	if !tableNameRe.MatchString(c.Table) {
		errs = append(errs, fmt.Errorf("store: invalid table name %q", c.Table))
	}
	if c.CommitEvery <= 0 {
		errs = append(errs, fmt.Errorf("store: commit_every must be positive, got %d", c.CommitEvery))
	}
	return errors.Join(errs...)
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
