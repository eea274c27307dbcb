package store

import (
	"context"
	"database/sql"
	"fmt"
)

// NoRows is the resume position of an empty table.
const NoRows int64 = -1

// OffsetStore reads progress back from the destination table.
type OffsetStore struct {
	conn  *Conn
	table string
}

// NewOffsetStore returns an OffsetStore over conn.
func NewOffsetStore(conn *Conn) *OffsetStore {
	return &OffsetStore{conn: conn, table: conn.cfg.Table}
}

// ResumePosition returns the highest stored offset, or NoRows.
// Every failure wraps ErrStoreUnreachable.
func (s *OffsetStore) ResumePosition(ctx context.Context) (int64, error) {
	db, err := s.conn.DB(ctx)
	if err != nil {
		return NoRows, fmt.Errorf("%w: %w", ErrStoreUnreachable, err)
	}

	var maxOffset sql.NullInt64
	err = db.QueryRowContext(ctx, `SELECT MAX("offset") FROM `+s.table).Scan(&maxOffset)
	if err != nil {
		return NoRows, fmt.Errorf("%w: read max offset from %s: %w", ErrStoreUnreachable, s.table, err)
	}
	if !maxOffset.Valid {
		return NoRows, nil
	}
	return maxOffset.Int64, nil
}
