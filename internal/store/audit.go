package store

import (
	"context"
	"fmt"

	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/classifieds"
)

// Audit summarises the destination table.
type Audit struct {
	Rows       int64
	FreeRows   int64
	PricedRows int64
	// FreeWithPayment counts Free rows that carry any payment column.
	FreeWithPayment int64
	// PricedMissingPayment counts priced rows lacking any payment column.
	PricedMissingPayment int64
	MaxOffset            int64
}

// Consistent reports whether every row has one of the two complete shapes.
func (a Audit) Consistent() bool {
	return a.FreeWithPayment == 0 && a.PricedMissingPayment == 0
}

// AuditTable counts rows per shape and finds the highest stored offset.
func AuditTable(ctx context.Context, conn *Conn) (Audit, error) {
	a := Audit{MaxOffset: NoRows}

	pos, err := NewOffsetStore(conn).ResumePosition(ctx)
	if err != nil {
		return a, err
	}
	a.MaxOffset = pos

	db, err := conn.DB(ctx)
	if err != nil {
		return a, fmt.Errorf("%w: %w", ErrStoreUnreachable, err)
	}

	anyPayment := `(price IS NOT NULL OR currency IS NOT NULL OR payment_type IS NOT NULL OR payment_cost IS NOT NULL)`
	missingPayment := `(price IS NULL OR currency IS NULL OR payment_type IS NULL OR payment_cost IS NULL)`
	query := fmt.Sprintf(`SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN ad_type = '%[1]s' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN ad_type = '%[1]s' AND %[2]s THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN ad_type <> '%[1]s' AND %[3]s THEN 1 ELSE 0 END), 0)
		FROM %[4]s`, classifieds.FreeAdType, anyPayment, missingPayment, conn.cfg.Table)

	err = db.QueryRowContext(ctx, query).Scan(&a.Rows, &a.FreeRows, &a.FreeWithPayment, &a.PricedMissingPayment)
	if err != nil {
		return a, fmt.Errorf("audit %s: %w", conn.cfg.Table, err)
	}
	a.PricedRows = a.Rows - a.FreeRows
	return a, nil
}
