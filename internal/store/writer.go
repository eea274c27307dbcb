package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/classifieds"
)

// Outcome is the result of writing one record.
type Outcome int

const (
	Inserted Outcome = iota + 1
	DuplicateKey
	ConnectivityFailure
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case DuplicateKey:
		return "duplicate_key"
	case ConnectivityFailure:
		return "connectivity_failure"
	default:
		return "unknown"
	}
}

// Injector can fail storage operations on purpose. Satisfied by *chaos.Chaos.
type Injector interface {
	MaybeFail(ctx context.Context, op string) error
}

// Operation names passed to Injector.
const (
	OpWrite  = "write"
	OpCommit = "commit"
)

// Writer inserts classifieds inside a transaction that is committed every
// CommitEvery handled records. A Writer serves a single stream session.
type Writer struct {
	conn      *Conn
	threshold int
	injector  Injector

	insertFree   string
	insertPriced string

	tx       *sql.Tx
	pending  int
	last     int64
	position int64
	commits  int
}

// NewWriter returns a Writer whose resume position starts at position.
func NewWriter(conn *Conn, position int64, injector Injector) *Writer {
	table := conn.cfg.Table
	return &Writer{
		conn:      conn,
		threshold: conn.cfg.CommitEvery,
		injector:  injector,
		insertFree: `INSERT INTO ` + table + ` (id, customer_id, created_at, text, ad_type, "offset")
			VALUES (` + conn.placeholders(6) + `) ON CONFLICT (id) DO NOTHING`,
		insertPriced: `INSERT INTO ` + table + ` (id, customer_id, created_at, text, ad_type, price, currency, payment_type, payment_cost, "offset")
			VALUES (` + conn.placeholders(10) + `) ON CONFLICT (id) DO NOTHING`,
		last:     position,
		position: position,
	}
}

// Position is the offset of the last handled record included in a commit.
func (w *Writer) Position() int64 {
	return w.position
}

// Pending is the number of handled records not yet committed.
func (w *Writer) Pending() int {
	return w.pending
}

// Commits is the number of commits that made records durable.
func (w *Writer) Commits() int {
	return w.commits
}

// Write inserts rec, stored with offset. A DuplicateKey outcome comes with a
// *DuplicateKeyError; ConnectivityFailure comes with an error wrapping
// ErrConnectivity and leaves the Writer unusable until Rollback.
func (w *Writer) Write(ctx context.Context, rec classifieds.Classified, offset int64) (Outcome, error) {
	tx, err := w.begin(ctx)
	if err != nil {
		return ConnectivityFailure, err
	}
	if err := w.inject(ctx, OpWrite); err != nil {
		return ConnectivityFailure, err
	}

	var res sql.Result
	switch r := rec.(type) {
	case classifieds.Free:
		res, err = tx.ExecContext(ctx, w.insertFree,
			r.ID, r.CustomerID, r.CreatedAt, r.Text, r.AdType, offset)
	case classifieds.Priced:
		res, err = tx.ExecContext(ctx, w.insertPriced,
			r.ID, r.CustomerID, r.CreatedAt, r.Text, r.AdType,
			r.Price, r.Currency, r.PaymentType, r.PaymentCost, offset)
	default:
		return ConnectivityFailure, fmt.Errorf("%w: unsupported record type %T", ErrConnectivity, rec)
	}

	outcome := Inserted
	var dupErr error
	switch {
	case err != nil && IsUniqueViolation(err):
		code, _ := NativeCode(err)
		outcome, dupErr = DuplicateKey, &DuplicateKeyError{ID: rec.Base().ID, Code: code, Err: err}
	case err != nil:
		return ConnectivityFailure, fmt.Errorf("%w: insert %q: %w", ErrConnectivity, rec.Base().ID, err)
	default:
		n, err := res.RowsAffected()
		if err != nil {
			return ConnectivityFailure, fmt.Errorf("%w: rows affected: %w", ErrConnectivity, err)
		}
		if n == 0 {
			outcome, dupErr = DuplicateKey, &DuplicateKeyError{ID: rec.Base().ID}
		}
	}

	if err := w.handled(ctx, offset); err != nil {
		return ConnectivityFailure, err
	}
	return outcome, dupErr
}

// Skip marks a record that was discarded before reaching the table as
// handled, so it counts toward the batch.
func (w *Writer) Skip(ctx context.Context, offset int64) error {
	return w.handled(ctx, offset)
}

func (w *Writer) handled(ctx context.Context, offset int64) error {
	w.pending++
	w.last = offset
	if w.pending >= w.threshold {
		return w.Flush(ctx)
	}
	return nil
}

// Flush commits everything handled so far and advances Position. It is a
// no-op when nothing is pending.
func (w *Writer) Flush(ctx context.Context) error {
	if w.pending == 0 {
		return nil
	}
	if w.tx != nil {
		if err := w.inject(ctx, OpCommit); err != nil {
			return err
		}
		err := w.tx.Commit()
		w.tx = nil
		if err != nil {
			return fmt.Errorf("%w: commit: %w", ErrConnectivity, err)
		}
		w.commits++
	}
	w.position = w.last
	w.pending = 0
	return nil
}

// Rollback discards uncommitted work. Position is left untouched.
func (w *Writer) Rollback() error {
	w.pending = 0
	w.last = w.position
	if w.tx == nil {
		return nil
	}
	err := w.tx.Rollback()
	w.tx = nil
	if err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}

func (w *Writer) begin(ctx context.Context) (*sql.Tx, error) {
	if w.tx != nil {
		return w.tx, nil
	}
	db, err := w.conn.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %w", ErrConnectivity, err)
	}
	w.tx = tx
	return tx, nil
}

func (w *Writer) inject(ctx context.Context, op string) error {
	if w.injector == nil {
		return nil
	}
	if err := w.injector.MaybeFail(ctx, op); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectivity, op, err)
	}
	return nil
}
