// Package ingest drives the drain cycle: resolve the resume position from the
// destination table, read the partition from just after it, and write every
// record until the stream goes idle.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/classifieds"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/metrics"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/msg"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/store"
)

// Session is one attachment to the stream partition.
type Session interface {
	// Next blocks up to the idle timeout and reports ok=false when idle.
	Next(ctx context.Context) (rec msg.Record, ok bool, err error)
	Close()
}

// Opener opens a session positioned at from, or at the earliest record
// when from is msg.FromStart.
type Opener func(ctx context.Context, from int64) (Session, error)

// DeadLetterer receives the payloads that could not be classified.
type DeadLetterer interface {
	Publish(ctx context.Context, rec msg.Record, reason error) error
}

// Readiness is told whether the destination answered.
type Readiness interface {
	SetStoreReady(ready bool)
}

// Options configures an Ingestor. Open and Conn are required.
type Options struct {
	Open       Opener
	Conn       *store.Conn
	Injector   store.Injector
	DeadLetter DeadLetterer
	Readiness  Readiness
	RetryAfter time.Duration
	Logger     *zap.Logger
}

// Summary describes one drain cycle.
type Summary struct {
	CycleID    string
	From       int64
	Seen       int
	Inserted   int
	Duplicates int
	Discarded  int
	Errored    int
	Commits    int
	Position   int64
	Aborted    bool
}

// Ingestor runs drain cycles forever. It is not safe for concurrent use.
type Ingestor struct {
	open       Opener
	conn       *store.Conn
	offsets    *store.OffsetStore
	injector   store.Injector
	deadLetter DeadLetterer
	readiness  Readiness
	retryAfter time.Duration
	logger     *zap.Logger

	position   int64
	storeReady bool
}

// New returns an Ingestor whose resume position is still unknown.
func New(opts Options) *Ingestor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		open:       opts.Open,
		conn:       opts.Conn,
		offsets:    store.NewOffsetStore(opts.Conn),
		injector:   opts.Injector,
		deadLetter: opts.DeadLetter,
		readiness:  opts.Readiness,
		retryAfter: opts.RetryAfter,
		logger:     logger,
		position:   store.NoRows,
	}
}

// Position is the in-memory resume position.
func (i *Ingestor) Position() int64 {
	return i.position
}

// Run repeats Cycle, sleeping RetryAfter between cycles, until ctx is
// cancelled (nil is returned) or the resume position cannot be resolved.
func (i *Ingestor) Run(ctx context.Context) error {
	for {
		if _, err := i.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		i.logger.Debug("sleeping before next cycle", zap.Duration("retry_after", i.retryAfter))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(i.retryAfter):
		}
	}
}

// Cycle runs one drain cycle. The only errors returned are a failure to
// resolve the resume position (wrapping store.ErrStoreUnreachable) and
// context cancellation; session and storage failures end the cycle early
// and are reported through the Summary.
func (i *Ingestor) Cycle(ctx context.Context) (Summary, error) {
	defer func() {
		if err := i.conn.Close(); err != nil {
			i.logger.Warn("failed to close destination connection", zap.Error(err))
		}
	}()

	sum := Summary{CycleID: uuid.NewString()}
	logger := i.logger.With(zap.String("cycle_id", sum.CycleID))

	if err := i.resolve(ctx, logger); err != nil {
		return sum, err
	}

	sum.From = msg.FromStart
	if i.position != store.NoRows {
		sum.From = i.position + 1
	}
	sum.Position = i.position

	sess, err := i.open(ctx, sum.From)
	if err != nil {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		logger.Error("failed to open stream session", zap.Int64("from_offset", sum.From), zap.Error(err))
		sum.Aborted = true
		metrics.CyclesTotal.WithLabelValues("session_error").Inc()
		return sum, nil
	}
	defer sess.Close()

	if sum.From == msg.FromStart {
		logger.Info("reading from the earliest offset")
	} else {
		logger.Info("reading from offset", zap.Int64("from_offset", sum.From))
	}

	w := store.NewWriter(i.conn, i.position, i.injector)
	err = i.drain(ctx, logger, sess, w, &sum)
	metrics.CommitsTotal.Add(float64(w.Commits()))

	if err != nil {
		if rbErr := w.Rollback(); rbErr != nil {
			logger.Warn("rollback failed", zap.Error(rbErr))
		}
		if errors.Is(err, store.ErrConnectivity) && ctx.Err() == nil {
			i.setStoreReady(false)
		}
		i.advance(w.Position(), &sum)
		sum.Commits = w.Commits()
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		sum.Aborted = true
		metrics.CyclesTotal.WithLabelValues("aborted").Inc()
		logger.Warn("session abandoned",
			zap.Int("seen", sum.Seen),
			zap.Int("inserted", sum.Inserted),
			zap.Int("errored", sum.Errored),
			zap.Int64("resume_position", i.position),
		)
		return sum, nil
	}

	sum.Commits = w.Commits()
	if sum.Inserted+sum.Duplicates > 0 || sum.Commits > 0 {
		i.setStoreReady(true)
	}
	if sum.Seen == 0 {
		logger.Info("no new messages found")
		metrics.CyclesTotal.WithLabelValues("empty").Inc()
		return sum, nil
	}

	metrics.CyclesTotal.WithLabelValues("drained").Inc()
	logger.Info("messages processed",
		zap.Int("seen", sum.Seen),
		zap.Int("inserted", sum.Inserted),
		zap.Int("errored", sum.Errored),
		zap.Int("duplicates", sum.Duplicates),
		zap.Int("discarded", sum.Discarded),
		zap.Int("commits", sum.Commits),
		zap.Int64("resume_position", i.position),
	)
	return sum, nil
}

// resolve reads the resume position from the table unless a previous cycle
// already established it. A store marked unready by an earlier cycle is
// pinged again so readiness recovers even when no records arrive.
func (i *Ingestor) resolve(ctx context.Context, logger *zap.Logger) error {
	if i.position != store.NoRows {
		if !i.storeReady {
			if _, err := i.conn.DB(ctx); err != nil {
				logStoreError(logger, "destination store still unreachable", err)
			} else {
				i.setStoreReady(true)
			}
		}
		return nil
	}

	pos, err := i.offsets.ResumePosition(ctx)
	i.setStoreReady(err == nil)
	if err != nil {
		code, message := store.NativeCode(err)
		logger.Error("failed to read resume position",
			zap.String("db_code", code),
			zap.String("db_message", message),
			zap.Error(err),
		)
		return err
	}

	i.position = pos
	metrics.ResumePosition.Set(float64(pos))
	logger.Info("resume position resolved from table", zap.Int64("resume_position", pos))
	return nil
}

// drain handles records until the session idles out. A non-nil error means
// the session must be abandoned without a trailing commit.
func (i *Ingestor) drain(ctx context.Context, logger *zap.Logger, sess Session, w *store.Writer, sum *Summary) error {
	for {
		rec, ok, err := sess.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// The store is still fine: keep what was handled.
			logger.Warn("stream fetch failed, ending session", zap.Error(err))
			break
		}
		if !ok {
			break
		}

		sum.Seen++
		if err := i.handle(ctx, logger, w, rec, sum); err != nil {
			return err
		}
		i.advance(w.Position(), sum)
	}

	if err := w.Flush(ctx); err != nil {
		logStoreError(logger, "trailing commit failed", err)
		return err
	}
	i.advance(w.Position(), sum)
	return nil
}

func (i *Ingestor) handle(ctx context.Context, logger *zap.Logger, w *store.Writer, rec msg.Record, sum *Summary) error {
	c, err := classifieds.Classify(rec.Value)
	if err != nil {
		sum.Discarded++
		sum.Errored++
		kind := classifieds.KindOf(err)
		metrics.RecordsTotal.WithLabelValues(kind.String()).Inc()
		logger.Error("discarding message",
			zap.Int("seq", sum.Seen),
			zap.Int64("offset", rec.Offset),
			zap.Stringer("kind", kind),
			zap.Error(err),
			zap.ByteString("payload", rec.Value),
		)
		if i.deadLetter != nil {
			if dlErr := i.deadLetter.Publish(ctx, rec, err); dlErr != nil {
				logger.Warn("failed to dead-letter message", zap.Int64("offset", rec.Offset), zap.Error(dlErr))
			}
		}
		if err := w.Skip(ctx, rec.Offset); err != nil {
			logStoreError(logger, "commit failed", err)
			return err
		}
		return nil
	}

	start := time.Now()
	outcome, err := w.Write(ctx, c, rec.Offset)
	metrics.WriteLatency.Observe(time.Since(start).Seconds())
	metrics.RecordsTotal.WithLabelValues(outcome.String()).Inc()

	switch outcome {
	case store.Inserted:
		sum.Inserted++
	case store.DuplicateKey:
		sum.Duplicates++
		sum.Errored++
		code, message := store.NativeCode(err)
		logger.Error("duplicate key, record skipped",
			zap.Int("seq", sum.Seen),
			zap.Int64("offset", rec.Offset),
			zap.String("id", c.Base().ID),
			zap.String("db_code", code),
			zap.String("db_message", message),
		)
	default:
		sum.Errored++
		logStoreError(logger.With(zap.Int64("offset", rec.Offset)), "write failed, abandoning session", err)
		if err == nil {
			err = store.ErrConnectivity
		}
		return err
	}
	return nil
}

// StoreReady reports whether the last storage interaction succeeded.
func (i *Ingestor) StoreReady() bool {
	return i.storeReady
}

func (i *Ingestor) setStoreReady(ready bool) {
	i.storeReady = ready
	if i.readiness != nil {
		i.readiness.SetStoreReady(ready)
	}
}

func (i *Ingestor) advance(pos int64, sum *Summary) {
	if pos != i.position {
		i.position = pos
		metrics.ResumePosition.Set(float64(pos))
	}
	sum.Position = i.position
}

func logStoreError(logger *zap.Logger, message string, err error) {
	code, native := store.NativeCode(err)
	logger.Error(message,
		zap.String("db_code", code),
		zap.String("db_message", native),
		zap.Bool("connectivity", errors.Is(err, store.ErrConnectivity)),
		zap.Error(err),
	)
}
