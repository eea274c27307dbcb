package chaos

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInjected is returned for every dropped operation.
var ErrInjected = errors.New("chaos: injected failure")

// Chaos provides deterministic failure injection for storage operations.
// A nil *Chaos injects nothing.
type Chaos struct {
	cfg    Config
	logger *zap.Logger
	rng    *rand.Rand
	mu     sync.Mutex
	start  time.Time
}

// New creates a new Chaos instance
func New(cfg Config, logger *zap.Logger) *Chaos {
	if cfg.Profile != "" {
		dropPct, delayMin, delayMax, err := ParseProfile(cfg.Profile)
		if err != nil {
			logger.Warn("failed to parse chaos profile", zap.Error(err))
		} else {
			if dropPct > 0 {
				cfg.DropPct = dropPct
			}
			if delayMin > 0 || delayMax > 0 {
				cfg.DelayMsMin = delayMin
				cfg.DelayMsMax = delayMax
			}
		}
	}

	if cfg.Enabled {
		logger.Warn("chaos enabled",
			zap.String("target_op", cfg.TargetOp),
			zap.Int("drop_pct", cfg.DropPct),
			zap.Int("delay_ms_min", cfg.DelayMsMin),
			zap.Int("delay_ms_max", cfg.DelayMsMax),
			zap.Int("window_ms", cfg.WindowMs),
		)
	}

	return &Chaos{
		cfg:    cfg,
		logger: logger,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		start:  time.Now(),
	}
}

// EnabledFor checks if chaos applies to op
func (c *Chaos) EnabledFor(op string) bool {
	if c == nil || !c.cfg.Enabled {
		return false
	}

	if c.cfg.WindowMs > 0 && time.Since(c.start).Milliseconds() > int64(c.cfg.WindowMs) {
		return false
	}

	return c.cfg.TargetOp == "" || c.cfg.TargetOp == op
}

// MaybeDelay injects a random delay if chaos is enabled
func (c *Chaos) MaybeDelay(ctx context.Context, op string) error {
	if !c.EnabledFor(op) {
		return nil
	}
	if c.cfg.DelayMsMin == 0 && c.cfg.DelayMsMax == 0 {
		return nil
	}

	c.mu.Lock()
	delayMs := c.cfg.DelayMsMin
	if c.cfg.DelayMsMax > c.cfg.DelayMsMin {
		delayMs += c.rng.Intn(c.cfg.DelayMsMax - c.cfg.DelayMsMin + 1)
	}
	c.mu.Unlock()

	if delayMs <= 0 {
		return nil
	}

	c.logger.Info("chaos delay injected",
		zap.String("op", op),
		zap.Int("delay_ms", delayMs),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(delayMs) * time.Millisecond):
		return nil
	}
}

// MaybeDrop returns true if the operation should fail
func (c *Chaos) MaybeDrop(op string) bool {
	if !c.EnabledFor(op) || c.cfg.DropPct == 0 {
		return false
	}

	c.mu.Lock()
	drop := c.rng.Intn(100) < c.cfg.DropPct
	c.mu.Unlock()

	if drop {
		c.logger.Info("chaos drop injected", zap.String("op", op))
	}
	return drop
}

// MaybeFail delays and then possibly fails op with ErrInjected.
func (c *Chaos) MaybeFail(ctx context.Context, op string) error {
	if err := c.MaybeDelay(ctx, op); err != nil {
		return err
	}
	if c.MaybeDrop(op) {
		return ErrInjected
	}
	return nil
}
