package chaos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseProfile(t *testing.T) {
	drop, lo, hi, err := ParseProfile("drop-pct=30, delay=50-250")
	require.NoError(t, err)
	assert.Equal(t, 30, drop)
	assert.Equal(t, 50, lo)
	assert.Equal(t, 250, hi)

	_, _, _, err = ParseProfile("delay=250-50")
	assert.Error(t, err)
	_, _, _, err = ParseProfile("explode=1")
	assert.Error(t, err)
}

func TestMaybeFail_TargetsOneOperation(t *testing.T) {
	c := New(Config{Enabled: true, TargetOp: "commit", DropPct: 100, Seed: 1}, zap.NewNop())

	assert.NoError(t, c.MaybeFail(context.Background(), "write"))
	assert.ErrorIs(t, c.MaybeFail(context.Background(), "commit"), ErrInjected)
}

func TestMaybeFail_Disabled(t *testing.T) {
	c := New(Config{Enabled: false, DropPct: 100}, zap.NewNop())
	assert.NoError(t, c.MaybeFail(context.Background(), "write"))

	var none *Chaos
	assert.NoError(t, none.MaybeFail(context.Background(), "write"))
}

func TestMaybeFail_DeterministicForSeed(t *testing.T) {
	run := func() []bool {
		c := New(Config{Enabled: true, DropPct: 50, Seed: 42}, zap.NewNop())
		out := make([]bool, 20)
		for i := range out {
			out[i] = c.MaybeDrop("write")
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestMaybeDelay_RespectsContext(t *testing.T) {
	c := New(Config{Enabled: true, DelayMsMin: 5000, DelayMsMax: 5000}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.MaybeDelay(ctx, "write"), context.DeadlineExceeded)
}

func TestEnabledFor_WindowExpires(t *testing.T) {
	c := New(Config{Enabled: true, DropPct: 100, WindowMs: 1}, zap.NewNop())
	time.Sleep(5 * time.Millisecond)
	assert.False(t, c.EnabledFor("write"))
}
