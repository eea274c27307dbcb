//go:build integration
// +build integration

package store

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestIntegration_Postgres(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if os.Getenv("INTEGRATION") != "1" || dsn == "" {
		t.Skip("Skipping integration test. Set INTEGRATION=1 and POSTGRES_DSN to run.")
	}

	ctx := context.Background()
	cfg := Config{
		Driver:      DriverPostgres,
		DSN:         dsn,
		Table:       "classifieds_it_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		CommitEvery: 2,
	}
	conn := NewConn(cfg, zaptest.NewLogger(t))
	db, err := conn.DB(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.ExecContext(context.Background(), `DROP TABLE IF EXISTS `+cfg.Table)
		conn.Close()
	})

	pos, err := NewOffsetStore(conn).ResumePosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, NoRows, pos)

	w := NewWriter(conn, NoRows, nil)
	outcome, err := w.Write(ctx, free("a"), 0)
	require.NoError(t, err)
	assert.Equal(t, Inserted, outcome)

	outcome, err = w.Write(ctx, priced("a"), 1)
	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, DuplicateKey, outcome)
	assert.Equal(t, int64(1), w.Position(), "threshold commit keeps the transaction usable after a duplicate")

	outcome, err = w.Write(ctx, priced("b"), 2)
	require.NoError(t, err)
	assert.Equal(t, Inserted, outcome)
	require.NoError(t, w.Flush(ctx))

	audit, err := AuditTable(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(2), audit.Rows)
	assert.Equal(t, int64(2), audit.MaxOffset)
	assert.True(t, audit.Consistent())

	insert := `INSERT INTO ` + cfg.Table + ` (id, customer_id, created_at, text, ad_type, "offset") VALUES ('a', 'c', 't', 't', 'Free', 9)`
	_, err = db.ExecContext(ctx, insert)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	code, _ := NativeCode(err)
	assert.Equal(t, "23505", code)
}
