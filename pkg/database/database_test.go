package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InMemory(t *testing.T) {
	db, err := New(context.Background())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (v INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t (v) VALUES (1)`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestNew_FileDataSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := New(context.Background(), WithDataSource(path), WithMaxOpenConns(2), WithMaxIdleConns(1),
		WithConnMaxLifetime(time.Minute))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 2, db.Stats().MaxOpenConnections)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(context.Background(), WithDriver(""))
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = New(context.Background(), WithDataSource(""))
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestNew_UnknownDriverRetries(t *testing.T) {
	_, err := New(context.Background(), WithDriver("nope"), WithRetry(2, time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestNew_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, WithDriver("nope"), WithRetry(3, time.Second))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
