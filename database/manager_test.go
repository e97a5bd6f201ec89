package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/qdb/config"
	dbtest "github.com/gaborage/qdb/database/testing"
	"github.com/gaborage/qdb/database/types"
	"github.com/gaborage/qdb/logger"
)

type stubSource struct {
	err error
}

func (s stubSource) DBConfig(_ context.Context, key string) (*config.DatabaseConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &config.DatabaseConfig{Type: SQLite, Database: key}, nil
}

// recordingOpener hands out TestConnectors and remembers them by database name.
type recordingOpener struct {
	mu     sync.Mutex
	opened map[string][]*dbtest.TestConnector
	calls  atomic.Int32
	delay  time.Duration
}

func newRecordingOpener() *recordingOpener {
	return &recordingOpener{opened: make(map[string][]*dbtest.TestConnector)}
}

func (r *recordingOpener) open(cfg *config.DatabaseConfig, _ logger.Logger) (types.Connector, error) {
	r.calls.Add(1)
	time.Sleep(r.delay)
	conn := dbtest.NewTestConnector(cfg.Type)
	r.mu.Lock()
	r.opened[cfg.Database] = append(r.opened[cfg.Database], conn)
	r.mu.Unlock()
	return conn, nil
}

func (r *recordingOpener) first(key string) *dbtest.TestConnector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened[key][0]
}

func newTestManager(opts ManagerOptions) (*Manager, *recordingOpener) {
	rec := newRecordingOpener()
	return NewManager(stubSource{}, logger.New("disabled", false), opts, rec.open), rec
}

func TestManagerGetCaches(t *testing.T) {
	m, rec := newTestManager(ManagerOptions{})
	ctx := context.Background()

	a1, err := m.Get(ctx, "a")
	require.NoError(t, err)
	a2, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.NotSame(t, a1, a2, "every caller gets its own lease")
	assert.Equal(t, int32(1), rec.calls.Load())

	_, err = m.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Size())
	assert.Equal(t, int32(2), rec.calls.Load())
	assert.Equal(t, SQLite, a1.DatabaseType())
}

func TestManagerSingleflight(t *testing.T) {
	m, rec := newTestManager(ManagerOptions{})
	rec.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Get(context.Background(), "shared")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), rec.calls.Load())
}

func TestManagerEvictsLeastRecentlyUsed(t *testing.T) {
	m, rec := newTestManager(ManagerOptions{MaxSize: 2})
	ctx := context.Background()

	for _, key := range []string{"a", "b", "a", "c"} {
		_, err := m.Get(ctx, key)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, m.Size())
	assert.Equal(t, 1, rec.first("b").Releases())
	assert.Equal(t, 0, rec.first("a").Releases())
}

func TestManagerReleaseKeepsSharedConnector(t *testing.T) {
	m, rec := newTestManager(ManagerOptions{})
	ctx := context.Background()

	b, err := m.Basic(ctx, "shop")
	require.NoError(t, err)
	other, err := m.Get(ctx, "shop")
	require.NoError(t, err)

	// A malformed call aborts the builder, which releases its lease.
	_, err = b.Table("").Select(ctx)
	require.ErrorIs(t, err, types.ErrMalformedSpec)
	assert.Equal(t, 0, rec.first("shop").Releases())
	assert.Equal(t, 1, m.Size())

	rec.first("shop").ExpectExec("DELETE FROM orders").WillReturnRowsAffected(2)
	res, err := other.Exec(ctx, "DELETE FROM orders")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []string{"DELETE FROM orders"}, rec.first("shop").ExecLog())

	ext, err := m.Extended(ctx, "shop", WithTablePrefix("x"))
	require.NoError(t, err)
	assert.True(t, ext.Extended())
	assert.Equal(t, int32(1), rec.calls.Load())
}

func TestManagerReleasedLease(t *testing.T) {
	m, rec := newTestManager(ManagerOptions{})
	ctx := context.Background()

	conn, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, conn.Release())
	require.NoError(t, conn.Release())

	_, err = conn.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, types.ErrReleased)
	_, err = conn.Exec(ctx, "DELETE FROM t")
	assert.ErrorIs(t, err, types.ErrReleased)
	_, err = conn.ListColumns(ctx, "t")
	assert.ErrorIs(t, err, types.ErrReleased)
	assert.Equal(t, "O''Brien", conn.Escape("O'Brien"))

	assert.Equal(t, 0, rec.first("a").Releases())
	assert.Empty(t, rec.first("a").ExecLog())
}

func TestManagerErrors(t *testing.T) {
	m := NewManager(stubSource{err: errors.New("vault sealed")}, logger.New("disabled", false), ManagerOptions{}, nil)
	_, err := m.Get(context.Background(), "a")
	assert.ErrorContains(t, err, "vault sealed")

	m = NewManager(stubSource{}, logger.New("disabled", false), ManagerOptions{},
		func(*config.DatabaseConfig, logger.Logger) (types.Connector, error) {
			return nil, errors.New("refused")
		})
	_, err = m.Get(context.Background(), "a")
	assert.ErrorContains(t, err, `failed to open database connection for key "a"`)
	assert.Equal(t, 0, m.Size())

	_, err = StaticConfig{}.DBConfig(context.Background(), "")
	assert.Error(t, err)
}

func TestManagerCleanupAndClose(t *testing.T) {
	m, rec := newTestManager(ManagerOptions{IdleTTL: time.Millisecond})
	ctx := context.Background()

	_, err := m.Get(ctx, "idle")
	require.NoError(t, err)

	m.StartCleanup(5 * time.Millisecond)
	m.StartCleanup(5 * time.Millisecond)
	assert.Eventually(t, func() bool { return m.Size() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.first("idle").Releases())

	_, err = m.Get(ctx, "busy")
	require.NoError(t, err)
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Size())
	assert.Equal(t, 1, rec.first("busy").Releases())
	m.StopCleanup()
}

func TestStaticConfigWithSQLite(t *testing.T) {
	m := NewManager(StaticConfig{Config: &config.DatabaseConfig{Type: SQLite}}, logger.New("disabled", false), ManagerOptions{}, nil)
	t.Cleanup(func() { _ = m.Close() })

	conn, err := m.Get(context.Background(), "")
	require.NoError(t, err)
	_, err = conn.Exec(context.Background(), "CREATE TABLE t (a INTEGER)")
	require.NoError(t, err)
}

func TestManagerAbortedBuilderLeavesPoolOpen(t *testing.T) {
	m := NewManager(StaticConfig{Config: &config.DatabaseConfig{Type: SQLite}}, logger.New("disabled", false), ManagerOptions{}, nil)
	t.Cleanup(func() { _ = m.Close() })
	ctx := context.Background()

	conn, err := m.Get(ctx, "")
	require.NoError(t, err)
	_, err = conn.Exec(ctx, "CREATE TABLE items (id INTEGER)")
	require.NoError(t, err)
	_, err = conn.Exec(ctx, "INSERT INTO items (id) VALUES (7)")
	require.NoError(t, err)

	first, err := m.Extended(ctx, "")
	require.NoError(t, err)
	second, err := m.Extended(ctx, "")
	require.NoError(t, err)

	_, err = first.Table("items").Limit("ten").Select(ctx)
	require.ErrorIs(t, err, types.ErrMalformedSpec)

	res, err := second.Table("items").Columns("id").Select(ctx)
	require.NoError(t, err)
	defer res.Rows.Close()

	require.True(t, res.Rows.Next())
	var id int
	require.NoError(t, res.Rows.Scan(&id))
	assert.Equal(t, 7, id)
}
