package dbmetrics

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type recordedQuery struct {
	operation string
	failed    bool
}

type fakeRecorder struct {
	mu      sync.Mutex
	queries []recordedQuery
}

func (r *fakeRecorder) ObserveDBQuery(operation string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, recordedQuery{operation: operation, failed: err != nil})
}

func TestOperation(t *testing.T) {
	assert.Equal(t, "select", Operation("SELECT * FROM t"))
	assert.Equal(t, "insert", Operation("\n\tINSERT INTO t VALUES (1)"))
	assert.Equal(t, "unknown", Operation("   "))
}

func TestDB_RecordsQueries(t *testing.T) {
	raw, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	defer raw.Close()

	rec := &fakeRecorder{}
	db := Wrap(raw, rec)
	ctx := context.Background()

	_, err = db.ExecContext(ctx, "CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO t (v) VALUES (?)", 7)
	require.NoError(t, err)

	var v int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT v FROM t").Scan(&v))
	assert.Equal(t, 7, v)

	_, err = db.ExecContext(ctx, "DROP TABLE missing")
	require.Error(t, err)

	require.Len(t, rec.queries, 4)
	assert.Equal(t, recordedQuery{operation: "create"}, rec.queries[0])
	assert.Equal(t, recordedQuery{operation: "insert"}, rec.queries[1])
	assert.Equal(t, recordedQuery{operation: "select"}, rec.queries[2])
	assert.Equal(t, recordedQuery{operation: "drop", failed: true}, rec.queries[3])
}
