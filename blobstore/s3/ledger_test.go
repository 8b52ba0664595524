package s3

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_RecordAndEntries(t *testing.T) {
	ddb := newMockDDBClient()
	ledger := NewLedgerWithClient(ddb, "kmeans-runs")
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	for _, engine := range []string{"Sequential", "Device"} {
		require.NoError(t, ledger.Record(ctx, Entry{
			RunID:     "run-1",
			Engine:    engine,
			URI:       "s3://bucket/" + engine + ".csv",
			Codec:     "none",
			Rows:      18,
			Bytes:     300,
			Host:      "linux/amd64 avx2 x8",
			Published: now,
		}))
	}
	require.NoError(t, ledger.Record(ctx, Entry{RunID: "run-2", Engine: "Sequential", Published: now}))

	entries, err := ledger.Entries(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Device", entries[0].Engine)
	assert.Equal(t, "Sequential", entries[1].Engine)
	assert.Equal(t, 18, entries[1].Rows)
	assert.Equal(t, int64(300), entries[1].Bytes)
	assert.Equal(t, now, entries[1].Published)
	assert.Equal(t, "s3://bucket/Sequential.csv", entries[1].URI)
}

func TestLedger_Duplicate(t *testing.T) {
	ledger := NewLedgerWithClient(newMockDDBClient(), "kmeans-runs")
	ctx := context.Background()
	e := Entry{RunID: "run-1", Engine: "Device", Published: time.Now()}

	require.NoError(t, ledger.Record(ctx, e))
	err := ledger.Record(ctx, e)
	assert.ErrorIs(t, err, ErrDuplicateEntry)
}

func TestLedger_EmptyRun(t *testing.T) {
	ledger := NewLedgerWithClient(newMockDDBClient(), "kmeans-runs")

	entries, err := ledger.Entries(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
