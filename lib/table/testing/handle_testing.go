package testing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Families are the column families every table under test must declare.
var Families = []string{"cf", "meta"}

// HandleFactory returns a handle to a fresh, empty table declaring Families.
type HandleFactory func() table.ReadWriter

// RunHandleTests runs the conformance test suite for a table implementation.
func RunHandleTests(t *testing.T, name string, factory HandleFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, factory())
		})

		t.Run("Versions", func(t *testing.T) {
			testVersions(t, factory())
		})

		t.Run("PutBatch&Row", func(t *testing.T) {
			testPutBatchRow(t, factory())
		})

		t.Run("Increment", func(t *testing.T) {
			testIncrement(t, factory())
		})

		t.Run("IncrementNonCounter", func(t *testing.T) {
			testIncrementNonCounter(t, factory())
		})

		t.Run("UnknownFamily", func(t *testing.T) {
			testUnknownFamily(t, factory())
		})

		t.Run("ConcurrentIncrements", func(t *testing.T) {
			testConcurrentIncrements(t, factory())
		})

		t.Run("ClosedHandle", func(t *testing.T) {
			testClosedHandle(t, factory())
		})

		t.Run("CanceledContext", func(t *testing.T) {
			testCanceledContext(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func testContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

var (
	cf   = []byte("cf")
	meta = []byte("meta")
)

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, h table.ReadWriter) {
	defer h.Close()
	ctx := testContext(t)

	before := time.Now().UnixMilli()
	err := h.Put(ctx, cell.Cell{Row: []byte("r1"), Family: cf, Qualifier: []byte("q"), Timestamp: cell.LatestTimestamp, Value: []byte("v1")})
	require.NoError(t, err)

	c, found, err := h.Get(ctx, []byte("r1"), cf, []byte("q"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v1"), c.Value)
	assert.Equal(t, []byte("r1"), c.Row)
	assert.NotEqual(t, cell.LatestTimestamp, c.Timestamp, "latest timestamp must be stamped")
	assert.GreaterOrEqual(t, c.Timestamp, before)

	// Get must return a copy
	c.Value[0] = 'X'
	again, _, err := h.Get(ctx, []byte("r1"), cf, []byte("q"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), again.Value)

	_, found, err = h.Get(ctx, []byte("missing"), cf, []byte("q"))
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = h.Get(ctx, []byte("r1"), cf, []byte("other"))
	require.NoError(t, err)
	assert.False(t, found)

	// empty values are stored
	require.NoError(t, h.Put(ctx, cell.Cell{Row: []byte("r2"), Family: cf, Timestamp: 5, Value: nil}))
	c, found, err = h.Get(ctx, []byte("r2"), cf, nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, c.Value)
	assert.Equal(t, int64(5), c.Timestamp)
}

func testVersions(t *testing.T, h table.ReadWriter) {
	defer h.Close()
	ctx := testContext(t)

	put := func(ts int64, v string) {
		t.Helper()
		require.NoError(t, h.Put(ctx, cell.Cell{Row: []byte("r"), Family: cf, Qualifier: []byte("q"), Timestamp: ts, Value: []byte(v)}))
	}
	latest := func() cell.Cell {
		t.Helper()
		c, found, err := h.Get(ctx, []byte("r"), cf, []byte("q"))
		require.NoError(t, err)
		require.True(t, found)
		return c
	}

	put(10, "a")
	put(20, "b")
	assert.Equal(t, []byte("b"), latest().Value)

	// an older version does not shadow the latest
	put(15, "c")
	assert.Equal(t, []byte("b"), latest().Value)

	// writing an existing timestamp overwrites that version
	put(20, "d")
	c := latest()
	assert.Equal(t, []byte("d"), c.Value)
	assert.Equal(t, int64(20), c.Timestamp)
}

func testPutBatchRow(t *testing.T, h table.ReadWriter) {
	defer h.Close()
	ctx := testContext(t)

	require.NoError(t, h.PutBatch(ctx, nil))

	cells := []cell.Cell{
		{Row: []byte("r1"), Family: meta, Qualifier: []byte("b"), Timestamp: 1, Value: []byte("3")},
		{Row: []byte("r1"), Family: cf, Qualifier: []byte("z"), Timestamp: 1, Value: []byte("2")},
		{Row: []byte("r1"), Family: cf, Qualifier: []byte("a"), Timestamp: 1, Value: []byte("1")},
		{Row: []byte("r2"), Family: cf, Qualifier: []byte("a"), Timestamp: cell.LatestTimestamp, Value: []byte("4")},
	}
	require.NoError(t, h.PutBatch(ctx, cells))

	row, err := h.Row(ctx, []byte("r1"))
	require.NoError(t, err)
	require.Len(t, row, 3)

	// sorted by family, then qualifier
	expected := [][2]string{{"cf", "a"}, {"cf", "z"}, {"meta", "b"}}
	for i, c := range row {
		assert.Equal(t, expected[i][0], string(c.Family))
		assert.Equal(t, expected[i][1], string(c.Qualifier))
		assert.Equal(t, []byte("r1"), c.Row)
	}

	row, err = h.Row(ctx, []byte("r2"))
	require.NoError(t, err)
	require.Len(t, row, 1)
	assert.Equal(t, []byte("4"), row[0].Value)

	row, err = h.Row(ctx, []byte("missing"))
	require.NoError(t, err)
	assert.Empty(t, row)
}

func testIncrement(t *testing.T, h table.ReadWriter) {
	defer h.Close()
	ctx := testContext(t)

	row, qual := []byte("counter"), []byte("n")

	v, err := h.IncrementColumn(ctx, row, cf, qual, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = h.IncrementColumn(ctx, row, cf, qual, 41)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = h.IncrementColumn(ctx, row, cf, qual, -50)
	require.NoError(t, err)
	assert.Equal(t, int64(-8), v)

	c, found, err := h.Get(ctx, row, cf, qual)
	require.NoError(t, err)
	require.True(t, found)
	n, err := cell.ToInt64(c.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(-8), n)

	// increment after an explicit future version still yields the latest value
	require.NoError(t, h.Put(ctx, cell.Cell{Row: []byte("future"), Family: cf, Qualifier: qual, Timestamp: time.Now().Add(time.Hour).UnixMilli(), Value: cell.Int64(10)}))
	v, err = h.IncrementColumn(ctx, []byte("future"), cf, qual, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), v)
	c, _, err = h.Get(ctx, []byte("future"), cf, qual)
	require.NoError(t, err)
	assert.Equal(t, cell.Int64(11), c.Value)
}

func testIncrementNonCounter(t *testing.T, h table.ReadWriter) {
	defer h.Close()
	ctx := testContext(t)

	require.NoError(t, h.Put(ctx, cell.Cell{Row: []byte("r"), Family: cf, Qualifier: []byte("q"), Timestamp: 1, Value: []byte("abc")}))

	_, err := h.IncrementColumn(ctx, []byte("r"), cf, []byte("q"), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrInvalid)

	// the value is untouched
	c, _, err := h.Get(ctx, []byte("r"), cf, []byte("q"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), c.Value)
}

func testUnknownFamily(t *testing.T, h table.ReadWriter) {
	defer h.Close()
	ctx := testContext(t)

	bogus := []byte("bogus")

	err := h.Put(ctx, cell.Cell{Row: []byte("r"), Family: bogus, Timestamp: 1, Value: []byte("v")})
	assert.ErrorIs(t, err, table.ErrNoSuchFamily)

	_, err = h.IncrementColumn(ctx, []byte("r"), bogus, nil, 1)
	assert.ErrorIs(t, err, table.ErrNoSuchFamily)

	// a batch with one bad cell writes nothing
	err = h.PutBatch(ctx, []cell.Cell{
		{Row: []byte("r"), Family: cf, Timestamp: 1, Value: []byte("v")},
		{Row: []byte("r"), Family: bogus, Timestamp: 1, Value: []byte("v")},
	})
	assert.ErrorIs(t, err, table.ErrNoSuchFamily)

	_, found, err := h.Get(ctx, []byte("r"), cf, nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func testConcurrentIncrements(t *testing.T, h table.ReadWriter) {
	defer h.Close()
	ctx := testContext(t)

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := h.IncrementColumn(ctx, []byte("hot"), cf, nil, 1); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	c, found, err := h.Get(ctx, []byte("hot"), cf, nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, cell.Int64(workers*perWorker), c.Value)
}

func testClosedHandle(t *testing.T, h table.ReadWriter) {
	require.NoError(t, h.Close())
	ctx := testContext(t)

	err := h.Put(ctx, cell.Cell{Row: []byte("r"), Family: cf, Timestamp: 1, Value: []byte("v")})
	assert.ErrorIs(t, err, table.ErrClosed)

	_, err = h.IncrementColumn(ctx, []byte("r"), cf, nil, 1)
	assert.ErrorIs(t, err, table.ErrClosed)

	_, _, err = h.Get(ctx, []byte("r"), cf, nil)
	assert.ErrorIs(t, err, table.ErrClosed)
}

func testCanceledContext(t *testing.T, h table.ReadWriter) {
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Put(ctx, cell.Cell{Row: []byte("r"), Family: cf, Timestamp: 1, Value: []byte("v")})
	assert.ErrorIs(t, err, context.Canceled)

	_, found, err := h.Get(testContext(t), []byte("r"), cf, nil)
	require.NoError(t, err)
	assert.False(t, found)
}
