package hook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/derive"
	"github.com/ValentinKolb/dHook/lib/derive/fizzbuzz"
	"github.com/ValentinKolb/dHook/lib/derive/wordcount"
	"github.com/ValentinKolb/dHook/lib/provenance"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/ValentinKolb/dHook/lib/table/mtable"
	"github.com/ValentinKolb/dHook/lib/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// newStore returns a store with the tables both hook kinds write to by default.
func newStore(t *testing.T) *mtable.Store {
	t.Helper()
	s := mtable.NewStore(nil)
	_, err := s.Create(fizzbuzz.TableName, fizzbuzz.Families()...)
	require.NoError(t, err)
	_, err = s.Create(wordcount.DefaultTable, wordcount.DefaultColumn)
	require.NoError(t, err)
	return s
}

// recorder wraps a factory and records every call made through its handles.
type recorder struct {
	inner table.Factory

	mu         sync.Mutex
	opened     int
	closed     int
	batches    [][]cell.Cell
	increments int

	failOpen      error
	failPut       error
	failIncrement error
}

func (r *recorder) factory(ctx context.Context, name string) (table.Handle, error) {
	if r.failOpen != nil {
		return nil, r.failOpen
	}
	h, err := r.inner(ctx, name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.opened++
	r.mu.Unlock()
	return &recordingHandle{Handle: h, r: r}, nil
}

type recordingHandle struct {
	table.Handle
	r *recorder
}

func (h *recordingHandle) PutBatch(ctx context.Context, cells []cell.Cell) error {
	h.r.mu.Lock()
	h.r.batches = append(h.r.batches, cells)
	h.r.mu.Unlock()
	if h.r.failPut != nil {
		return h.r.failPut
	}
	return h.Handle.PutBatch(ctx, cells)
}

func (h *recordingHandle) IncrementColumn(ctx context.Context, row, family, qualifier []byte, delta int64) (int64, error) {
	h.r.mu.Lock()
	h.r.increments++
	h.r.mu.Unlock()
	if h.r.failIncrement != nil {
		return 0, h.r.failIncrement
	}
	return h.Handle.IncrementColumn(ctx, row, family, qualifier, delta)
}

func (h *recordingHandle) Close() error {
	h.r.mu.Lock()
	h.r.closed++
	h.r.mu.Unlock()
	return h.Handle.Close()
}

func startHook(t *testing.T, kind Kind, factory table.Factory, conf map[string]string) *Dispatcher {
	t.Helper()
	d := NewDispatcher(kind, factory)
	require.NoError(t, d.OnStart(conf))
	require.Equal(t, StateReady, d.State())
	return d
}

func intMutation(table, row string, ts int64, values ...int32) *cell.Mutation {
	m := cell.NewMutation(table, []byte(row))
	for _, v := range values {
		m.Add([]byte("a"), []byte("a"), ts, cell.Int32(v))
	}
	return m
}

func textMutation(row, text string) *cell.Mutation {
	return cell.NewMutation("docs", []byte(row)).Add([]byte("a"), []byte("a"), 1, []byte(text))
}

func counter(t *testing.T, s *mtable.Store, tableName, word string, column wordcount.Column) int64 {
	t.Helper()
	tbl, ok := s.Table(tableName)
	require.True(t, ok)
	c, found := tbl.Get([]byte(word), column.Family, column.Qualifier)
	if !found {
		return 0
	}
	n, err := cell.ToInt64(c.Value)
	require.NoError(t, err)
	return n
}

var defaultColumn = wordcount.Column{Family: []byte("count")}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func TestLifecycle(t *testing.T) {
	s := newStore(t)
	d := NewDispatcher(KindFizzBuzz, s.Factory())
	assert.Equal(t, StateUninitialized, d.State())
	assert.Equal(t, KindFizzBuzz, d.Kind())

	err := d.OnAfterMutationCommit(context.Background(), intMutation("src", "r", 1, 3))
	assert.ErrorIs(t, err, ErrNotReady)

	// a failed start leaves the hook uninitialized and may be retried
	err = d.OnStart(map[string]string{OptTargets: ":broken"})
	assert.ErrorIs(t, err, ErrConfig)
	assert.Equal(t, StateUninitialized, d.State())

	require.NoError(t, d.OnStart(map[string]string{OptTargets: "a:a"}))
	assert.Equal(t, StateReady, d.State())

	err = d.OnStart(map[string]string{OptTargets: "b"})
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, StateReady, d.State())
}

func TestStartConfigErrors(t *testing.T) {
	s := newStore(t)

	tests := []struct {
		name   string
		kind   Kind
		conf   map[string]string
		target error
	}{
		{"empty target family", KindFizzBuzz, map[string]string{OptTargets: "a :b"}, target.ErrEmptyFamily},
		{"empty column family", KindWordCount, map[string]string{OptTargets: "a", OptColumn: ":q"}, wordcount.ErrEmptyColumnFamily},
		{"empty table", KindWordCount, map[string]string{OptTargets: "a", OptTable: ""}, ErrConfig},
		{"unknown kind", Kind("nope"), map[string]string{OptTargets: "a"}, ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(tt.kind, s.Factory())
			err := d.OnStart(tt.conf)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfig)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, StateUninitialized, d.State())
		})
	}

	t.Run("no factory", func(t *testing.T) {
		d := NewDispatcher(KindFizzBuzz, nil)
		assert.ErrorIs(t, d.OnStart(nil), ErrConfig)
	})
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("wordcount")
	require.NoError(t, err)
	assert.Equal(t, KindWordCount, k)

	_, err = ParseKind("FizzBuzz")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestNoTargetsMatchesNothing(t *testing.T) {
	rec := &recorder{inner: newStore(t).Factory()}
	d := startHook(t, KindFizzBuzz, rec.factory, nil)

	require.NoError(t, d.OnAfterMutationCommit(context.Background(), intMutation("src", "r", 1, 15)))
	assert.Zero(t, rec.opened)
}

func TestUnmatchedFamilyOpensNoTable(t *testing.T) {
	rec := &recorder{inner: newStore(t).Factory()}
	d := startHook(t, KindFizzBuzz, rec.factory, map[string]string{OptTargets: "b x:y"})

	require.NoError(t, d.OnAfterMutationCommit(context.Background(), intMutation("src", "r", 1, 15)))
	assert.Zero(t, rec.opened)
}

// --------------------------------------------------------------------------
// FizzBuzz
// --------------------------------------------------------------------------

func TestFizzBuzzSingleValue(t *testing.T) {
	s := newStore(t)
	d := startHook(t, KindFizzBuzz, s.Factory(), map[string]string{OptTargets: "a:a"})

	require.NoError(t, d.OnAfterMutationCommit(context.Background(), intMutation("source", "a015", 15, 15)))

	tbl, _ := s.Table(fizzbuzz.TableName)
	assert.Equal(t, [][]byte{fizzbuzz.RowKey(15)}, tbl.Scan())
	assert.Equal(t, append(cell.Int32(15), ":FizzBuzz"...), fizzbuzz.RowKey(15))

	row := tbl.Row(fizzbuzz.RowKey(15))
	require.Len(t, row, 1)
	assert.Equal(t, []byte("fizzbuzz"), row[0].Family)
	assert.Equal(t, cell.Int32(15), row[0].Value)
	assert.Equal(t, int64(15), row[0].Timestamp)

	src, err := provenance.Decode(row[0].Qualifier)
	require.NoError(t, err)
	assert.Equal(t, provenance.Source{
		Table:     "source",
		Timestamp: 15,
		Row:       []byte("a015"),
		Family:    []byte("a"),
		Qualifier: []byte("a"),
	}, src)
}

func TestFizzBuzzDistinctValuesDistinctRows(t *testing.T) {
	s := newStore(t)
	d := startHook(t, KindFizzBuzz, s.Factory(), map[string]string{OptTargets: "a:a"})

	ctx := context.Background()
	require.NoError(t, d.OnAfterMutationCommit(ctx, intMutation("source", "a006", 6, 6)))
	require.NoError(t, d.OnAfterMutationCommit(ctx, intMutation("source", "a009", 9, 9)))

	tbl, _ := s.Table(fizzbuzz.TableName)
	assert.Len(t, tbl.Scan(), 2)
	for _, v := range []int32{6, 9} {
		row := tbl.Row(fizzbuzz.RowKey(v))
		require.Len(t, row, 1, "value %d", v)
		assert.Equal(t, []byte("fizz"), row[0].Family)
		assert.Equal(t, cell.Int32(v), row[0].Value)
	}
}

func TestFizzBuzzSameValueNoCollision(t *testing.T) {
	s := newStore(t)
	d := startHook(t, KindFizzBuzz, s.Factory(), map[string]string{OptTargets: "a"})

	ctx := context.Background()
	require.NoError(t, d.OnAfterMutationCommit(ctx, intMutation("source", "r1", 1, 5)))
	require.NoError(t, d.OnAfterMutationCommit(ctx, intMutation("source", "r2", 1, 5)))
	require.NoError(t, d.OnAfterMutationCommit(ctx, intMutation("other", "r1", 1, 5)))

	tbl, _ := s.Table(fizzbuzz.TableName)
	row := tbl.Row(fizzbuzz.RowKey(5))
	assert.Len(t, row, 3)
	for _, c := range row {
		assert.Equal(t, []byte("buzz"), c.Family)
	}
}

func TestFizzBuzzOnePutBatchPerInvocation(t *testing.T) {
	rec := &recorder{inner: newStore(t).Factory()}
	d := startHook(t, KindFizzBuzz, rec.factory, map[string]string{OptTargets: "a"})

	m := cell.NewMutation("source", []byte("r")).
		Add([]byte("a"), []byte("x"), 1, cell.Int32(1)).
		Add([]byte("a"), []byte("y"), 1, cell.Int32(3)).
		Add([]byte("a"), []byte("z"), 1, cell.Int32(30)).
		Add([]byte("b"), []byte("x"), 1, []byte("not matched"))
	require.NoError(t, d.OnAfterMutationCommit(context.Background(), m))

	require.Len(t, rec.batches, 1)
	assert.Len(t, rec.batches[0], 3)
	assert.Equal(t, 1, rec.opened)
	assert.Equal(t, 1, rec.closed)
}

func TestFizzBuzzValueShapeError(t *testing.T) {
	rec := &recorder{inner: newStore(t).Factory()}
	d := startHook(t, KindFizzBuzz, rec.factory, map[string]string{OptTargets: "a"})

	m := cell.NewMutation("source", []byte("r")).
		Add([]byte("a"), []byte("ok"), 1, cell.Int32(3)).
		Add([]byte("a"), []byte("bad"), 1, []byte{1, 2, 3})

	err := d.OnAfterMutationCommit(context.Background(), m)
	assert.ErrorIs(t, err, derive.ErrValueShape)

	// derivation fails before anything is issued
	assert.Zero(t, rec.opened)
	assert.Empty(t, rec.batches)
}

func TestFizzBuzzIgnoresWordCountOptions(t *testing.T) {
	s := newStore(t)
	d := startHook(t, KindFizzBuzz, s.Factory(), map[string]string{OptTargets: "a", OptTable: "elsewhere"})

	require.NoError(t, d.OnAfterMutationCommit(context.Background(), intMutation("source", "r", 1, 7)))
	tbl, _ := s.Table(fizzbuzz.TableName)
	assert.Len(t, tbl.Row(fizzbuzz.RowKey(7)), 1)
}

// --------------------------------------------------------------------------
// WordCount
// --------------------------------------------------------------------------

func TestWordCountAccumulates(t *testing.T) {
	s := newStore(t)
	d := startHook(t, KindWordCount, s.Factory(), map[string]string{OptTargets: "a:a"})

	ctx := context.Background()
	require.NoError(t, d.OnAfterMutationCommit(ctx, textMutation("d1", "a a")))
	assert.Equal(t, int64(2), counter(t, s, "words", "a", defaultColumn))

	require.NoError(t, d.OnAfterMutationCommit(ctx, textMutation("d2", "a a a")))
	assert.Equal(t, int64(5), counter(t, s, "words", "a", defaultColumn))
}

func TestWordCountIsNotIdempotent(t *testing.T) {
	s := newStore(t)
	d := startHook(t, KindWordCount, s.Factory(), map[string]string{OptTargets: "a"})

	ctx := context.Background()
	m := textMutation("d1", "x-y x")
	require.NoError(t, d.OnAfterMutationCommit(ctx, m))
	require.NoError(t, d.OnAfterMutationCommit(ctx, m))

	// re-applying the same mutation counts it twice
	assert.Equal(t, int64(4), counter(t, s, "words", "x", defaultColumn))
	assert.Equal(t, int64(2), counter(t, s, "words", "y", defaultColumn))
}

func TestWordCountOneIncrementPerOccurrence(t *testing.T) {
	rec := &recorder{inner: newStore(t).Factory()}
	d := startHook(t, KindWordCount, rec.factory, map[string]string{OptTargets: "a"})

	require.NoError(t, d.OnAfterMutationCommit(context.Background(), textMutation("d", "to be, or not to be")))
	assert.Equal(t, 6, rec.increments)
	assert.Equal(t, 1, rec.opened)
	assert.Equal(t, 1, rec.closed)

	// empty text issues nothing and opens nothing
	require.NoError(t, d.OnAfterMutationCommit(context.Background(), textMutation("e", "")))
	assert.Equal(t, 1, rec.opened)
}

func TestWordCountCustomTableAndColumn(t *testing.T) {
	s := newStore(t)
	_, err := s.Create("tokens", "c")
	require.NoError(t, err)

	d := startHook(t, KindWordCount, s.Factory(), map[string]string{
		OptTargets: "a",
		OptTable:   "tokens",
		OptColumn:  "c:n",
	})
	require.NoError(t, d.OnAfterMutationCommit(context.Background(), textMutation("d", "hello hello")))

	assert.Equal(t, int64(2), counter(t, s, "tokens", "hello", wordcount.Column{Family: []byte("c"), Qualifier: []byte("n")}))
	assert.Zero(t, counter(t, s, "words", "hello", defaultColumn))
}

func TestWordCountConcurrentCommits(t *testing.T) {
	s := newStore(t)
	d := startHook(t, KindWordCount, s.Factory(), map[string]string{OptTargets: "a"})

	const workers = 16
	const commits = 25

	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < commits; i++ {
				if err := d.OnAfterMutationCommit(ctx, textMutation(fmt.Sprintf("d-%d-%d", w, i), "hot cold hot")); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(2*workers*commits), counter(t, s, "words", "hot", defaultColumn))
	assert.Equal(t, int64(workers*commits), counter(t, s, "words", "cold", defaultColumn))
}

// --------------------------------------------------------------------------
// Failures
// --------------------------------------------------------------------------

func TestSecondaryWriteFailurePropagates(t *testing.T) {
	injected := errors.New("region server down")

	t.Run("put", func(t *testing.T) {
		rec := &recorder{inner: newStore(t).Factory(), failPut: injected}
		d := startHook(t, KindFizzBuzz, rec.factory, map[string]string{OptTargets: "a"})

		err := d.OnAfterMutationCommit(context.Background(), intMutation("src", "r", 1, 3))
		assert.ErrorIs(t, err, injected)
		assert.Equal(t, rec.opened, rec.closed)
	})

	t.Run("increment", func(t *testing.T) {
		rec := &recorder{inner: newStore(t).Factory(), failIncrement: injected}
		d := startHook(t, KindWordCount, rec.factory, map[string]string{OptTargets: "a"})

		err := d.OnAfterMutationCommit(context.Background(), textMutation("d", "one two three"))
		assert.ErrorIs(t, err, injected)
		// no retry: the first failure stops the invocation
		assert.Equal(t, 1, rec.increments)
		assert.Equal(t, 1, rec.closed)
	})

	t.Run("open", func(t *testing.T) {
		rec := &recorder{inner: newStore(t).Factory(), failOpen: injected}
		d := startHook(t, KindWordCount, rec.factory, map[string]string{OptTargets: "a"})

		err := d.OnAfterMutationCommit(context.Background(), textMutation("d", "word"))
		assert.ErrorIs(t, err, injected)
	})

	t.Run("missing table", func(t *testing.T) {
		d := startHook(t, KindWordCount, mtable.NewStore(nil).Factory(), map[string]string{OptTargets: "a"})

		err := d.OnAfterMutationCommit(context.Background(), textMutation("d", "word"))
		assert.ErrorIs(t, err, table.ErrTableNotFound)
	})

	t.Run("missing family", func(t *testing.T) {
		s := mtable.NewStore(nil)
		_, err := s.Create(fizzbuzz.TableName, "num")
		require.NoError(t, err)
		d := startHook(t, KindFizzBuzz, s.Factory(), map[string]string{OptTargets: "a"})

		err = d.OnAfterMutationCommit(context.Background(), intMutation("src", "r", 1, 3))
		assert.ErrorIs(t, err, table.ErrNoSuchFamily)
	})
}

func TestCanceledContext(t *testing.T) {
	s := newStore(t)
	d := startHook(t, KindWordCount, s.Factory(), map[string]string{OptTargets: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.OnAfterMutationCommit(ctx, textMutation("d", "word"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetrics(t *testing.T) {
	s := newStore(t)
	d := startHook(t, KindWordCount, s.Factory(), map[string]string{OptTargets: "a"})

	invocations := d.metrics.invocations.Get()
	increments := d.metrics.increments.Get()
	errs := d.metrics.errors.Get()

	require.NoError(t, d.OnAfterMutationCommit(context.Background(), textMutation("d", "x y")))
	require.NoError(t, d.OnAfterMutationCommit(context.Background(), textMutation("d", "")))

	assert.Equal(t, invocations+2, d.metrics.invocations.Get())
	assert.Equal(t, increments+2, d.metrics.increments.Get())
	assert.Equal(t, errs, d.metrics.errors.Get())
}
