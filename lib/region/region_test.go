package region

import (
	"context"
	"errors"
	"testing"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/derive/fizzbuzz"
	"github.com/ValentinKolb/dHook/lib/derive/wordcount"
	"github.com/ValentinKolb/dHook/lib/hook"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/ValentinKolb/dHook/lib/table/mtable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// observerFunc is an observer that always starts and calls fn on commit.
type observerFunc func(ctx context.Context, m *cell.Mutation) error

func (f observerFunc) OnStart(map[string]string) error { return nil }

func (f observerFunc) OnAfterMutationCommit(ctx context.Context, m *cell.Mutation) error {
	return f(ctx, m)
}

type failingStart struct{ observerFunc }

func (failingStart) OnStart(map[string]string) error { return errors.New("bad config") }

func newRegion(t *testing.T, s *mtable.Store, name string, families ...string) *Region {
	t.Helper()
	tbl, err := s.Create(name, families...)
	require.NoError(t, err)
	r := New(name, tbl.Handle())
	r.now = func() int64 { return 777 }
	t.Cleanup(func() { r.Close() })
	return r
}

func TestMutateCommitsThenNotifiesInOrder(t *testing.T) {
	s := mtable.NewStore(nil)
	r := newRegion(t, s, "src", "a")

	var calls []string
	record := func(name string) observerFunc {
		return func(_ context.Context, m *cell.Mutation) error {
			// the primary commit is visible to observers
			tbl, _ := s.Table("src")
			_, found := tbl.Get(m.Row, []byte("a"), []byte("q"))
			assert.True(t, found)
			calls = append(calls, name)
			return nil
		}
	}
	require.NoError(t, r.Attach("first", record("first"), nil))
	require.NoError(t, r.Attach("second", record("second"), nil))
	assert.Equal(t, []string{"first", "second"}, r.Observers())

	m := cell.NewMutation("src", []byte("row")).AddLatest([]byte("a"), []byte("q"), []byte("v"))
	committed, err := r.Mutate(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)

	// latest timestamps are stamped with the commit time
	assert.Equal(t, int64(777), committed.Cells()[0].Timestamp)
	assert.Equal(t, cell.LatestTimestamp, m.Cells()[0].Timestamp)

	tbl, _ := s.Table("src")
	c, found := tbl.Get([]byte("row"), []byte("a"), []byte("q"))
	require.True(t, found)
	assert.Equal(t, int64(777), c.Timestamp)
}

func TestAttach(t *testing.T) {
	r := newRegion(t, mtable.NewStore(nil), "src")

	err := r.Attach("broken", failingStart{}, nil)
	require.Error(t, err)
	assert.Empty(t, r.Observers())

	noop := observerFunc(func(context.Context, *cell.Mutation) error { return nil })
	require.NoError(t, r.Attach("ok", noop, nil))
	assert.ErrorIs(t, r.Attach("ok", noop, nil), ErrDuplicateObserver)
}

func TestMutateRejects(t *testing.T) {
	r := newRegion(t, mtable.NewStore(nil), "src", "a")
	ctx := context.Background()

	_, err := r.Mutate(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyMutation)
	_, err = r.Mutate(ctx, cell.NewMutation("src", []byte("r")))
	assert.ErrorIs(t, err, ErrEmptyMutation)

	_, err = r.Mutate(ctx, cell.NewMutation("other", []byte("r")).AddLatest([]byte("a"), nil, nil))
	assert.ErrorIs(t, err, table.ErrInvalid)
}

func TestPrimaryFailureSkipsObservers(t *testing.T) {
	r := newRegion(t, mtable.NewStore(nil), "src", "a")

	called := false
	require.NoError(t, r.Attach("obs", observerFunc(func(context.Context, *cell.Mutation) error {
		called = true
		return nil
	}), nil))

	m := cell.NewMutation("src", []byte("r")).AddLatest([]byte("unknown"), nil, []byte("v"))
	committed, err := r.Mutate(context.Background(), m)
	assert.ErrorIs(t, err, table.ErrNoSuchFamily)
	assert.Nil(t, committed)
	assert.False(t, called)
}

func TestObserverFailureIsWeaklyConsistent(t *testing.T) {
	s := mtable.NewStore(nil)
	r := newRegion(t, s, "src", "a")

	injected := errors.New("secondary down")
	secondCalled := false
	require.NoError(t, r.Attach("failing", observerFunc(func(context.Context, *cell.Mutation) error { return injected }), nil))
	require.NoError(t, r.Attach("skipped", observerFunc(func(context.Context, *cell.Mutation) error {
		secondCalled = true
		return nil
	}), nil))

	m := cell.NewMutation("src", []byte("r")).Add([]byte("a"), nil, 1, []byte("v"))
	committed, err := r.Mutate(context.Background(), m)
	assert.ErrorIs(t, err, ErrDerivedIncomplete)
	assert.ErrorIs(t, err, injected)
	assert.NotNil(t, committed)
	assert.False(t, secondCalled)

	// the primary write stays committed
	tbl, _ := s.Table("src")
	_, found := tbl.Get([]byte("r"), []byte("a"), nil)
	assert.True(t, found)
}

func TestHooksEndToEnd(t *testing.T) {
	s := mtable.NewStore(nil)
	_, err := s.Create(fizzbuzz.TableName, fizzbuzz.Families()...)
	require.NoError(t, err)
	_, err = s.Create(wordcount.DefaultTable, wordcount.DefaultColumn)
	require.NoError(t, err)

	r := newRegion(t, s, "src", "n", "t")
	require.NoError(t, r.Attach("fizzbuzz", hook.NewDispatcher(hook.KindFizzBuzz, s.Factory()), map[string]string{hook.OptTargets: "n"}))
	require.NoError(t, r.Attach("wordcount", hook.NewDispatcher(hook.KindWordCount, s.Factory()), map[string]string{hook.OptTargets: "t:body"}))

	ctx := context.Background()
	m := cell.NewMutation("src", []byte("doc1")).
		AddLatest([]byte("n"), []byte("x"), cell.Int32(45)).
		AddLatest([]byte("t"), []byte("body"), []byte("fizz buzz fizz")).
		AddLatest([]byte("t"), []byte("title"), []byte("ignored"))
	_, err = r.Mutate(ctx, m)
	require.NoError(t, err)

	fb, _ := s.Table(fizzbuzz.TableName)
	row := fb.Row(fizzbuzz.RowKey(45))
	require.Len(t, row, 1)
	assert.Equal(t, []byte("fizzbuzz"), row[0].Family)
	// the derived cell carries the commit timestamp of its source
	assert.Equal(t, int64(777), row[0].Timestamp)

	words, _ := s.Table(wordcount.DefaultTable)
	c, found := words.Get([]byte("fizz"), []byte("count"), nil)
	require.True(t, found)
	assert.Equal(t, cell.Int64(2), c.Value)
	_, found = words.Get([]byte("ignored"), []byte("count"), nil)
	assert.False(t, found)

	// a non integer value under a fizzbuzz target fails after the primary commit
	bad := cell.NewMutation("src", []byte("doc2")).AddLatest([]byte("n"), nil, []byte("abc"))
	_, err = r.Mutate(ctx, bad)
	assert.ErrorIs(t, err, ErrDerivedIncomplete)
	src, _ := s.Table("src")
	_, found = src.Get([]byte("doc2"), []byte("n"), nil)
	assert.True(t, found)
}
