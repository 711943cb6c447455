package table

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/semaphore"
)

// DefaultHandlesPerTable is the pool size used when NewPool gets a non-positive size.
const DefaultHandlesPerTable = 16

// Pool is a thread-safe pool of table handles.
// At most maxPerTable handles per table are checked out at the same time, further
// Open calls block until a handle is returned or the context is done.
type Pool struct {
	factory     Factory
	maxPerTable int64
	tables      *xsync.MapOf[string, *tablePool]
	closed      atomic.Bool
}

type tablePool struct {
	sem  *semaphore.Weighted
	mu   sync.Mutex
	idle []Handle
}

// NewPool creates a pool that opens new handles with factory.
func NewPool(factory Factory, maxPerTable int) *Pool {
	if maxPerTable <= 0 {
		maxPerTable = DefaultHandlesPerTable
	}
	return &Pool{
		factory:     factory,
		maxPerTable: int64(maxPerTable),
		tables:      xsync.NewMapOf[string, *tablePool](),
	}
}

// Factory returns a Factory backed by the pool.
func (p *Pool) Factory() Factory {
	return p.Open
}

// Open checks out a handle for the table. Closing the returned handle puts it back.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (p *Pool) Open(ctx context.Context, name string) (Handle, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	tp, _ := p.tables.LoadOrCompute(name, func() *tablePool {
		return &tablePool{sem: semaphore.NewWeighted(p.maxPerTable)}
	})

	if err := tp.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	// reuse an idle handle if there is one
	tp.mu.Lock()
	var h Handle
	if n := len(tp.idle); n > 0 {
		h = tp.idle[n-1]
		tp.idle = tp.idle[:n-1]
	}
	tp.mu.Unlock()

	if h == nil {
		var err error
		if h, err = p.factory(ctx, name); err != nil {
			tp.sem.Release(1)
			return nil, err
		}
	}

	return &pooledHandle{inner: h, pool: p, tp: tp}, nil
}

// Close closes all idle handles. Handles still checked out are closed when they are returned.
func (p *Pool) Close() error {
	p.closed.Store(true)

	var errs []error
	p.tables.Range(func(_ string, tp *tablePool) bool {
		tp.mu.Lock()
		for _, h := range tp.idle {
			if err := h.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		tp.idle = nil
		tp.mu.Unlock()
		return true
	})
	return errors.Join(errs...)
}

// release puts a handle back into its table pool.
func (p *Pool) release(tp *tablePool, h Handle) error {
	defer tp.sem.Release(1)

	if p.closed.Load() {
		return h.Close()
	}

	tp.mu.Lock()
	tp.idle = append(tp.idle, h)
	tp.mu.Unlock()
	return nil
}

// --------------------------------------------------------------------------
// Pooled Handle
// --------------------------------------------------------------------------

// pooledHandle forwards to a pooled handle until it is closed.
type pooledHandle struct {
	inner  Handle
	pool   *Pool
	tp     *tablePool
	closed atomic.Bool
}

func (h *pooledHandle) Put(ctx context.Context, c cell.Cell) error {
	if h.closed.Load() {
		return ErrClosed
	}
	return h.inner.Put(ctx, c)
}

func (h *pooledHandle) PutBatch(ctx context.Context, cells []cell.Cell) error {
	if h.closed.Load() {
		return ErrClosed
	}
	return h.inner.PutBatch(ctx, cells)
}

func (h *pooledHandle) IncrementColumn(ctx context.Context, row, family, qualifier []byte, delta int64) (int64, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	return h.inner.IncrementColumn(ctx, row, family, qualifier, delta)
}

// Close returns the handle to the pool. Closing twice is a no-op.
func (h *pooledHandle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.pool.release(h.tp, h.inner)
}
