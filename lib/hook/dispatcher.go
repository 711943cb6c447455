package hook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/derive"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("hook")

var (
	// ErrNotReady is returned by OnAfterMutationCommit before a successful OnStart.
	ErrNotReady = errors.New("hook: not started")
	// ErrAlreadyStarted is returned by OnStart on a ready dispatcher.
	ErrAlreadyStarted = errors.New("hook: already started")
)

// State is the lifecycle state of a dispatcher.
type State uint8

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// Dispatcher runs one hook: it matches committed cells, derives write requests and
// issues them through the table factory.
type Dispatcher struct {
	kind    Kind
	factory table.Factory
	metrics *hookMetrics

	startMu sync.Mutex
	cfg     atomic.Pointer[config] // nil until started, never changed afterward
}

// NewDispatcher creates an uninitialized dispatcher of the given kind.
// Tables are reached only through factory.
func NewDispatcher(kind Kind, factory table.Factory) *Dispatcher {
	return &Dispatcher{
		kind:    kind,
		factory: factory,
		metrics: newHookMetrics(kind),
	}
}

// Kind returns the kind of the dispatcher.
func (d *Dispatcher) Kind() Kind {
	return d.kind
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	if d.cfg.Load() == nil {
		return StateUninitialized
	}
	return StateReady
}

// OnStart parses the options and makes the dispatcher ready. On error the dispatcher
// stays uninitialized and OnStart may be called again.
func (d *Dispatcher) OnStart(conf map[string]string) error {
	d.startMu.Lock()
	defer d.startMu.Unlock()

	if d.cfg.Load() != nil {
		return ErrAlreadyStarted
	}
	if d.factory == nil {
		return fmt.Errorf("%w: no table factory", ErrConfig)
	}

	cfg, err := parseConfig(d.kind, conf)
	if err != nil {
		log.Errorf("hook %s failed to start: %v", d.kind, err)
		return err
	}
	if len(cfg.ignored) > 0 {
		log.Warningf("hook %s ignores options %v", d.kind, cfg.ignored)
	}
	if len(cfg.targets) == 0 {
		log.Warningf("hook %s has no targets and will not match any cell", d.kind)
	}

	d.cfg.Store(cfg)
	log.Infof("hook %s ready (targets=%q)", d.kind, cfg.targets.String())
	return nil
}

// OnAfterMutationCommit derives and issues the writes for a committed mutation.
// It blocks until all derived writes have been issued or one of them failed.
func (d *Dispatcher) OnAfterMutationCommit(ctx context.Context, m *cell.Mutation) (err error) {
	cfg := d.cfg.Load()
	if cfg == nil {
		return ErrNotReady
	}

	start := time.Now()
	d.metrics.invocations.Inc()
	defer func() {
		d.metrics.duration.UpdateDuration(start)
		if err != nil {
			d.metrics.errors.Inc()
			log.Debugf("hook %s failed for %s: %v", d.kind, m, err)
		}
	}()

	cells := cfg.targets.Match(m)
	if len(cells) == 0 {
		return nil
	}
	d.metrics.matched.Add(len(cells))

	var reqs []derive.WriteRequest
	for _, c := range cells {
		r, err := cfg.deriver.Derive(m.Table, c)
		if err != nil {
			return fmt.Errorf("hook %s: %w", d.kind, err)
		}
		reqs = append(reqs, r...)
	}

	if err := d.issue(ctx, reqs); err != nil {
		return fmt.Errorf("hook %s: %w", d.kind, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Issuing write requests
// --------------------------------------------------------------------------

// issue sends puts as one batch per table, in order of first appearance, followed
// by every increment as its own call. All handles are closed before returning.
func (d *Dispatcher) issue(ctx context.Context, reqs []derive.WriteRequest) (err error) {
	if len(reqs) == 0 {
		return nil
	}

	handles := newHandleSet(d.factory)
	defer func() {
		err = errors.Join(err, handles.closeAll())
	}()

	var order []string
	puts := make(map[string][]cell.Cell)
	var increments []derive.WriteRequest
	for _, r := range reqs {
		switch r.Kind {
		case derive.KindPut:
			if _, ok := puts[r.Table]; !ok {
				order = append(order, r.Table)
			}
			puts[r.Table] = append(puts[r.Table], r.Cell())
		case derive.KindIncrement:
			increments = append(increments, r)
		default:
			return fmt.Errorf("unknown write request kind %s", r.Kind)
		}
	}

	for _, name := range order {
		h, err := handles.get(ctx, name)
		if err != nil {
			return err
		}
		if err := h.PutBatch(ctx, puts[name]); err != nil {
			return fmt.Errorf("put %d cells into %s: %w", len(puts[name]), name, err)
		}
		d.metrics.puts.Add(len(puts[name]))
	}

	for _, r := range increments {
		h, err := handles.get(ctx, r.Table)
		if err != nil {
			return err
		}
		if _, err := h.IncrementColumn(ctx, r.Row, r.Family, r.Qualifier, r.Delta); err != nil {
			return fmt.Errorf("increment %s: %w", r, err)
		}
		d.metrics.increments.Inc()
	}
	return nil
}

// handleSet opens every table at most once per invocation.
type handleSet struct {
	factory table.Factory
	open    map[string]table.Handle
}

func newHandleSet(factory table.Factory) *handleSet {
	return &handleSet{factory: factory, open: make(map[string]table.Handle)}
}

func (s *handleSet) get(ctx context.Context, name string) (table.Handle, error) {
	if h, ok := s.open[name]; ok {
		return h, nil
	}
	h, err := s.factory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", name, err)
	}
	s.open[name] = h
	return h, nil
}

func (s *handleSet) closeAll() error {
	var errs []error
	for name, h := range s.open {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close table %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
