package region

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("region")

var (
	// ErrDerivedIncomplete is wrapped by Mutate when the primary commit succeeded but an observer failed.
	ErrDerivedIncomplete = errors.New("region: mutation committed, derived writes incomplete")
	// ErrEmptyMutation is returned by Mutate for a mutation without cells.
	ErrEmptyMutation = errors.New("region: empty mutation")
	// ErrDuplicateObserver is returned by Attach for an observer name already in use.
	ErrDuplicateObserver = errors.New("region: observer already attached")
)

// Observer is notified after every committed mutation.
type Observer interface {
	// OnStart is called once when the observer is attached.
	OnStart(conf map[string]string) error
	// OnAfterMutationCommit is called with the committed mutation, timestamps already assigned.
	OnAfterMutationCommit(ctx context.Context, m *cell.Mutation) error
}

type attached struct {
	name string
	o    Observer
}

// Region commits mutations of one table and notifies its observers.
type Region struct {
	name    string
	primary table.Handle

	mu        sync.RWMutex
	observers []attached

	now func() int64
}

// New creates a region committing to primary. name is the table name passed to observers.
func New(name string, primary table.Handle) *Region {
	return &Region{
		name:    name,
		primary: primary,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// Name returns the name of the table of the region.
func (r *Region) Name() string {
	return r.name
}

// Attach starts the observer with conf and appends it to the observer chain.
func (r *Region) Attach(name string, o Observer, conf map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.observers {
		if a.name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateObserver, name)
		}
	}
	if err := o.OnStart(conf); err != nil {
		return fmt.Errorf("start observer %s on %s: %w", name, r.name, err)
	}

	r.observers = append(r.observers, attached{name: name, o: o})
	log.Infof("attached observer %s to table %s", name, r.name)
	return nil
}

// Observers returns the names of the attached observers in attach order.
func (r *Region) Observers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.observers))
	for i, a := range r.observers {
		names[i] = a.name
	}
	return names
}

// Mutate commits the mutation to the primary table and runs all observers.
// Cells with cell.LatestTimestamp are stamped with the commit time before both.
// The returned mutation is the committed one, it is nil if the commit failed.
func (r *Region) Mutate(ctx context.Context, m *cell.Mutation) (*cell.Mutation, error) {
	if m == nil || m.IsEmpty() {
		return nil, ErrEmptyMutation
	}
	if m.Table != r.name {
		return nil, table.Errorf(table.RetCInvalidOperation, "mutation for table %s sent to %s", m.Table, r.name)
	}

	committed := m.Stamp(r.now())
	if err := r.primary.PutBatch(ctx, committed.Cells()); err != nil {
		return nil, err
	}

	r.mu.RLock()
	observers := make([]attached, len(r.observers))
	copy(observers, r.observers)
	r.mu.RUnlock()

	for _, a := range observers {
		if err := a.o.OnAfterMutationCommit(ctx, committed); err != nil {
			log.Warningf("observer %s on %s failed: %v", a.name, r.name, err)
			return committed, fmt.Errorf("%w: observer %s: %w", ErrDerivedIncomplete, a.name, err)
		}
	}
	return committed, nil
}

// Close closes the primary table handle.
func (r *Region) Close() error {
	return r.primary.Close()
}
