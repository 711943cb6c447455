package mtable

import (
	"context"
	"sort"

	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/puzpuzpuz/xsync/v3"
)

// Store hosts named local tables.
type Store struct {
	opts   *Options
	tables *xsync.MapOf[string, *Table]
}

// NewStore creates an empty store. All tables are created with opts.
func NewStore(opts *Options) *Store {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Store{
		opts:   opts,
		tables: xsync.NewMapOf[string, *Table](),
	}
}

// Create adds a new table. Without families the table accepts every family.
// Creating a table that already exists is an invalid operation.
func (s *Store) Create(name string, families ...string) (*Table, error) {
	if name == "" {
		return nil, table.NewError(table.RetCInvalidOperation, "table name must not be empty")
	}

	created := false
	t, _ := s.tables.LoadOrCompute(name, func() *Table {
		created = true
		return NewTable(name, s.opts, families...)
	})
	if !created {
		return nil, table.Errorf(table.RetCInvalidOperation, "table %s already exists", name)
	}
	return t, nil
}

// Table returns the table with the given name.
func (s *Store) Table(name string) (*Table, bool) {
	return s.tables.Load(name)
}

// Names returns the names of all tables in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, s.tables.Size())
	s.tables.Range(func(name string, _ *Table) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Factory returns a table.Factory opening handles to the tables of the store.
// Opening an unknown table returns a table.Error with code table.RetCTableNotFound.
func (s *Store) Factory() table.Factory {
	return func(ctx context.Context, name string) (table.Handle, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, ok := s.Table(name)
		if !ok {
			return nil, table.Errorf(table.RetCTableNotFound, "table %s not found", name)
		}
		return t.Handle(), nil
	}
}
