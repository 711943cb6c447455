package mtable

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
)

// --------------------------------------------------------------------------
// Constants and Options
// --------------------------------------------------------------------------

const (
	defaultMaxVersions = 3
	batchSampleSize    = 1028
)

// Options configures a table.
type Options struct {
	MaxVersions int // Versions kept per column (0 = use default: 3)
}

// DefaultOptions returns the default table options.
func DefaultOptions() *Options {
	return &Options{
		MaxVersions: defaultMaxVersions,
	}
}

// --------------------------------------------------------------------------
// Internal Types
// --------------------------------------------------------------------------

// column addresses a column inside a row
type column struct {
	family    string
	qualifier string
}

// version is a single timestamped value of a column
type version struct {
	ts    int64
	value []byte
}

// row holds all columns of a row, each with its versions sorted newest first
type row struct {
	mu   sync.Mutex
	cols map[column][]version
}

func newRow() *row {
	return &row{cols: make(map[column][]version)}
}

// put inserts a version into the column, replacing a version with the same timestamp.
// The caller must hold the row lock.
func (r *row) put(col column, v version, maxVersions int) {
	versions := r.cols[col]
	i := sort.Search(len(versions), func(i int) bool { return versions[i].ts <= v.ts })
	if i < len(versions) && versions[i].ts == v.ts {
		versions[i] = v
		return
	}

	// insert at i and trim the oldest versions
	versions = append(versions, version{})
	copy(versions[i+1:], versions[i:])
	versions[i] = v
	if len(versions) > maxVersions {
		versions = versions[:maxVersions]
	}
	r.cols[col] = versions
}

// --------------------------------------------------------------------------
// Table
// --------------------------------------------------------------------------

// Table is a sorted, versioned, in-memory table.
type Table struct {
	name        string
	families    map[string]struct{} // nil = any family
	maxVersions int
	rows        *xsync.MapOf[string, *row]

	// statistics
	puts       gometrics.Counter
	increments gometrics.Counter
	batchSizes gometrics.Histogram
}

// NewTable creates an empty table. Without families every family is accepted.
func NewTable(name string, opts *Options, families ...string) *Table {
	if opts == nil {
		opts = DefaultOptions()
	}
	maxVersions := opts.MaxVersions
	if maxVersions <= 0 {
		maxVersions = defaultMaxVersions
	}

	var fams map[string]struct{}
	if len(families) > 0 {
		fams = make(map[string]struct{}, len(families))
		for _, f := range families {
			fams[f] = struct{}{}
		}
	}

	return &Table{
		name:        name,
		families:    fams,
		maxVersions: maxVersions,
		rows:        xsync.NewMapOf[string, *row](),
		puts:        gometrics.NewCounter(),
		increments:  gometrics.NewCounter(),
		batchSizes:  gometrics.NewHistogram(gometrics.NewUniformSample(batchSampleSize)),
	}
}

// Name returns the name of the table.
func (t *Table) Name() string {
	return t.name
}

// Families returns the declared families in sorted order (nil if any family is accepted).
func (t *Table) Families() []string {
	if t.families == nil {
		return nil
	}
	out := make([]string, 0, len(t.families))
	for f := range t.families {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// checkFamily returns a table.Error if the family is not declared.
func (t *Table) checkFamily(family []byte) error {
	if t.families == nil {
		return nil
	}
	if _, ok := t.families[string(family)]; !ok {
		return table.Errorf(table.RetCNoSuchFamily, "table %s has no column family %q", t.name, family)
	}
	return nil
}

// loadRow returns the row for key, creating it if needed.
func (t *Table) loadRow(key []byte) *row {
	r, _ := t.rows.LoadOrCompute(string(key), newRow)
	return r
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Apply writes all cells. Cells with cell.LatestTimestamp are stamped with now.
// The families of all cells are checked before anything is written. All cells of
// one row are written under a single row lock, readers see either none or all of them.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (t *Table) Apply(cells []cell.Cell, now int64) error {
	for _, c := range cells {
		if err := t.checkFamily(c.Family); err != nil {
			return err
		}
		if len(c.Row) == 0 {
			return table.Errorf(table.RetCInvalidOperation, "table %s: empty row key", t.name)
		}
	}

	for _, batch := range groupByRow(cells) {
		r := t.loadRow(batch.key)
		r.mu.Lock()
		for _, c := range batch.cells {
			ts := c.Timestamp
			if ts == cell.LatestTimestamp {
				ts = now
			}

			// copy value to prevent memory corruption
			valueCopy := bytes.Clone(c.Value)
			if valueCopy == nil {
				valueCopy = []byte{}
			}
			r.put(column{family: string(c.Family), qualifier: string(c.Qualifier)}, version{ts: ts, value: valueCopy}, t.maxVersions)
		}
		r.mu.Unlock()
	}

	t.puts.Inc(int64(len(cells)))
	t.batchSizes.Update(int64(len(cells)))
	return nil
}

// rowBatch holds the cells of one row in write order
type rowBatch struct {
	key   []byte
	cells []cell.Cell
}

// groupByRow groups cells by row, rows keep the order of their first cell
func groupByRow(cells []cell.Cell) []rowBatch {
	index := make(map[string]int)
	var batches []rowBatch
	for _, c := range cells {
		i, ok := index[string(c.Row)]
		if !ok {
			i = len(batches)
			index[string(c.Row)] = i
			batches = append(batches, rowBatch{key: c.Row})
		}
		batches[i].cells = append(batches[i].cells, c)
	}
	return batches
}

// Increment atomically adds delta to the 8 byte counter of the column and returns
// the new value. The new version is written at max(now, latest version).
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (t *Table) Increment(rowKey, family, qualifier []byte, delta int64, now int64) (int64, error) {
	if err := t.checkFamily(family); err != nil {
		return 0, err
	}
	if len(rowKey) == 0 {
		return 0, table.Errorf(table.RetCInvalidOperation, "table %s: empty row key", t.name)
	}

	col := column{family: string(family), qualifier: string(qualifier)}
	r := t.loadRow(rowKey)

	r.mu.Lock()
	defer r.mu.Unlock()

	var current int64
	ts := now
	if versions := r.cols[col]; len(versions) > 0 {
		latest := versions[0]
		v, err := cell.ToInt64(latest.value)
		if err != nil {
			return 0, table.Errorf(table.RetCInvalidOperation, "table %s: column %s:%s of row %q is not a counter: %v", t.name, family, qualifier, rowKey, err)
		}
		current = v
		if latest.ts > ts {
			ts = latest.ts
		}
	}

	next := current + delta
	r.put(col, version{ts: ts, value: cell.Int64(next)}, t.maxVersions)
	t.increments.Inc(1)
	return next, nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get returns the latest version of a column.
// The returned cell is a copy and therefore safe to use and modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (t *Table) Get(rowKey, family, qualifier []byte) (cell.Cell, bool) {
	versions := t.Versions(rowKey, family, qualifier)
	if len(versions) == 0 {
		return cell.Cell{}, false
	}
	return versions[0], true
}

// Versions returns all stored versions of a column, newest first.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (t *Table) Versions(rowKey, family, qualifier []byte) []cell.Cell {
	r, ok := t.rows.Load(string(rowKey))
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.cols[column{family: string(family), qualifier: string(qualifier)}]
	out := make([]cell.Cell, len(versions))
	for i, v := range versions {
		out[i] = cell.Cell{
			Row:       bytes.Clone(rowKey),
			Family:    bytes.Clone(family),
			Qualifier: bytes.Clone(qualifier),
			Timestamp: v.ts,
			Value:     bytes.Clone(v.value),
		}
	}
	return out
}

// Row returns the latest version of every column of the row,
// sorted by family and qualifier.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (t *Table) Row(rowKey []byte) []cell.Cell {
	r, ok := t.rows.Load(string(rowKey))
	if !ok {
		return nil
	}

	r.mu.Lock()
	out := make([]cell.Cell, 0, len(r.cols))
	for col, versions := range r.cols {
		if len(versions) == 0 {
			continue
		}
		out = append(out, cell.Cell{
			Row:       bytes.Clone(rowKey),
			Family:    []byte(col.family),
			Qualifier: []byte(col.qualifier),
			Timestamp: versions[0].ts,
			Value:     bytes.Clone(versions[0].value),
		})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Family, out[j].Family); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].Qualifier, out[j].Qualifier) < 0
	})
	return out
}

// Scan returns all row keys in sorted order.
func (t *Table) Scan() [][]byte {
	keys := make([]string, 0, t.rows.Size())
	t.rows.Range(func(key string, _ *row) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)

	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out
}

// --------------------------------------------------------------------------
// Metadata
// --------------------------------------------------------------------------

// TableInfo reports size and usage statistics of a table.
type TableInfo struct {
	Name          string   `json:"name"`
	Families      []string `json:"families,omitempty"`
	Rows          int      `json:"rows"`
	Columns       int      `json:"columns"`
	Versions      int      `json:"versions"`
	SizeBytes     int      `json:"size_bytes"`
	Puts          int64    `json:"puts"`
	Increments    int64    `json:"increments"`
	MeanBatchSize float64  `json:"mean_batch_size"`
	MaxBatchSize  int64    `json:"max_batch_size"`
}

// Info returns statistics about the table.
// Size values are computed from the stored data and may change concurrently.
func (t *Table) Info() TableInfo {
	info := TableInfo{
		Name:          t.name,
		Families:      t.Families(),
		Puts:          t.puts.Count(),
		Increments:    t.increments.Count(),
		MeanBatchSize: t.batchSizes.Mean(),
		MaxBatchSize:  t.batchSizes.Max(),
	}

	t.rows.Range(func(key string, r *row) bool {
		info.Rows++
		r.mu.Lock()
		for col, versions := range r.cols {
			info.Columns++
			info.Versions += len(versions)
			for _, v := range versions {
				// 8 bytes timestamp per version
				info.SizeBytes += len(key) + len(col.family) + len(col.qualifier) + len(v.value) + 8
			}
		}
		r.mu.Unlock()
		return true
	})
	return info
}

// --------------------------------------------------------------------------
// Handle
// --------------------------------------------------------------------------

// Handle returns a new handle to the table.
func (t *Table) Handle() table.ReadWriter {
	return &handle{t: t}
}

// nowMillis returns the wall-clock time used to stamp cells.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
