// Package testing provides standardised tests and benchmarks for table
// implementations that satisfy the table.Handle and table.Reader interfaces.
//
// The package contains:
//   - RunHandleTests: a test suite validating conformance to the table contract
//   - RunHandleBenchmarks: throughput of puts, batches, increments and reads
//
// The factory must return a handle to a fresh, empty table declaring the
// column families in Families.
//
// Example usage:
//
//	factory := func() table.ReadWriter {
//		t, _ := mtable.NewStore(nil).Create("test", testing.Families...)
//		return t.Handle()
//	}
//
//	testing.RunHandleTests(t, "mtable", factory)
//	testing.RunHandleBenchmarks(b, "mtable", factory)
package testing
