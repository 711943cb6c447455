package testing

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dHook/lib/cell"
	"github.com/ValentinKolb/dHook/lib/table"
)

// RunHandleBenchmarks runs all benchmarks for a table implementation
func RunHandleBenchmarks(b *testing.B, name string, factory HandleFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Put", func(b *testing.B) {
			benchmarkPut(b, factory())
		})

		b.Run("PutBatch", func(b *testing.B) {
			benchmarkPutBatch(b, factory())
		})

		b.Run("Increment(hot)", func(b *testing.B) {
			benchmarkIncrementHot(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkPut(b *testing.B, h table.ReadWriter) {
	b.Cleanup(func() {
		h.Close()
	})
	ctx := context.Background()
	value := []byte("benchmark-value")

	var counter atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			row := []byte(fmt.Sprintf("row-%d", counter.Add(1)))
			if err := h.Put(ctx, cell.Cell{Row: row, Family: cf, Timestamp: cell.LatestTimestamp, Value: value}); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func benchmarkPutBatch(b *testing.B, h table.ReadWriter) {
	b.Cleanup(func() {
		h.Close()
	})
	ctx := context.Background()

	const batchSize = 16
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cells := make([]cell.Cell, batchSize)
		for j := range cells {
			cells[j] = cell.Cell{Row: []byte(fmt.Sprintf("row-%d-%d", i, j)), Family: cf, Timestamp: cell.LatestTimestamp, Value: cell.Int32(int32(j))}
		}
		if err := h.PutBatch(ctx, cells); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkIncrementHot(b *testing.B, h table.ReadWriter) {
	b.Cleanup(func() {
		h.Close()
	})
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := h.IncrementColumn(ctx, []byte("hot"), cf, nil, 1); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func benchmarkGet(b *testing.B, h table.ReadWriter) {
	b.Cleanup(func() {
		h.Close()
	})
	ctx := context.Background()

	const rows = 1000
	for i := 0; i < rows; i++ {
		if err := h.Put(ctx, cell.Cell{Row: []byte(fmt.Sprintf("row-%d", i)), Family: cf, Timestamp: 1, Value: []byte("v")}); err != nil {
			b.Fatal(err)
		}
	}

	var counter atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			row := []byte(fmt.Sprintf("row-%d", counter.Add(1)%rows))
			if _, _, err := h.Get(ctx, row, cf, nil); err != nil {
				b.Fatal(err)
			}
		}
	})
}
