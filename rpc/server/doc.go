// Package server implements the RPC server of dHook. It serves the tables of
// a layout and runs the hooks attached to them.
//
// Every table of the layout gets:
//   - a table handle (ltable: in-memory mtable.Table, dtable: raft replicated
//     dtable.Table) used for put, increment, get, row and info requests,
//   - a region.Region wrapping that handle. Mutate requests are committed
//     through the region, which runs the hooks of the table after the
//     primary write succeeded.
//
// Hooks are hook.Dispatcher observers. They open the tables they derive into
// through a table.Pool, so the number of concurrently used handles per table
// is bounded by ServerConfig.HandlesPerTable.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Layout:        common.DefaultLayout(),
//	  Endpoint:      "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  http.NewHttpServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// When the layout contains dtables the RAFT configuration (RTTMillisecond,
// SnapshotEntries, CompactionOverhead, DataDir, ReplicaID and ClusterMembers)
// must be set.
//
// Thread Safety:
//
//	The server handles concurrent requests. Serve must be called only once.
package server
