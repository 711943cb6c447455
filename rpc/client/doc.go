// Package client implements the RPC client of dHook.
//
// NewRPCTable creates a client for a single table of a server. The client
// implements table.ReadWriter, so the shared handle conformance tests run
// against it, and adds Mutate (commit through the hooks of the table) and
// Info (table statistics).
//
// Errors returned by the server keep their table.RetCode, so errors.Is
// works with table.ErrNoSuchFamily and friends on the client side. A
// mutation whose primary write committed but whose hooks failed returns the
// committed mutation and an error matching region.ErrDerivedIncomplete.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:     []string{"http://localhost:8080"},
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}
//
//	numbers, _ := client.NewRPCTable(1, config, http.NewHttpClientTransport(), serializer.NewBinarySerializer())
//	defer numbers.Close()
//
//	m := cell.NewMutation("numbers", []byte("row")).AddLatest([]byte("n"), nil, cell.Int32(15))
//	committed, err := numbers.Mutate(ctx, m)
//
// Thread Safety:
//
//	Clients are safe for concurrent use from multiple goroutines.
package client
