package base

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dHook/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("transport/rpc")

var (
	// ErrClosed is returned by Send after the transport was closed.
	ErrClosed = errors.New("transport closed")
	// ErrTimeout is returned by Send if no response arrived within the client timeout.
	ErrTimeout = errors.New("request timed out")
)

// initial backoff between two attempts, doubled after every attempt
const initialBackoff = 50 * time.Millisecond

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(ctx context.Context, endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// clientConnection is a single connection to an endpoint.
// A broken connection is dialed again by the next request using it.
type clientConnection struct {
	endpoint string
	parent   *ClientTransport

	mu      sync.Mutex // guards conn and all writes to it
	conn    net.Conn
	pending *xsync.MapOf[uint64, chan responseResult]
}

// ClientTransport sends framed requests over a fixed set of connections,
// balanced round-robin. Requests are pipelined: many requests may wait for
// their response on the same connection.
type ClientTransport struct {
	connector IClientConnector
	config    common.ClientConfig

	connectionsMu sync.RWMutex
	connections   []*clientConnection

	nextConnIndex atomic.Uint64
	nextRequestID atomic.Uint64
	closed        atomic.Bool
}

// NewClientTransport creates a client transport for the connector
func NewClientTransport(connector IClientConnector) *ClientTransport {
	return &ClientTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *ClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("%s transport: no endpoints", t.connector.GetName())
	}

	// drop connections of an earlier Connect
	t.closeConnections()

	t.config = config
	t.closed.Store(false)

	connectionsPerEP := max(1, config.ConnectionsPerEndpoint)
	connections := make([]*clientConnection, 0, len(config.Endpoints)*connectionsPerEP)

	for _, endpoint := range config.Endpoints {
		for i := 0; i < connectionsPerEP; i++ {
			c := &clientConnection{
				endpoint: endpoint,
				parent:   t,
				pending:  xsync.NewMapOf[uint64, chan responseResult](),
			}

			ctx, cancel := t.timeoutContext(context.Background())
			c.mu.Lock()
			err := c.dial(ctx)
			c.mu.Unlock()
			cancel()

			if err != nil {
				log.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}
			connections = append(connections, c)
		}
	}

	if len(connections) == 0 {
		return fmt.Errorf("%s transport: failed to connect to any endpoint", t.connector.GetName())
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	log.Infof("Connected %d out of %d connections to %d endpoints using %s transport",
		len(connections), len(config.Endpoints)*connectionsPerEP, len(config.Endpoints), t.connector.GetName())
	return nil
}

func (t *ClientTransport) Send(ctx context.Context, shardId uint64, req []byte) ([]byte, error) {
	attempts := max(1, t.config.RetryCount)
	backoff := initialBackoff

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if t.closed.Load() {
			return nil, ErrClosed
		}
		conn := t.getNextConnection()
		if conn == nil {
			return nil, fmt.Errorf("%s transport: not connected", t.connector.GetName())
		}

		data, err := conn.roundTrip(ctx, shardId, req)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		log.Debugf("Request to %s failed (attempt %d/%d): %v", conn.endpoint, i+1, attempts, err)

		if i+1 < attempts {
			// exponential backoff with +-10% jitter
			jitter := time.Duration(float64(backoff) * (0.9 + 0.2*rand.Float64()))
			select {
			case <-time.After(jitter):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("failed to send request after %d attempts: %w", attempts, lastErr)
}

func (t *ClientTransport) Close() error {
	t.closed.Store(true)
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// timeoutContext applies the client timeout to ctx
func (t *ClientTransport) timeoutContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.config.TimeoutSecond > 0 {
		return context.WithTimeout(ctx, time.Duration(t.config.TimeoutSecond)*time.Second)
	}
	return context.WithCancel(ctx)
}

// getNextConnection selects the next connection via round-robin
func (t *ClientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	switch len(t.connections) {
	case 0:
		return nil
	case 1:
		return t.connections[0]
	default:
		return t.connections[t.nextConnIndex.Add(1)%uint64(len(t.connections))]
	}
}

// closeConnections closes and removes all connections
func (t *ClientTransport) closeConnections() {
	t.connectionsMu.Lock()
	connections := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, c := range connections {
		c.mu.Lock()
		if c.conn != nil {
			c.fail(c.conn, ErrClosed)
		}
		c.mu.Unlock()
	}
}

// dial opens the connection and starts its response reader.
// The caller must hold c.mu.
func (c *clientConnection) dial(ctx context.Context) error {
	conn, err := c.parent.connector.Connect(ctx, c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}
	c.conn = conn
	go c.readResponses(conn)
	return nil
}

// fail closes conn and fails all requests waiting on it.
// The caller must hold c.mu.
func (c *clientConnection) fail(conn net.Conn, err error) {
	if c.conn != conn {
		// already replaced by a new connection
		return
	}
	_ = conn.Close()
	c.conn = nil

	c.pending.Range(func(id uint64, _ chan responseResult) bool {
		if ch, ok := c.pending.LoadAndDelete(id); ok {
			ch <- responseResult{err: err}
		}
		return true
	})
}

// roundTrip writes a request and waits for its response
func (c *clientConnection) roundTrip(ctx context.Context, shardId uint64, req []byte) ([]byte, error) {
	ctx, cancel := c.parent.timeoutContext(ctx)
	defer cancel()

	requestID := c.parent.nextRequestID.Add(1)
	respCh := make(chan responseResult, 1)
	defer c.pending.Delete(requestID)

	if err := c.write(ctx, shardId, requestID, req, respCh); err != nil {
		return nil, err
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// write registers the response channel and writes the request frame,
// dialing the endpoint again if the last connection broke.
func (c *clientConnection) write(ctx context.Context, shardId, requestID uint64, req []byte, respCh chan responseResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.parent.closed.Load() {
		return ErrClosed
	}
	if c.conn == nil {
		if err := c.dial(ctx); err != nil {
			return err
		}
	}
	conn := c.conn

	c.pending.Store(requestID, respCh)

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			c.fail(conn, err)
			return err
		}
	}
	if err := writeFrame(conn, shardId, requestID, req); err != nil {
		c.fail(conn, err)
		return err
	}
	return nil
}

// readResponses reads responses of conn and hands them to the waiting requests
// until conn breaks or is closed.
func (c *clientConnection) readResponses(conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		_, requestID, data, err := readFrame(reader)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Debugf("Connection to %s broke: %v", c.endpoint, err)
			}
			c.mu.Lock()
			c.fail(conn, fmt.Errorf("connection to %s broke: %w", c.endpoint, err))
			c.mu.Unlock()
			return
		}

		if respCh, ok := c.pending.LoadAndDelete(requestID); ok {
			respCh <- responseResult{data: data}
		} else {
			log.Warningf("Received response for unknown request ID %d", requestID)
		}
	}
}
