package base

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/dHook/rpc/common"
	"github.com/ValentinKolb/dHook/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkersPerConn is used if the server config does not set WorkersPerConn.
const DefaultWorkersPerConn = 64

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn) error

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Server Transport
// -----------------------------------------------------------

// ServerTransport serves framed requests on connections accepted by a connector.
// Every connection handles up to WorkersPerConn requests concurrently, responses
// are matched to requests by the request id of the frame.
type ServerTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	config     common.ServerConfig
	bufferSize int
	conns      *xsync.MapOf[net.Conn, struct{}]
}

// NewServerTransport creates a server transport for the connector.
// bufferSize is the size of the read buffer of every connection.
func NewServerTransport(connector IServerConnector, bufferSize int) *ServerTransport {
	return &ServerTransport{
		connector:  connector,
		bufferSize: bufferSize,
		conns:      xsync.NewMapOf[net.Conn, struct{}](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *ServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *ServerTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	t.config = config

	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("%s transport: failed to create listener: %w", t.connector.GetName(), err)
	}
	return t.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done or the listener fails.
// It closes the listener and all connections and waits for running requests before returning.
func (t *ServerTransport) Serve(ctx context.Context, listener net.Listener) error {
	if t.handler == nil {
		_ = listener.Close()
		return fmt.Errorf("%s transport: no handler registered", t.connector.GetName())
	}

	// close the listener and all open connections once the context is done
	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
		t.conns.Range(func(conn net.Conn, _ struct{}) bool {
			_ = conn.Close()
			return true
		})
	})
	defer stop()

	log.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), t.workersPerConn())

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Errorf("Accept error: %v", err)
			continue
		}

		t.conns.Store(conn, struct{}{})
		// the context may have been canceled after the connection was accepted
		if ctx.Err() != nil {
			_ = conn.Close()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer t.conns.Delete(conn)
			t.handleConnection(ctx, conn)
		}()
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *ServerTransport) workersPerConn() int {
	if t.config.WorkersPerConn > 0 {
		return t.config.WorkersPerConn
	}
	return DefaultWorkersPerConn
}

// handleConnection handles incoming requests for one connection
func (t *ServerTransport) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := t.connector.UpgradeConnection(conn); err != nil {
		log.Errorf("Failed to upgrade %s connection: %v", t.connector.GetName(), err)
		return
	}

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// the group bounds the concurrent workers of this connection
	var workers errgroup.Group
	workers.SetLimit(t.workersPerConn())

	// protects writes to the connection
	var writeMu sync.Mutex

	reader := bufio.NewReaderSize(conn, t.bufferSize)
readLoop:
	for {
		shardID, requestID, data, err := readFrame(reader)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				log.Debugf("Connection closed by client")
			case ctx.Err() != nil || errors.Is(err, net.ErrClosed):
				log.Debugf("Connection closed by server")
			default:
				log.Errorf("Error reading request: %v", err)
			}
			break readLoop
		}

		// blocks while all workers of the connection are busy
		workers.Go(func() error {
			start := time.Now()
			resp := t.handler(ctx, shardID, data)
			log.Debugf("Processed request for shard %d with requestID %d took %s", shardID, requestID, time.Since(start))

			writeMu.Lock()
			defer writeMu.Unlock()

			if timeout > 0 {
				if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
					log.Errorf("Failed to set write deadline: %v", err)
					return nil
				}
			}
			if err := writeFrame(conn, shardID, requestID, resp); err != nil {
				log.Errorf("Failed to write response: %v", err)
			}
			return nil
		})
	}

	// running requests finish before the connection is closed
	_ = workers.Wait()
}
