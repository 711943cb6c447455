package base

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/dHook/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// loopbackConnector connects over tcp on the loopback interface
type loopbackConnector struct {
	dialer net.Dialer
}

func (c *loopbackConnector) GetName() string { return "loopback" }

func (c *loopbackConnector) Listen(common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}

func (c *loopbackConnector) UpgradeConnection(net.Conn) error { return nil }

func (c *loopbackConnector) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	return c.dialer.DialContext(ctx, "tcp", endpoint)
}

// echoHandler answers with the shard id followed by the request
func echoHandler(_ context.Context, shardId uint64, req []byte) []byte {
	return append(binary.BigEndian.AppendUint64(nil, shardId), req...)
}

// serve runs a server transport until the test ends and returns its address
func serve(t *testing.T, handler func(ctx context.Context, shardId uint64, req []byte) []byte) (string, context.CancelFunc) {
	t.Helper()

	connector := &loopbackConnector{}
	listener, err := connector.Listen(common.ServerConfig{})
	require.NoError(t, err)

	srv := NewServerTransport(connector, 1024)
	srv.RegisterHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return listener.Addr().String(), cancel
}

func connect(t *testing.T, config common.ClientConfig) *ClientTransport {
	t.Helper()

	c := NewClientTransport(&loopbackConnector{})
	require.NoError(t, c.Connect(config))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestFrameRoundTrip(t *testing.T) {
	for _, payload := range [][]byte{{}, []byte("hello"), bytes.Repeat([]byte{0xAB}, 70_000)} {
		var buf bytes.Buffer
		require.NoError(t, writeFrame(&buf, 7, 42, payload))
		assert.Equal(t, frameHeaderSize+len(payload), buf.Len())

		shardID, requestID, data, err := readFrame(&buf)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), shardID)
		assert.Equal(t, uint64(42), requestID)
		assert.Equal(t, payload, data)
	}
}

func TestReadFrameErrors(t *testing.T) {
	var frame bytes.Buffer
	require.NoError(t, writeFrame(&frame, 1, 2, []byte("payload")))
	data := frame.Bytes()

	_, _, _, err := readFrame(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF, "no frame at all")

	_, _, _, err = readFrame(bytes.NewReader(data[:frameHeaderSize-1]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "truncated header")

	_, _, _, err = readFrame(bytes.NewReader(data[:len(data)-1]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "truncated payload")

	oversized := bytes.Clone(data[:frameHeaderSize])
	binary.BigEndian.PutUint32(oversized[16:20], maxFrameSize+1)
	_, _, _, err = readFrame(bytes.NewReader(oversized))
	assert.Error(t, err, "oversized frame")
}

func TestSendReceive(t *testing.T) {
	endpoint, _ := serve(t, echoHandler)
	client := connect(t, common.ClientConfig{
		Endpoints:              []string{endpoint},
		TimeoutSecond:          5,
		ConnectionsPerEndpoint: 2,
	})

	// many concurrent requests share the connections, every caller gets its own response
	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			req := []byte(fmt.Sprintf("request-%d", i))
			resp, err := client.Send(context.Background(), uint64(i), req)
			if err != nil {
				return err
			}
			if want := echoHandler(context.Background(), uint64(i), req); !bytes.Equal(want, resp) {
				return fmt.Errorf("request %d: got %q, want %q", i, resp, want)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestSendTimeout(t *testing.T) {
	endpoint, _ := serve(t, func(ctx context.Context, _ uint64, _ []byte) []byte {
		<-ctx.Done() // never answers before the server stops
		return nil
	})
	client := connect(t, common.ClientConfig{
		Endpoints:     []string{endpoint},
		TimeoutSecond: 1,
		RetryCount:    1,
	})

	_, err := client.Send(context.Background(), 1, []byte("x"))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSendCanceled(t *testing.T) {
	endpoint, _ := serve(t, echoHandler)
	client := connect(t, common.ClientConfig{Endpoints: []string{endpoint}, TimeoutSecond: 5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Send(ctx, 1, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendAfterClose(t *testing.T) {
	endpoint, _ := serve(t, echoHandler)
	client := connect(t, common.ClientConfig{Endpoints: []string{endpoint}, TimeoutSecond: 5})

	require.NoError(t, client.Close())
	_, err := client.Send(context.Background(), 1, []byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestServerShutdownFailsRequests(t *testing.T) {
	endpoint, stop := serve(t, echoHandler)
	client := connect(t, common.ClientConfig{Endpoints: []string{endpoint}, TimeoutSecond: 5, RetryCount: 2})

	_, err := client.Send(context.Background(), 1, []byte("x"))
	require.NoError(t, err)

	stop()
	assert.Eventually(t, func() bool {
		_, err := client.Send(context.Background(), 1, []byte("x"))
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestConnectErrors(t *testing.T) {
	c := NewClientTransport(&loopbackConnector{})
	assert.Error(t, c.Connect(common.ClientConfig{}), "no endpoints")

	// a port nobody listens on
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	endpoint := listener.Addr().String()
	require.NoError(t, listener.Close())

	assert.Error(t, c.Connect(common.ClientConfig{Endpoints: []string{endpoint}, TimeoutSecond: 1}))
}

func TestServeWithoutHandler(t *testing.T) {
	connector := &loopbackConnector{}
	listener, err := connector.Listen(common.ServerConfig{})
	require.NoError(t, err)

	assert.Error(t, NewServerTransport(connector, 1024).Serve(context.Background(), listener))
}
