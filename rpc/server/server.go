package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/dHook/lib/hook"
	"github.com/ValentinKolb/dHook/lib/region"
	"github.com/ValentinKolb/dHook/lib/table"
	"github.com/ValentinKolb/dHook/lib/table/dtable"
	"github.com/ValentinKolb/dHook/lib/table/mtable"
	"github.com/ValentinKolb/dHook/rpc/common"
	"github.com/ValentinKolb/dHook/rpc/serializer"
	"github.com/ValentinKolb/dHook/rpc/transport"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("rpc")

// serverTable is a table served by the RPC server.
// Mutations go through the region (primary write + hooks), all other
// operations use the table handle directly.
type serverTable struct {
	id     uint64
	typ    common.TableType
	region *region.Region
	rw     table.ReadWriter
	info   func(ctx context.Context) (mtable.TableInfo, error)
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		http.NewHttpServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	if config.Layout == nil {
		config.Layout = common.DefaultLayout()
	}

	return &rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		adapter:    NewTableServerAdapter(),
		tables:     xsync.NewMapOf[uint64, *serverTable](),
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter

	store    *mtable.Store
	nodeHost *dragonboat.NodeHost
	pool     *table.Pool
	tables   *xsync.MapOf[uint64, *serverTable]
}

// handle decodes a request, lets the adapter handle it and encodes the response
func (s *rpcServer) handle(ctx context.Context, shardId uint64, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	if t, ok := s.tables.Load(shardId); !ok {
		respMsg = common.NewErrorResponseFor(table.Errorf(table.RetCTableNotFound, "table %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		respMsg = s.adapter.Handle(ctx, &msg, t)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		log.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// remoteShardOf resolves the name of a replicated table to its shard
func (s *rpcServer) remoteShardOf(name string) (uint64, bool) {
	for _, tc := range s.config.Layout.Tables {
		if tc.Name == name && tc.Type == common.TableTypeRemote {
			return tc.ShardID, true
		}
	}
	return 0, false
}

// factory opens handles to every table of the layout by name.
// Hooks use it (through the handle pool) to reach their derived tables.
func (s *rpcServer) factory(timeout time.Duration) table.Factory {
	local := s.store.Factory()
	var remote table.Factory
	if s.nodeHost != nil {
		remote = dtable.Factory(s.nodeHost, timeout, s.remoteShardOf)
	}

	return func(ctx context.Context, name string) (table.Handle, error) {
		if _, ok := s.store.Table(name); ok || remote == nil {
			return local(ctx, name)
		}
		return remote(ctx, name)
	}
}

func (s *rpcServer) init() error {
	if err := s.config.Layout.Validate(); err != nil {
		return err
	}

	opts := mtable.DefaultOptions()
	if s.config.Layout.MaxVersions > 0 {
		opts.MaxVersions = s.config.Layout.MaxVersions
	}
	s.store = mtable.NewStore(opts)

	// Only create the NodeHost if we have replicated tables
	if s.config.HasRemoteTable() {
		nh, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		s.nodeHost = nh
	}

	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	// CREATE TABLES

	for _, tc := range s.config.Layout.Tables {
		st := &serverTable{id: tc.ShardID, typ: tc.Type}

		switch tc.Type {
		case common.TableTypeLocal:
			t, err := s.store.Create(tc.Name, tc.Families...)
			if err != nil {
				return fmt.Errorf("failed to create table %s: %w", tc.Name, err)
			}
			st.rw = t.Handle()
			st.info = func(context.Context) (mtable.TableInfo, error) { return t.Info(), nil }
			log.Infof("created local table %s (%d)", tc.Name, tc.ShardID)

		case common.TableTypeRemote:
			if err := s.nodeHost.StartConcurrentReplica(
				s.config.ClusterMembers,
				false,
				dtable.CreateStateMachineFactory(tc.Name, opts, tc.Families...),
				s.config.ToDragonboatConfig(tc.ShardID),
			); err != nil {
				return fmt.Errorf("failed to start shard %d: %w", tc.ShardID, err)
			}
			t := dtable.New(s.nodeHost, tc.ShardID, timeout)
			st.rw = t
			st.info = t.Info
			log.Infof("created replicated table %s (%d)", tc.Name, tc.ShardID)

		default:
			return fmt.Errorf("invalid table type: %s", tc.Type)
		}

		st.region = region.New(tc.Name, st.rw)
		s.tables.Store(tc.ShardID, st)
	}

	// ATTACH HOOKS (after all tables exist, a hook may write to any table)

	s.pool = table.NewPool(s.factory(timeout), s.config.HandlesPerTable)
	for _, tc := range s.config.Layout.Tables {
		st, _ := s.tables.Load(tc.ShardID)
		for _, hc := range tc.Hooks {
			kind, err := hook.ParseKind(hc.Kind)
			if err != nil {
				return fmt.Errorf("hook %s on table %s: %w", hc.Name, tc.Name, err)
			}
			if err := st.region.Attach(hc.Name, hook.NewDispatcher(kind, s.pool.Factory()), hc.Options); err != nil {
				return err
			}
		}
	}

	log.Infof("dHook setup completed successfully")

	s.transport.RegisterHandler(s.handle)

	return nil
}

// Serve starts the RPC server
// This function will also initialize the loggers and tables and start the transport layer.
// It blocks until ctx is canceled or the transport fails.
func (s *rpcServer) Serve(ctx context.Context) error {
	common.InitLoggers(s.config)
	log.Infof("Created RPC Server")
	log.Infof("%s", s.config.String())

	if err := s.init(); err != nil {
		return errors.Join(err, s.Close())
	}
	return errors.Join(s.transport.Listen(ctx, s.config), s.Close())
}

// Close releases all table handles and stops the node host
func (s *rpcServer) Close() error {
	var errs []error
	if s.pool != nil {
		errs = append(errs, s.pool.Close())
	}
	s.tables.Range(func(_ uint64, st *serverTable) bool {
		errs = append(errs, st.region.Close())
		return true
	})
	s.tables.Clear()
	if s.nodeHost != nil {
		s.nodeHost.Close()
		s.nodeHost = nil
	}
	return errors.Join(errs...)
}
