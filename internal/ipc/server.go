package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"groovy/internal/api"
	"groovy/internal/daemon"
	"groovy/internal/engine"
	"groovy/internal/logging"
	"groovy/internal/tracking"
	"groovy/internal/workflow"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Groovy", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("ipc accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String("component", "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.APIAddr = s.daemon.APIAddr()
	resp.LiveItems = status.Health.Live
	resp.CompletedItems = status.Health.Completed
	resp.Scans = status.Health.Scans
	resp.ItemStats = api.MergeItemStats(status.ItemStats)
	return nil
}

func (s *service) ItemList(req ItemListRequest, resp *ItemListResponse) error {
	svc := api.NewItemService(s.daemon.Store())
	if req.WorkflowID != "" {
		items, err := svc.ListByWorkflow(s.ctx, req.WorkflowID)
		if err != nil {
			return err
		}
		resp.Items = items
		return nil
	}
	statuses := make([]tracking.ItemStatus, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		if parsed, ok := tracking.ParseItemStatus(status); ok {
			statuses = append(statuses, parsed)
		}
	}
	items, err := svc.List(s.ctx, statuses...)
	if err != nil {
		return err
	}
	resp.Items = items
	return nil
}

func (s *service) ItemDescribe(req ItemDescribeRequest, resp *ItemDescribeResponse) error {
	svc := api.NewItemService(s.daemon.Store())
	item, err := svc.Describe(s.ctx, req.ItemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("item %s not found", req.ItemID)
	}
	resp.Item = *item
	return nil
}

// ItemHistory serves the ledger for live and archived items alike, so the
// CLI does not need to know which side of the archive an item landed on.
func (s *service) ItemHistory(req ItemHistoryRequest, resp *ItemHistoryResponse) error {
	items := api.NewItemService(s.daemon.Store())
	history, err := items.History(s.ctx, req.ItemID)
	if err != nil {
		return err
	}
	if history != nil {
		resp.ItemID = history.ItemID
		resp.Entries = history.Entries
		return nil
	}

	completed := api.NewCompletedService(s.daemon.Store())
	history, err = completed.History(s.ctx, req.ItemID)
	if err != nil {
		return err
	}
	if history == nil {
		return fmt.Errorf("item %s not found", req.ItemID)
	}
	resp.ItemID = history.ItemID
	resp.Completed = true
	resp.Entries = history.Entries
	return nil
}

func (s *service) ItemAdd(req ItemAddRequest, resp *ItemAddResponse) error {
	item, err := s.daemon.Engine().CreateItem(s.ctx, engine.CreateItemRequest{
		WorkflowID: req.WorkflowID,
		ItemID:     req.ItemID,
		AssignedTo: req.AssignedTo,
		UserID:     req.UserID,
	})
	if err != nil {
		return err
	}
	resp.Item = api.FromItem(item)
	return nil
}

func (s *service) CompletedList(req CompletedListRequest, resp *CompletedListResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	svc := api.NewCompletedService(s.daemon.Store())
	items, err := svc.List(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Items = items
	return nil
}

func (s *service) ScanStats(req ScanStatsRequest, resp *ScanStatsResponse) error {
	window := time.Duration(req.WindowSeconds) * time.Second
	stats, err := s.daemon.Scans().StatsSince(s.ctx, window)
	if err != nil {
		return err
	}
	resp.WindowSeconds = req.WindowSeconds
	if resp.WindowSeconds <= 0 {
		resp.WindowSeconds = int((24 * time.Hour).Seconds())
	}
	resp.Total = stats.Total
	resp.Succeeded = stats.Succeeded
	resp.Failed = stats.Failed
	resp.SuccessRate = stats.SuccessRate
	return nil
}

func (s *service) WorkflowList(_ WorkflowListRequest, resp *WorkflowListResponse) error {
	svc := api.NewWorkflowService(s.daemon.Store())
	workflows, err := svc.List(s.ctx)
	if err != nil {
		return err
	}
	resp.Workflows = workflows
	return nil
}

func (s *service) WorkflowDefine(req WorkflowDefineRequest, resp *WorkflowDefineResponse) error {
	def, err := workflow.Parse([]byte(req.TOML))
	if err != nil {
		return err
	}
	svc := api.NewWorkflowService(s.daemon.Store())
	stored, err := svc.Define(s.ctx, def)
	if err != nil {
		return err
	}
	resp.Workflow = *stored
	return nil
}
