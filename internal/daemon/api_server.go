package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"groovy/internal/api"
	"groovy/internal/config"
	"groovy/internal/engine"
	"groovy/internal/logging"
	"groovy/internal/scanner"
	"groovy/internal/tracking"
	"groovy/internal/workflow"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	items     *api.ItemService
	completed *api.CompletedService
	workflows *api.WorkflowService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:      bind,
		logger:    logger,
		daemon:    d,
		items:     api.NewItemService(d.store),
		completed: api.NewCompletedService(d.store),
		workflows: api.NewWorkflowService(d.store),
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.requireAuth(token, srv.handleStatus))
	mux.HandleFunc("/api/scans", srv.requireAuth(token, srv.handleScans))
	mux.HandleFunc("/api/scans/", srv.requireAuth(token, srv.handleScanQueries))
	mux.HandleFunc("/api/items", srv.requireAuth(token, srv.handleItems))
	mux.HandleFunc("/api/items/", srv.requireAuth(token, srv.handleItem))
	mux.HandleFunc("/api/completed", srv.requireAuth(token, srv.handleCompletedList))
	mux.HandleFunc("/api/completed/", srv.requireAuth(token, srv.handleCompleted))
	mux.HandleFunc("/api/workflows", srv.requireAuth(token, srv.handleWorkflows))
	mux.HandleFunc("/api/workflows/", srv.requireAuth(token, srv.handleWorkflow))
	if d.metrics != nil {
		mux.Handle("/metrics", d.metrics.Handler())
	}

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:        status.Running,
		PID:            status.PID,
		DatabasePath:   status.DatabasePath,
		LockFilePath:   status.LockFilePath,
		LiveItems:      status.Health.Live,
		CompletedItems: status.Health.Completed,
		Scans:          status.Health.Scans,
		ItemStats:      api.MergeItemStats(status.ItemStats),
	})
}

func (s *apiServer) handleScans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.LogScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	scanType, ok := tracking.ParseScanType(req.ScanType)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown scan type %q", req.ScanType))
		return
	}
	id, err := s.daemon.scans.LogScan(r.Context(), scanner.Request{
		QRData:       req.QRData,
		Type:         scanType,
		Success:      req.Success,
		ErrorMessage: req.ErrorMessage,
		UserID:       req.UserID,
		ItemID:       req.ItemID,
		StageID:      req.StageID,
		WorkflowID:   req.WorkflowID,
		DeviceInfo:   req.DeviceInfo,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.LogScanResponse{ScanID: id})
}

func (s *apiServer) handleScanQueries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/scans/")
	switch {
	case rest == "recent":
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 20
		}
		scans, err := s.daemon.scans.RecentByUser(r.Context(), r.URL.Query().Get("user"), limit)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ScanListResponse{Scans: api.FromScans(scans)})
	case rest == "stats":
		windowSeconds, _ := strconv.Atoi(r.URL.Query().Get("window"))
		window := time.Duration(windowSeconds) * time.Second
		stats, err := s.daemon.scans.StatsSince(r.Context(), window)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if windowSeconds <= 0 {
			windowSeconds = int((24 * time.Hour).Seconds())
		}
		s.writeJSON(w, http.StatusOK, api.ScanStatsResponse{
			WindowSeconds: windowSeconds,
			Stats:         api.FromScanStats(stats),
		})
	case strings.HasPrefix(rest, "item/"):
		itemID := strings.TrimPrefix(rest, "item/")
		if itemID == "" || strings.Contains(itemID, "/") {
			s.writeError(w, http.StatusNotFound, "not found")
			return
		}
		scans, err := s.daemon.scans.ByItem(r.Context(), itemID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ScanListResponse{Scans: api.FromScans(scans)})
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var statuses []tracking.ItemStatus
		for _, value := range r.URL.Query()["status"] {
			if status, ok := tracking.ParseItemStatus(value); ok {
				statuses = append(statuses, status)
			}
		}
		var (
			items []api.Item
			err   error
		)
		if workflowID := strings.TrimSpace(r.URL.Query().Get("workflow")); workflowID != "" {
			items, err = s.items.ListByWorkflow(r.Context(), workflowID)
		} else {
			items, err = s.items.List(r.Context(), statuses...)
		}
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ItemListResponse{Items: items})
	case http.MethodPost:
		var req api.CreateItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		item, err := s.daemon.engine.CreateItem(r.Context(), engine.CreateItemRequest{
			WorkflowID: req.WorkflowID,
			ItemID:     req.ItemID,
			AssignedTo: req.AssignedTo,
			Metadata:   req.Metadata,
			UserID:     req.UserID,
		})
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.ItemResponse{Item: api.FromItem(item)})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/items/")
	itemID, action, _ := strings.Cut(rest, "/")
	if itemID == "" || strings.Contains(action, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		item, err := s.items.Describe(r.Context(), itemID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if item == nil {
			s.writeError(w, http.StatusNotFound, "item not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.ItemResponse{Item: *item})
	case "history":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		history, err := s.items.History(r.Context(), itemID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if history == nil {
			s.writeError(w, http.StatusNotFound, "item not found")
			return
		}
		s.writeJSON(w, http.StatusOK, history)
	case "advance":
		s.handleAdvance(w, r, itemID)
	case "override":
		s.handleOverride(w, r, itemID)
	case "scan":
		s.handleCompleteScan(w, r, itemID)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleAdvance(w http.ResponseWriter, r *http.Request, itemID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.daemon.engine.AdvanceToStage(r.Context(), engine.AdvanceRequest{
		ItemID:    itemID,
		ToStageID: req.ToStageID,
		UserID:    req.UserID,
		Notes:     req.Notes,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transitionResponse(result))
}

func (s *apiServer) handleOverride(w http.ResponseWriter, r *http.Request, itemID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.daemon.engine.OverrideStage(r.Context(), engine.OverrideRequest{
		ItemID:    itemID,
		ToStageID: req.ToStageID,
		UserID:    req.UserID,
		Reason:    req.Reason,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transitionResponse(result))
}

func (s *apiServer) handleCompleteScan(w http.ResponseWriter, r *http.Request, itemID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.CompleteScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.daemon.engine.CompleteStageWithScan(r.Context(), engine.CompleteScanRequest{
		ItemID:     itemID,
		StageID:    req.StageID,
		QRData:     req.QRData,
		UserID:     req.UserID,
		DeviceInfo: req.DeviceInfo,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transitionResponse(result))
}

func (s *apiServer) handleCompletedList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	items, err := s.completed.List(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CompletedListResponse{Items: items})
}

func (s *apiServer) handleCompleted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/completed/")
	itemID, sub, _ := strings.Cut(rest, "/")
	if itemID == "" || strings.Contains(sub, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch sub {
	case "":
		item, err := s.completed.Describe(r.Context(), itemID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if item == nil {
			s.writeError(w, http.StatusNotFound, "completed item not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.CompletedResponse{Item: *item})
	case "history":
		history, err := s.completed.History(r.Context(), itemID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if history == nil {
			s.writeError(w, http.StatusNotFound, "completed item not found")
			return
		}
		s.writeJSON(w, http.StatusOK, history)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		workflows, err := s.workflows.List(r.Context())
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.WorkflowListResponse{Workflows: workflows})
	case http.MethodPut:
		var def workflow.Definition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		stored, err := s.workflows.Define(r.Context(), &def)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, stored)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	workflowID := strings.TrimPrefix(r.URL.Path, "/api/workflows/")
	if workflowID == "" || strings.Contains(workflowID, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	def, err := s.workflows.Describe(r.Context(), workflowID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if def == nil {
		s.writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	s.writeJSON(w, http.StatusOK, def)
}

func transitionResponse(result *engine.Result) api.TransitionResponse {
	resp := api.TransitionResponse{Status: string(result.Status)}
	if result.Item != nil {
		dto := api.FromItem(result.Item)
		resp.Item = &dto
	}
	if result.NextStage != nil {
		resp.NextStageID = result.NextStage.ID
	}
	if result.Completed != nil {
		dto := api.FromCompletedItem(result.Completed)
		resp.Completed = &dto
	}
	return resp
}

// writeDomainError maps transition and validation errors onto HTTP statuses.
func (s *apiServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrItemNotFound),
		errors.Is(err, engine.ErrWorkflowNotFound),
		errors.Is(err, engine.ErrStageNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scanner.ErrRateLimited):
		s.writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, engine.ErrWrongStage),
		errors.Is(err, engine.ErrNoScanAction),
		errors.Is(err, engine.ErrTransitionNotAllowed),
		errors.Is(err, tracking.ErrDuplicateItem):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrOverrideReason),
		errors.Is(err, workflow.ErrInvalidDefinition):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
