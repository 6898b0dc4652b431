// Package server exposes the run controller over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/table"
	"ArticlesEvaluator/internal/usecase"
	"ArticlesEvaluator/internal/verdict"
)

const apiKeyHeader = "X-Api-Key"

// RunController is the subset of usecase.Controller served over HTTP.
type RunController interface {
	Start(ctx context.Context, params usecase.RunParams) (string, error)
	Cancel() bool
	Status() usecase.Status
	Export(w io.Writer) error
	Results(index int) (domain.Results, bool)
	Records() int
}

// RunHistory reads results of past runs from durable storage.
type RunHistory interface {
	LoadRun(ctx context.Context, runID string) (map[int]domain.Results, error)
}

// Options configure a Server.
type Options struct {
	Addr string
	// Course and Credential are used when a start request omits them.
	Course     string
	Credential string
	Gatherer   prometheus.Gatherer
	// History is optional; without it stored runs are not served.
	History RunHistory
	Logger  *slog.Logger
}

// Server is the HTTP control surface for evaluation runs.
type Server struct {
	controller RunController
	opts       Options
	logger     *slog.Logger
	engine     *gin.Engine
	// runCtx outlives individual requests so runs survive the start call.
	runCtx context.Context
}

type startRequest struct {
	Course string `json:"course"`
	Start  *int   `json:"start"`
	End    *int   `json:"end"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds the gin engine and routes. runCtx bounds every run started over HTTP.
func New(runCtx context.Context, controller RunController, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		controller: controller,
		opts:       opts,
		logger:     logger,
		engine:     engine,
		runCtx:     runCtx,
	}

	engine.GET("/healthz", s.health)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	api := engine.Group("/api")
	api.POST("/runs", s.startRun)
	api.POST("/runs/cancel", s.cancelRun)
	api.GET("/runs/status", s.status)
	api.GET("/export", s.export)
	api.GET("/records/:index", s.record)
	api.GET("/runs/:id/records", s.runRecords)

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "records": s.controller.Records()})
}

func (s *Server) startRun(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	credential := c.GetHeader(apiKeyHeader)
	if credential == "" {
		credential = s.opts.Credential
	}
	if credential == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "missing api key"})
		return
	}

	course := req.Course
	if course == "" {
		course = s.opts.Course
	}

	params := usecase.RunParams{Course: course, Credential: credential, Start: 0, End: s.controller.Records() - 1}
	if req.Start != nil {
		params.Start = *req.Start
	}
	if req.End != nil {
		params.End = *req.End
	}

	runID, err := s.controller.Start(s.runCtx, params)
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, usecase.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		s.logger.Error("start run failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "start": params.Start, "end": params.End, "course": course})
}

func (s *Server) cancelRun(c *gin.Context) {
	if !s.controller.Cancel() {
		c.JSON(http.StatusConflict, errorResponse{Error: "no run in progress"})
		return
	}
	c.JSON(http.StatusAccepted, s.controller.Status())
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.Status())
}

func (s *Server) export(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table.DefaultExportName))
	c.Status(http.StatusOK)
	if err := s.controller.Export(c.Writer); err != nil {
		s.logger.Error("export failed", "error", err)
		_ = c.Error(err)
	}
}

func (s *Server) record(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "index must be an integer"})
		return
	}
	results, ok := s.controller.Results(index)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("row %d has not been evaluated", index)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "slots": verdict.ParseResults(results)})
}

type storedRecord struct {
	Index int            `json:"index"`
	Slots []verdict.Slot `json:"slots"`
}

func (s *Server) runRecords(c *gin.Context) {
	if s.opts.History == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "durable storage is not configured"})
		return
	}

	runID := c.Param("id")
	stored, err := s.opts.History.LoadRun(c.Request.Context(), runID)
	if err != nil {
		s.logger.Error("load run failed", "run_id", runID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if len(stored) == 0 {
		c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("run %s has no stored records", runID)})
		return
	}

	records := make([]storedRecord, 0, len(stored))
	for index, results := range stored {
		records = append(records, storedRecord{Index: index, Slots: verdict.ParseResults(results)})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Index < records[j].Index })

	c.JSON(http.StatusOK, gin.H{"run_id": runID, "records": records})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
