// Package mockapi serves canned OLAM analytics data over HTTP. It backs the
// olam-mockapi binary and the end-to-end tests of the client and stores.
package mockapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tinytelemetry/olam/internal/model"
)

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Server is a fake analytics backend.
type Server struct {
	addr     string
	fixtures Fixtures
	logger   *zap.Logger
	engine   *gin.Engine
	server   *http.Server
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	requests []Request
	failures map[string]int
	delays   map[string]time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a mock backend listening on addr once started.
func NewServer(addr string, fx Fixtures, opts ...Option) *Server {
	if addr == "" {
		addr = "127.0.0.1:5000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:     addr,
		fixtures: fx,
		logger:   zap.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
		failures: make(map[string]int),
		delays:   make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the gin engine, for use with httptest.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.record)

	api := r.Group("/api")
	api.GET("/dashboard", s.serve(func(c *gin.Context) any { return s.fixtures.Dashboard }))
	api.GET("/dashboard/variance-trend", s.serve(func(c *gin.Context) any { return s.fixtures.VarianceTrend }))
	api.GET("/dashboard/device-performance", s.serve(func(c *gin.Context) any { return s.fixtures.DevicePerformance }))
	api.GET("/variance", s.serve(func(c *gin.Context) any { return s.fixtures.Variance }))
	api.GET("/grid", s.serve(s.grid))
	api.GET("/grid/options", s.serve(func(c *gin.Context) any { return s.fixtures.GridOptions }))
	api.GET("/timeline/day", s.serve(s.timeline))
	api.GET("/device", s.serve(func(c *gin.Context) any { return s.fixtures.Device }))
	api.GET("/operator", s.serve(func(c *gin.Context) any { return s.fixtures.Operator }))
	api.POST("/ai/chat", s.handleChat)
	api.GET("/batches/count", s.serve(func(c *gin.Context) any { return model.BatchCount{Count: len(s.fixtures.Batches)} }))
	api.GET("/devices", s.serve(func(c *gin.Context) any { return s.fixtures.Devices }))
	api.GET("/operators", s.serve(func(c *gin.Context) any { return s.fixtures.Operators }))
	api.GET("/batches", s.serve(s.batches))
	api.GET("/batches/rounds", s.serve(s.rounds))
	api.GET("/analysis/initial-variance", s.serve(func(c *gin.Context) any { return s.fixtures.InitialVariance }))
	api.GET("/analysis/repair-effect", s.serve(func(c *gin.Context) any { return s.fixtures.RepairEffect }))
	api.POST("/analysis/frequency-range", s.serve(func(c *gin.Context) any { return s.fixtures.FrequencyRange }))
	api.GET("/analysis/operator-device-impact", s.serve(func(c *gin.Context) any { return s.fixtures.OperatorDeviceImpact }))
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.engine,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      150 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("mock api serve failed", zap.Error(err))
		}
	}()
	s.logger.Info("mock api listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address after Start, or the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// FailPath makes every request to path (relative to /api) answer with
// status. A zero status clears the failure.
func (s *Server) FailPath(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// Delay holds every response of path for d before answering.
func (s *Server) Delay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d <= 0 {
		delete(s.delays, path)
		return
	}
	s.delays[path] = d
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Count returns how many requests hit path.
func (s *Server) Count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// Reset forgets recorded requests, failures and delays.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
	clear(s.failures)
	clear(s.delays)
}

func apiPath(c *gin.Context) string {
	p := c.FullPath()
	if p == "" {
		p = c.Request.URL.Path
	}
	if len(p) >= 4 && p[:4] == "/api" {
		return p[4:]
	}
	return p
}

func (s *Server) record(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil && c.Request.Method == http.MethodPost {
		body, _ = c.GetRawData()
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}
	path := apiPath(c)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: c.Request.Method,
		Path:   path,
		Query:  c.Request.URL.Query(),
		Body:   body,
	})
	status := s.failures[path]
	delay := s.delays[path]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}
	if status != 0 {
		c.AbortWithStatusJSON(status, gin.H{"error": "injected failure"})
		return
	}

	start := time.Now()
	c.Next()
	s.logger.Debug("mock api request",
		zap.String("method", c.Request.Method),
		zap.String("path", path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", time.Since(start)))
}

func (s *Server) serve(fn func(*gin.Context) any) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, fn(c))
	}
}

// listParam accepts both the repeated (key=a&key=b) and bracketed
// (key[]=a) forms.
func listParam(c *gin.Context, key string) []string {
	vals := c.QueryArray(key)
	return append(vals, c.QueryArray(key+"[]")...)
}

func (s *Server) batches(c *gin.Context) any {
	rows := s.fixtures.Batches
	var keep func(model.BatchRow) bool

	switch {
	case len(listParam(c, "batchIds")) > 0:
		ids := listParam(c, "batchIds")
		keep = func(r model.BatchRow) bool { return slices.Contains(ids, r.BatchID) }
	case len(listParam(c, "lotNumbers")) > 0:
		lots := listParam(c, "lotNumbers")
		keep = func(r model.BatchRow) bool { return slices.Contains(lots, r.LotNumber) }
	default:
		devices := listParam(c, "deviceIds")
		operators := listParam(c, "operatorIds")
		keep = func(r model.BatchRow) bool {
			if len(devices) > 0 && !slices.Contains(devices, r.DeviceID) {
				return false
			}
			if len(operators) > 0 && !slices.Contains(operators, r.OperatorID) {
				return false
			}
			return true
		}
	}

	out := make([]model.BatchRow, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (s *Server) rounds(c *gin.Context) any {
	out := model.RoundsByBatch{}
	for _, id := range listParam(c, "batchIds") {
		if rs, ok := s.fixtures.Rounds[id]; ok {
			out[id] = rs
		}
	}
	return out
}

func (s *Server) grid(c *gin.Context) any {
	records := make([]model.GridRecord, 0, len(s.fixtures.Grid))
	deviceID := c.Query("deviceId")
	for _, r := range s.fixtures.Grid {
		if deviceID != "" && r.DeviceID != deviceID {
			continue
		}
		if v, err := strconv.Atoi(c.Query("gridMod")); err == nil && r.GridMod != v {
			continue
		}
		records = append(records, r)
	}
	total := len(records)
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		records = records[min(offset, len(records)):]
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return model.GridPage{Records: records, Total: total}
}

func (s *Server) timeline(c *gin.Context) any {
	day := s.fixtures.Timeline
	if date := c.Query("date"); date != "" {
		day.Date = date
	}
	ids := listParam(c, "deviceIds")
	if len(ids) == 0 {
		return day
	}
	devices := make([]model.DeviceTimeline, 0, len(day.Devices))
	for _, d := range day.Devices {
		if slices.Contains(ids, d.DeviceID) {
			devices = append(devices, d)
		}
	}
	day.Devices = devices
	return day
}

func (s *Server) handleChat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing message field"})
		return
	}
	if req.APIKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing api key"})
		return
	}
	rows := min(len(s.fixtures.Batches), max(req.MaxRows, 0))
	c.JSON(http.StatusOK, model.ChatResponse{
		Reply:    s.fixtures.ChatReply,
		SQL:      "SELECT batch_id, stdev FROM batches ORDER BY stdev LIMIT 1",
		RowCount: &rows,
	})
}
