package httpserver

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tinytelemetry/portal/internal/model"
)

// RequestIDHeader carries the per-request id assigned by the server.
const RequestIDHeader = "X-Request-ID"

// CatalogStore is the narrow store contract required by the HTTP API.
type CatalogStore interface {
	model.PortalAPI
	Counts(ctx context.Context) (widgets, dashboards int64, err error)
}

// Server provides the portal REST API.
type Server struct {
	addr      string
	store     CatalogStore
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time

	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, store CatalogStore) *Server {
	if addr == "" {
		addr = "127.0.0.1:" + strconv.Itoa(model.DefaultAPIPort)
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:      addr,
		store:     store,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests served, by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	s.registry.MustRegister(
		s.requests,
		s.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.instrument())

	r.GET("/api/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	apis := r.Group("/apis")
	apis.GET("/widgets", s.handleListWidgets)
	apis.GET("/widgets/:name", s.handleGetWidget)
	apis.GET("/dashboards", s.handleListDashboards)
	apis.GET("/dashboards/:url", s.handleGetDashboard)
	apis.POST("/dashboards", s.handleCreateDashboard)

	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("httpserver: serve: %v", err)
		}
	}()
	log.Printf("httpserver: listening on %s", s.addr)
	return nil
}

// Addr returns the listen address; after Start it is the bound address.
func (s *Server) Addr() string { return s.addr }

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

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		s.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
