package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/campus"
	"github.com/lox/campuswatt/internal/narrative"
	"github.com/lox/campuswatt/internal/optimizer"
	"github.com/lox/campuswatt/internal/render"
)

// Optimizer runs the external per-day optimization.
type Optimizer interface {
	Run(ctx context.Context, date, csvPath string) (*optimizer.Result, error)
}

// Narrator turns a savings comparison into prose.
type Narrator interface {
	Summarize(ctx context.Context, f narrative.Facts) narrative.Narrative
}

type Server struct {
	campus    *campus.Campus
	port      string
	optimizer Optimizer
	narrator  Narrator
	charts    *render.Cache
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Server)

func WithOptimizer(o Optimizer) Option {
	return func(s *Server) { s.optimizer = o }
}

func WithNarrator(n Narrator) Option {
	return func(s *Server) { s.narrator = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func NewServer(c *campus.Campus, port string, opts ...Option) *Server {
	s := &Server{
		campus: c,
		port:   port,
		charts: render.NewCache(time.Minute),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("api")
	return s
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID, s.instrument)

	data := r.PathPrefix("/api/data").Subrouter()
	data.HandleFunc("/ahu-systems", s.handleAHUSystems).Methods(http.MethodGet)
	data.HandleFunc("/ahu-schedule", s.handleAHUSchedule).Methods(http.MethodGet)
	data.HandleFunc("/ahu-schedule.png", s.handleAHUScheduleImage).Methods(http.MethodGet)
	data.HandleFunc("/ahu-runs", s.handleAHURuns).Methods(http.MethodGet)
	data.HandleFunc("/energy-usage", s.handleEnergyUsage).Methods(http.MethodGet)
	data.HandleFunc("/savings", s.handleSavings).Methods(http.MethodGet)
	data.HandleFunc("/savings/narrative", s.handleSavingsNarrative).Methods(http.MethodGet)
	data.HandleFunc("/csv-path", s.handleSetCSVPath).Methods(http.MethodPost)
	data.HandleFunc("/csv-info", s.handleCSVInfo).Methods(http.MethodGet)
	data.HandleFunc("/class-schedules", s.handleClassSchedules).Methods(http.MethodGet)
	data.HandleFunc("/rates", s.handleRates).Methods(http.MethodGet)
	data.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)

	opt := r.PathPrefix("/api/ahu-optimization").Subrouter()
	opt.HandleFunc("/summary/{date}", s.handleOptimizationSummary).Methods(http.MethodGet)
	opt.HandleFunc("/{date}", s.handleOptimization).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.logger)),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(cors(r))
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("listening", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
