package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/evolvekit/evotune/internal/config"
	"github.com/evolvekit/evotune/internal/store"
)

// Server represents the HTTP server.
type Server struct {
	jobManager  *JobManager
	resultStore store.Store
	dataDir     string
	addr        string
	server      *http.Server
}

// NewServer creates a new HTTP server. resultStore may be nil to disable
// persistence; dataDir is the store's base directory, used to read traces.
func NewServer(addr string, resultStore store.Store, dataDir string) *Server {
	return &Server{
		jobManager:  NewJobManager(),
		resultStore: resultStore,
		dataDir:     dataDir,
		addr:        addr,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// UI routes
	mux.HandleFunc("/", s.handleIndex)

	// API routes
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)

	handler := s.loggingMiddleware(s.corsMiddleware(mux))

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	switch {
	case len(parts) == 1 || parts[1] == "status":
		s.handleGetJobStatus(w, r, jobID)
	case parts[1] == "stream":
		s.handleJobStream(w, r, jobID)
	case parts[1] == "best.json":
		s.handleGetBest(w, r, jobID)
	case parts[1] == "trace.json":
		s.handleGetTrace(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// JobRequest is the inbound document for POST /api/v1/jobs. Rates and seed
// are pointers so an explicit zero is distinguishable from an omitted field.
type JobRequest struct {
	Parameters       map[string][]any `json:"parameters"`
	Population       int              `json:"population"`
	Generations      int              `json:"generations"`
	RetainRate       *float64         `json:"retainRate"`
	RandomSelectRate *float64         `json:"randomSelectRate"`
	MutateRate       *float64         `json:"mutateRate"`
	Seed             *int64           `json:"seed"`
	Workers          int              `json:"workers"`
}

// resolve applies defaults and converts the request to a run configuration.
func (req *JobRequest) resolve() (RunConfig, error) {
	if len(req.Parameters) == 0 {
		return RunConfig{}, fmt.Errorf("parameters are required")
	}
	for name, domain := range req.Parameters {
		if len(domain) == 0 {
			return RunConfig{}, fmt.Errorf("parameter %q has an empty domain", name)
		}
	}

	cfg := RunConfig{
		Parameters:       req.Parameters,
		Population:       req.Population,
		Generations:      req.Generations,
		RetainRate:       config.DefaultRetainRate,
		RandomSelectRate: config.DefaultRandomSelectRate,
		MutateRate:       config.DefaultMutateRate,
		Workers:          req.Workers,
	}
	if cfg.Population <= 0 {
		cfg.Population = config.DefaultPopulation
	}
	if cfg.Generations <= 0 {
		cfg.Generations = config.DefaultGenerations
	}
	if cfg.Workers <= 0 {
		cfg.Workers = config.DefaultWorkers
	}

	if req.RetainRate != nil {
		cfg.RetainRate = *req.RetainRate
	}
	if req.RandomSelectRate != nil {
		cfg.RandomSelectRate = *req.RandomSelectRate
	}
	if req.MutateRate != nil {
		cfg.MutateRate = *req.MutateRate
	}
	for name, rate := range map[string]float64{
		"retainRate":       cfg.RetainRate,
		"randomSelectRate": cfg.RandomSelectRate,
		"mutateRate":       cfg.MutateRate,
	} {
		if rate < 0 || rate > 1 {
			return RunConfig{}, fmt.Errorf("%s %v outside [0,1]", name, rate)
		}
	}

	if req.Seed != nil {
		cfg.Seed = *req.Seed
	} else {
		cfg.Seed = time.Now().UnixNano()
	}

	return cfg, nil
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	cfg, err := req.resolve()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(cfg)

	// Start worker in background
	go runJob(context.Background(), s.jobManager, s.resultStore, s.dataDir, job.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobManager.ListJobs()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobs)
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	eps := float64(0)
	if elapsed.Seconds() > 0 && job.Evaluations > 0 {
		eps = float64(job.Evaluations) / elapsed.Seconds()
	}

	response := map[string]interface{}{
		"id":           job.ID,
		"state":        job.State,
		"config":       job.Config,
		"bestParams":   job.BestParams,
		"bestCost":     job.BestCost,
		"initialGrade": job.InitialGrade,
		"grade":        job.Grade,
		"generation":   job.Generation,
		"evaluations":  job.Evaluations,
		"elapsed":      elapsed.Seconds(),
		"eps":          eps,
		"startTime":    job.StartTime,
		"endTime":      job.EndTime,
		"error":        job.Error,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleGetBest handles GET /api/v1/jobs/:id/best.json
func (s *Server) handleGetBest(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	if len(job.BestParams) == 0 {
		http.Error(w, "No results yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jobId":      job.ID,
		"bestParams": job.BestParams,
		"bestCost":   job.BestCost,
		"generation": job.Generation,
	})
}

// handleGetTrace handles GET /api/v1/jobs/:id/trace.json
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if s.dataDir == "" {
		http.Error(w, "Tracing disabled", http.StatusNotFound)
		return
	}

	reader, err := store.NewTraceReader(s.dataDir, jobID)
	if err != nil {
		http.Error(w, "No trace yet", http.StatusNotFound)
		return
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read trace: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(entries)
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
