package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/zheng/modgraph/internal/graph"
	"github.com/zheng/modgraph/internal/impact"
)

// Server is the read-only JSON API over an analyzed graph
type Server struct {
	a        *impact.Analyzer
	host     string
	port     int
	topN     int
	priority []string
	logger   *slog.Logger
}

// Option configures the server
type Option func(*Server)

// WithTopN sets the default ranking size
func WithTopN(n int) Option {
	return func(s *Server) {
		s.topN = n
	}
}

// WithPriorityNames sets the entry point priority suffixes
func WithPriorityNames(names []string) Option {
	return func(s *Server) {
		s.priority = names
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new web server
func NewServer(a *impact.Analyzer, host string, port int, opts ...Option) *Server {
	s := &Server{
		a:        a,
		host:     host,
		port:     port,
		topN:     20,
		priority: impact.DefaultPriorityNames,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// API response types
type FileData struct {
	ID               graph.NodeID   `json:"id"`
	Incoming         []graph.NodeID `json:"incoming"`
	Outgoing         []EdgeData     `json:"outgoing"`
	ExtractionFailed bool           `json:"extractionFailed"`
	Dependencies     int            `json:"dependencies"`
	Dependents       int            `json:"dependents"`
	Cyclic           bool           `json:"cyclic"`
}

type EdgeData struct {
	Source       string `json:"source"`
	ResolvedPath string `json:"resolvedPath"`
	Kind         string `json:"kind"`
	Resolved     bool   `json:"resolved"`
}

type errorData struct {
	Error   string         `json:"error"`
	Matches []graph.NodeID `json:"matches,omitempty"`
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/files", s.handleFiles)
	mux.HandleFunc("/api/file", s.handleFile)
	mux.HandleFunc("/api/entries", s.handleEntries)
	mux.HandleFunc("/api/top", s.handleTop)
	mux.HandleFunc("/api/impact", s.handleImpact)
	mux.HandleFunc("/api/tree", s.handleTree)
	mux.HandleFunc("/api/cycles", s.handleCycles)
	mux.HandleFunc("/api/search", s.handleSearch)
	return mux
}

// Run starts the web server and stops it when ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", "http://"+srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.a.Stats())
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.a.Forward().Counts())
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lookup(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	n, _ := s.a.Graph().Node(id)
	data := FileData{
		ID:               id,
		Incoming:         n.Incoming(),
		Outgoing:         make([]EdgeData, 0, n.OutDegree()),
		ExtractionFailed: n.ExtractionFailed(),
		Dependencies:     s.a.Forward().Count(id),
		Dependents:       s.a.Reverse().Count(id),
		Cyclic:           s.a.Forward().Cyclic(id),
	}
	for _, e := range n.Outgoing() {
		data.Outgoing = append(data.Outgoing, EdgeData{
			Source:       e.Raw,
			ResolvedPath: e.Target.String(),
			Kind:         string(e.Kind),
			Resolved:     e.Target.IsNode(),
		})
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, impact.ClassifyEntryPoints(s.a.Graph(), s.priority))
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	n, ok := intParam(w, r, "n", s.topN)
	if !ok {
		return
	}
	var table impact.Counter = s.a.Forward()
	switch by := r.URL.Query().Get("by"); by {
	case "", "reach", "dependencies":
	case "dependents":
		table = s.a.Reverse()
	default:
		writeJSON(w, http.StatusBadRequest, errorData{Error: "unknown ranking: " + by})
		return
	}
	writeJSON(w, http.StatusOK, impact.TopN(s.a.Graph(), table, n))
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	depth, ok := intParam(w, r, "depth", 0)
	if !ok {
		return
	}
	report, err := s.a.AnalyzeImpact(r.URL.Query().Get("id"), depth, depth)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lookup(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	depth, ok := intParam(w, r, "depth", 3)
	if !ok {
		return
	}
	if r.URL.Query().Get("dir") == "up" {
		writeJSON(w, http.StatusOK, s.a.DependentTree(id, depth))
		return
	}
	writeJSON(w, http.StatusOK, s.a.DependencyTree(id, depth))
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	cycles := s.a.Forward().Cycles()
	if cycles == nil {
		cycles = [][]graph.NodeID{}
	}
	writeJSON(w, http.StatusOK, cycles)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("q")
	if pattern == "" {
		writeJSON(w, http.StatusOK, []graph.NodeID{})
		return
	}
	matches := s.a.Search(pattern)
	if matches == nil {
		matches = []graph.NodeID{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) lookup(w http.ResponseWriter, query string) (graph.NodeID, bool) {
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorData{Error: "missing id"})
		return "", false
	}
	id, err := s.a.FindFile(query)
	if err != nil {
		writeLookupError(w, err)
		return "", false
	}
	return id, true
}

func writeLookupError(w http.ResponseWriter, err error) {
	var amb *impact.AmbiguousError
	switch {
	case errors.As(err, &amb):
		writeJSON(w, http.StatusConflict, errorData{Error: err.Error(), Matches: amb.Matches})
	case errors.Is(err, impact.ErrFileNotFound):
		writeJSON(w, http.StatusNotFound, errorData{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorData{Error: err.Error()})
	}
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeJSON(w, http.StatusBadRequest, errorData{Error: fmt.Sprintf("invalid %s: %q", name, v)})
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
