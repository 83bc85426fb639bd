// Package api exposes collection runs and stored businesses over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/bbb-collector/internal/collect"
	"github.com/sells-group/bbb-collector/internal/model"
	"github.com/sells-group/bbb-collector/internal/pipeline"
	"github.com/sells-group/bbb-collector/internal/store"
)

const maxBodyBytes = 1 << 20

// Collector runs one collection.
type Collector interface {
	Collect(ctx context.Context, req pipeline.Request, save bool) (*collect.Outcome, error)
}

// BusinessLister reads stored businesses.
type BusinessLister interface {
	ListBusinesses(ctx context.Context, filter store.BusinessFilter) ([]model.StoredBusiness, error)
}

// Options configure the router.
type Options struct {
	AllowedOrigins []string
	MaxPages       int
}

// Server holds the handler dependencies. businesses may be nil when
// persistence is disabled.
type Server struct {
	collector  Collector
	businesses BusinessLister
	opts       Options
}

// NewServer creates a Server.
func NewServer(collector Collector, businesses BusinessLister, opts Options) *Server {
	if opts.MaxPages <= 0 {
		opts.MaxPages = pipeline.MaxTotalPages
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{collector: collector, businesses: businesses, opts: opts}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/scrape", s.handleScrape)
		r.Get("/businesses", s.handleBusinesses)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scrapeRequest struct {
	URL   string `json:"url"`
	Pages *int   `json:"pages"`
}

type scrapeResponse struct {
	Success      bool                   `json:"success"`
	Data         []model.BusinessRecord `json:"data"`
	Count        int                    `json:"count"`
	Saved        int                    `json:"saved"`
	PagesScraped int                    `json:"pagesScraped"`
	RunID        string                 `json:"runId,omitempty"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var body scrapeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := pipeline.Request{BaseURL: body.URL, TotalPages: pipeline.DefaultTotalPages}
	if body.Pages != nil {
		if *body.Pages < 1 || *body.Pages > s.opts.MaxPages {
			writeError(w, http.StatusBadRequest, "pages must be between 1 and "+strconv.Itoa(s.opts.MaxPages))
			return
		}
		req.TotalPages = *body.Pages
	}
	if req.BaseURL != "" {
		if _, err := pipeline.SearchPageURL(req.BaseURL, 1); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	out, err := s.collector.Collect(r.Context(), req, true)
	if err != nil {
		zap.L().Error("api: scrape failed", zap.String("url", req.BaseURL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, scrapeResponse{
		Success:      true,
		Data:         out.Records,
		Count:        len(out.Records),
		Saved:        out.Saved,
		PagesScraped: req.TotalPages,
		RunID:        out.RunID,
	})
}

type businessesResponse struct {
	Success bool                   `json:"success"`
	Data    []model.StoredBusiness `json:"data"`
	Count   int                    `json:"count"`
}

func (s *Server) handleBusinesses(w http.ResponseWriter, r *http.Request) {
	if s.businesses == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	filter := store.BusinessFilter{
		RunID:  r.URL.Query().Get("run_id"),
		Source: r.URL.Query().Get("source"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	list, err := s.businesses.ListBusinesses(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list businesses failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []model.StoredBusiness{}
	}

	writeJSON(w, http.StatusOK, businessesResponse{Success: true, Data: list, Count: len(list)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
