//go:build linux

// Package api serves the read-only HTTP API of the daemon: health, version,
// discovered decoders, a Server-Sent Events stream of decoder events and the
// Prometheus /metrics endpoint, all on one chi router.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/smazurov/v4l2codecs/internal/events"
	"github.com/smazurov/v4l2codecs/internal/logging"
	"github.com/smazurov/v4l2codecs/internal/version"
	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

// DecoderSource reports the decoders currently present.
type DecoderSource interface {
	Decoders() []v4l2.DecoderInfo
}

// Options configures the router.
type Options struct {
	Decoders       DecoderSource
	EventBus       *events.Bus
	MetricsHandler http.Handler // Mounted at /metrics when set
	AllowedOrigins []string     // CORS origins, defaults to "*"
}

// Server holds the huma API and the router it is mounted on.
type Server struct {
	api    huma.API
	router chi.Router
	opts   Options
	logger *slog.Logger
}

// NewServer builds the router and registers every route.
func NewServer(opts Options) *Server {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))

	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	config := huma.DefaultConfig("v4l2codecs API", version.Get().Version)
	config.Info.Description = "Read-only status of stateless V4L2 decoders"
	config.Servers = []*huma.Server{}

	s := &Server{
		api:    humachi.New(r, config),
		router: r,
		opts:   opts,
		logger: logging.GetLogger("api"),
	}
	s.api.UseMiddleware(HTTPLoggingMiddleware)
	s.registerRoutes()

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		return &HealthResponse{Body: HealthData{Status: "ok", Message: "API is healthy"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*VersionResponse, error) {
		info := version.Get()
		return &VersionResponse{Body: VersionData{
			Version:   info.Version,
			GitCommit: info.GitCommit,
			BuildDate: info.BuildDate,
			GoVersion: info.GoVersion,
			Platform:  info.Platform,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-decoders",
		Method:      http.MethodGet,
		Path:        "/api/decoders",
		Summary:     "List decoders",
		Description: "Stateless decoders found by the last scan",
		Tags:        []string{"decoders"},
	}, func(_ context.Context, _ *struct{}) (*DecodersResponse, error) {
		resp := &DecodersResponse{Body: DecodersData{Decoders: []DecoderInfo{}}}
		if s.opts.Decoders == nil {
			return resp, nil
		}
		for _, d := range s.opts.Decoders.Decoders() {
			resp.Body.Decoders = append(resp.Body.Decoders, decoderInfo(d))
		}
		resp.Body.Count = len(resp.Body.Decoders)
		return resp, nil
	})

	if s.opts.EventBus != nil {
		s.registerEventRoutes()
	}
}
