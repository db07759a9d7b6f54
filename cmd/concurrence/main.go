// Command concurrence serves the competitive collection engine.
//
// Usage:
//
//	concurrence -db data/concurrence.db                # HTTP API on :8086
//	concurrence -config concurrence.yaml -addr :9000   # YAML config
//	concurrence -mcp                                   # MCP over stdio
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/concurrence"
	"github.com/hazyhaar/concurrence/dbopen"
)

func main() {
	configPath := flag.String("config", "", "path to concurrence.yaml config file")
	dbPath := flag.String("db", "data/concurrence.db", "sqlite database path")
	addr := flag.String("addr", ":8086", "HTTP listen address")
	mcpMode := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *dbPath, *addr, *mcpMode); err != nil {
		logger.Error("concurrence: fatal", "error", err)
		os.Exit(1)
	}
}

// fileConfig is the YAML shape: server settings plus the engine config.
type fileConfig struct {
	DB     string              `yaml:"db"`
	Addr   string              `yaml:"addr"`
	Engine *concurrence.Config `yaml:"engine"`
}

func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fc, nil
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath, addr string, mcpMode bool) error {
	var engineCfg *concurrence.Config
	if configPath != "" {
		fc, err := loadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if fc.DB != "" {
			dbPath = fc.DB
		}
		if fc.Addr != "" {
			addr = fc.Addr
		}
		engineCfg = fc.Engine
	}

	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll())
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	if err := concurrence.ApplySchema(db); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	svc, err := concurrence.New(db, engineCfg, logger)
	if err != nil {
		return fmt.Errorf("service: %w", err)
	}
	defer svc.Close()

	if mcpMode {
		return runMCP(ctx, svc)
	}
	return runHTTP(ctx, logger, svc, addr)
}

func runMCP(ctx context.Context, svc *concurrence.Service) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "concurrence",
		Version: "1.0.0",
	}, nil)
	svc.RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func runHTTP(ctx context.Context, logger *slog.Logger, svc *concurrence.Service, addr string) error {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api/projects", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var p concurrence.Project
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := svc.CreateProject(r.Context(), &p); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, 201, p)
		})

		r.Post("/{id}/product", func(w http.ResponseWriter, r *http.Request) {
			var p concurrence.Product
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := svc.SetProduct(r.Context(), chi.URLParam(r, "id"), &p); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, 201, p)
		})

		r.Post("/{id}/competitors", func(w http.ResponseWriter, r *http.Request) {
			var c concurrence.Competitor
			if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := svc.AddCompetitor(r.Context(), chi.URLParam(r, "id"), &c); err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, 201, c)
		})

		r.Get("/{id}/competitors", func(w http.ResponseWriter, r *http.Request) {
			competitors, err := svc.ListCompetitors(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, 200, competitors)
		})

		r.Post("/{id}/collect", func(w http.ResponseWriter, r *http.Request) {
			var opts concurrence.CollectOptions
			if r.ContentLength > 0 {
				var body struct {
					PriorityOverride string `json:"priority_override"`
					ForceFresh       bool   `json:"force_fresh"`
				}
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					writeError(w, 400, err)
					return
				}
				opts.PriorityOverride = concurrence.Priority(body.PriorityOverride)
				opts.ForceFreshData = body.ForceFresh
			}
			result, err := svc.CollectProjectData(r.Context(), chi.URLParam(r, "id"), &opts)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, 200, result)
		})

		r.Get("/{id}/freshness", func(w http.ResponseWriter, r *http.Request) {
			status, err := svc.CheckDataFreshness(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, 200, status)
		})

		r.Get("/{id}/strategy", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, svc.OptimizeStrategy(r.Context(), chi.URLParam(r, "id")))
		})
	})

	r.Route("/api/competitors", func(r chi.Router) {
		r.Post("/{id}/scrape", func(w http.ResponseWriter, r *http.Request) {
			snapshotID, err := svc.ScrapeCompetitor(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, 200, map[string]string{"snapshot_id": snapshotID})
		})

		r.Get("/{id}/history", func(w http.ResponseWriter, r *http.Request) {
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			entries, err := svc.ScrapeHistory(r.Context(), chi.URLParam(r, "id"), limit)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, 200, entries)
		})
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second, // collection runs are slow
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeServiceError maps service sentinels onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, concurrence.ErrProjectNotFound),
		errors.Is(err, concurrence.ErrCompetitorNotFound):
		writeError(w, 404, err)
	case errors.Is(err, concurrence.ErrInvalidInput):
		writeError(w, 400, err)
	default:
		writeError(w, 500, err)
	}
}
