// Package serve implements "cruxctl serve": runs the commit pipeline
// behind an HTTP+WebSocket front end.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cruxsync/otp/cmd/cruxctl/common"
	"github.com/cruxsync/otp/internal/config"
	"github.com/cruxsync/otp/internal/feed"
	"github.com/cruxsync/otp/internal/httpmw"
	"github.com/cruxsync/otp/internal/pipeline"
	"github.com/cruxsync/otp/internal/store"
	"github.com/cruxsync/otp/otp"
)

// NewCommand creates the "serve" command.
func NewCommand(opts *common.RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the document engine's HTTP and WebSocket front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	return cmd
}

func run(ctx context.Context, opts *common.RootOptions) error {
	cfg, log, err := loadConfigAndLogger(opts)
	if err != nil {
		return err
	}

	objStore, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}

	hub := feed.NewHub(log)
	pl := pipeline.New(objStore, hub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /objects/{id}/patches", newApplyHandler(pl, log))
	mux.HandleFunc("/objects/{id}/feed", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeHTTP(otp.ObjectType("document"), w, r)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpmw.WithAccessLog(log, mux)}

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-runCtx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func loadConfigAndLogger(opts *common.RootOptions) (config.ServerConfig, logr.Logger, error) {
	loader := config.NewLoader("CRUX")
	defaults := config.DefaultServerConfig()
	if err := loader.LoadWithDefaults(defaults, opts.ConfigPath); err != nil {
		return config.ServerConfig{}, logr.Logger{}, fmt.Errorf("load config: %w", err)
	}

	var cfg config.ServerConfig
	if err := loader.UnmarshalAndValidate(&cfg); err != nil {
		return config.ServerConfig{}, logr.Logger{}, fmt.Errorf("invalid config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	zapLog, err := buildZapLogger(cfg.LogLevel)
	if err != nil {
		return config.ServerConfig{}, logr.Logger{}, fmt.Errorf("build logger: %w", err)
	}

	return cfg, zapr.NewLogger(zapLog), nil
}

func buildZapLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("unknown log level %q: %w", level, err)
	}
	return zapCfg.Build()
}

func buildStore(cfg config.ServerConfig) (store.ObjectStore, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		return store.OpenSQLiteStore(cfg.SQLitePath)
	default:
		return store.NewMemoryStore(), nil
	}
}

// applyRequest is the JSON body of POST /objects/{id}/patches.
type applyRequest struct {
	AuthorID otp.AuthorId    `json:"author_id"`
	BaseRev  otp.RevId       `json:"base_rev"`
	Op       json.RawMessage `json:"op"`
}

func newApplyHandler(pl *pipeline.Pipeline, log logr.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := otp.ObjectId(r.PathValue("id"))
		if id == "" {
			http.Error(w, "missing object id", http.StatusBadRequest)
			return
		}

		var req applyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}

		op, err := otp.UnmarshalOperation(req.Op)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid operation: %v", err), http.StatusBadRequest)
			return
		}

		patch, err := pl.Submit(r.Context(), otp.ObjectType("document"), id, req.AuthorID, req.BaseRev, op)
		if err != nil {
			writePipelineError(w, log, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(patch)
	}
}

func writePipelineError(w http.ResponseWriter, log logr.Logger, err error) {
	if errors.Is(err, pipeline.ErrObsolete) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	var otErr *otp.OtError
	if errors.As(err, &otErr) {
		http.Error(w, otErr.Error(), statusForKind(otErr.Kind()))
		return
	}

	log.Error(err, "commit pipeline error")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// statusForKind maps the core's error taxonomy onto HTTP status codes.
// Rebase signals upstream log corruption rather than a bad request, so it
// maps to 500 rather than 4xx.
func statusForKind(kind otp.ErrorKind) int {
	switch kind {
	case otp.KindOperation, otp.KindPath:
		return http.StatusBadRequest
	case otp.KindKey, otp.KindValueIsNotArray, otp.KindNoId:
		return http.StatusUnprocessableEntity
	case otp.KindType, otp.KindIndex:
		return http.StatusConflict
	case otp.KindRebase:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
