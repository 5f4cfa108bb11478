package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/folio-scout/harvest-cli/internal/fetch"
	"github.com/folio-scout/harvest-cli/internal/model"
	"github.com/folio-scout/harvest-cli/internal/monitoring"
	"github.com/folio-scout/harvest-cli/internal/pipeline"
	"github.com/folio-scout/harvest-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the harvest HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		fetcher := fetch.NewController(fetchConfig(cfg))
		p, err := pipeline.New(cfg, st, fetcher)
		if err != nil {
			return err
		}

		// Background alert checker, only when a webhook is configured.
		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(st),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(ctx, st, p),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// harvester is the part of the pipeline the API needs.
type harvester interface {
	Run(ctx context.Context, params model.HarvestParams) (*model.HarvestResult, error)
}

// newRouter builds the API routes. The base context bounds async harvests
// so they stop when the server shuts down.
func newRouter(base context.Context, st store.Store, p harvester) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			filter := store.RunFilter{
				Status:  model.RunStatus(q.Get("status")),
				Keyword: q.Get("keyword"),
			}
			runs, err := st.ListRuns(req.Context(), filter)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "list runs failed")
				return
			}
			if runs == nil {
				runs = []model.HarvestRun{}
			}
			writeJSON(w, http.StatusOK, runs)
		})

		r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			writeJSON(w, http.StatusOK, run)
		})

		r.Get("/runs/{id}/records", func(w http.ResponseWriter, req *http.Request) {
			records, err := st.ListRecords(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, http.StatusInternalServerError, "list records failed")
				return
			}
			if records == nil {
				records = []model.Record{}
			}
			writeJSON(w, http.StatusOK, records)
		})

		r.Post("/harvest", func(w http.ResponseWriter, req *http.Request) {
			var params model.HarvestParams
			if err := json.NewDecoder(req.Body).Decode(&params); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if params.Keyword == "" {
				writeError(w, http.StatusBadRequest, "keyword is required")
				return
			}
			if params.MaxProfiles < 0 || params.MaxPages < 0 {
				writeError(w, http.StatusBadRequest, "max_profiles and max_pages must be >= 0")
				return
			}

			// Run asynchronously; the archive is the result channel.
			go func() {
				result, err := p.Run(base, params)
				if err != nil {
					zap.L().Error("api harvest failed",
						zap.String("keyword", params.Keyword),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("api harvest finished",
					zap.String("keyword", params.Keyword),
					zap.String("outcome", string(result.Outcome)),
					zap.Int("records", len(result.Records)),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status":  "accepted",
				"keyword": params.Keyword,
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
