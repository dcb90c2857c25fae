package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/export"
	"github.com/seqlane/seqlane/pkg/store"
)

// serveCommand creates the serve command: a read-write HTTP surface over the
// saved-layout store.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layout documents over HTTP",
		Long: `Serve layout documents over HTTP.

Endpoints:
  GET    /healthz          liveness probe
  POST   /layouts?name=N   save a layout document, returns its id
  GET    /layouts          list saved layouts (without documents)
  GET    /layouts/{id}     fetch one saved layout with its document
  DELETE /layouts/{id}     delete a saved layout

The store backend (memory or mongo) comes from the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Serve.Addr
			}
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	st, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	srv := &http.Server{
		Addr:              addr,
		Handler:           c.router(st),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	c.Logger.Info("serving layouts", "addr", addr, "store", c.cfg.Store.Backend)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// newStore builds the configured saved-layout backend.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	if c.cfg.Store.Backend == "mongo" {
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:      c.cfg.Store.MongoURI,
			Database: c.cfg.Store.MongoDatabase,
		})
	}
	return store.NewMemoryStore(), nil
}

// router wires the HTTP surface.
func (c *CLI) router(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(c.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/layouts", func(r chi.Router) {
		r.Post("/", c.handleSave(st))
		r.Get("/", c.handleList(st))
		r.Get("/{id}", c.handleGet(st))
		r.Delete("/{id}", c.handleDelete(st))
	})

	return r
}

// requestLogger logs one line per request through the CLI logger.
func (c *CLI) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		c.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

func (c *CLI) handleSave(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := http.MaxBytesReader(w, r.Body, 64<<20)
		doc, err := export.Read(body)
		if err != nil {
			writeError(w, err)
			return
		}

		name := r.URL.Query().Get("name")
		if name == "" {
			writeError(w, errors.New(errors.ErrCodeValidation, "query parameter name is required"))
			return
		}

		rec, err := st.Save(r.Context(), name, doc)
		if err != nil {
			writeError(w, err)
			return
		}
		// Do not echo the whole document back.
		rec.Document = nil
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (c *CLI) handleList(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := st.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if recs == nil {
			recs = []store.Record{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func (c *CLI) handleGet(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := st.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (c *CLI) handleDelete(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error codes onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeValidation, errors.ErrCodeInvalidFormat, errors.ErrCodeConfiguration, errors.ErrCodeReference:
		status = http.StatusBadRequest
	case errors.ErrCodeUnsupported:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{
		"code":  string(errors.GetCode(err)),
		"error": errors.UserMessage(err),
	})
}
