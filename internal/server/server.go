// internal/server/server.go
// Package: server

// Package server serves the built page and its WASM artifacts.
package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func init() {
	// Streaming compilation requires the exact WASM type.
	_ = mime.AddExtensionType(".wasm", "application/wasm")
}

// Handler serves dir with caching disabled so every trial loads fresh
// assets.
func Handler(dir string, log *logrus.Entry) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chiMiddleware.RequestLogger(&chiMiddleware.DefaultLogFormatter{Logger: log, NoColor: true}),
		chiMiddleware.Recoverer,
		chiMiddleware.NoCache,
	)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}

// Serve blocks serving dir on addr until ctx is cancelled, then shuts the
// server down gracefully.
func Serve(ctx context.Context, addr, dir string, log *logrus.Entry) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("serve dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("serve dir: %s is not a directory", dir)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(dir, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{"addr": addr, "dir": dir}).Info("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
