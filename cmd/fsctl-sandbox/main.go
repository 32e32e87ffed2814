// Command fsctl-sandbox serves the file-storage API from memory for local
// development against fsctl.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filestorage/fsctl/internal/devseed"
	"github.com/filestorage/fsctl/internal/logging"
	"github.com/filestorage/fsctl/internal/sandbox"
	"github.com/filestorage/fsctl/pkg/filestore"
	"github.com/filestorage/fsctl/pkg/filestore/mock"
)

func main() {
	addr := flag.String("addr", ":8181", "listen address")
	seed := flag.String("seed", "", "path to YAML seed of files")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	flag.Parse()

	logger, err := logging.New(os.Stderr, envOr("LOG_LEVEL", "info"), os.Getenv("LOG_FORMAT"), "sandbox")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	if err := run(*addr, *seed, *latency, *fail, logger); err != nil {
		logger.Error("sandbox stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(addr, seed string, latency time.Duration, fail string, logger *slog.Logger) error {
	store := mock.New()
	if seed != "" {
		entries, err := devseed.LoadFileSeed(seed)
		if err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
		if err := store.Seed(entries); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		logger.Info("seed applied", slog.Int64("files", store.Len()))
	}

	failCfg, err := sandbox.ParseFailConfig(fail)
	if err != nil {
		return fmt.Errorf("parse fail flag: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              addr,
		Handler:           sandbox.NewRouter(store, sandbox.Options{Latency: latency, Fail: failCfg, Logger: logger}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	logger.Info("fsctl-sandbox listening", slog.String("addr", addr))
	fmt.Printf("\nexport %s=http://%s\n\n", filestore.EnvAPIURL, host)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
