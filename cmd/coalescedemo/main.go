// Command coalescedemo runs a thin HTTP adapter around a single
// coalescer.Coalescer, wiring the ambient stack (config, logging, metrics
// export) the way cmd/vaultaire/main.go wires vaultaire's engine in the
// teacher repo: flag/env-driven config, a zap logger built first so every
// subsequent failure can be logged, graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fabriziopfannl/coalescer/internal/appconfig"
	"github.com/fabriziopfannl/coalescer/internal/coalescer"
	"github.com/fabriziopfannl/coalescer/internal/httpadapter"
	"github.com/fabriziopfannl/coalescer/internal/obslog"
	"go.uber.org/zap"
)

// upperCaseExecutor is the demo batch executor: it uppercases every string
// item in the batch. A real deployment would supply its own executor
// (e.g. a model inference call or a DB round-trip) — the executor is
// explicitly out of the core's scope per spec.md §1.
func upperCaseExecutor(items []interface{}) ([]interface{}, error) {
	out := make([]interface{}, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("coalescedemo: item %d is not a string", i)
		}
		out[i] = strings.ToUpper(s)
	}
	return out, nil
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "coalescedemo: config error:", err)
		os.Exit(1)
	}

	log, atom, err := obslog.NewWithAtomicLevel(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "coalescedemo: logger error:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if *configPath != "" {
		watcher, err := appconfig.WatchLogLevel(*configPath, atom, log)
		if err != nil {
			log.Warn("config hot-reload disabled", zap.Error(err))
		} else {
			defer func() { _ = watcher.Close() }()
		}
	}

	backpressure, err := coalescer.ParseBackpressure(cfg.Coalescer.Backpressure)
	if err != nil {
		log.Fatal("invalid backpressure", zap.Error(err))
	}

	var limiter *coalescer.PassthroughLimiter
	if backpressure == coalescer.Passthrough && cfg.Coalescer.PassthroughRate > 0 {
		limiter = coalescer.NewPassthroughLimiter(cfg.Coalescer.PassthroughRate, cfg.Coalescer.PassthroughBurst)
	}

	batcher, err := coalescer.New(coalescer.Config{
		MaxBatch:     cfg.Coalescer.MaxBatch,
		MaxWait:      cfg.Coalescer.MaxWait(),
		Backpressure: backpressure,
		Limiter:      limiter,
	}, log)
	if err != nil {
		log.Fatal("failed to construct coalescer", zap.Error(err))
	}

	handler := httpadapter.NewServer(batcher, upperCaseExecutor, log)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = httpServer.Shutdown(ctx)
		batcher.Close()
	}()

	log.Info("coalescedemo listening", zap.String("addr", cfg.Server.Addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", zap.Error(err))
	}
}
