package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"strata/config"
	"strata/storage"
)

func main() {
	configFile := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	cfg, err := config.Load(*configFile)
	if err != nil {
		level.Error(logger).Log("msg", "error loading config", "err", err)
		os.Exit(1)
	}

	logger = level.NewFilter(logger, levelOption(cfg.LogLevel))

	registerer := prometheus.NewRegistry()
	registerer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := cfg.Store.Options(cfg.CacheDir)
	opts.Logger = logger
	opts.Registerer = registerer

	rec, err := storage.NewRecording(opts, cfg.Acquisition.Channels)
	if err != nil {
		level.Error(logger).Log("msg", "error creating recording", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.ListenAddress, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "metrics server stopped", "err", err)
		}
	}()

	wg := sync.WaitGroup{}

	wg.Add(3)
	go func() {
		defer wg.Done()
		defer stop()
		acquire(ctx, logger, rec, cfg.Acquisition, cfg.Flush)
	}()
	go func() {
		defer wg.Done()
		flushLoop(ctx, logger, rec, cfg.Flush.Interval)
	}()
	go func() {
		defer wg.Done()
		renderLoop(ctx, logger, rec, cfg.Render)
	}()

	logger.Log("msg", "acquisition started", "channels", cfg.Acquisition.Channels, "cache_dir", cfg.CacheDir)
	<-ctx.Done()

	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		level.Warn(logger).Log("msg", "error stopping metrics server", "err", err)
	}

	logger.Log("msg", "recording finished", "rows", rec.Count())

	if err := rec.Dispose(); err != nil {
		level.Error(logger).Log("msg", "error disposing recording", "err", err)
		os.Exit(1)
	}

	logger.Log("msg", "exiting...")
}

func levelOption(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
