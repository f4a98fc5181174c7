// Command gfproxy runs the GETFILE-facing proxy: it accepts client
// download requests over TCP, serves them from a co-located cache
// daemon over shared-memory IPC, and falls back to an origin HTTP
// server on a cache miss or IPC failure.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/jonnybach/low-level-file-server/internal/logger"
	"github.com/jonnybach/low-level-file-server/pkg/admin"
	"github.com/jonnybach/low-level-file-server/pkg/config"
	"github.com/jonnybach/low-level-file-server/pkg/gfserver"
	"github.com/jonnybach/low-level-file-server/pkg/journal"
	"github.com/jonnybach/low-level-file-server/pkg/metrics"
	"github.com/jonnybach/low-level-file-server/pkg/origin"
	"github.com/jonnybach/low-level-file-server/pkg/pipeline"
	"github.com/jonnybach/low-level-file-server/pkg/segipc"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	fs := pflag.NewFlagSet("gfproxy", pflag.ExitOnError)
	fs.IntP("segment_pool", "n", 1, "segment count")
	fs.Uint32P("segment_size", "z", 1024, "segment size in bytes")
	fs.IntP("port", "p", 8888, "listen port")
	fs.IntP("workers", "t", 1, "worker threads, clamped 1-1024")
	fs.StringP("origin_url", "s", "s3.amazonaws.com/content.udacity-data.com", "origin server URL prefix")
	configFile := fs.String("config", "", "path to a YAML config file")
	help := fs.BoolP("help", "h", false, "show usage")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if *help {
		fmt.Fprintln(os.Stderr, "usage: gfproxy [-n segment_pool] [-z segment_size] [-p port] [-t workers] [-s origin_url] [--config file] [-h]")
		os.Exit(0)
	}

	cfg, err := config.LoadProxyConfig(fs, *configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gfproxy: config error:", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		fmt.Fprintln(os.Stderr, "gfproxy: logger init failed:", err)
		os.Exit(1)
	}

	pool, err := segipc.NewPool(cfg.SegmentDir, cfg.SegmentPool, cfg.SegmentSize)
	if err != nil {
		logger.Error("gfproxy: segment pool init failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	channel, err := segipc.NewChannel(cfg.Socket, cfg.CacheSocket)
	if err != nil {
		logger.Error("gfproxy: ipc channel init failed", "error", err)
		os.Exit(1)
	}
	defer channel.Close()

	fetcher, err := origin.NewHTTPFetcher(cfg.OriginURL)
	if err != nil {
		logger.Error("gfproxy: origin fetcher init failed", "error", err)
		os.Exit(1)
	}

	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		jrnl, err = journal.Open(cfg.Journal.DSN)
		if err != nil {
			logger.Error("gfproxy: journal open failed", "error", err)
			os.Exit(1)
		}
		defer jrnl.Close()
	}

	registry := metrics.NewRegistry(prometheus.DefaultRegisterer, func() float64 {
		status := pool.Status()
		free := 0
		for _, isFree := range status {
			if isFree {
				free++
			}
		}
		return float64(free)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Admin.Enabled {
		go func() {
			logger.Info("gfproxy: admin surface listening", "addr", cfg.Admin.Addr)
			router := admin.NewRouter(pool.Status)
			if err := admin.Serve(ctx, cfg.Admin.Addr, router); err != nil {
				logger.Warn("gfproxy: admin surface stopped", "error", err)
			}
		}()
	}

	session := segipc.NewClientSession(channel, pool)

	handler := func(gctx *gfserver.Context) {
		start := time.Now()
		h := &pipeline.ProxyHandler{
			Session: session,
			Origin:  fetcher,
			OnComplete: func(r pipeline.Result) {
				registry.ObserveRequest(string(r.Status), time.Since(start).Seconds(), int(r.Bytes))
				if jrnl != nil {
					jrnl.Record(journal.Entry{
						Path:       r.Path,
						Status:     string(r.Status),
						BytesSent:  r.Bytes,
						DurationMs: time.Since(start).Milliseconds(),
						ClientAddr: gctx.ClientAddr,
						ServedVia:  r.ServedVia,
					})
				}
			},
		}
		h.Handle(gctx)
	}

	server := gfserver.New(gfserver.Config{
		Port:          cfg.Port,
		WorkerThreads: cfg.Workers,
		Handler:       handler,
	})

	logger.Info("gfproxy: ready", "port", cfg.Port, "workers", cfg.Workers, "segment_pool", cfg.SegmentPool)
	if err := server.Serve(ctx); err != nil {
		logger.Error("gfproxy: server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("gfproxy: shut down")
}
