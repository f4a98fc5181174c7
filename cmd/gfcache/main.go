// Command gfcache runs the cache daemon: it answers a gfproxy's
// segment-exchange requests straight from a local blob store. It has
// no notion of an origin; a miss is reported back to the proxy, which
// owns the origin fallback.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jonnybach/low-level-file-server/internal/logger"
	"github.com/jonnybach/low-level-file-server/pkg/admin"
	"github.com/jonnybach/low-level-file-server/pkg/blobstore"
	"github.com/jonnybach/low-level-file-server/pkg/config"
	"github.com/jonnybach/low-level-file-server/pkg/pipeline"
	"github.com/jonnybach/low-level-file-server/pkg/segipc"
)

func main() {
	fs := pflag.NewFlagSet("gfcache", pflag.ExitOnError)
	fs.String("socket", "/tmp/gfsystem/cache.sock", "path for this daemon's own control socket")
	fs.String("proxy_socket", "/tmp/gfsystem/proxy.sock", "path to the proxy's control socket")
	fs.IntP("workers", "t", 1, "worker threads")
	fs.StringP("blob_root", "c", "/var/lib/gfcache/blobs", "root of the filesystem-backed blob store")
	configFile := fs.String("config", "", "path to a YAML config file")
	help := fs.BoolP("help", "h", false, "show usage")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if *help {
		fmt.Fprintln(os.Stderr, "usage: gfcache [--socket path] [--proxy_socket path] [-t workers] [-c blob_root] [--config file] [-h]")
		return
	}

	cfg, err := config.LoadCacheConfig(fs, *configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gfcache: config error:", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		fmt.Fprintln(os.Stderr, "gfcache: logger init failed:", err)
		os.Exit(1)
	}

	fsStore, err := blobstore.NewFSStore(cfg.BlobRoot)
	if err != nil {
		logger.Error("gfcache: blob store init failed", "error", err)
		os.Exit(1)
	}

	var store blobstore.Store = fsStore
	if cfg.IndexPath != "" {
		indexed, err := blobstore.NewIndexedStore(fsStore, cfg.IndexPath)
		if err != nil {
			logger.Error("gfcache: badger index init failed", "error", err)
			os.Exit(1)
		}
		store = indexed
	}
	defer store.Close()

	attacher := segipc.NewAttacher(cfg.SegmentDir, cfg.SegmentSize)
	defer attacher.Close()

	channel, err := segipc.NewChannel(cfg.Socket, cfg.ProxySocket)
	if err != nil {
		logger.Error("gfcache: ipc channel init failed", "error", err)
		os.Exit(1)
	}
	defer channel.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Admin.Enabled {
		go func() {
			logger.Info("gfcache: admin surface listening", "addr", cfg.Admin.Addr)
			router := admin.NewRouter(nil)
			if err := admin.Serve(ctx, cfg.Admin.Addr, router); err != nil {
				logger.Warn("gfcache: admin surface stopped", "error", err)
			}
		}()
	}

	for i := 0; i < cfg.Workers; i++ {
		session := segipc.NewServerSession(channel, attacher)
		worker := &pipeline.CacheWorker{Session: session, Store: store}
		go worker.Run(ctx)
	}

	logger.Info("gfcache: ready", "workers", cfg.Workers, "blob_root", cfg.BlobRoot)
	<-ctx.Done()
	logger.Info("gfcache: shutting down")
}
