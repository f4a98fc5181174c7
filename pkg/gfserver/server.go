// Package gfserver hosts the proxy's acceptor + worker-pool loop: one
// goroutine accepts connections and enqueues them; a configurable
// pool of worker goroutines each loop popping one item and running it
// to completion.
package gfserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/jonnybach/low-level-file-server/internal/logger"
	"github.com/jonnybach/low-level-file-server/pkg/ftransport"
	"github.com/jonnybach/low-level-file-server/pkg/workqueue"
)

// Handler processes one accepted connection. It owns ctx for the
// duration of the call and must leave the connection closed (directly
// or via ctx.Abort) before returning.
type Handler func(ctx *Context)

// Config is immutable once a Server starts serving.
type Config struct {
	Port          int
	Backlog       int
	WorkerThreads int
	Handler       Handler
}

// Context is bound to one accepted socket, owned by whichever worker
// dequeues it from the work queue.
type Context struct {
	Conn       net.Conn
	ClientAddr string
	Config     *Config

	mu      sync.Mutex
	aborted bool
}

// Abort closes the underlying socket and marks the context aborted.
// It is safe to call more than once and safe to call concurrently
// with the handler's own close path.
func (c *Context) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.aborted {
		return
	}
	c.aborted = true
	_ = c.Conn.Close()
}

// Server runs the acceptor + worker pool described by a Config.
type Server struct {
	cfg      Config
	listener *ftransport.Listener
	queue    *workqueue.Queue[*Context]
	wg       sync.WaitGroup
	shutdown atomic.Bool
}

// New constructs a Server bound to cfg. The listener is not opened
// until Serve is called.
func New(cfg Config) *Server {
	if cfg.WorkerThreads < 1 {
		cfg.WorkerThreads = 1
	}
	if cfg.WorkerThreads > 1024 {
		cfg.WorkerThreads = 1024
	}
	return &Server{cfg: cfg, queue: workqueue.New[*Context]()}
}

// Serve opens the listener, starts the worker pool, and accepts
// connections until ctx is cancelled. The acceptor queue stays open
// while serving; only after ctx is cancelled does Serve close it, so
// the workers drain it and exit before Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := ftransport.Listen(s.cfg.Port, s.cfg.Backlog)
	if err != nil {
		return fmt.Errorf("gfserver: %w", err)
	}
	s.listener = listener

	for i := 0; i < s.cfg.WorkerThreads; i++ {
		workerID := i
		s.wg.Add(1)
		go s.worker(workerID)
	}

	go func() {
		<-ctx.Done()
		s.shutdown.Store(true)
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.shutdown.Load() {
				break
			}
			logger.Warn("gfserver: accept error", "error", err)
			continue
		}

		gctx := &Context{
			Conn:       conn,
			ClientAddr: conn.RemoteAddr().String(),
			Config:     &s.cfg,
		}
		s.queue.Submit(gctx)
	}

	s.queue.Close()
	s.wg.Wait()
	return nil
}

func (s *Server) worker(id int) {
	defer s.wg.Done()
	for {
		gctx, ok := s.queue.Pop()
		if !ok {
			return
		}
		if s.shutdown.Load() {
			gctx.Abort()
			continue
		}
		s.cfg.Handler(gctx)
	}
}

// QueueDepth reports the number of connections awaiting a worker.
func (s *Server) QueueDepth() int {
	return s.queue.Len()
}
