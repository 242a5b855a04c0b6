// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package httpx

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cocowh/eludris/pkg/errors"
	"github.com/cocowh/eludris/pkg/logger"
)

// Server is a small HTTP server for process-side endpoints such as
// /metrics.
type Server struct {
	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
	addr       string
	opts       *ServerOptions
	handlers   map[string]http.Handler
}

type ServerOptions struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

func NewServer(addr string, opts *ServerOptions) *Server {
	if opts == nil {
		opts = NewServerOptions()
	}
	return &Server{
		addr:     addr,
		handlers: make(map[string]http.Handler),
		opts:     opts,
	}
}

func (s *Server) AddRoute(path string, handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[path] = handler
}

// Start binds the address and serves in the background.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	s.mu.RLock()
	for path, handler := range s.handlers {
		mux.Handle(path, handler)
	}
	s.mu.RUnlock()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Convert(err).WithContext("addr", s.addr)
	}

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP server error: %v", err)
		}
	}()

	logger.Infof("HTTP server started on %s", ln.Addr())
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Convert(err)
	}
	logger.Infof("HTTP server stopped")
	return nil
}
