// Package web provides the HTTP server over a database session.
//
// EDUCATIONAL NOTES:
// ------------------
// This package sets up an HTTP server using the chi router, which is a
// lightweight, idiomatic Go router. Key concepts:
//
// 1. Middleware: Functions that wrap handlers to add cross-cutting concerns
//    like logging, recovery from panics, and request timeouts.
//
// 2. Graceful shutdown: When the server receives a termination signal,
//    it stops accepting new connections but finishes processing in-flight
//    requests before shutting down.
//
// 3. Dependency injection: The Executor is passed into the server so
//    handlers can run commands against the database.
//
// The storage layer has no locking of its own: pages are rewritten in place
// and the index lives in memory. Every request that touches the database
// therefore runs while holding the server's session lock.

package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cabewaldrop/pagedb/internal/sql/executor"
)

// Server represents the HTTP server for one database session.
type Server struct {
	router   *chi.Mux
	port     int
	executor *executor.Executor
	mu       sync.Mutex
}

// NewServer creates a new HTTP server with the given port and executor.
// If executor is nil, database operations will not be available.
func NewServer(port int, exec *executor.Executor) *Server {
	r := chi.NewRouter()

	// Middleware stack
	// RequestID: Adds a unique ID to each request for tracing
	r.Use(middleware.RequestID)
	// RealIP: Extracts the real client IP from X-Forwarded-For headers
	r.Use(middleware.RealIP)
	// Logger: Logs each request (method, path, duration)
	r.Use(middleware.Logger)
	// Recoverer: Catches panics in handlers, logs stack trace, returns 500
	r.Use(middleware.Recoverer)
	// Timeout: Cancels request context after 30 seconds
	r.Use(middleware.Timeout(30 * time.Second))

	s := &Server{
		router:   r,
		port:     port,
		executor: exec,
	}

	s.routes()
	return s
}

// routes sets up all HTTP routes for the server.
func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(WithExecutor(s.executor))
		r.Use(Serialize(&s.mu))

		r.Get("/", s.handleIndex)
		r.Get("/tables/{name}/data", s.handleTableData)

		r.Route("/api", func(r chi.Router) {
			r.Use(RequireExecutor)

			r.Get("/tables", s.handleAPITables)
			r.Post("/tables", s.handleAPICreateTable)
			r.Get("/tables/{name}", s.handleAPITableSchema)
			r.Delete("/tables/{name}", s.handleAPIDropTable)
			r.Get("/tables/{name}/rows", s.handleAPITableRows)
			r.Post("/tables/{name}/rows", s.handleAPIInsertRows)
			r.Delete("/tables/{name}/rows", s.handleAPIRemoveRows)
			r.Get("/tables/{name}/explain", s.handleAPIExplain)
			r.Post("/query", s.handleAPIQuery)
		})
	})
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until shutdown.
// It handles graceful shutdown on SIGTERM and SIGINT.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive shutdown signals
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// Channel to receive server errors
	errChan := make(chan error, 1)

	go func() {
		fmt.Printf("Starting server on port %d\n", s.port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-done:
		fmt.Println("\nShutdown signal received, gracefully shutting down...")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	// Flush metadata once no handler can run any more.
	if s.executor != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.executor.Close(); err != nil {
			return fmt.Errorf("failed to save database: %w", err)
		}
	}

	fmt.Println("Server stopped")
	return nil
}
