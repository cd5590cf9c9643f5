// Package web - Session middleware
//
// EDUCATIONAL NOTES:
// ------------------
// Handlers never reach for a global database. The session executor travels
// in the request context:
//
// 1. WithExecutor puts the executor into the context of every request
// 2. RequireExecutor rejects API requests when there is no database
// 3. Handlers call GetExecutor to run commands
//
// Locking is middleware too. Serialize wraps a route group so that only one
// request at a time can touch the session.

package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/cabewaldrop/pagedb/internal/sql/executor"
)

type contextKey string

const executorKey contextKey = "executor"

// WithExecutor returns middleware that stores exec in the request context.
//
// Usage:
//
//	router.Use(WithExecutor(exec))
//	router.Get("/tables", func(w http.ResponseWriter, r *http.Request) {
//	    names := GetExecutor(r).Database().Tables()
//	})
func WithExecutor(exec *executor.Executor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exec != nil {
				r = r.WithContext(context.WithValue(r.Context(), executorKey, exec))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetExecutor returns the executor stored by WithExecutor, or nil.
func GetExecutor(r *http.Request) *executor.Executor {
	exec, _ := r.Context().Value(executorKey).(*executor.Executor)
	return exec
}

// RequireExecutor answers 503 with a JSON error when the request carries no
// executor.
func RequireExecutor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetExecutor(r) == nil {
			writeError(w, http.StatusServiceUnavailable, "database not initialized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Serialize returns middleware that holds mu for the whole request.
func Serialize(mu *sync.Mutex) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			next.ServeHTTP(w, r)
		})
	}
}
