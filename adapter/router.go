// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package adapter

import (
	stdctx "context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coregx/bishop"
	"github.com/coregx/bishop/internal/radix"
)

type contextKey int

const paramsKey contextKey = iota

// Router dispatches incoming HTTP requests to a bishop.Resource by URL,
// using one radix tree per method for <100ns static/param/wildcard lookups
// (the resource model is single-resource-per-request; Router supplies
// the many-resources-per-process routing bishop itself doesn't define).
//
// Router implements http.Handler and can be used directly with
// http.ListenAndServe.
type Router struct {
	trees map[string]*radix.Tree

	// notFound and methodNotAllowed are the resources Run evaluates when no
	// route matches, or a route exists under a different method. Both
	// default to a bare bishop.HaltResource if unset.
	notFound         *bishop.Resource
	methodNotAllowed *bishop.Resource

	server *http.Server

	shutdownCallbacks []func()
	shutdownMu        sync.Mutex
}

// New creates an empty Router. Routing trees are created lazily on first
// registration for each method.
func New() *Router {
	return &Router{
		trees:            make(map[string]*radix.Tree),
		notFound:         bishop.HaltResource(http.StatusNotFound),
		methodNotAllowed: bishop.HaltResource(http.StatusMethodNotAllowed),
	}
}

// SetNotFound overrides the resource served when no route matches the path.
func (r *Router) SetNotFound(rc *bishop.Resource) { r.notFound = rc }

// SetMethodNotAllowed overrides the resource served when the path matches a
// route registered under a different method.
func (r *Router) SetMethodNotAllowed(rc *bishop.Resource) { r.methodNotAllowed = rc }

// Handle registers rc to answer method requests for path. path follows the
// same static/:param/*wildcard syntax as internal/radix.
func (r *Router) Handle(method, path string, rc *bishop.Resource) {
	if method == "" {
		panic("adapter: HTTP method cannot be empty")
	}
	if path == "" {
		panic("adapter: path cannot be empty")
	}
	if rc == nil {
		panic("adapter: resource cannot be nil")
	}
	tree := r.trees[method]
	if tree == nil {
		tree = radix.New()
		r.trees[method] = tree
	}
	if err := tree.Insert(path, rc); err != nil {
		panic("adapter: " + err.Error())
	}
}

// GET registers rc for GET requests to path.
func (r *Router) GET(path string, rc *bishop.Resource) { r.Handle(http.MethodGet, path, rc) }

// HEAD registers rc for HEAD requests to path.
func (r *Router) HEAD(path string, rc *bishop.Resource) { r.Handle(http.MethodHead, path, rc) }

// POST registers rc for POST requests to path.
func (r *Router) POST(path string, rc *bishop.Resource) { r.Handle(http.MethodPost, path, rc) }

// PUT registers rc for PUT requests to path.
func (r *Router) PUT(path string, rc *bishop.Resource) { r.Handle(http.MethodPut, path, rc) }

// DELETE registers rc for DELETE requests to path.
func (r *Router) DELETE(path string, rc *bishop.Resource) { r.Handle(http.MethodDelete, path, rc) }

// PATCH registers rc for PATCH requests to path.
func (r *Router) PATCH(path string, rc *bishop.Resource) { r.Handle(http.MethodPatch, path, rc) }

// Param returns the value of the named path parameter matched for req, or
// "" if the route had no such parameter. Resource callbacks call this with
// the *bishop.Request they were handed.
func Param(req *bishop.Request, name string) string {
	if req == nil || req.Ctx == nil {
		return ""
	}
	params, _ := req.Ctx.Value(paramsKey).([]radix.Param)
	for _, p := range params {
		if p.Key == name {
			return p.Value
		}
	}
	return ""
}

// ServeHTTP implements http.Handler. It looks up a resource for the
// request's method and path, builds a bishop.Request, runs it through
// bishop.Run, and writes the resulting bishop.Response.
func (r *Router) ServeHTTP(w http.ResponseWriter, httpReq *http.Request) {
	path := httpReq.URL.Path

	tree := r.trees[httpReq.Method]
	var (
		rc     *bishop.Resource
		params []radix.Param
	)
	if tree != nil {
		if handler, p, found := tree.Lookup(path); found {
			rc = handler.(*bishop.Resource)
			params = p
		}
	}

	if rc == nil && r.pathExistsInOtherMethods(path, httpReq.Method) {
		rc = r.methodNotAllowed
	}
	if rc == nil {
		rc = r.notFound
	}

	req := FromHTTPRequest(httpReq)
	if len(params) > 0 {
		req.Ctx = stdctx.WithValue(req.Ctx, paramsKey, params)
	}

	res, err := bishop.Run(req, rc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = WriteResponse(w, req.Method, res)
}

func (r *Router) pathExistsInOtherMethods(path, method string) bool {
	for m, tree := range r.trees {
		if m == method {
			continue
		}
		if _, _, found := tree.Lookup(path); found {
			return true
		}
	}
	return false
}

// OnShutdown registers a function to run during graceful shutdown, in
// reverse registration order, before the HTTP server stops accepting
// connections. Safe for concurrent use.
func (r *Router) OnShutdown(f func()) {
	if f == nil {
		return
	}
	r.shutdownMu.Lock()
	defer r.shutdownMu.Unlock()
	r.shutdownCallbacks = append(r.shutdownCallbacks, f)
}

// SetServer attaches the http.Server Shutdown will drain. Set automatically
// by ListenAndServeWithShutdown; call manually if you construct the server
// yourself.
func (r *Router) SetServer(srv *http.Server) { r.server = srv }

// Shutdown runs registered OnShutdown callbacks, then gracefully shuts down
// the attached http.Server, if any. Safe to call multiple times.
func (r *Router) Shutdown(ctx stdctx.Context) error {
	r.shutdownMu.Lock()
	callbacks := make([]func(), len(r.shutdownCallbacks))
	copy(callbacks, r.shutdownCallbacks)
	r.shutdownMu.Unlock()

	for i := len(callbacks) - 1; i >= 0; i-- {
		callbacks[i]()
	}
	if r.server != nil {
		return r.server.Shutdown(ctx)
	}
	return nil
}

// ListenAndServeWithShutdown starts an HTTP server on addr and blocks until
// SIGTERM or SIGINT, then gracefully shuts it down within timeout (default
// 30s, matching Kubernetes' terminationGracePeriodSeconds default).
func (r *Router) ListenAndServeWithShutdown(addr string, timeout ...time.Duration) error {
	shutdownTimeout := 30 * time.Second
	if len(timeout) > 0 && timeout[0] > 0 {
		shutdownTimeout = timeout[0]
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	r.SetServer(srv)

	ctx, stop := signal.NotifyContext(stdctx.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		stop()
	}

	shutdownCtx, cancel := stdctx.WithTimeout(stdctx.Background(), shutdownTimeout)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}
