package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/restq/restq/pkg/util"
)

// Middleware defines a function type that represents a middleware. Middleware functions wrap an
// http.Handler to modify or enhance its behavior.
type Middleware func(http.Handler) http.Handler

// RouterOptions is a function type that represents options to configure a Router.
type RouterOptions func(*Router)

// Router is the main structure for handling HTTP routing and middleware.
// Middleware is applied at registration time, so Use must come before the
// Handle calls it should wrap.
type Router struct {
	mux        *http.ServeMux
	server     *http.Server
	prefix     string
	middleware []Middleware
	mu         sync.RWMutex
}

// NewRouter creates a new instance of Router with the given options.
func NewRouter(opts ...RouterOptions) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		server: &http.Server{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithServerOptions returns a RouterOptions function that sets custom http.Server options.
func WithServerOptions(opts ...func(*http.Server)) RouterOptions {
	return func(r *Router) {
		for _, opt := range opts {
			opt(r.server)
		}
	}
}

// WithTLS provides a simplified way to enable HTTPS in your router.
// Empty cert or key paths fall back to a self-signed certificate generated
// under ./tls.
func WithTLS(certFile, keyFile string) RouterOptions {
	return func(r *Router) {
		r.server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}

		if certFile == "" || keyFile == "" {
			certFile, keyFile = "./tls/tls.crt", "./tls/tls.key"
		}
		cert, err := util.LoadOrGenerateCert(certFile, keyFile)
		if err != nil {
			log.Fatalf("error loading TLS certificates: %v", err)
		}

		r.server.TLSConfig.Certificates = []tls.Certificate{cert}
	}
}

// Use adds one or more middleware to the router. At least one middleware must be provided.
// Middleware functions are applied in the order they are added.
func (r *Router) Use(mw Middleware, additional ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
	if len(additional) > 0 {
		r.middleware = append(r.middleware, additional...)
	}
}

// Group creates a new sub-router with a specified prefix. The sub-router inherits the middleware
// from its parent router.
func (r *Router) Group(prefix string) *Router {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Router{
		mux:        r.mux,
		middleware: slices.Clone(r.middleware),
		server:     r.server,
		prefix:     r.prefix + prefix,
	}
}

// Handle registers an HTTP handler function for a given method and pattern as introduced in
// [Routing Enhancements for Go 1.22](https://go.dev/blog/routing-enhancements)
// The handler `METHOD /pattern` on a route group with a /prefix resolves to `METHOD /prefix/pattern`
func (r *Router) Handle(methodPattern string, handler http.Handler) {
	parts := strings.SplitN(methodPattern, " ", 2)
	if len(parts) != 2 {
		log.Fatalf("invalid method pattern: %s", methodPattern)
	}
	method, pattern := parts[0], parts[1]

	r.mu.RLock()
	defer r.mu.RUnlock()

	finalHandler := handler
	for i := len(r.middleware) - 1; i >= 0; i-- {
		finalHandler = r.middleware[i](finalHandler)
	}
	fullPattern := fmt.Sprintf("%s %s%s", method, r.prefix, pattern)

	r.mux.Handle(fullPattern, finalHandler)
}

// ServeHTTP dispatches to the registered routes, making the Router usable
// anywhere an http.Handler is.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// ListenAndServe starts the server, automatically choosing between HTTP and HTTPS based on TLS config.
func (r *Router) ListenAndServe(addr string) error {
	fmt.Print(colorGreen + restqASCIIArt + colorReset)
	fmt.Printf("starting server on %s\n", addr)

	r.server.Addr = addr
	// Route handlers carry their middleware already; serving the bare mux
	// avoids wrapping the chain a second time.
	r.server.Handler = r.mux

	if r.server.TLSConfig != nil {
		// HTTPS, cert and key come from TLSConfig
		return r.server.ListenAndServeTLS("", "")
	}
	// HTTP
	return r.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (r *Router) Shutdown(ctx context.Context) error {
	log.Println("shutting down server")
	return r.server.Shutdown(ctx)
}

// Constants for ASCII art and console colors
const (
	colorGreen = "\033[32m"
	colorReset = "\033[0m"

	restqASCIIArt = `
               _
 _ __ ___  ___| |_ __ _
| '__/ _ \/ __| __/ _' |
| | |  __/\__ \ || (_| |
|_|  \___||___/\__\__, |
                     |_|

`
)
