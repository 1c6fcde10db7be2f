package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/teemow/meetfinder/internal/auth"
	"github.com/teemow/meetfinder/internal/logging"
)

const (
	// MCPEndpoint is the streamable-HTTP MCP path.
	MCPEndpoint = "/mcp"

	// forwardedTokenLifetime is assumed for bearer tokens, which carry no expiry.
	forwardedTokenLifetime = time.Hour

	tokenStoreTimeout = 5 * time.Second
)

// HTTPServerConfig configures the streamable-HTTP transport.
type HTTPServerConfig struct {
	Addr string

	// BaseURL is the externally visible URL. When bearer tokens are
	// forwarded it must be HTTPS unless it points at loopback.
	BaseURL string

	TLSCertFile string
	TLSKeyFile  string

	// RequireBearer rejects MCP requests without an Authorization header.
	RequireBearer bool

	Version string
}

// HTTPServer exposes an MCP server over streamable HTTP together with the
// health endpoints.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	sc         *ServerContext
	tokens     *auth.StoreTokenProvider
	config     HTTPServerConfig
	health     *HealthChecker
	httpServer *http.Server
	logger     *slog.Logger
}

// NewHTTPServer creates the transport. tokens may be nil, in which case
// bearer tokens are not forwarded to the backends and every request uses
// the server's own credentials.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, tokens *auth.StoreTokenProvider, config HTTPServerConfig) (*HTTPServer, error) {
	if mcpServer == nil || sc == nil {
		return nil, fmt.Errorf("mcp server and server context are required")
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if (config.TLSCertFile == "") != (config.TLSKeyFile == "") {
		return nil, fmt.Errorf("both --tls-cert-file and --tls-key-file are required for TLS")
	}
	if tokens != nil && config.BaseURL != "" {
		if err := validateHTTPSRequirement(config.BaseURL); err != nil {
			return nil, err
		}
	}

	return &HTTPServer{
		mcpServer: mcpServer,
		sc:        sc,
		tokens:    tokens,
		config:    config,
		health:    NewHealthChecker(sc, config.Version),
		logger:    sc.Logger(),
	}, nil
}

// Health returns the health checker so callers can flip readiness during
// shutdown.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Handler returns the complete HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(MCPEndpoint),
		mcpserver.WithHTTPContextFunc(propagateAccount),
	)

	mux := http.NewServeMux()
	mux.Handle(MCPEndpoint, s.bearerMiddleware(streamable))
	s.health.RegisterHealthEndpoints(mux)

	return otelhttp.NewHandler(s.instrumentationMiddleware(mux), "meetfinder")
}

// propagateAccount copies the account resolved by the bearer middleware into
// the context handed to tool handlers.
func propagateAccount(ctx context.Context, r *http.Request) context.Context {
	if account, ok := auth.AccountFromContext(r.Context()); ok {
		return auth.WithAccount(ctx, account)
	}
	return ctx
}

// bearerMiddleware stores the caller's bearer token under a hash-derived
// account key and puts that account in the request context.
func (s *HTTPServer) bearerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			if s.config.RequireBearer {
				w.Header().Set("WWW-Authenticate", `Bearer realm="meetfinder"`)
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		if s.tokens == nil {
			next.ServeHTTP(w, r)
			return
		}

		account := auth.AccountKey(token)
		storeCtx, cancel := context.WithTimeout(r.Context(), tokenStoreTimeout)
		err := s.tokens.SaveToken(storeCtx, account, &oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(forwardedTokenLifetime),
		})
		cancel()
		if err != nil {
			s.logger.Error("failed to store forwarded bearer token",
				logging.Account(account), logging.Err(err))
			http.Error(w, "failed to store credentials", http.StatusInternalServerError)
			return
		}
		s.logger.Debug("stored forwarded bearer token",
			logging.Account(account), "token", logging.SanitizeToken(token))

		next.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), account)))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// instrumentationMiddleware records request counts and latency.
func (s *HTTPServer) instrumentationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics := s.sc.Metrics()
		if metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}

// Start serves until Shutdown. It blocks.
func (s *HTTPServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal binds the listener, closes ready once bound, then
// serves until Shutdown.
func (s *HTTPServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.config.Addr = ln.Addr().String()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting MCP HTTP server",
		"addr", s.config.Addr,
		"endpoint", MCPEndpoint,
		"tls", s.config.TLSCertFile != "")
	if ready != nil {
		close(ready)
	}

	if s.config.TLSCertFile != "" {
		err = s.httpServer.ServeTLS(ln, s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		err = s.httpServer.Serve(ln)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listen address; after start it is the bound address.
func (s *HTTPServer) Addr() string {
	return s.config.Addr
}

// Shutdown marks the server not ready and drains connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// validateHTTPSRequirement refuses to accept bearer tokens over plain HTTP
// except on loopback addresses.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("forwarding bearer tokens requires HTTPS (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
