package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-oauth/storage/memory"

	"github.com/teemow/meetfinder/internal/auth"
	"github.com/teemow/meetfinder/internal/instrumentation"
	"github.com/teemow/meetfinder/internal/resources"
	"github.com/teemow/meetfinder/internal/server"
	"github.com/teemow/meetfinder/internal/tools/scheduling_tools"
)

const (
	transportStdio = "stdio"
	transportHTTP  = "streamable-http"

	startupTimeout = 5 * time.Second
)

// serveOptions holds everything the serve command reads from flags and the
// environment.
type serveOptions struct {
	transport     string
	httpAddr      string
	baseURL       string
	yolo          bool
	debug         bool
	backend       string
	tlsCertFile   string
	tlsKeyFile    string
	requireBearer bool
	sessionTTL    time.Duration

	metricsEnabled bool
	metricsAddr    string

	scheduling schedulingOptions
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide calendar
availability and meeting booking tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Safety Mode:
  By default, the server operates in read-only mode: availability can be
  searched, selected and exported as iCalendar but nothing is written to a
  calendar. Use --yolo to enable the booking tools.

Credentials:
  stdio uses AZURE_ACCESS_TOKEN or the token cached by "meetfinder login".
  streamable-http additionally accepts a bearer token per request and uses
  it for that caller's calendar calls.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.loadEnv(cmd); err != nil {
				return err
			}
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Externally visible URL of the server (can also be set via MCP_BASE_URL)")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable write operations (booking meetings)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.backend, "backend", auth.BackendGraph, "Calendar backend: graph or google")
	cmd.Flags().StringVar(&opts.tlsCertFile, "tls-cert-file", "", "Path to TLS certificate file (PEM)")
	cmd.Flags().StringVar(&opts.tlsKeyFile, "tls-key-file", "", "Path to TLS private key file (PEM)")
	cmd.Flags().BoolVar(&opts.requireBearer, "require-bearer", false, "Reject HTTP requests without a bearer token")
	cmd.Flags().DurationVar(&opts.sessionTTL, "session-ttl", 0, "Idle lifetime of a selection session (default 2h)")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics on a dedicated port (streamable-http only)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")
	opts.scheduling.addFlags(cmd)

	return cmd
}

// loadEnv applies environment fallbacks for flags that were not set.
func (o *serveOptions) loadEnv(cmd *cobra.Command) error {
	envString(cmd, "transport", "MEETFINDER_TRANSPORT", &o.transport)
	envString(cmd, "http-addr", "MEETFINDER_HTTP_ADDR", &o.httpAddr)
	envString(cmd, "base-url", "MCP_BASE_URL", &o.baseURL)
	envBool(cmd, "yolo", "MEETFINDER_YOLO", &o.yolo)
	envBool(cmd, "debug", "MEETFINDER_DEBUG", &o.debug)
	envString(cmd, "tls-cert-file", "TLS_CERT_FILE", &o.tlsCertFile)
	envString(cmd, "tls-key-file", "TLS_KEY_FILE", &o.tlsKeyFile)
	envBool(cmd, "require-bearer", "MEETFINDER_REQUIRE_BEARER", &o.requireBearer)
	envBool(cmd, "metrics-enabled", "METRICS_ENABLED", &o.metricsEnabled)
	envString(cmd, "metrics-addr", "METRICS_ADDR", &o.metricsAddr)

	backend, err := resolveBackend(cmd, o.backend)
	if err != nil {
		return err
	}
	o.backend = backend

	switch o.transport {
	case transportStdio, transportHTTP:
		return nil
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", o.transport)
	}
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stdio := opts.transport == transportStdio
	logger := newLogger(opts.debug)

	sched, err := opts.scheduling.resolve(cmd)
	if err != nil {
		return err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil && !stdio {
			log.Printf("Error during instrumentation shutdown: %v", err)
		}
	}()

	// Metrics are only served next to the HTTP transport; stdio clients
	// spawn one process per session.
	if !stdio && opts.metricsEnabled && provider.Enabled() {
		metricsServer, err := startMetricsServer(provider, opts.metricsAddr, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}()
	}

	local, err := localTokenProvider(opts.backend)
	if err != nil {
		return err
	}

	var tokens auth.TokenProvider = local
	var bearerTokens *auth.StoreTokenProvider
	if !stdio {
		store := memory.New()
		defer store.Stop()
		bearerTokens = auth.NewStoreTokenProvider(store)
		tokens = append(auth.ChainTokenProvider{bearerTokens}, local...)
	}

	serverContext, err := server.NewServerContext(shutdownCtx, server.Config{
		Backend:       opts.backend,
		TokenProvider: tokens,
		Scheduling:    sched,
		SessionTTL:    opts.sessionTTL,
		ReadOnly:      !opts.yolo,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil && !stdio {
			log.Printf("Error during server context shutdown: %v", err)
		}
	}()

	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
	}
	if instrConfig.Audit.Enabled {
		serverContext.SetAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.Audit))
	}

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	if !stdio {
		if serverContext.ReadOnly() {
			log.Println("Starting server in READ-ONLY mode (use --yolo to enable booking)")
		} else {
			log.Println("Starting server with WRITE operations enabled (--yolo flag is set)")
		}
		log.Printf("Backend: %s, slots: %s, working hours: %s, horizon: %d days, time zone: %s",
			opts.backend, sched.SlotDuration, sched.WorkingHours, sched.HorizonDays, sched.Location)
	}

	if stdio {
		return runStdioServer(mcpSrv)
	}
	return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, bearerTokens, opts)
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("meetfinder", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
}

// registerAllTools registers all MCP tools and resources.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	registrations := []struct {
		name     string
		register func() error
	}{
		{name: "scheduling tools", register: func() error { return scheduling_tools.RegisterSchedulingTools(mcpSrv, sc) }},
		{name: "resources", register: func() error { return resources.RegisterResources(mcpSrv, sc) }},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}

// startMetricsServer starts the Prometheus endpoint and waits until it is
// listening.
func startMetricsServer(provider *instrumentation.Provider, addr string, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(ready); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ready:
		log.Printf("Metrics server started on %s", metricsServer.Addr())
		return metricsServer, nil
	case err := <-errCh:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return nil, errors.New("metrics server startup timed out")
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, tokens *auth.StoreTokenProvider, opts serveOptions) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, sc, tokens, server.HTTPServerConfig{
		Addr:          opts.httpAddr,
		BaseURL:       opts.baseURL,
		TLSCertFile:   opts.tlsCertFile,
		TLSKeyFile:    opts.tlsKeyFile,
		RequireBearer: opts.requireBearer,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	ready := make(chan struct{})
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.StartWithReadySignal(ready); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ready:
		fmt.Printf("Streamable HTTP server starting on %s\n", httpServer.Addr())
		fmt.Printf("  HTTP endpoint: %s\n", server.MCPEndpoint)
		fmt.Printf("  Health endpoints: /healthz, /readyz\n")
		if opts.requireBearer {
			fmt.Println("  Bearer token: required")
		}
	case err := <-serverDone:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(startupTimeout):
		return errors.New("HTTP server startup timed out")
	}

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		fmt.Println("HTTP server stopped normally")
	}

	fmt.Println("HTTP server gracefully stopped")
	return nil
}
