package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"convertmcp/internal/config"
	"convertmcp/internal/di"
	"convertmcp/internal/logging"
	"convertmcp/internal/mcp"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(flags *globalFlags) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio by default)",
		Long: `Run the MCP server.

Without --http the server speaks newline-delimited JSON-RPC on stdin/stdout
and logs to stderr. With --http it serves POST /mcp, GET /healthz and, when
metrics are enabled, GET /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			container, err := buildContainer(cmd, flags, map[string]string{
				"http.addr":        "http",
				"http.enable_cors": "cors",
				"metrics.enabled":  "metrics",
			}, true)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = container.Shutdown(shutdownCtx)
			}()

			return serve(ctx, container, cmd.Flags().Changed("http"), metricsAddr)
		},
	}

	cmd.Flags().String("http", "", "Serve MCP over HTTP on this address instead of stdio")
	cmd.Flags().Lookup("http").NoOptDefVal = config.DefaultHTTPAddr
	cmd.Flags().Bool("cors", false, "Allow cross-origin requests to the HTTP transport")
	cmd.Flags().Bool("metrics", false, "Expose Prometheus metrics")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics on this address in stdio mode")
	return cmd
}

func serve(ctx context.Context, container *di.Container, httpMode bool, metricsAddr string) error {
	logger := logging.NewComponentLogger("Serve")
	cfg := container.Config

	var metrics http.Handler
	if cfg.Metrics.Enabled {
		metrics = container.Observability.Metrics.Handler()
	}

	g, gctx := errgroup.WithContext(ctx)
	if httpMode {
		httpCfg := mcp.DefaultHTTPConfig()
		httpCfg.Addr = cfg.HTTP.Addr
		httpCfg.EnableCORS = cfg.HTTP.EnableCORS
		httpCfg.Debug = cfg.Logging.Level == "debug"
		httpCfg.Metrics = metrics
		g.Go(func() error {
			return container.Server.ServeHTTP(gctx, httpCfg)
		})
		return g.Wait()
	}

	stdioCtx, cancel := context.WithCancel(gctx)
	defer cancel()
	logger.Info("Serving MCP on stdio (%d tools)", len(container.Tools.List()))
	g.Go(func() error {
		// EOF on stdin ends the session and stops the metrics listener.
		defer cancel()
		return container.Server.ServeStdio(stdioCtx, os.Stdin, os.Stdout)
	})
	if metrics != nil && metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(stdioCtx, metricsAddr, metrics)
		})
	}
	return g.Wait()
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
