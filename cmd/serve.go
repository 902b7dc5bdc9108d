package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/fitz/trailmap/internal/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long: `Start the Model Context Protocol (MCP) server that lets AI agents
generate journeys, move steps through their lifecycle, adjust journeys
and read projections.

The server speaks JSON-RPC over stdio unless --http is given. Logs go to
stderr.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("http")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a := mustOpen(ctx, cmd)
		defer a.Close(context.Background())
		logger := a.logger

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			logger.Info("shutting down...")
			cancel()
		}()

		server := mcpserver.NewServer(a.service, logger)

		if addr != "" {
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.HTTPHandler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = httpServer.Shutdown(shutdownCtx)
			}()

			logger.Info("starting HTTP server", "addr", addr, "store", a.cfg.Store, "llm", a.cfg.LLM)
			if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
				a.fail(context.Background(), fmt.Errorf("HTTP server error: %w", err))
			}
		} else {
			logger.Info("starting MCP server on stdio", "store", a.cfg.Store, "llm", a.cfg.LLM)
			if err := server.Run(ctx); err != nil && ctx.Err() == nil {
				a.fail(context.Background(), fmt.Errorf("MCP server error: %w", err))
			}
		}

		logger.Info("server stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("http", "", "Serve streamable HTTP on this address (e.g. :8080) instead of stdio")
}
