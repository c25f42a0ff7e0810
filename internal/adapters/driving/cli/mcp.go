package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scoresync/internal/adapters/driving/mcp"
	"github.com/custodia-labs/scoresync/internal/core/domain"
	"github.com/custodia-labs/scoresync/internal/logger"
)

var mcpPort int

// serveMCP blocks serving server over HTTP on addr, or over stdio when addr
// is empty. Tests replace it.
var serveMCP = func(ctx context.Context, server *mcp.Server, addr string) error {
	if addr != "" {
		return server.RunHTTP(ctx, addr)
	}
	return server.Run(ctx)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Starts a Model Context Protocol server so AI assistants can read the
generation history and regenerate the PDFs of a score.

Tools:      recent_runs, reconcile
Resources:  scoresync://runs, scoresync://last-run/{fileId}

The server takes the data directory lock when it can. If another scoresync
process holds it, the server starts without the reconcile tool.

By default the server speaks JSON-RPC over stdio. Use --port to serve the
streamable HTTP transport instead.`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	settings, err := loadSettings(false)
	if err != nil {
		return err
	}

	ports := &mcp.Ports{}
	if eng, err := reconcileEngine(ctx, settings); err != nil {
		logger.Warn("reconcile tool disabled: %v", err)
	} else {
		defer eng.Close() //nolint:errcheck // shutting down
		ports.History = eng.state.GenerationLog()
		ports.Regenerator = eng.regen
	}

	if ports.History == nil {
		state, err := openState(settings.DataDir)
		if err != nil {
			return fmt.Errorf("open state: %w", err)
		}
		defer state.Close() //nolint:errcheck // shutting down
		ports.History = state.GenerationLog()
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpPort > 0 {
		addr := fmt.Sprintf(":%d", mcpPort)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return serveMCP(ctx, server, addr)
	}
	return serveMCP(ctx, server, "")
}

// reconcileEngine validates settings and opens the locked pipeline.
func reconcileEngine(ctx context.Context, settings *domain.AppSettings) (*engine, error) {
	if err := settingsService.Validate(settings); err != nil {
		return nil, err
	}
	return openEngine(ctx, settings)
}
