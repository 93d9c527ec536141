package internal

import (
	"context"
	"log/slog"

	"github.com/starford/tactica/internal/mcpserver"
)

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := NewLogger(app.config, app.logOutput)

	svc, gw, err := OpenService(app.config, logger, nil)
	if err != nil {
		return err
	}
	defer gw.Close()

	logger.Info("MCP server starting", slog.String("storage_backend", app.config.Storage.Backend))
	return mcpserver.New(svc).ServeStdio()
}
