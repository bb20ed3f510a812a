// Package main implements the todo-engine MCP server.
//
// The server exposes the todo engine's commands and queries as tools and
// communicates via stdio JSON-RPC (Model Context Protocol).
//
// Environment variables:
//   - TODO_CONFIG: Optional. Path to the YAML config file.
//   - TODO_STORAGE_BACKEND, TODO_STORAGE_DIR, ...: Optional. Override config values.
package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/JamesPrial/todo-engine/internal/app"
	"github.com/JamesPrial/todo-engine/internal/mcpserver"
)

func run() int {
	a, err := app.New(app.Options{
		ConfigPath: os.Getenv("TODO_CONFIG"),
		LogOutput:  os.Stderr,
	})
	if err != nil {
		slog.Error("failed to start", "error", err)
		return 1
	}
	defer a.Close()

	// Storage notices travel back in the result of the tool call that
	// raised them; load failures are only logged.
	srv, err := mcpserver.NewServer(a.Engine, a.Logger)
	if err != nil {
		a.Logger.Error("failed to create MCP server", "error", err)
		return 1
	}

	errLogger := slog.NewLogLogger(a.Logger.Handler(), slog.LevelError)
	if err := server.ServeStdio(srv, server.WithErrorLogger(errLogger)); err != nil {
		a.Logger.Error("server error", "error", err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(run())
}
