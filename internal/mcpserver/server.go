package mcpserver

import (
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/JamesPrial/todo-engine/internal/engine"
)

// ServerName and ServerVersion identify the server to MCP clients.
const (
	ServerName    = "todo-engine"
	ServerVersion = "1.0.0"
)

// NewServer creates an MCP server with every todo tool registered against e.
func NewServer(e *engine.Engine, logger *slog.Logger) (*server.MCPServer, error) {
	if e == nil {
		return nil, errors.New("mcpserver: engine is required")
	}
	h := NewHandler(e, logger)

	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
	)

	// Commands
	s.AddTool(addTodoTool(), h.HandleAddTodo)
	s.AddTool(updateTodoTool(), h.HandleUpdateTodo)
	s.AddTool(deleteTodoTool(), h.HandleDeleteTodo)
	s.AddTool(toggleCompleteTool(), h.HandleToggleComplete)
	s.AddTool(togglePinTool(), h.HandleTogglePin)
	s.AddTool(clearCompletedTool(), h.HandleClearCompleted)
	s.AddTool(toggleAllTool(), h.HandleToggleAll)
	s.AddTool(addTagTool(), h.HandleAddTag)
	s.AddTool(removeTagTool(), h.HandleRemoveTag)

	// Queries
	s.AddTool(getTodoTool(), h.HandleGetTodo)
	s.AddTool(listTodosTool(), h.HandleListTodos)
	s.AddTool(getStatsTool(), h.HandleGetStats)
	s.AddTool(listTagsTool(), h.HandleListTags)

	// View state
	s.AddTool(setFilterTool(), h.HandleSetFilter)
	s.AddTool(setSearchTool(), h.HandleSetSearch)
	s.AddTool(clearFiltersTool(), h.HandleClearFilters)
	s.AddTool(getViewTool(), h.HandleGetView)

	return s, nil
}
