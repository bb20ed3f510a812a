package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/JamesPrial/todo-engine/internal/engine"
	"github.com/JamesPrial/todo-engine/internal/filter"
	"github.com/JamesPrial/todo-engine/internal/forminput"
	"github.com/JamesPrial/todo-engine/internal/notify"
	"github.com/JamesPrial/todo-engine/internal/stats"
	"github.com/JamesPrial/todo-engine/internal/todo"
)

// Handler serves the todo tools from one engine.
// Handlers never return a Go error; failures become error results.
type Handler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewHandler returns a Handler for e. A nil logger selects slog.Default.
func NewHandler(e *engine.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: e, logger: logger}
}

// view is the get_view payload.
type view struct {
	Filter todo.Filter `json:"filter"`
	Search string      `json:"search"`
	Todos  []todo.Todo `json:"todos"`
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// HandleAddTodo creates a todo from the add form fields.
func (h *Handler) HandleAddTodo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.command(func() (*mcp.CallToolResult, error) {
		if _, err := request.RequireString("title"); err != nil {
			return mcp.NewToolResultError("Missing required parameter: title"), nil
		}

		raw, err := json.Marshal(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		form, err := forminput.ParseForm(bytes.NewReader(raw))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		opts, err := form.Options()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		td, err := h.engine.AddTodo(form.Title, form.Content, opts)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		h.logger.Debug("tool call", "tool", "add_todo", "id", td.ID)
		return jsonResult(td)
	})
}

// HandleUpdateTodo applies the given fields to an existing todo.
func (h *Handler) HandleUpdateTodo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.command(func() (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("Missing required parameter: id"), nil
		}

		fields := maps.Clone(request.GetArguments())
		delete(fields, "id")
		if len(fields) == 0 {
			return mcp.NewToolResultError("No fields to update"), nil
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		patch, err := forminput.ParsePatch(bytes.NewReader(raw))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if _, ok := h.engine.Repository().GetByID(id); !ok {
			return notFound(id), nil
		}
		td, ok := h.engine.UpdateTodo(id, patch)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Todo %q could not be updated", id)), nil
		}
		return jsonResult(td)
	})
}

// HandleDeleteTodo removes a todo.
func (h *Handler) HandleDeleteTodo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.command(func() (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("Missing required parameter: id"), nil
		}
		if !h.engine.DeleteTodo(id) {
			return notFound(id), nil
		}
		return jsonResult(map[string]string{"deleted": id})
	})
}

// HandleToggleComplete flips a todo's completed flag.
func (h *Handler) HandleToggleComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.toggle(request, h.engine.ToggleComplete)
}

// HandleTogglePin flips a todo's pinned flag.
func (h *Handler) HandleTogglePin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.toggle(request, h.engine.TogglePin)
}

func (h *Handler) toggle(request mcp.CallToolRequest, fn func(id string) (todo.Todo, bool)) (*mcp.CallToolResult, error) {
	return h.command(func() (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("Missing required parameter: id"), nil
		}
		td, ok := fn(id)
		if !ok {
			return notFound(id), nil
		}
		return jsonResult(td)
	})
}

// HandleClearCompleted deletes every completed todo.
func (h *Handler) HandleClearCompleted(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.command(func() (*mcp.CallToolResult, error) {
		return jsonResult(map[string]int{"removed": h.engine.ClearCompleted()})
	})
}

// HandleToggleAll sets every todo's completed flag.
func (h *Handler) HandleToggleAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.command(func() (*mcp.CallToolResult, error) {
		completed, ok := request.GetArguments()["completed"].(bool)
		if !ok {
			return mcp.NewToolResultError("Missing required parameter: completed (boolean)"), nil
		}
		return jsonResult(map[string]int{"changed": h.engine.ToggleAll(completed)})
	})
}

// HandleAddTag registers a tag.
func (h *Handler) HandleAddTag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.command(func() (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("Missing required parameter: name"), nil
		}
		if !h.engine.AddTag(name) {
			return mcp.NewToolResultError(fmt.Sprintf("Tag %q is blank or already registered", name)), nil
		}
		return jsonResult(h.engine.Repository().Tags())
	})
}

// HandleRemoveTag unregisters a tag and strips it from every todo.
func (h *Handler) HandleRemoveTag(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.command(func() (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("Missing required parameter: name"), nil
		}
		if !h.engine.RemoveTag(name) {
			return mcp.NewToolResultError(fmt.Sprintf("Tag %q does not exist", name)), nil
		}
		return jsonResult(h.engine.Repository().Tags())
	})
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// HandleGetTodo returns one todo.
func (h *Handler) HandleGetTodo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}
	td, ok := h.engine.Repository().GetByID(id)
	if !ok {
		return notFound(id), nil
	}
	return jsonResult(td)
}

// HandleListTodos runs a one-off query against the current collection.
func (h *Handler) HandleListTodos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patch, err := filterPatchFromArgs(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f := todo.DefaultFilter().Merge(patch)
	todos := filter.Apply(h.engine.Repository().Snapshot(), f, request.GetString("search", ""))
	return jsonResult(todos)
}

// HandleGetStats computes stats over the current collection.
func (h *Handler) HandleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(stats.Compute(h.engine.Repository().Snapshot()))
}

// HandleGetView returns the engine's current view.
func (h *Handler) HandleGetView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.currentView())
}

func (h *Handler) currentView() view {
	return view{
		Filter: h.engine.CurrentFilter(),
		Search: h.engine.SearchTerm(),
		Todos:  h.engine.Filtered().Value(),
	}
}

// HandleListTags returns the tag and category registries.
func (h *Handler) HandleListTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo := h.engine.Repository()
	return jsonResult(map[string][]string{
		"tags":       repo.Tags(),
		"categories": repo.Categories(),
	})
}

// ---------------------------------------------------------------------------
// View state
// ---------------------------------------------------------------------------

// HandleSetFilter merges the given criteria into the view's filter.
func (h *Handler) HandleSetFilter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patch, err := filterPatchFromArgs(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := h.engine.SetFilter(patch); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(h.engine.CurrentFilter())
}

// HandleSetSearch sets the view's search term.
func (h *Handler) HandleSetSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := request.RequireString("term")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: term"), nil
	}
	h.engine.SetSearchTerm(term)
	return jsonResult(map[string]string{"search": term})
}

// HandleClearFilters resets the view's filter and search term.
func (h *Handler) HandleClearFilters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.engine.ClearFilters()
	return jsonResult(map[string]any{
		"filter": h.engine.CurrentFilter(),
		"search": h.engine.SearchTerm(),
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// command runs a mutating tool call and attaches the storage notices it
// raised. A blocking notice turns the result into an error result; the
// in-memory change has still been applied.
func (h *Handler) command(run func() (*mcp.CallToolResult, error)) (*mcp.CallToolResult, error) {
	var (
		mu      sync.Mutex
		notices []notify.Notice
	)
	unsubscribe := h.engine.Notices().Subscribe(func(n notify.Notice) {
		// Not-found and invalid-input already come back as error results.
		if n.Kind == notify.KindNotFound || n.Kind == notify.KindInvalidInput {
			return
		}
		mu.Lock()
		notices = append(notices, n)
		mu.Unlock()
	})
	res, err := run()
	unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	if err != nil || res == nil || res.IsError || len(notices) == 0 {
		return res, err
	}
	return withNotices(res, notices), nil
}

// withNotices appends notices to res as a second JSON text block.
func withNotices(res *mcp.CallToolResult, notices []notify.Notice) *mcp.CallToolResult {
	for _, n := range notices {
		if n.Blocking() {
			res = mcp.NewToolResultError(n.Message)
			break
		}
	}
	data, err := json.MarshalIndent(map[string][]notify.Notice{"notices": notices}, "", "  ")
	if err != nil {
		return res
	}
	res.Content = append(res.Content, mcp.NewTextContent(string(data)))
	return res
}

func notFound(id string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Todo %q not found", id))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
