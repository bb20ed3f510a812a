// Package mcpserver exposes the todo engine's commands and queries as MCP tools.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var (
	statusValues    = []string{"all", "active", "completed"}
	priorityValues  = []string{"low", "medium", "high"}
	sortFieldValues = []string{"createdAt", "updatedAt", "dueDate", "priority"}
	sortOrderValues = []string{"asc", "desc"}
)

// addTodoTool returns a tool definition for creating a todo.
func addTodoTool() mcp.Tool {
	return mcp.NewTool("add_todo",
		mcp.WithDescription("Create a todo. Returns the stored record as JSON."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Headline of the todo; must not be blank")),
		mcp.WithString("content",
			mcp.Description("Body text; HTML is sanitized")),
		mcp.WithString("priority",
			mcp.Enum(priorityValues...),
			mcp.Description("Priority (defaults to medium)")),
		mcp.WithString("category",
			mcp.Description("Category (defaults to General)")),
		mcp.WithArray("tags",
			mcp.Description("Tag names")),
		mcp.WithString("dueDate",
			mcp.Description("Due date, RFC 3339 or YYYY-MM-DD")),
		mcp.WithBoolean("isPinned",
			mcp.Description("Pin the todo")),
		mcp.WithString("notes",
			mcp.Description("Free-form notes")),
	)
}

// updateTodoTool returns a tool definition for a partial update.
func updateTodoTool() mcp.Tool {
	return mcp.NewTool("update_todo",
		mcp.WithDescription("Update fields of an existing todo. Omitted fields are left unchanged; a null dueDate clears it."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("ID of the todo to update")),
		mcp.WithString("title",
			mcp.Description("New headline")),
		mcp.WithString("content",
			mcp.Description("New body text")),
		mcp.WithBoolean("completed",
			mcp.Description("Completion state")),
		mcp.WithString("priority",
			mcp.Enum(priorityValues...),
			mcp.Description("New priority")),
		mcp.WithString("category",
			mcp.Description("New category")),
		mcp.WithArray("tags",
			mcp.Description("Replacement tag names")),
		mcp.WithBoolean("isPinned",
			mcp.Description("Pin state")),
		mcp.WithString("dueDate",
			mcp.Description("New due date, RFC 3339 or YYYY-MM-DD; empty clears it")),
		mcp.WithString("notes",
			mcp.Description("New notes")),
	)
}

func idTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("ID of the todo")),
	)
}

func deleteTodoTool() mcp.Tool {
	return idTool("delete_todo", "Delete a todo.")
}

func toggleCompleteTool() mcp.Tool {
	return idTool("toggle_complete", "Flip a todo between active and completed.")
}

func togglePinTool() mcp.Tool {
	return idTool("toggle_pin", "Flip a todo's pinned flag.")
}

func getTodoTool() mcp.Tool {
	return idTool("get_todo", "Get one todo by ID.")
}

func clearCompletedTool() mcp.Tool {
	return mcp.NewTool("clear_completed",
		mcp.WithDescription("Delete every completed todo. Returns how many were removed."),
	)
}

func toggleAllTool() mcp.Tool {
	return mcp.NewTool("toggle_all",
		mcp.WithDescription("Mark every todo completed or active. Returns how many changed."),
		mcp.WithBoolean("completed",
			mcp.Required(),
			mcp.Description("Target completion state")),
	)
}

// filterParams are shared by list_todos and set_filter.
func filterParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("status",
			mcp.Enum(statusValues...),
			mcp.Description("Completion filter")),
		mcp.WithString("priority",
			mcp.Enum(append([]string{"all"}, priorityValues...)...),
			mcp.Description("Priority filter")),
		mcp.WithString("category",
			mcp.Description("Exact category; empty for any")),
		mcp.WithArray("tags",
			mcp.Description("Todos must carry every one of these tags")),
		mcp.WithString("sortBy",
			mcp.Enum(sortFieldValues...),
			mcp.Description("Sort field")),
		mcp.WithString("sortOrder",
			mcp.Enum(sortOrderValues...),
			mcp.Description("Sort direction")),
	}
}

// listTodosTool returns a tool definition for a one-off filtered query that
// does not touch the engine's current view.
func listTodosTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List todos matching the given criteria (defaults: all, newest first). Does not change the current view."),
		mcp.WithString("search",
			mcp.Description("Case-insensitive text matched against title, content, notes and tags")),
	}, filterParams()...)
	return mcp.NewTool("list_todos", opts...)
}

func getStatsTool() mcp.Tool {
	return mcp.NewTool("get_stats",
		mcp.WithDescription("Counts over the whole collection: total, completed, active, and per priority, category and tag."),
	)
}

func setFilterTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Change the current view's filter. Omitted fields are left unchanged. The view updates after the debounce window."),
	}, filterParams()...)
	return mcp.NewTool("set_filter", opts...)
}

func setSearchTool() mcp.Tool {
	return mcp.NewTool("set_search",
		mcp.WithDescription("Set the current view's search term. The view updates after the debounce window."),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Search term; empty clears the search")),
	)
}

func clearFiltersTool() mcp.Tool {
	return mcp.NewTool("clear_filters",
		mcp.WithDescription("Reset the current view's filter and search term to the defaults."),
	)
}

func getViewTool() mcp.Tool {
	return mcp.NewTool("get_view",
		mcp.WithDescription("Get the current view: the filter, the search term and the todos they select."),
	)
}

func addTagTool() mcp.Tool {
	return mcp.NewTool("add_tag",
		mcp.WithDescription("Register a tag name."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Tag name")),
	)
}

func removeTagTool() mcp.Tool {
	return mcp.NewTool("remove_tag",
		mcp.WithDescription("Unregister a tag and strip it from every todo."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Tag name")),
	)
}

func listTagsTool() mcp.Tool {
	return mcp.NewTool("list_tags",
		mcp.WithDescription("List the tag and category registries."),
	)
}
