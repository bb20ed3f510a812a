package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JamesPrial/todo-engine/internal/filter"
	"github.com/JamesPrial/todo-engine/internal/forminput"
	"github.com/JamesPrial/todo-engine/internal/todo"
)

func errNotFound(id string) error {
	return fmt.Errorf("todo %q not found", id)
}

// ---------------------------------------------------------------------------
// add / edit
// ---------------------------------------------------------------------------

func newAddCommand(opts *rootOptions) *cobra.Command {
	var form forminput.Form
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a todo",
		Long: `Add a todo from flags, or from a form JSON object on stdin with --stdin:

  {"title": "...", "content": "...", "priority": "high", "category": "Work",
   "tags": ["a"], "dueDate": "2026-05-01", "isPinned": false, "notes": "..."}`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromStdin {
				parsed, err := forminput.ParseForm(cmd.InOrStdin())
				if err != nil {
					return err
				}
				form = parsed
			} else {
				if len(args) == 0 {
					return errors.New("a title argument or --stdin is required")
				}
				form.Title = args[0]
				form.Content = forminput.SanitizeContent(form.Content)
			}

			options, err := form.Options()
			if err != nil {
				return err
			}
			td, err := opts.app.Engine.AddTodo(form.Title, form.Content, options)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), td)
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the form as JSON from stdin")
	cmd.Flags().StringVar(&form.Content, "content", "", "body text (HTML allowed)")
	cmd.Flags().StringVarP(&form.Priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVarP(&form.Category, "category", "c", "", "category")
	cmd.Flags().StringSliceVarP(&form.Tags, "tag", "t", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&form.DueDate, "due", "", "due date, RFC 3339 or YYYY-MM-DD")
	cmd.Flags().BoolVar(&form.IsPinned, "pin", false, "pin the todo")
	cmd.Flags().StringVar(&form.Notes, "notes", "", "notes")

	return cmd
}

func newEditCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id>",
		Short: "Update a todo from a JSON patch on stdin",
		Long: `Update a todo. stdin holds the fields to change, for example:

  {"title": "new title", "priority": "low", "dueDate": null}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := forminput.ParsePatch(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if patch.Empty() {
				return errors.New("patch has no fields")
			}
			if _, ok := opts.app.Repo.GetByID(args[0]); !ok {
				return errNotFound(args[0])
			}
			td, ok := opts.app.Engine.UpdateTodo(args[0], patch)
			if !ok {
				return fmt.Errorf("todo %q could not be updated", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), td)
		},
	}
}

// ---------------------------------------------------------------------------
// list / stats
// ---------------------------------------------------------------------------

func newListCommand(opts *rootOptions) *cobra.Command {
	var (
		status, priority, category, sortBy, sortOrder, search string
		tags                                                  []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List todos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p todo.FilterPatch
			if cmd.Flags().Changed("status") {
				v := todo.Status(status)
				p.Status = &v
			}
			if cmd.Flags().Changed("priority") {
				v := todo.Priority(strings.ToLower(priority))
				p.Priority = &v
			}
			if cmd.Flags().Changed("category") {
				p.Category = &category
			}
			if cmd.Flags().Changed("tag") {
				p.Tags = &tags
			}
			if cmd.Flags().Changed("sort") {
				v := todo.SortField(sortBy)
				p.SortBy = &v
			}
			if cmd.Flags().Changed("order") {
				v := todo.SortOrder(sortOrder)
				p.SortOrder = &v
			}
			if err := p.Validate(); err != nil {
				return err
			}

			f := todo.DefaultFilter().Merge(p)
			todos := filter.Apply(opts.app.Repo.Snapshot(), f, search)
			return writeJSON(cmd.OutOrStdout(), todos)
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "all, active or completed")
	cmd.Flags().StringVarP(&priority, "priority", "p", "all", "all, low, medium or high")
	cmd.Flags().StringVarP(&category, "category", "c", "", "exact category")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "required tag (repeatable; all must match)")
	cmd.Flags().StringVar(&sortBy, "sort", "createdAt", "createdAt, updatedAt, dueDate or priority")
	cmd.Flags().StringVar(&sortOrder, "order", "desc", "asc or desc")
	cmd.Flags().StringVarP(&search, "search", "s", "", "text to find in title, content, notes or tags")

	return cmd
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show counts over the whole collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), opts.app.Engine.Stats().Value())
		},
	}
}

// ---------------------------------------------------------------------------
// done / pin / delete / bulk
// ---------------------------------------------------------------------------

func newDoneCommand(opts *rootOptions) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a todo completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			completed := !undo
			td, ok := opts.app.Engine.UpdateTodo(args[0], todo.Patch{Completed: &completed})
			if !ok {
				return errNotFound(args[0])
			}
			return writeJSON(cmd.OutOrStdout(), td)
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark active again")
	return cmd
}

func newPinCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <id>",
		Short: "Toggle a todo's pinned flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			td, ok := opts.app.Engine.TogglePin(args[0])
			if !ok {
				return errNotFound(args[0])
			}
			return writeJSON(cmd.OutOrStdout(), td)
		},
	}
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.app.Engine.DeleteTodo(args[0]) {
				return errNotFound(args[0])
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
		},
	}
}

func newClearCompletedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed todo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), map[string]int{"removed": opts.app.Engine.ClearCompleted()})
		},
	}
}

func newToggleAllCommand(opts *rootOptions) *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:   "complete-all",
		Short: "Mark every todo completed (or active with --active)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), map[string]int{"changed": opts.app.Engine.ToggleAll(!active)})
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "mark every todo active instead")
	return cmd
}

// ---------------------------------------------------------------------------
// tags
// ---------------------------------------------------------------------------

func newTagsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List registered tags and categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), map[string][]string{
				"tags":       opts.app.Repo.Tags(),
				"categories": opts.app.Repo.Categories(),
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Register a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.app.Engine.AddTag(args[0]) {
				return fmt.Errorf("tag %q is blank or already registered", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), opts.app.Repo.Tags())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Unregister a tag and strip it from every todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.app.Engine.RemoveTag(args[0]) {
				return fmt.Errorf("tag %q does not exist", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), opts.app.Repo.Tags())
		},
	})

	return cmd
}

// ---------------------------------------------------------------------------
// secret
// ---------------------------------------------------------------------------

func newSecretCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage credentials in the system keyring",
		// No session: the secret may be what opening the store needs.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key>",
		Short: "Store the value on stdin under key",
		Long: `Store a credential, such as the Postgres password named by
storage.postgres_password_key, in the system keyring:

  printf '%s' "$PGPASSWORD" | todoctl secret set todo-pg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading secret: %w", err)
			}
			value := strings.TrimRight(string(raw), "\r\n")
			if value == "" {
				return errors.New("secret value on stdin is empty")
			}

			ring, err := opts.openKeyring()
			if err != nil {
				return err
			}
			if err := ring.Set(args[0], value); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"stored": args[0]})
		},
	})

	return cmd
}
