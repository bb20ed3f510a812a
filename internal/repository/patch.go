package repository

import (
	"fmt"
	"strings"

	"github.com/JamesPrial/todo-engine/internal/todo"
)

func validatePatch(p todo.Patch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidTodo)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTodo, *p.Priority)
	}
	return nil
}

// applyPatch copies the non-nil fields of p onto t. ID and CreatedAt are
// never touched; the caller refreshes UpdatedAt.
func applyPatch(t *todo.Todo, p todo.Patch) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Content != nil {
		t.Content = *p.Content
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = categoryOrDefault(*p.Category)
	}
	if p.Tags != nil {
		t.Tags = todo.NormalizeTags(*p.Tags)
	}
	if p.IsPinned != nil {
		t.IsPinned = *p.IsPinned
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		d := p.DueDate.UTC()
		t.DueDate = &d
	}
}
