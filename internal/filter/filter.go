// Package filter derives the visible view of a todo collection from a
// todo.Filter and a free-text search term.
package filter

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/JamesPrial/todo-engine/internal/todo"
)

// Apply returns the todos matching f and search, ordered by f.SortBy and
// f.SortOrder. Ties keep their collection order. The input is never
// modified and the result is never nil.
//
// Matching steps, in order: status, priority, category (exact), tags (the
// todo must carry every filter tag), then search. The search term is trimmed
// and case-folded, and matches title, content, notes or any tag.
func Apply(todos []todo.Todo, f todo.Filter, search string) []todo.Todo {
	m := newMatcher(f, search)

	out := make([]todo.Todo, 0, len(todos))
	for _, t := range todos {
		if m.match(t) {
			out = append(out, t.Clone())
		}
	}

	slices.SortStableFunc(out, comparator(f.SortBy, f.SortOrder))
	return out
}

type matcher struct {
	f      todo.Filter
	folder cases.Caser
	needle string
}

func newMatcher(f todo.Filter, search string) *matcher {
	m := &matcher{f: f, folder: cases.Fold()}
	if s := strings.TrimSpace(search); s != "" {
		m.needle = m.folder.String(s)
	}
	return m
}

func (m *matcher) match(t todo.Todo) bool {
	switch m.f.Status {
	case todo.StatusActive:
		if t.Completed {
			return false
		}
	case todo.StatusCompleted:
		if !t.Completed {
			return false
		}
	}

	if m.f.Priority != "" && m.f.Priority != todo.PriorityAll && t.Priority != m.f.Priority {
		return false
	}

	if m.f.Category != "" && t.Category != m.f.Category {
		return false
	}

	for _, tag := range m.f.Tags {
		if !t.HasTag(tag) {
			return false
		}
	}

	if m.needle == "" {
		return true
	}
	if m.contains(t.Title) || m.contains(t.Content) || m.contains(t.Notes) {
		return true
	}
	return slices.ContainsFunc(t.Tags, m.contains)
}

func (m *matcher) contains(s string) bool {
	return s != "" && strings.Contains(m.folder.String(s), m.needle)
}

// comparator returns the ordering for field and order. Undated todos sort
// after dated ones in both directions.
func comparator(field todo.SortField, order todo.SortOrder) func(a, b todo.Todo) int {
	dir := -1
	if order == todo.SortAsc {
		dir = 1
	}

	switch field {
	case todo.SortByPriority:
		return func(a, b todo.Todo) int {
			return dir * (a.Priority.Rank() - b.Priority.Rank())
		}
	case todo.SortByDueDate:
		return func(a, b todo.Todo) int {
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				return 0
			case a.DueDate == nil:
				return 1
			case b.DueDate == nil:
				return -1
			}
			return dir * a.DueDate.Compare(*b.DueDate)
		}
	case todo.SortByUpdatedAt:
		return func(a, b todo.Todo) int {
			return dir * a.UpdatedAt.Compare(b.UpdatedAt)
		}
	default:
		return func(a, b todo.Todo) int {
			return dir * a.CreatedAt.Compare(b.CreatedAt)
		}
	}
}
