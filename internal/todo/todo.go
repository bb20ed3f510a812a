// Package todo defines the todo record, its add/update inputs, the filter
// specification and the aggregate stats shape shared by every other package.
//
// The JSON tags use camelCase to match the persisted browser-storage format.
package todo

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Priority is the urgency of a todo.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"

	// PriorityAll is only meaningful in a Filter; it is never stored on a Todo.
	PriorityAll Priority = "all"
)

// DefaultCategory is assigned when a todo is created without a category.
const DefaultCategory = "General"

// DefaultCategories seeds the category registry when none are configured.
var DefaultCategories = []string{"Work", "Personal", "Shopping", "Health"}

// Priorities lists the storable priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ErrUnknownPriority is returned by ParsePriority for values outside the enumeration.
var ErrUnknownPriority = errors.New("unknown priority")

// Valid reports whether p is one of the three storable priorities.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank orders priorities semantically: high > medium > low.
// Unknown values rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ParsePriority converts user input to a Priority.
//
// Matching is case-insensitive and ignores surrounding whitespace. An empty
// string yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PriorityMedium, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPriority, s)
	}
	return p, nil
}

// Todo is one task/note managed by the engine.
type Todo struct {
	// ID is unique across the collection and immutable after creation.
	ID string `json:"id"`

	// Title is the non-empty headline.
	Title string `json:"title"`

	// Content is the body, usually rich-text HTML from the editor.
	Content string `json:"content"`

	Completed bool `json:"completed"`

	// CreatedAt is set once at creation.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is set on every mutation and never precedes CreatedAt.
	UpdatedAt time.Time `json:"updatedAt"`

	Priority Priority `json:"priority"`
	Category string   `json:"category"`

	// Tags has set semantics: trimmed, non-empty, no duplicates.
	Tags []string `json:"tags"`

	IsPinned bool       `json:"isPinned"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
	Notes    string     `json:"notes,omitempty"`
}

// Clone returns a deep copy of t so callers never share the Tags slice or the
// DueDate pointer with the repository.
func (t Todo) Clone() Todo {
	c := t
	c.Tags = slices.Clone(t.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return c
}

// HasTag reports whether t carries tag.
func (t Todo) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// CloneAll deep-copies a collection. The result is never nil.
func CloneAll(todos []Todo) []Todo {
	out := make([]Todo, len(todos))
	for i, t := range todos {
		out[i] = t.Clone()
	}
	return out
}

// NormalizeTags trims every tag, drops empty ones and removes duplicates while
// keeping the first occurrence's position. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// Options carries the optional fields accepted when adding a todo.
// Zero values mean "use the default".
type Options struct {
	Priority Priority
	Category string
	Tags     []string
	DueDate  *time.Time
	IsPinned bool
	Notes    string
}

// Patch is a partial update. A nil field leaves the stored value unchanged.
// ID and CreatedAt cannot be patched.
type Patch struct {
	Title     *string
	Content   *string
	Completed *bool
	Priority  *Priority
	Category  *string
	Tags      *[]string
	IsPinned  *bool
	DueDate   *time.Time
	Notes     *string

	// ClearDueDate removes the due date. It wins over DueDate.
	ClearDueDate bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Completed == nil &&
		p.Priority == nil && p.Category == nil && p.Tags == nil &&
		p.IsPinned == nil && p.DueDate == nil && p.Notes == nil && !p.ClearDueDate
}
