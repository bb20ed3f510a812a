// Package forminput decodes the add and edit forms submitted by a front end
// and turns them into repository inputs.
//
// This package is the only place user-supplied rich text enters the engine;
// content is sanitized here so stored records never carry active markup.
package forminput

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/JamesPrial/todo-engine/internal/todo"
)

// ErrInvalidForm is wrapped by every validation failure.
var ErrInvalidForm = errors.New("invalid form")

// DateOnly is the layout accepted for due dates besides RFC 3339.
const DateOnly = "2006-01-02"

// contentPolicy keeps the formatting an editor produces and drops scripts,
// event handlers and other active content.
var contentPolicy = bluemonday.UGCPolicy()

// Form is the add-todo form payload.
type Form struct {
	// Title is required.
	Title string `json:"title"`

	// Content is rich-text HTML from the editor.
	Content string `json:"content"`

	// Priority is one of low, medium, high. Empty means medium.
	Priority string `json:"priority"`

	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`

	// DueDate is RFC 3339 or YYYY-MM-DD.
	DueDate  string `json:"dueDate,omitempty"`
	IsPinned bool   `json:"isPinned,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// ParseForm reads one Form from r and sanitizes its content.
// It does not validate; call Validate before using the form.
func ParseForm(r io.Reader) (Form, error) {
	var f Form

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&f); err != nil {
		return Form{}, fmt.Errorf("failed to decode form: %w", err)
	}

	f.Content = SanitizeContent(f.Content)
	return f, nil
}

// Validate reports the first problem with the form, wrapped in ErrInvalidForm.
func (f Form) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidForm)
	}
	if _, err := todo.ParsePriority(f.Priority); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}
	if _, err := ParseDueDate(f.DueDate); err != nil {
		return err
	}
	return nil
}

// Options converts the optional fields to todo.Options.
func (f Form) Options() (todo.Options, error) {
	if err := f.Validate(); err != nil {
		return todo.Options{}, err
	}

	// Validate has already accepted both values.
	priority, _ := todo.ParsePriority(f.Priority)
	due, _ := ParseDueDate(f.DueDate)

	return todo.Options{
		Priority: priority,
		Category: strings.TrimSpace(f.Category),
		Tags:     todo.NormalizeTags(f.Tags),
		DueDate:  due,
		IsPinned: f.IsPinned,
		Notes:    strings.TrimSpace(f.Notes),
	}, nil
}

// SanitizeContent strips active markup from editor HTML.
func SanitizeContent(html string) string {
	if html == "" {
		return ""
	}
	return contentPolicy.Sanitize(html)
}

// ParseDueDate parses an RFC 3339 timestamp or a YYYY-MM-DD date (midnight
// UTC). An empty or blank string yields nil.
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: due date %q is neither RFC 3339 nor YYYY-MM-DD", ErrInvalidForm, s)
}
