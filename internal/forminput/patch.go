package forminput

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/JamesPrial/todo-engine/internal/todo"
)

// patchInput mirrors the edit form. Absent fields stay nil. DueDate is kept
// raw so an explicit null can be told apart from an absent field.
type patchInput struct {
	Title     *string         `json:"title"`
	Content   *string         `json:"content"`
	Completed *bool           `json:"completed"`
	Priority  *string         `json:"priority"`
	Category  *string         `json:"category"`
	Tags      *[]string       `json:"tags"`
	IsPinned  *bool           `json:"isPinned"`
	DueDate   json.RawMessage `json:"dueDate"`
	Notes     *string         `json:"notes"`
}

var jsonNull = []byte("null")

// ParsePatch reads a partial update from r.
//
// A dueDate of null or "" clears the due date. A present title must not be
// blank and a present priority must be one of low, medium, high.
func ParsePatch(r io.Reader) (todo.Patch, error) {
	var in patchInput

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&in); err != nil {
		return todo.Patch{}, fmt.Errorf("failed to decode patch: %w", err)
	}

	p := todo.Patch{
		Completed: in.Completed,
		Category:  in.Category,
		Tags:      in.Tags,
		IsPinned:  in.IsPinned,
		Notes:     in.Notes,
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return todo.Patch{}, fmt.Errorf("%w: title must not be empty", ErrInvalidForm)
		}
		p.Title = in.Title
	}

	if in.Content != nil {
		content := SanitizeContent(*in.Content)
		p.Content = &content
	}

	if in.Priority != nil {
		if strings.TrimSpace(*in.Priority) == "" {
			return todo.Patch{}, fmt.Errorf("%w: priority must not be empty", ErrInvalidForm)
		}
		priority, err := todo.ParsePriority(*in.Priority)
		if err != nil {
			return todo.Patch{}, fmt.Errorf("%w: %w", ErrInvalidForm, err)
		}
		p.Priority = &priority
	}

	if len(in.DueDate) > 0 {
		if bytes.Equal(bytes.TrimSpace(in.DueDate), jsonNull) {
			p.ClearDueDate = true
		} else {
			var s string
			if err := json.Unmarshal(in.DueDate, &s); err != nil {
				return todo.Patch{}, fmt.Errorf("%w: dueDate must be a string or null", ErrInvalidForm)
			}
			due, err := ParseDueDate(s)
			if err != nil {
				return todo.Patch{}, err
			}
			if due == nil {
				p.ClearDueDate = true
			} else {
				p.DueDate = due
			}
		}
	}

	return p, nil
}
