package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/JamesPrial/todo-engine/internal/todo"
)

// storedTodo is the persisted shape of a todo as it may appear in older data.
// Every field that a previous version could have omitted is a pointer.
type storedTodo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Completed bool      `json:"completed"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt *string   `json:"updatedAt"`
	Priority  *string   `json:"priority"`
	Category  *string   `json:"category"`
	Tags      *[]string `json:"tags"`
	IsPinned  *bool     `json:"isPinned"`
	DueDate   *string   `json:"dueDate"`
	Notes     string    `json:"notes"`
}

var errMissingID = errors.New("record has no id")

// fallbackCreatedAt dates records whose createdAt and updatedAt are both
// unusable.
var fallbackCreatedAt = time.Unix(0, 0).UTC()

// parseTime accepts RFC 3339 with or without fractional seconds.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// upgradeRecord converts a stored record into a todo.Todo, filling in the
// fields older data lacks. It fails only for records without an id.
//
// An unparseable createdAt falls back to updatedAt, or to the Unix epoch when
// that is unusable too; redated reports that this happened.
func upgradeRecord(r storedTodo) (t todo.Todo, redated bool, err error) {
	if strings.TrimSpace(r.ID) == "" {
		return todo.Todo{}, false, errMissingID
	}

	var updatedOK bool
	var storedUpdated time.Time
	if r.UpdatedAt != nil {
		storedUpdated, err = parseTime(*r.UpdatedAt)
		updatedOK = err == nil
	}

	created, err := parseTime(r.CreatedAt)
	if err != nil {
		redated = true
		created = fallbackCreatedAt
		if updatedOK {
			created = storedUpdated
		}
	}

	updated := created
	if updatedOK && !storedUpdated.Before(created) {
		updated = storedUpdated
	}

	priority := todo.PriorityMedium
	if r.Priority != nil {
		if p := todo.Priority(strings.ToLower(strings.TrimSpace(*r.Priority))); p.Valid() {
			priority = p
		}
	}

	category := todo.DefaultCategory
	if r.Category != nil && strings.TrimSpace(*r.Category) != "" {
		category = strings.TrimSpace(*r.Category)
	}

	tags := []string{}
	if r.Tags != nil {
		tags = todo.NormalizeTags(*r.Tags)
	}

	var due *time.Time
	if r.DueDate != nil && *r.DueDate != "" {
		if d, err := parseTime(*r.DueDate); err == nil {
			due = &d
		}
	}

	return todo.Todo{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Completed: r.Completed,
		CreatedAt: created,
		UpdatedAt: updated,
		Priority:  priority,
		Category:  category,
		Tags:      tags,
		IsPinned:  r.IsPinned != nil && *r.IsPinned,
		DueDate:   due,
		Notes:     r.Notes,
	}, redated, nil
}
