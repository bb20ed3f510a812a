package todo

import (
	"fmt"
	"slices"
	"strings"
)

// Status selects todos by completion.
type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// SortField names the field a filtered view is ordered by.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByDueDate   SortField = "dueDate"
	SortByPriority  SortField = "priority"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filter is the set of criteria currently applied to the view.
type Filter struct {
	Status Status `json:"status"`

	// Priority is PriorityAll (or empty) for no priority constraint.
	Priority Priority `json:"priority"`

	// Category is empty for no category constraint.
	Category string `json:"category,omitempty"`

	// Tags must all be present on a todo for it to match.
	Tags []string `json:"tags,omitempty"`

	SortBy    SortField `json:"sortBy"`
	SortOrder SortOrder `json:"sortOrder"`
}

// DefaultFilter returns the view criteria used at start-up and by ClearFilters.
func DefaultFilter() Filter {
	return Filter{
		Status:    StatusAll,
		Priority:  PriorityAll,
		SortBy:    SortByCreatedAt,
		SortOrder: SortDesc,
	}
}

// Clone returns a copy of f that does not share the Tags slice.
func (f Filter) Clone() Filter {
	c := f
	c.Tags = slices.Clone(f.Tags)
	return c
}

// Equal reports whether two filters select and order identically.
func (f Filter) Equal(o Filter) bool {
	return f.Status == o.Status && f.Priority == o.Priority &&
		f.Category == o.Category && slices.Equal(f.Tags, o.Tags) &&
		f.SortBy == o.SortBy && f.SortOrder == o.SortOrder
}

// FilterPatch is a partial filter update. Nil fields are left unchanged.
type FilterPatch struct {
	Status    *Status
	Priority  *Priority
	Category  *string
	Tags      *[]string
	SortBy    *SortField
	SortOrder *SortOrder
}

// Validate rejects values outside the enumerations.
func (p FilterPatch) Validate() error {
	if p.Status != nil {
		switch *p.Status {
		case StatusAll, StatusActive, StatusCompleted:
		default:
			return fmt.Errorf("invalid status %q", *p.Status)
		}
	}
	if p.Priority != nil && *p.Priority != PriorityAll && !p.Priority.Valid() {
		return fmt.Errorf("invalid priority filter %q", *p.Priority)
	}
	if p.SortBy != nil {
		switch *p.SortBy {
		case SortByCreatedAt, SortByUpdatedAt, SortByDueDate, SortByPriority:
		default:
			return fmt.Errorf("invalid sort field %q", *p.SortBy)
		}
	}
	if p.SortOrder != nil && *p.SortOrder != SortAsc && *p.SortOrder != SortDesc {
		return fmt.Errorf("invalid sort order %q", *p.SortOrder)
	}
	return nil
}

// Merge applies the non-nil fields of p on top of f.
func (f Filter) Merge(p FilterPatch) Filter {
	out := f.Clone()
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Category != nil {
		out.Category = strings.TrimSpace(*p.Category)
	}
	if p.Tags != nil {
		out.Tags = NormalizeTags(*p.Tags)
	}
	if p.SortBy != nil {
		out.SortBy = *p.SortBy
	}
	if p.SortOrder != nil {
		out.SortOrder = *p.SortOrder
	}
	return out
}

// Stats are aggregate counts over a whole collection.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Active    int `json:"active"`

	// ByPriority always holds all three priority keys.
	ByPriority map[Priority]int `json:"byPriority"`

	// ByCategory and ByTag only hold keys that occur in the collection.
	ByCategory map[string]int `json:"byCategory"`
	ByTag      map[string]int `json:"byTag"`
}
