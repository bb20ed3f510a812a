package mcpserver

import (
	"fmt"

	"github.com/JamesPrial/todo-engine/internal/todo"
)

// filterPatchFromArgs reads the optional filter parameters. Absent
// parameters stay nil; present ones must have the right type and value.
func filterPatchFromArgs(args map[string]any) (todo.FilterPatch, error) {
	var p todo.FilterPatch

	strs := map[string]*string{}
	for _, key := range []string{"status", "priority", "category", "sortBy", "sortOrder"} {
		s, err := optString(args, key)
		if err != nil {
			return todo.FilterPatch{}, err
		}
		strs[key] = s
	}

	if s := strs["status"]; s != nil {
		v := todo.Status(*s)
		p.Status = &v
	}
	if s := strs["priority"]; s != nil {
		v := todo.Priority(*s)
		p.Priority = &v
	}
	p.Category = strs["category"]
	if s := strs["sortBy"]; s != nil {
		v := todo.SortField(*s)
		p.SortBy = &v
	}
	if s := strs["sortOrder"]; s != nil {
		v := todo.SortOrder(*s)
		p.SortOrder = &v
	}

	tags, err := optStrings(args, "tags")
	if err != nil {
		return todo.FilterPatch{}, err
	}
	p.Tags = tags

	if err := p.Validate(); err != nil {
		return todo.FilterPatch{}, err
	}
	return p, nil
}

func optString(args map[string]any, key string) (*string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("parameter %s must be a string", key)
	}
	return &s, nil
}

func optStrings(args map[string]any, key string) (*[]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	var out []string
	switch v := raw.(type) {
	case []string:
		out = v
	case []any:
		out = make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid %s at index %d: expected string", key, i)
			}
			out[i] = s
		}
	default:
		return nil, fmt.Errorf("parameter %s must be an array of strings", key)
	}
	return &out, nil
}
