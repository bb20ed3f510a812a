// Package stats aggregates counts over a whole todo collection.
package stats

import "github.com/JamesPrial/todo-engine/internal/todo"

// Compute counts todos by completion, priority, category and tag.
//
// ByPriority always holds the three priority keys. Completed + Active equals
// Total, and the ByPriority values sum to Total.
func Compute(todos []todo.Todo) todo.Stats {
	s := todo.Stats{
		Total:      len(todos),
		ByPriority: make(map[todo.Priority]int, len(todo.Priorities)),
		ByCategory: make(map[string]int),
		ByTag:      make(map[string]int),
	}
	for _, p := range todo.Priorities {
		s.ByPriority[p] = 0
	}

	for _, t := range todos {
		if t.Completed {
			s.Completed++
		} else {
			s.Active++
		}

		p := t.Priority
		if !p.Valid() {
			p = todo.PriorityMedium
		}
		s.ByPriority[p]++

		s.ByCategory[t.Category]++
		for _, tag := range t.Tags {
			s.ByTag[tag]++
		}
	}
	return s
}
