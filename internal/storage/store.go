package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/JamesPrial/todo-engine/internal/todo"
)

// DefaultKeyPrefix is prepended to every key the Store writes.
const DefaultKeyPrefix = "enterprise-"

// Store persists the todo collection and the tag registry as two JSON values
// in a Backend.
type Store struct {
	backend Backend
	prefix  string
	logger  *slog.Logger
}

// NewStore creates a Store over backend. An empty prefix uses
// DefaultKeyPrefix and a nil logger uses slog.Default().
func NewStore(backend Backend, prefix string, logger *slog.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, prefix: prefix, logger: logger}
}

// TodosKey is the key holding the JSON array of todos.
func (s *Store) TodosKey() string { return s.prefix + "todos" }

// TagsKey is the key holding the JSON array of tag names.
func (s *Store) TagsKey() string { return s.prefix + "tags" }

// LoadTodos reads and upgrades the persisted collection.
//
// The returned slice is always usable: an absent key yields an empty
// collection, and a read or parse failure is logged and also yields an empty
// collection, with the failure returned so the caller can tell the user.
// Records without an id are dropped with a warning. Records with an
// unusable createdAt are kept and re-dated with a warning.
func (s *Store) LoadTodos() ([]todo.Todo, error) {
	key := s.TodosKey()
	raw, ok, err := s.backend.Get(key)
	if err != nil {
		s.logger.Warn("failed to read todos", "key", key, "error", err)
		return []todo.Todo{}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return []todo.Todo{}, nil
	}

	var records []storedTodo
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.logger.Warn("failed to parse todos", "key", key, "error", err)
		return []todo.Todo{}, fmt.Errorf("failed to parse %s: %w", key, err)
	}

	todos := make([]todo.Todo, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		t, redated, err := upgradeRecord(r)
		if err != nil {
			s.logger.Warn("dropping stored todo", "index", i, "id", r.ID, "error", err)
			continue
		}
		if redated {
			s.logger.Warn("stored todo has an invalid createdAt", "index", i, "id", t.ID,
				"createdAt", r.CreatedAt, "using", t.CreatedAt)
		}
		if seen[t.ID] {
			s.logger.Warn("dropping duplicate stored todo", "index", i, "id", t.ID)
			continue
		}
		seen[t.ID] = true
		todos = append(todos, t)
	}

	s.logger.Debug("loaded todos", "key", key, "count", len(todos))
	return todos, nil
}

// LoadTags reads the persisted tag registry with the same failure handling
// as LoadTodos.
func (s *Store) LoadTags() ([]string, error) {
	key := s.TagsKey()
	raw, ok, err := s.backend.Get(key)
	if err != nil {
		s.logger.Warn("failed to read tags", "key", key, "error", err)
		return []string{}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return []string{}, nil
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		s.logger.Warn("failed to parse tags", "key", key, "error", err)
		return []string{}, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return todo.NormalizeTags(tags), nil
}

// SaveTodos replaces the persisted collection with todos.
//
// Capacity failures are returned wrapping ErrQuotaExceeded.
func (s *Store) SaveTodos(todos []todo.Todo) error {
	if todos == nil {
		todos = []todo.Todo{}
	}
	data, err := json.Marshal(todos)
	if err != nil {
		return fmt.Errorf("failed to encode todos: %w", err)
	}
	if err := s.backend.Set(s.TodosKey(), string(data)); err != nil {
		return err
	}
	s.logger.Debug("saved todos", "key", s.TodosKey(), "count", len(todos), "bytes", len(data))
	return nil
}

// SaveTags replaces the persisted tag registry.
func (s *Store) SaveTags(tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	return s.backend.Set(s.TagsKey(), string(data))
}
