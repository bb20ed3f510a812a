// Package repository owns the authoritative todo collection, the tag and
// category registries, and their persistence.
//
// Every mutation runs to completion under one mutex, persists the whole
// collection, and then publishes a deep-copied snapshot on Todos(). Failures
// that concern the user are published on Notices() instead of being returned.
package repository

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JamesPrial/todo-engine/internal/idgen"
	"github.com/JamesPrial/todo-engine/internal/notify"
	"github.com/JamesPrial/todo-engine/internal/storage"
	"github.com/JamesPrial/todo-engine/internal/stream"
	"github.com/JamesPrial/todo-engine/internal/todo"
)

// ErrInvalidTodo is returned by AddTodo for an empty title or unknown priority.
var ErrInvalidTodo = errors.New("invalid todo")

// Defaults for Options.
const (
	DefaultPruneThreshold = 50
	DefaultPruneKeep      = 50
)

// Options configures a Repository. Zero values select the defaults.
type Options struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// NewID returns a fresh identifier. Defaults to idgen.New.
	NewID func() string

	// PruneThreshold is the collection size above which a quota failure
	// prunes old records instead of giving up.
	PruneThreshold int

	// PruneKeep is how many of the most recently updated records survive a prune.
	PruneKeep int

	// Categories seeds the category registry.
	Categories []string

	Logger *slog.Logger
}

// Repository is the single writer of the todo collection.
type Repository struct {
	store  *storage.Store
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	todos      []todo.Todo
	tags       []string
	categories []string

	// publishMu is taken before mu is released so snapshots are published in
	// mutation order.
	publishMu sync.Mutex

	todoStream *stream.Behavior[[]todo.Todo]
	notices    *stream.Subject[notify.Notice]

	loadNotices []notify.Notice
}

// New creates a Repository and loads the persisted collection and tag
// registry from store. Load failures never fail construction: the repository
// starts empty and the failure is available from LoadNotices.
func New(store *storage.Store, opts Options) *Repository {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = idgen.New
	}
	if opts.PruneThreshold <= 0 {
		opts.PruneThreshold = DefaultPruneThreshold
	}
	if opts.PruneKeep <= 0 {
		opts.PruneKeep = DefaultPruneKeep
	}
	if opts.Categories == nil {
		opts.Categories = todo.DefaultCategories
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := &Repository{
		store:      store,
		opts:       opts,
		logger:     opts.Logger,
		categories: todo.NormalizeTags(opts.Categories),
		notices:    stream.NewSubject[notify.Notice](),
	}

	todos, err := store.LoadTodos()
	if err != nil {
		r.loadNotices = append(r.loadNotices, notify.Notice{
			Kind:     notify.KindLoadFailed,
			Severity: notify.SeverityWarning,
			Message:  fmt.Sprintf("Saved todos could not be read and were ignored: %v", err),
		})
	}
	tags, err := store.LoadTags()
	if err != nil {
		r.loadNotices = append(r.loadNotices, notify.Notice{
			Kind:     notify.KindLoadFailed,
			Severity: notify.SeverityWarning,
			Message:  fmt.Sprintf("Saved tags could not be read and were ignored: %v", err),
		})
	}
	for _, n := range r.loadNotices {
		notify.Log(r.logger, n)
	}

	r.todos = todos
	r.tags = tags
	r.syncRegistriesLocked()
	r.todoStream = stream.NewBehavior(todo.CloneAll(r.todos))

	r.logger.Debug("repository loaded", "count", len(r.todos), "tags", len(r.tags))
	return r
}

// ---------------------------------------------------------------------------
// Streams and queries
// ---------------------------------------------------------------------------

// Todos streams the whole collection after every mutation. Subscribers must
// not call back into the repository's mutating methods.
func (r *Repository) Todos() *stream.Behavior[[]todo.Todo] {
	return r.todoStream
}

// Notices streams user-facing failures.
func (r *Repository) Notices() *stream.Subject[notify.Notice] {
	return r.notices
}

// LoadNotices returns the notices raised while loading, for hosts that
// subscribe after construction.
func (r *Repository) LoadNotices() []notify.Notice {
	return slices.Clone(r.loadNotices)
}

// Snapshot returns a deep copy of the collection in insertion order.
func (r *Repository) Snapshot() []todo.Todo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return todo.CloneAll(r.todos)
}

// GetByID returns a copy of the todo with id.
func (r *Repository) GetByID(id string) (todo.Todo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexLocked(id); i >= 0 {
		return r.todos[i].Clone(), true
	}
	return todo.Todo{}, false
}

// Tags returns the tag registry.
func (r *Repository) Tags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.tags)
}

// Categories returns the category registry.
func (r *Repository) Categories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.categories)
}

// Close ends both streams.
func (r *Repository) Close() {
	r.todoStream.Close()
	r.notices.Close()
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// AddTodo creates a todo from title, content and opts, appends it and
// persists the collection.
//
// The title is trimmed and must not be empty. An empty priority means
// medium; any other unknown priority is rejected. Both failures return an
// error wrapping ErrInvalidTodo and leave the collection unchanged.
func (r *Repository) AddTodo(title, content string, opts todo.Options) (todo.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return todo.Todo{}, fmt.Errorf("%w: title is required", ErrInvalidTodo)
	}
	priority := opts.Priority
	if priority == "" {
		priority = todo.PriorityMedium
	}
	if !priority.Valid() {
		return todo.Todo{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidTodo, opts.Priority)
	}

	r.mu.Lock()
	now := r.opts.Now().UTC()
	t := todo.Todo{
		ID:        r.opts.NewID(),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		Priority:  priority,
		Category:  categoryOrDefault(opts.Category),
		Tags:      todo.NormalizeTags(opts.Tags),
		IsPinned:  opts.IsPinned,
		Notes:     opts.Notes,
	}
	if opts.DueDate != nil {
		d := opts.DueDate.UTC()
		t.DueDate = &d
	}
	r.todos = append(r.todos, t)
	out := t.Clone()
	r.commitAndUnlock()

	r.logger.Debug("todo added", "id", out.ID)
	return out, nil
}

// AddSimpleTodo is the positional form of AddTodo: both texts are trimmed
// and an invalid input is reported as an invalid_input notice.
func (r *Repository) AddSimpleTodo(title, content string, priority todo.Priority, category string) (todo.Todo, bool) {
	t, err := r.AddTodo(title, strings.TrimSpace(content), todo.Options{Priority: priority, Category: category})
	if err != nil {
		r.emit(notify.Notice{
			Kind:     notify.KindInvalidInput,
			Severity: notify.SeverityWarning,
			Message:  err.Error(),
		})
		return todo.Todo{}, false
	}
	return t, true
}

// UpdateTodo merges patch into the todo with id and refreshes UpdatedAt.
// A missing id or an invalid patch publishes a notice and returns false.
func (r *Repository) UpdateTodo(id string, patch todo.Patch) (todo.Todo, bool) {
	if err := validatePatch(patch); err != nil {
		r.emit(notify.Notice{
			Kind:     notify.KindInvalidInput,
			Severity: notify.SeverityWarning,
			Message:  err.Error(),
			ID:       id,
		})
		return todo.Todo{}, false
	}

	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		r.emit(notFound(id))
		return todo.Todo{}, false
	}

	t := &r.todos[i]
	applyPatch(t, patch)
	t.UpdatedAt = r.stampLocked(t.UpdatedAt)
	out := t.Clone()
	r.commitAndUnlock()
	return out, true
}

// DeleteTodo removes the todo with id.
func (r *Repository) DeleteTodo(id string) bool {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		r.emit(notFound(id))
		return false
	}
	r.todos = slices.Delete(r.todos, i, i+1)
	r.commitAndUnlock()
	return true
}

// ToggleComplete flips the completed flag of the todo with id.
func (r *Repository) ToggleComplete(id string) (todo.Todo, bool) {
	return r.mutateOne(id, func(t *todo.Todo) { t.Completed = !t.Completed })
}

// TogglePin flips the pinned flag of the todo with id.
func (r *Repository) TogglePin(id string) (todo.Todo, bool) {
	return r.mutateOne(id, func(t *todo.Todo) { t.IsPinned = !t.IsPinned })
}

// ClearCompleted removes every completed todo in one batch and returns how
// many were removed. Nothing is persisted when none were completed.
func (r *Repository) ClearCompleted() int {
	r.mu.Lock()
	before := len(r.todos)
	r.todos = slices.DeleteFunc(r.todos, func(t todo.Todo) bool { return t.Completed })
	removed := before - len(r.todos)
	if removed == 0 {
		r.mu.Unlock()
		return 0
	}
	r.commitAndUnlock()
	return removed
}

// ToggleAll sets every todo's completed flag to completed and returns how
// many changed.
func (r *Repository) ToggleAll(completed bool) int {
	r.mu.Lock()
	changed := 0
	for i := range r.todos {
		t := &r.todos[i]
		if t.Completed == completed {
			continue
		}
		t.Completed = completed
		t.UpdatedAt = r.stampLocked(t.UpdatedAt)
		changed++
	}
	if changed == 0 {
		r.mu.Unlock()
		return 0
	}
	r.commitAndUnlock()
	return changed
}

// AddTag registers name in the tag registry. It returns false when name is
// blank or already registered.
func (r *Repository) AddTag(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		r.emit(notify.Notice{
			Kind:     notify.KindInvalidInput,
			Severity: notify.SeverityWarning,
			Message:  "tag name is required",
		})
		return false
	}

	r.mu.Lock()
	if slices.Contains(r.tags, name) {
		r.mu.Unlock()
		return false
	}
	r.tags = append(r.tags, name)
	r.commitAndUnlock()
	return true
}

// RemoveTag deletes name from the registry and strips it from every todo
// that carries it.
func (r *Repository) RemoveTag(name string) bool {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	inRegistry := slices.Contains(r.tags, name)
	stripped := 0
	for i := range r.todos {
		t := &r.todos[i]
		if !t.HasTag(name) {
			continue
		}
		t.Tags = slices.DeleteFunc(t.Tags, func(tag string) bool { return tag == name })
		t.UpdatedAt = r.stampLocked(t.UpdatedAt)
		stripped++
	}
	if !inRegistry && stripped == 0 {
		r.mu.Unlock()
		r.emit(notify.Notice{
			Kind:     notify.KindNotFound,
			Severity: notify.SeverityInfo,
			Message:  fmt.Sprintf("Tag %q does not exist", name),
		})
		return false
	}
	r.tags = slices.DeleteFunc(r.tags, func(tag string) bool { return tag == name })
	r.commitAndUnlock()

	r.logger.Debug("tag removed", "tag", name, "count", stripped)
	return true
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

func (r *Repository) mutateOne(id string, fn func(t *todo.Todo)) (todo.Todo, bool) {
	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		r.emit(notFound(id))
		return todo.Todo{}, false
	}
	t := &r.todos[i]
	fn(t)
	t.UpdatedAt = r.stampLocked(t.UpdatedAt)
	out := t.Clone()
	r.commitAndUnlock()
	return out, true
}

func (r *Repository) indexLocked(id string) int {
	return slices.IndexFunc(r.todos, func(t todo.Todo) bool { return t.ID == id })
}

// stampLocked returns the current time, moved past prev when the clock has
// not advanced, so UpdatedAt strictly increases on every mutation.
func (r *Repository) stampLocked(prev time.Time) time.Time {
	now := r.opts.Now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

// syncRegistriesLocked adds every tag and category in use to the registries.
func (r *Repository) syncRegistriesLocked() {
	for _, t := range r.todos {
		for _, tag := range t.Tags {
			if !slices.Contains(r.tags, tag) {
				r.tags = append(r.tags, tag)
			}
		}
		if t.Category != "" && !slices.Contains(r.categories, t.Category) {
			r.categories = append(r.categories, t.Category)
		}
	}
}

// commitAndUnlock syncs the registries, persists, releases mu and publishes
// the post-mutation snapshot followed by any notices. mu must be held.
func (r *Repository) commitAndUnlock() {
	r.syncRegistriesLocked()
	notices := r.persistLocked()

	r.publishMu.Lock()
	snapshot := todo.CloneAll(r.todos)
	r.mu.Unlock()
	r.todoStream.Publish(snapshot)
	r.publishMu.Unlock()

	for _, n := range notices {
		r.emit(n)
	}
}

func (r *Repository) saveLocked() error {
	if err := r.store.SaveTodos(r.todos); err != nil {
		return err
	}
	return r.store.SaveTags(r.tags)
}

// persistLocked saves the collection. On a quota failure with more than
// PruneThreshold records, it keeps the PruneKeep most recently updated ones
// and retries once.
func (r *Repository) persistLocked() []notify.Notice {
	err := r.saveLocked()
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		return []notify.Notice{writeFailed(err)}
	}
	if len(r.todos) <= r.opts.PruneThreshold {
		return []notify.Notice{storageFull(err)}
	}

	removed := r.pruneLocked()
	notices := []notify.Notice{{
		Kind:     notify.KindPruned,
		Severity: notify.SeverityWarning,
		Message:  fmt.Sprintf("Storage is full: removed the %d least recently updated todos", removed),
	}}

	if err := r.saveLocked(); err != nil {
		if errors.Is(err, storage.ErrQuotaExceeded) {
			return append(notices, storageFull(err))
		}
		return append(notices, writeFailed(err))
	}
	return notices
}

// pruneLocked keeps the PruneKeep most recently updated todos in their
// original order and returns how many were dropped.
func (r *Repository) pruneLocked() int {
	keep := r.opts.PruneKeep
	if len(r.todos) <= keep {
		return 0
	}

	order := make([]int, len(r.todos))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return r.todos[b].UpdatedAt.Compare(r.todos[a].UpdatedAt)
	})

	kept := order[:keep]
	slices.SortFunc(kept, cmp.Compare[int])

	out := make([]todo.Todo, 0, keep)
	for _, i := range kept {
		out = append(out, r.todos[i])
	}
	removed := len(r.todos) - len(out)
	r.todos = out
	return removed
}

func (r *Repository) emit(n notify.Notice) {
	notify.Log(r.logger, n)
	r.notices.Publish(n)
}

func notFound(id string) notify.Notice {
	return notify.Notice{
		Kind:     notify.KindNotFound,
		Severity: notify.SeverityInfo,
		Message:  fmt.Sprintf("Todo %s was not found", id),
		ID:       id,
	}
}

func writeFailed(err error) notify.Notice {
	return notify.Notice{
		Kind:     notify.KindWriteFailed,
		Severity: notify.SeverityWarning,
		Message:  fmt.Sprintf("Changes could not be saved: %v", err),
	}
}

func storageFull(err error) notify.Notice {
	return notify.Notice{
		Kind:     notify.KindStorageFull,
		Severity: notify.SeverityBlocking,
		Message:  fmt.Sprintf("Storage is full; delete some todos to keep saving: %v", err),
	}
}

func categoryOrDefault(c string) string {
	if c = strings.TrimSpace(c); c != "" {
		return c
	}
	return todo.DefaultCategory
}
