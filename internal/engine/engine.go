// Package engine keeps a filtered view and aggregate stats of a repository's
// collection up to date as the collection, the filter and the search term
// change.
//
// A single goroutine owns the derived state. Collection changes are applied
// as soon as they are observed. Filter and search changes share one debounce
// window: a burst of either is applied as one recomputation over the latest
// filter and search term together.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/JamesPrial/todo-engine/internal/filter"
	"github.com/JamesPrial/todo-engine/internal/notify"
	"github.com/JamesPrial/todo-engine/internal/repository"
	"github.com/JamesPrial/todo-engine/internal/stats"
	"github.com/JamesPrial/todo-engine/internal/stream"
	"github.com/JamesPrial/todo-engine/internal/todo"
)

// DefaultDebounce is the filter and search settling time used when
// Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Options configures an Engine.
type Options struct {
	// Debounce is how long a filter or search value must stay unchanged
	// before it is applied. Zero selects DefaultDebounce.
	Debounce time.Duration

	Logger *slog.Logger
}

// Engine derives the visible view and stats from a repository.
type Engine struct {
	repo     *repository.Repository
	debounce time.Duration
	logger   *slog.Logger

	filtered *stream.Behavior[[]todo.Todo]
	stats    *stream.Behavior[todo.Stats]

	// Signals are 1-buffered and coalesce: a pending signal already covers
	// every later change.
	changed     chan struct{}
	inputSig    chan struct{}
	unsubscribe func()

	pendingMu     sync.Mutex
	pendingFilter todo.Filter
	pendingSearch string

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// Start builds the initial view and stats from repo's current collection,
// publishes them, and starts the event loop. Call Close to stop it.
func Start(repo *repository.Repository, opts Options) *Engine {
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := &Engine{
		repo:          repo,
		debounce:      opts.Debounce,
		logger:        opts.Logger,
		changed:       make(chan struct{}, 1),
		inputSig:      make(chan struct{}, 1),
		pendingFilter: todo.DefaultFilter(),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	// Subscribing replays the current collection; that signal is drained
	// because the initial view below is built from the same or a newer value.
	e.unsubscribe = repo.Todos().Subscribe(func([]todo.Todo) { signal(e.changed) })
	select {
	case <-e.changed:
	default:
	}

	st := state{filter: todo.DefaultFilter(), todos: repo.Todos().Value()}
	e.filtered = stream.NewBehavior(filter.Apply(st.todos, st.filter, st.search))
	e.stats = stream.NewBehavior(stats.Compute(st.todos))

	go e.loop(st)
	return e
}

// state is the loop goroutine's applied input.
type state struct {
	todos  []todo.Todo
	filter todo.Filter
	search string
}

func (e *Engine) loop(st state) {
	defer close(e.stopped)

	settle := newDebouncer(e.debounce)
	defer settle.stop()

	for {
		select {
		case <-e.done:
			return

		case <-e.changed:
			st.todos = e.repo.Todos().Value()
			e.stats.Publish(stats.Compute(st.todos))
			e.publishView(st)

		case <-e.inputSig:
			settle.reset()

		case <-settle.c:
			settle.fired()
			f, search := e.pendingInputs()
			if f.Equal(st.filter) && search == st.search {
				continue
			}
			st.filter, st.search = f, search
			e.logger.Debug("filter applied",
				"status", f.Status, "priority", f.Priority, "sort", f.SortBy, "search", search)
			e.publishView(st)
		}
	}
}

// pendingInputs reads the latest filter and search term as one pair.
func (e *Engine) pendingInputs() (todo.Filter, string) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.pendingFilter.Clone(), e.pendingSearch
}

func (e *Engine) publishView(st state) {
	e.filtered.Publish(filter.Apply(st.todos, st.filter, st.search))
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Close stops the event loop and ends the Filtered and Stats streams. The
// repository is left open.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.unsubscribe()
		close(e.done)
		<-e.stopped
		e.filtered.Close()
		e.stats.Close()
	})
}

// ---------------------------------------------------------------------------
// Outputs
// ---------------------------------------------------------------------------

// Filtered streams the collection after filtering and sorting.
func (e *Engine) Filtered() *stream.Behavior[[]todo.Todo] {
	return e.filtered
}

// Stats streams aggregate counts over the whole collection. The filter and
// search term do not affect it.
func (e *Engine) Stats() *stream.Behavior[todo.Stats] {
	return e.stats
}

// Notices streams the repository's user-facing failures.
func (e *Engine) Notices() *stream.Subject[notify.Notice] {
	return e.repo.Notices()
}

// Repository returns the underlying repository.
func (e *Engine) Repository() *repository.Repository {
	return e.repo
}

// ---------------------------------------------------------------------------
// Filter and search
// ---------------------------------------------------------------------------

// SetFilter merges p into the pending filter. The view follows once the
// filter has been stable for the debounce window.
func (e *Engine) SetFilter(p todo.FilterPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.pendingMu.Lock()
	e.pendingFilter = e.pendingFilter.Merge(p)
	e.pendingMu.Unlock()

	signal(e.inputSig)
	return nil
}

// SetSearchTerm replaces the pending search term.
func (e *Engine) SetSearchTerm(term string) {
	e.pendingMu.Lock()
	e.pendingSearch = term
	e.pendingMu.Unlock()

	signal(e.inputSig)
}

// ClearFilters resets the filter to todo.DefaultFilter and empties the
// search term.
func (e *Engine) ClearFilters() {
	e.pendingMu.Lock()
	e.pendingFilter = todo.DefaultFilter()
	e.pendingSearch = ""
	e.pendingMu.Unlock()

	signal(e.inputSig)
}

// CurrentFilter returns the latest filter set, applied or not.
func (e *Engine) CurrentFilter() todo.Filter {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.pendingFilter.Clone()
}

// SearchTerm returns the latest search term set, applied or not.
func (e *Engine) SearchTerm() string {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.pendingSearch
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func (e *Engine) AddTodo(title, content string, opts todo.Options) (todo.Todo, error) {
	return e.repo.AddTodo(title, content, opts)
}

func (e *Engine) UpdateTodo(id string, p todo.Patch) (todo.Todo, bool) {
	return e.repo.UpdateTodo(id, p)
}

func (e *Engine) DeleteTodo(id string) bool {
	return e.repo.DeleteTodo(id)
}

func (e *Engine) ToggleComplete(id string) (todo.Todo, bool) {
	return e.repo.ToggleComplete(id)
}

func (e *Engine) TogglePin(id string) (todo.Todo, bool) {
	return e.repo.TogglePin(id)
}

func (e *Engine) ClearCompleted() int {
	return e.repo.ClearCompleted()
}

func (e *Engine) ToggleAll(completed bool) int {
	return e.repo.ToggleAll(completed)
}

func (e *Engine) AddTag(name string) bool {
	return e.repo.AddTag(name)
}

func (e *Engine) RemoveTag(name string) bool {
	return e.repo.RemoveTag(name)
}
