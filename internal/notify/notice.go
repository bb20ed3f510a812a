// Package notify defines the user-facing notices the repository emits instead
// of returning errors across the component boundary.
package notify

import (
	"context"
	"log/slog"
)

// Kind classifies a notice.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidInput Kind = "invalid_input"
	KindLoadFailed   Kind = "load_failed"
	KindPruned       Kind = "pruned"
	KindStorageFull  Kind = "storage_full"
	KindWriteFailed  Kind = "write_failed"
)

// Severity tells the presentation layer how prominently to show a notice.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBlocking Severity = "blocking"
)

// Notice is one entry on the outward notification stream.
type Notice struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`

	// ID is the todo the notice refers to, when there is one.
	ID string `json:"id,omitempty"`
}

// Blocking reports whether the notice needs the user's acknowledgement.
func (n Notice) Blocking() bool {
	return n.Severity == SeverityBlocking
}

// Log writes n to logger at a level matching its severity.
func Log(logger *slog.Logger, n Notice) {
	level := slog.LevelInfo
	switch n.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityBlocking:
		level = slog.LevelError
	}

	attrs := []any{"kind", string(n.Kind)}
	if n.ID != "" {
		attrs = append(attrs, "id", n.ID)
	}
	logger.Log(context.Background(), level, n.Message, attrs...)
}
