package storage

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JamesPrial/todo-engine/internal/config"
	"github.com/JamesPrial/todo-engine/internal/credential"
	"github.com/JamesPrial/todo-engine/internal/pathutil"
)

// Open returns the backend described by cfg, wrapped with a QuotaBackend when
// cfg.QuotaBytes is positive.
//
// File paths are resolved inside cfg.Dir and may not escape it. secrets is
// only consulted for the postgres backend when PostgresPasswordKey is set; it
// may be nil otherwise.
func Open(cfg config.Storage, secrets credential.Source) (Backend, error) {
	backendType := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backendType == "" {
		backendType = config.BackendJSON
	}

	var (
		backend Backend
		err     error
	)

	switch backendType {
	case config.BackendJSON:
		var path string
		path, err = resolvePath(cfg.Dir, cfg.JSONPath, "todos.json")
		if err != nil {
			return nil, fmt.Errorf("invalid storage.json_path: %w", err)
		}
		backend = NewJSONBackend(path)

	case config.BackendSQLite:
		var path string
		path, err = resolvePath(cfg.Dir, cfg.SQLitePath, "todos.db")
		if err != nil {
			return nil, fmt.Errorf("invalid storage.sqlite_path: %w", err)
		}
		backend, err = NewSQLiteBackend(path)
		if err != nil {
			return nil, err
		}

	case config.BackendPostgres:
		var connString string
		connString, err = postgresConnString(cfg, secrets)
		if err != nil {
			return nil, err
		}
		backend, err = NewPostgresBackend(connString)
		if err != nil {
			return nil, err
		}

	case config.BackendMemory:
		backend = NewMemoryBackend()

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, backendType)
	}

	return WithQuota(backend, cfg.QuotaBytes), nil
}

// resolvePath expands "~" in dir and resolves name (or fallback) inside it.
func resolvePath(dir, name, fallback string) (string, error) {
	base, err := pathutil.ExpandHome(strings.TrimSpace(dir))
	if err != nil {
		return "", err
	}
	if base == "" {
		base = "."
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	name, err = pathutil.ExpandHome(name)
	if err != nil {
		return "", err
	}
	return pathutil.ResolveSafePath(base, name)
}

// postgresConnString returns cfg.PostgresURL with the password replaced by
// the keyring entry named PostgresPasswordKey, when one is configured.
func postgresConnString(cfg config.Storage, secrets credential.Source) (string, error) {
	connString := strings.TrimSpace(cfg.PostgresURL)
	if connString == "" {
		return "", fmt.Errorf("storage.postgres_url is required for the postgres backend")
	}
	if cfg.PostgresPasswordKey == "" {
		return connString, nil
	}
	if secrets == nil {
		return "", fmt.Errorf("storage.postgres_password_key is set but no credential source is available")
	}

	password, err := secrets.Get(cfg.PostgresPasswordKey)
	if err != nil {
		return "", fmt.Errorf("failed to look up postgres password: %w", err)
	}

	u, err := url.Parse(connString)
	if err != nil {
		return "", fmt.Errorf("storage.postgres_url must be a URL when postgres_password_key is set: %w", err)
	}
	username := ""
	if u.User != nil {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, password)
	return u.String(), nil
}
