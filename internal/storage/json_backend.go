package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// JSONBackend implements Backend using a single JSON file.
//
// The file holds one JSON object mapping keys to string values, the same
// shape a browser's local storage has. Every Set rewrites the whole file with
// an atomic temp-file rename to prevent corruption during writes.
type JSONBackend struct {
	// Path is the absolute path to the JSON file.
	Path string

	mu sync.Mutex
}

// NewJSONBackend creates a new JSONBackend for the given file path.
//
// Parent directories are created automatically on the first Set.
func NewJSONBackend(path string) *JSONBackend {
	return &JSONBackend{Path: path}
}

// readAll loads the key-value map from disk.
//
// Returns an empty map if the file doesn't exist. Returns an error if the
// file can't be read or isn't a JSON object of strings.
func (b *JSONBackend) readAll() (map[string]string, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.Path, err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", b.Path, err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

// Get returns the value stored under key.
//
// A missing file is treated as an empty store. A corrupted file is reported
// as an error so the caller can log it.
func (b *JSONBackend) Get(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.readAll()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set stores value under key and atomically rewrites the file.
//
// A corrupted existing file is replaced rather than failing the write, so the
// store can start fresh. Returns an error wrapping ErrQuotaExceeded when the
// disk is full.
func (b *JSONBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.readAll()
	if err != nil {
		values = make(map[string]string)
	}
	values[key] = value
	return b.writeAll(values)
}

// Delete removes key and rewrites the file. Deleting from a missing file is a no-op.
func (b *JSONBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := os.Stat(b.Path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	values, err := b.readAll()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return b.writeAll(values)
}

// Sizes reports the byte length of every stored value.
func (b *JSONBackend) Sizes() (map[string]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.readAll()
	if err != nil {
		return nil, err
	}
	sizes := make(map[string]int, len(values))
	for k, v := range values {
		sizes[k] = len(v)
	}
	return sizes, nil
}

// writeAll marshals values with 2-space indentation and a trailing newline,
// writes them to a temp file in the same directory and renames it over Path.
func (b *JSONBackend) writeAll(values map[string]string) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return mapDiskFull(err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmpFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return mapDiskFull(err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()

	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return mapDiskFull(writeErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return mapDiskFull(closeErr)
	}

	if err := os.Rename(tmpPath, b.Path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}

// mapDiskFull wraps ENOSPC errors with ErrQuotaExceeded.
func mapDiskFull(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	}
	return err
}
