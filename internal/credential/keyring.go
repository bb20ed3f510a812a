// Package credential looks up secrets such as the Postgres password in the
// operating system keyring.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "todo-engine"

// Source resolves a secret by key.
type Source interface {
	Get(key string) (string, error)
}

// Keyring is a Source backed by a keyring.Keyring.
type Keyring struct {
	ring keyring.Keyring
}

// NewKeyring wraps an already opened keyring. Tests pass keyring.NewArrayKeyring.
func NewKeyring(ring keyring.Keyring) *Keyring {
	return &Keyring{ring: ring}
}

// OpenSystem opens the platform keyring for the todo-engine service.
func OpenSystem() (*Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/todo-engine/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("todo-engine-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Keyring{ring: ring}, nil
}

// Get retrieves a credential value by key.
func (k *Keyring) Get(key string) (string, error) {
	item, err := k.ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value under key.
func (k *Keyring) Set(key, value string) error {
	if err := k.ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Lazy opens the system keyring on first use, so hosts that never need a
// secret never touch the keyring.
type Lazy struct {
	open func() (*Keyring, error)
	ring *Keyring
}

// NewLazy returns a Source that calls OpenSystem on the first Get.
func NewLazy() *Lazy {
	return &Lazy{open: OpenSystem}
}

// Get opens the keyring if needed and retrieves key.
func (l *Lazy) Get(key string) (string, error) {
	if l.ring == nil {
		ring, err := l.open()
		if err != nil {
			return "", err
		}
		l.ring = ring
	}
	return l.ring.Get(key)
}
