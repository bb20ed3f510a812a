package credential_test

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"

	"github.com/JamesPrial/todo-engine/internal/credential"
)

func Test_Keyring_GetSet(t *testing.T) {
	t.Parallel()

	ring := credential.NewKeyring(keyring.NewArrayKeyring(nil))

	if err := ring.Set("pg-password", "s3cret"); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}

	got, err := ring.Get("pg-password")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("Get() = %q, want %q", got, "s3cret")
	}
}

func Test_Keyring_GetMissing(t *testing.T) {
	t.Parallel()

	ring := credential.NewKeyring(keyring.NewArrayKeyring([]keyring.Item{
		{Key: "other", Data: []byte("x")},
	}))

	_, err := ring.Get("pg-password")
	if err == nil {
		t.Fatal("Get() expected error for missing key, got nil")
	}
	if !errors.Is(err, keyring.ErrKeyNotFound) {
		t.Errorf("Get() error = %v, want wrapping keyring.ErrKeyNotFound", err)
	}
}
