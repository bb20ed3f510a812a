// Package idgen produces identifiers for new todo records.
package idgen

import "github.com/google/uuid"

// New returns a UUIDv7 string: a millisecond timestamp followed by random
// bits, so identifiers advance with time and collide only with negligible
// probability. Identifiers are not checked against existing records.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
