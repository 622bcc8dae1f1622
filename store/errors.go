package store

import "errors"

var (
	// ErrNotFound is returned when no document exists under a key.
	ErrNotFound = errors.New("store: entity not found")

	// ErrConditionFailed is returned when a write condition does not hold.
	ErrConditionFailed = errors.New("store: condition not satisfied")

	// ErrInvalidCursor is returned when a pagination cursor cannot be used.
	ErrInvalidCursor = errors.New("store: invalid cursor")

	// ErrIDExhausted is returned when Insert keeps colliding with existing ids.
	ErrIDExhausted = errors.New("store: could not allocate a free id")

	// ErrInvalidKey is returned when an item carries no usable "id" attribute.
	ErrInvalidKey = errors.New("store: item has no usable id")
)
