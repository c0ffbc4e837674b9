package library

import (
	"errors"
	"fmt"

	"mangako/internal/repository"
)

var (
	// ErrNetwork marks catalog failures: unreachable, timeout or non-success response.
	ErrNetwork = errors.New("catalog request failed")
	// ErrStorage marks local store read or write failures.
	ErrStorage = errors.New("local store failure")
	// ErrNotFound is returned when a mutation targets a manga that is not stored.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is used internally for calls made while a context is busy or closed.
	ErrInvalidState = errors.New("invalid state")
	// ErrConfirmationRequired means the manga must be added to the library before
	// its volumes can be marked owned. The mutation is parked until Confirm or Cancel.
	ErrConfirmationRequired = errors.New("manga is not in the library")
)

func networkError(op string, err error) error {
	if errors.Is(err, ErrNetwork) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
}

func storageError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
