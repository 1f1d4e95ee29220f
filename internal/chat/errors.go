package chat

import (
	"errors"
	"fmt"

	"github.com/npezzotti/go-chatlive/internal/database"
)

var (
	ErrInvalid   = errors.New("invalid request")
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, msg)
}

func forbidden(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s not found", ErrNotFound, what)
}

// storeErr maps a missing row to ErrNotFound and wraps anything else.
func storeErr(err error, what string) error {
	if errors.Is(err, database.ErrNotFound) {
		return notFound(what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
