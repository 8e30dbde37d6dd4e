package tools

import (
	"errors"
	"fmt"
)

var (
	// ErrShape marks a backend response that does not have the expected structure.
	ErrShape = errors.New("unexpected response shape")
	// ErrNotFound marks a valid request that matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrUnknownTool is returned by Decode for names outside the catalog.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidInput marks arguments rejected by the tool's input schema.
	ErrInvalidInput = errors.New("invalid input")
)

// notFound is a descriptive failure that matches ErrNotFound.
type notFound struct{ msg string }

func notFoundf(format string, args ...any) error {
	return &notFound{msg: fmt.Sprintf(format, args...)}
}

func (e *notFound) Error() string        { return e.msg }
func (e *notFound) Is(target error) bool { return target == ErrNotFound }
