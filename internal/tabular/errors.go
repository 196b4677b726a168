package tabular

import (
	"errors"
	"fmt"

	"github.com/drcash-dev/drcash/internal/model"
)

// ErrUnsupportedKind matches UnsupportedFileKindError via errors.Is.
var ErrUnsupportedKind = errors.New("unsupported file kind")

// ErrUnreadable matches UnreadableFileError via errors.Is.
var ErrUnreadable = errors.New("unreadable file")

// UnsupportedFileKindError is returned for file names without an accepted suffix.
type UnsupportedFileKindError struct {
	Name string
}

func (e *UnsupportedFileKindError) Error() string {
	return fmt.Sprintf("unsupported file kind %q: expected .csv or .xlsx", e.Name)
}

func (e *UnsupportedFileKindError) Is(target error) bool {
	return target == ErrUnsupportedKind
}

// UnreadableFileError is returned when bytes do not decode as the declared kind.
type UnreadableFileError struct {
	Kind model.FileKind
	Err  error
}

func (e *UnreadableFileError) Error() string {
	return fmt.Sprintf("unreadable %s file: %v", e.Kind, e.Err)
}

func (e *UnreadableFileError) Unwrap() error {
	return e.Err
}

func (e *UnreadableFileError) Is(target error) bool {
	return target == ErrUnreadable
}

func unreadable(kind model.FileKind, err error) error {
	return &UnreadableFileError{Kind: kind, Err: err}
}
