// Package app implements application business logic for the notes service:
// edit sessions with debounced autosave, per-user workspaces and list filtering.
package app

import (
	"errors"
	"fmt"
)

// Ошибки уровня бизнес-логики.
var (
	ErrAuthRequired      = errors.New("authentication required")
	ErrNotEditing        = errors.New("note is not being edited")
	ErrInvalidTransition = errors.New("invalid edit session transition")
	ErrNoActiveSession   = errors.New("no note selected")
	ErrNoteNotLoaded     = errors.New("note is not in the workspace")
)

// Операции хранилища, которые попадают в StoreError.
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// StoreError оборачивает любой отказ внешнего хранилища заметок.
// Локальное состояние при такой ошибке не меняется.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("note store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
