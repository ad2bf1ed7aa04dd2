package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found")
var ErrCodeTaken = errors.New("session code already taken")
var ErrVersionConflict = errors.New("stored session version moved on")

// Repository persists session snapshots. Save is a compare-and-swap: it only
// succeeds when the stored version is version-1.
type Repository interface {
	Create(ctx context.Context, code string, s State) error
	Load(ctx context.Context, code string) (State, int, error)
	Save(ctx context.Context, code string, s State, version int) error
}
