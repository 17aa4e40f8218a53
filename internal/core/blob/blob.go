package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an object key does not exist.
var ErrNotFound = errors.New("blob: object not found")

// Store reads objects such as extraction results and master-data exports.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
}
