package grid

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by grid implementations.
var (
	// ErrMapNotFound is returned when a map name cannot be resolved.
	ErrMapNotFound = errors.New("grid: map not found")

	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("grid: client closed")

	// ErrUnsupportedClient is returned when a value implements neither
	// Client nor AsyncClient.
	ErrUnsupportedClient = errors.New("grid: unsupported client")

	// ErrInvalidName is returned for an empty map name.
	ErrInvalidName = errors.New("grid: map name is empty")
)

// Map is a handle to one named, replicated key/value collection.
//
// Implementations must be safe for concurrent use.
type Map interface {
	// Name returns the map name the handle was resolved for.
	Name() string

	// Get returns the value stored under key, or nil if the key is absent
	// or expired. Absence is not an error.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl <= 0 stores the entry without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry of the map.
	Clear(ctx context.Context) error

	// Size returns the number of live entries.
	Size(ctx context.Context) (int, error)

	// Values returns every live value. Order is unspecified.
	Values(ctx context.Context) ([][]byte, error)
}

// Client resolves maps synchronously.
type Client interface {
	GetMap(ctx context.Context, name string) (Map, error)
}

// AsyncClient resolves maps in the background.
type AsyncClient interface {
	GetMapAsync(ctx context.Context, name string) *Future[Map]
}

// ValidateName checks a map name.
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	return nil
}
