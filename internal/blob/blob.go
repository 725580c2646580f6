// Package blob defines the binary payload collaborator. The engine stores
// locators, never bytes; the real backend (disk, object storage) lives
// outside this repository.
package blob

import "context"

// Locator identifies a stored blob.
type Locator string

// Store persists and retrieves binary payloads.
type Store interface {
	Store(ctx context.Context, name string, data []byte) (Locator, error)
	Fetch(ctx context.Context, loc Locator) ([]byte, error)
	Delete(ctx context.Context, loc Locator) error
}
