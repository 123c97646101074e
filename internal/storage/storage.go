// Package storage abstracts the blob store behind the document upload flow.
// The portal core only needs: store bytes under a key, produce a URL, remove.
package storage

import (
	"context"
	"io"
)

// BlobStore is the external blob-storage collaborator.
type BlobStore interface {
	// Put stores the object under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// URL returns a retrievable URL for the stored object.
	URL(ctx context.Context, key string) (string, error)
	// Remove deletes the object. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
