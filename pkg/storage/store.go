// Package storage persists uploaded document blobs and hands out time-limited
// retrieval URLs for them.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Store is the object storage the ingestion pipeline writes to. Keys are
// slash separated and never start with a slash.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	// Remove deletes the object. Removing a missing object is not an error.
	Remove(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// cleanKey rejects keys that could escape the bucket or root directory.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage key is empty")
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned != key || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}
