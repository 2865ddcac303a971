// Package storage holds community files in object storage. Every
// stored object is tagged with its owning community at write time;
// reads verify the tag before any bytes are streamed.
package storage

import (
	"context"
	"io"
)

// BlobStore is the raw object storage boundary.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
