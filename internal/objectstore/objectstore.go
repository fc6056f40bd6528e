// Package objectstore is the gateway to the bucket that holds book sources
// and rendered covers.
package objectstore

import (
	"context"
	"io"
	"time"

	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
)

// ErrObjectNotFound is returned for keys with no stored object.
var ErrObjectNotFound = domainerrors.NotFound("object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ContentType  string    `json:"content_type,omitempty"`
	CacheControl string    `json:"cache_control,omitempty"`
}

// PutOptions are stored alongside an object and replayed when it is served.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// Store is the object storage surface.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Opener streams objects for the signed download endpoint.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadSeekCloser, *ObjectInfo, error)
}
