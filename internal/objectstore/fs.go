package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"

	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
	"github.com/listenupapp/bookshelf-server/internal/logger"
	"github.com/listenupapp/bookshelf-server/internal/metrics"
)

const (
	// metaDir holds per-object sidecars; it is hidden from listings.
	metaDir    = ".meta"
	tempPrefix = ".tmp-"

	// ObjectsPath is the route prefix signed URLs point at.
	ObjectsPath = "/objects/"
)

// FS stores objects as files under a root directory. Keys map to relative
// paths. Content type and cache control are kept in JSON sidecars.
// Thread-safe for concurrent operations.
type FS struct {
	root      string
	publicURL string
	signer    *Signer
	logger    *slog.Logger
	mu        sync.RWMutex
}

type sidecar struct {
	ContentType  string `json:"content_type,omitempty"`
	CacheControl string `json:"cache_control,omitempty"`
}

// NewFS creates the root directory if needed. Signed URLs are rooted at
// publicURL.
func NewFS(root, publicURL string, signer *Signer, log *slog.Logger) (*FS, error) {
	if root == "" {
		return nil, fmt.Errorf("object root cannot be empty")
	}
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if err := os.MkdirAll(filepath.Join(root, metaDir), 0o755); err != nil {
		return nil, fmt.Errorf("create object root: %w", err)
	}
	return &FS{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
		signer:    signer,
		logger:    logger.OrDiscard(log),
	}, nil
}

// Exists reports whether key holds an object.
func (s *FS) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(p)
	switch {
	case err == nil:
		observe("exists", nil)
		return info.Mode().IsRegular(), nil
	case errors.Is(err, fs.ErrNotExist):
		observe("exists", nil)
		return false, nil
	default:
		observe("exists", err)
		return false, domainerrors.Upstream(err, "stat object")
	}
}

// Get reads the whole object.
func (s *FS) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	//#nosec G304 -- path is confined to the object root by path()
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			observe("get", nil)
			return nil, ErrObjectNotFound
		}
		observe("get", err)
		return nil, domainerrors.Upstream(err, "read object")
	}
	observe("get", nil)
	return data, nil
}

// Stat returns object metadata.
func (s *FS) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stat(key, p)
}

func (s *FS) stat(key, p string) (*ObjectInfo, error) {
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, domainerrors.Upstream(err, "stat object")
	}
	if !info.Mode().IsRegular() {
		return nil, ErrObjectNotFound
	}

	meta := s.readSidecar(key)
	if meta.ContentType == "" {
		if mt, err := mimetype.DetectFile(p); err == nil {
			meta.ContentType = mt.String()
		}
	}

	return &ObjectInfo{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
		ContentType:  meta.ContentType,
		CacheControl: meta.CacheControl,
	}, nil
}

// Put writes data under key, replacing any existing object. The write is
// atomic: readers see either the old or the new bytes.
func (s *FS) Put(ctx context.Context, key string, data []byte, opts PutOptions) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.ContentType == "" {
		opts.ContentType = mimetype.Detect(data).String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(p, data); err != nil {
		observe("put", err)
		return domainerrors.Upstream(err, "write object")
	}

	meta, err := json.Marshal(sidecar{ContentType: opts.ContentType, CacheControl: opts.CacheControl})
	if err != nil {
		return fmt.Errorf("marshal object metadata: %w", err)
	}
	if err := writeAtomic(s.sidecarPath(key), meta); err != nil {
		observe("put", err)
		return domainerrors.Upstream(err, "write object metadata")
	}

	observe("put", nil)
	s.logger.Debug("stored object",
		"key", key,
		"size", len(data),
		"content_type", opts.ContentType,
	)
	return nil
}

// List returns every object whose key starts with prefix, sorted by key.
func (s *FS) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var objects []ObjectInfo
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel == metaDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := s.stat(key, p)
		if err != nil {
			return err
		}
		objects = append(objects, *info)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		observe("list", err)
		return nil, domainerrors.Upstream(err, "list objects")
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	observe("list", nil)
	return objects, nil
}

// SignedURL returns a URL granting read access to key for ttl. The object
// does not have to exist yet.
func (s *FS) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := s.path(key); err != nil {
		return "", err
	}
	token, err := s.signer.Sign(key, ttl)
	if err != nil {
		return "", err
	}
	return s.publicURL + ObjectsPath + escapeKey(key) + "?token=" + url.QueryEscape(token), nil
}

// Open returns a reader over the object. The caller closes it.
func (s *FS) Open(ctx context.Context, key string) (io.ReadSeekCloser, *ObjectInfo, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := s.stat(key, p)
	if err != nil {
		return nil, nil, err
	}
	//#nosec G304 -- path is confined to the object root by path()
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, domainerrors.Upstream(err, "open object")
	}
	return f, info, nil
}

// Verify checks a token from a signed URL against key.
func (s *FS) Verify(token, key string) error {
	return s.signer.Verify(token, key)
}

// path maps key to a filesystem path confined to the root.
func (s *FS) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *FS) sidecarPath(key string) string {
	return filepath.Join(s.root, metaDir, filepath.FromSlash(key)+".json")
}

func (s *FS) readSidecar(key string) sidecar {
	var meta sidecar
	//#nosec G304 -- path is confined to the object root
	raw, err := os.ReadFile(s.sidecarPath(key))
	if err != nil {
		return meta
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		s.logger.Warn("ignoring corrupt object metadata", "key", key, "error", err)
		return sidecar{}
	}
	return meta
}

// ValidateKey rejects keys that are empty, absolute, not in canonical form,
// or that address the metadata area.
func ValidateKey(key string) error {
	if key == "" {
		return domainerrors.Validation("object key cannot be empty")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) || path.Clean(key) != key ||
		key == ".." || strings.HasPrefix(key, "../") {
		return domainerrors.MalformedInput("invalid object key")
	}
	if key == metaDir || strings.HasPrefix(key, metaDir+"/") {
		return domainerrors.MalformedInput("reserved object key")
	}
	return nil
}

func writeAtomic(p string, data []byte) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ObjectOperations.WithLabelValues(op, result).Inc()
}
