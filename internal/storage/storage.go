package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/zidesign/catalog/config"
	"github.com/zidesign/catalog/types"
)

// ImageContentType is the content type every work image is stored with.
const ImageContentType = "image/jpeg"

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Images stores work preview images in an ObjectStorage backend and
// derives their public URLs.
type Images struct {
	backend ObjectStorage
	baseURL string
}

// NewImages constructs an image store for the provided backend. Keys are
// published under baseURL, or under "/<bucket>" when baseURL is empty.
func NewImages(backend ObjectStorage, baseURL string) *Images {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "/" + backend.Bucket()
	}
	return &Images{backend: backend, baseURL: baseURL}
}

// Open builds the backend selected by cfg and makes sure its bucket
// exists. The "none" backend yields a nil store: works are then accepted
// without images.
func Open(ctx context.Context, cfg config.StorageConfig) (*Images, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	case "memory":
		backend = NewMemoryBackend("files")
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewImages(backend, cfg.PublicBaseURL), nil
}

// PutImage decodes a base64 image (a data URL prefix is tolerated) and
// stores it under a fresh key for the author.
func (s *Images) PutImage(ctx context.Context, authorID, title, encoded string) (key, url string, err error) {
	data, err := DecodeImage(encoded)
	if err != nil {
		return "", "", err
	}
	key = ImageKey(authorID, title, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), ImageContentType); err != nil {
		return "", "", fmt.Errorf("upload image: %w", err)
	}
	return key, s.URL(key), nil
}

// Remove deletes a stored image.
func (s *Images) Remove(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// URL returns the public URL of key.
func (s *Images) URL(key string) string {
	return s.baseURL + "/" + key
}

var unsafeKeyChars = regexp.MustCompile(`[\s/\\]+`)

// ImageKey returns works/<author>/<title>_<suffix>.jpg with whitespace and
// path separators in the title replaced by underscores.
func ImageKey(authorID, title, suffix string) string {
	return fmt.Sprintf("works/%s/%s_%s.jpg", authorID, unsafeKeyChars.ReplaceAllString(title, "_"), suffix)
}

// DecodeImage decodes raw base64 or a data URL.
func DecodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if i := strings.IndexByte(encoded, ','); i >= 0 {
		encoded = encoded[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: image_base64 is not valid base64", types.ErrValidation)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image_base64 is empty", types.ErrValidation)
	}
	return data, nil
}
