// Package blobstore stores raw file content under opaque IDs. Document
// metadata (owner, category, title) is the document domain's concern and
// lives in Postgres. The package defines the BlobStore interface and an
// in-memory implementation suitable for testing and development.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	ErrEmptyContent = errors.New("file content is empty")
)

// MaxFileSize caps blob size at 25 MB, matching the upload body limit
// enforced at the HTTP layer.
const MaxFileSize = 25 << 20

// BlobInfo describes a stored blob at the storage level.
type BlobInfo struct {
	ID          string    `json:"id"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// BlobStore is the contract storage backends implement.
type BlobStore interface {
	Upload(ctx context.Context, contentType string, content io.Reader) (*BlobInfo, error)
	Download(ctx context.Context, id string) (io.ReadCloser, *BlobInfo, error)
	Delete(ctx context.Context, id string) error
}

type storedBlob struct {
	info    BlobInfo
	content []byte
}

// InMemoryBlobStore is a thread-safe, in-memory BlobStore for tests and
// development environments.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]storedBlob
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{blobs: make(map[string]storedBlob)}
}

// Upload drains content while hashing it, then stores the blob under a
// fresh ID.
func (s *InMemoryBlobStore) Upload(_ context.Context, contentType string, content io.Reader) (*BlobInfo, error) {
	hasher := sha256.New()
	var buf bytes.Buffer
	n, err := io.Copy(io.MultiWriter(&buf, hasher), io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if n > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if n == 0 {
		return nil, ErrEmptyContent
	}

	info := BlobInfo{
		ID:          uuid.New().String(),
		ContentType: contentType,
		Size:        n,
		Hash:        hex.EncodeToString(hasher.Sum(nil)),
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.blobs[info.ID] = storedBlob{info: info, content: buf.Bytes()}
	s.mu.Unlock()

	return &info, nil
}

// Download returns a reader over the blob content together with its info.
func (s *InMemoryBlobStore) Download(_ context.Context, id string) (io.ReadCloser, *BlobInfo, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrBlobNotFound
	}

	info := blob.info
	return io.NopCloser(bytes.NewReader(blob.content)), &info, nil
}

func (s *InMemoryBlobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, id)
	return nil
}

// Len reports how many blobs the store currently holds.
func (s *InMemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
