package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
)

func seedBlob(t *testing.T, store BlobStore, contentType, content string) *BlobInfo {
	t.Helper()
	info, err := store.Upload(context.Background(), contentType, strings.NewReader(content))
	if err != nil {
		t.Fatalf("seedBlob: %v", err)
	}
	return info
}

func TestInMemoryBlobStore_Upload(t *testing.T) {
	store := NewInMemoryBlobStore()
	content := "hello world"

	info, err := store.Upload(context.Background(), "text/plain", strings.NewReader(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if info.ContentType != "text/plain" {
		t.Errorf("expected ContentType=text/plain, got %s", info.ContentType)
	}
	if info.Size != int64(len(content)) {
		t.Errorf("expected Size=%d, got %d", len(content), info.Size)
	}
	if info.CreatedAt.IsZero() {
		t.Fatal("expected non-zero CreatedAt")
	}

	wantHash := fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
	if info.Hash != wantHash {
		t.Errorf("expected hash %s, got %s", wantHash, info.Hash)
	}
}

func TestInMemoryBlobStore_DuplicateContentGetsDistinctIDs(t *testing.T) {
	store := NewInMemoryBlobStore()
	first := seedBlob(t, store, "application/pdf", "same scan bytes")
	second := seedBlob(t, store, "application/pdf", "same scan bytes")

	if first.ID == second.ID {
		t.Error("expected each upload to get its own ID")
	}
	if first.Hash != second.Hash {
		t.Errorf("expected identical content hashes, got %s and %s", first.Hash, second.Hash)
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 stored blobs, got %d", store.Len())
	}
}

func TestInMemoryBlobStore_Upload_EmptyContent(t *testing.T) {
	store := NewInMemoryBlobStore()

	_, err := store.Upload(context.Background(), "text/plain", strings.NewReader(""))
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestInMemoryBlobStore_Upload_TooLarge(t *testing.T) {
	store := NewInMemoryBlobStore()

	// A reader that yields more than MaxFileSize bytes.
	big := io.LimitReader(infiniteReader{}, MaxFileSize+10)
	_, err := store.Upload(context.Background(), "application/octet-stream", big)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

type infiniteReader struct{}

func (infiniteReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestInMemoryBlobStore_DownloadRoundtrip(t *testing.T) {
	store := NewInMemoryBlobStore()
	content := "scan bytes go here"
	info := seedBlob(t, store, "application/pdf", content)

	rc, got, err := store.Download(context.Background(), info.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading blob: %v", err)
	}
	if !bytes.Equal(data, []byte(content)) {
		t.Errorf("content mismatch: got %q", data)
	}
	if got.ContentType != "application/pdf" {
		t.Errorf("expected ContentType=application/pdf, got %s", got.ContentType)
	}
	if got.Hash != info.Hash {
		t.Errorf("hash mismatch: %s vs %s", got.Hash, info.Hash)
	}
}

func TestInMemoryBlobStore_Download_NotFound(t *testing.T) {
	store := NewInMemoryBlobStore()

	_, _, err := store.Download(context.Background(), "no-such-id")
	if !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestInMemoryBlobStore_Delete(t *testing.T) {
	store := NewInMemoryBlobStore()
	info := seedBlob(t, store, "image/png", "png bytes")

	if err := store.Delete(context.Background(), info.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err := store.Download(context.Background(), info.ID)
	if !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound after delete, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected an empty store, got %d blobs", store.Len())
	}
}

func TestInMemoryBlobStore_Delete_NotFound(t *testing.T) {
	store := NewInMemoryBlobStore()

	err := store.Delete(context.Background(), "no-such-id")
	if !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestInMemoryBlobStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryBlobStore()

	var wg sync.WaitGroup
	ids := make(chan string, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			info, err := store.Upload(context.Background(), "text/plain", strings.NewReader(fmt.Sprintf("blob-%d", n)))
			if err != nil {
				t.Errorf("upload %d: %v", n, err)
				return
			}
			ids <- info.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	count := 0
	for id := range ids {
		rc, _, err := store.Download(context.Background(), id)
		if err != nil {
			t.Errorf("download %s: %v", id, err)
			continue
		}
		rc.Close()
		count++
	}
	if count != 50 {
		t.Errorf("expected 50 blobs, got %d", count)
	}
	if store.Len() != 50 {
		t.Errorf("expected the store to hold 50 blobs, got %d", store.Len())
	}
}
