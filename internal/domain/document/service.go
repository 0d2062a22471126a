package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/platform/blobstore"
)

type Service struct {
	repo  DocumentRepository
	blobs blobstore.BlobStore
}

func NewService(repo DocumentRepository, blobs blobstore.BlobStore) *Service {
	return &Service{repo: repo, blobs: blobs}
}

// UploadDocument stores the file bytes in the blob store and the
// metadata row in Postgres. The blob is removed again if the metadata
// insert fails, so no orphan is left behind.
func (s *Service) UploadDocument(ctx context.Context, d *Document, content io.Reader) error {
	if d.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if d.UploaderID == uuid.Nil {
		return fmt.Errorf("uploader_id is required")
	}
	if d.FileName == "" {
		return fmt.Errorf("file_name is required")
	}
	if !ValidCategories[d.Category] {
		return fmt.Errorf("invalid category: %s", d.Category)
	}
	if !AllowedContentTypes[d.ContentType] {
		return fmt.Errorf("content type %s is not allowed", d.ContentType)
	}
	if d.Title == "" {
		d.Title = d.FileName
	}

	info, err := s.blobs.Upload(ctx, d.ContentType, content)
	if err != nil {
		return err
	}
	d.BlobID = info.ID
	d.Size = info.Size

	if err := s.repo.Create(ctx, d); err != nil {
		s.blobs.Delete(ctx, info.ID)
		return err
	}
	return nil
}

func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

// DownloadDocument returns the metadata row together with a reader
// over the stored bytes. The caller closes the reader.
func (s *Service) DownloadDocument(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Download(ctx, d.BlobID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch blob %s: %w", d.BlobID, err)
	}
	return d, rc, nil
}

func (s *Service) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, d.BlobID); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		return err
	}
	return nil
}

func (s *Service) ListDocuments(ctx context.Context, limit, offset int) ([]*Document, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListDocumentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListDocumentsByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*Document, error) {
	return s.repo.ListByPatientWindow(ctx, patientID, from, to)
}

func (s *Service) SearchDocuments(ctx context.Context, params map[string]string, limit, offset int) ([]*Document, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
