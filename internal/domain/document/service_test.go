package document

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/platform/blobstore"
)

type mockDocumentRepo struct {
	records   map[uuid.UUID]*Document
	createErr error
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{records: make(map[uuid.UUID]*Document)}
}

func (m *mockDocumentRepo) Create(_ context.Context, d *Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	m.records[d.ID] = d
	return nil
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	d, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return d, nil
}

func (m *mockDocumentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.records, id)
	return nil
}

func (m *mockDocumentRepo) List(_ context.Context, limit, offset int) ([]*Document, int, error) {
	var result []*Document
	for _, d := range m.records {
		result = append(result, d)
	}
	return result, len(result), nil
}

func (m *mockDocumentRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	var result []*Document
	for _, d := range m.records {
		if d.PatientID == patientID {
			result = append(result, d)
		}
	}
	return result, len(result), nil
}

func (m *mockDocumentRepo) ListByPatientWindow(_ context.Context, patientID uuid.UUID, from, to *time.Time) ([]*Document, error) {
	var result []*Document
	for _, d := range m.records {
		if d.PatientID != patientID {
			continue
		}
		if from != nil && d.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && d.CreatedAt.After(*to) {
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

func (m *mockDocumentRepo) Search(_ context.Context, _ map[string]string, limit, offset int) ([]*Document, int, error) {
	return m.List(context.Background(), limit, offset)
}

func newTestService() (*Service, *mockDocumentRepo, blobstore.BlobStore) {
	repo := newMockDocumentRepo()
	blobs := blobstore.NewInMemoryBlobStore()
	return NewService(repo, blobs), repo, blobs
}

func newUploadDoc() *Document {
	return &Document{
		PatientID:   uuid.New(),
		UploaderID:  uuid.New(),
		Title:       "Blood panel",
		Category:    "lab-report",
		FileName:    "cbc.pdf",
		ContentType: "application/pdf",
	}
}

func TestUploadDocument(t *testing.T) {
	svc, _, _ := newTestService()
	d := newUploadDoc()
	err := svc.UploadDocument(context.Background(), d, strings.NewReader("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.BlobID == "" {
		t.Error("expected blob_id to be set")
	}
	if d.Size != int64(len("%PDF-1.4 fake")) {
		t.Errorf("expected size %d, got %d", len("%PDF-1.4 fake"), d.Size)
	}
}

func TestUploadDocument_InvalidCategory(t *testing.T) {
	svc, _, _ := newTestService()
	d := newUploadDoc()
	d.Category = "memes"
	if err := svc.UploadDocument(context.Background(), d, strings.NewReader("x")); err == nil {
		t.Error("expected error for invalid category")
	}
}

func TestUploadDocument_DisallowedContentType(t *testing.T) {
	svc, _, _ := newTestService()
	d := newUploadDoc()
	d.ContentType = "application/x-msdownload"
	if err := svc.UploadDocument(context.Background(), d, strings.NewReader("MZ")); err == nil {
		t.Error("expected error for disallowed content type")
	}
}

func TestUploadDocument_TitleDefaultsToFileName(t *testing.T) {
	svc, _, _ := newTestService()
	d := newUploadDoc()
	d.Title = ""
	if err := svc.UploadDocument(context.Background(), d, strings.NewReader("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Title != "cbc.pdf" {
		t.Errorf("expected title to default to file name, got %q", d.Title)
	}
}

func TestUploadDocument_MetadataFailureCleansBlob(t *testing.T) {
	repo := newMockDocumentRepo()
	repo.createErr = fmt.Errorf("insert failed")
	blobs := blobstore.NewInMemoryBlobStore()
	svc := NewService(repo, blobs)

	d := newUploadDoc()
	err := svc.UploadDocument(context.Background(), d, strings.NewReader("content"))
	if err == nil {
		t.Fatal("expected error from metadata insert")
	}
	if _, _, err := blobs.Download(context.Background(), d.BlobID); err == nil {
		t.Error("expected blob to be cleaned up after metadata failure")
	}
}

func TestDownloadDocument_Roundtrip(t *testing.T) {
	svc, _, _ := newTestService()
	d := newUploadDoc()
	svc.UploadDocument(context.Background(), d, strings.NewReader("report body"))

	fetched, rc, err := svc.DownloadDocument(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(data) != "report body" {
		t.Errorf("expected 'report body', got %q", string(data))
	}
	if fetched.FileName != "cbc.pdf" {
		t.Errorf("expected file name 'cbc.pdf', got %s", fetched.FileName)
	}
}

func TestDownloadDocument_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	if _, _, err := svc.DownloadDocument(context.Background(), uuid.New()); err == nil {
		t.Error("expected error for missing document")
	}
}

func TestDeleteDocument_RemovesBlob(t *testing.T) {
	svc, _, blobs := newTestService()
	d := newUploadDoc()
	svc.UploadDocument(context.Background(), d, strings.NewReader("x"))

	if err := svc.DeleteDocument(context.Background(), d.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetDocument(context.Background(), d.ID); err == nil {
		t.Error("expected metadata to be gone")
	}
	if _, _, err := blobs.Download(context.Background(), d.BlobID); err == nil {
		t.Error("expected blob to be gone")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{`quo"te.pdf`, "quo_te.pdf"},
		{"path/../etc.pdf", "path_.._etc.pdf"},
		{"", "download"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
