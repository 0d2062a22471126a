package document

import (
	"time"

	"github.com/google/uuid"
)

// ValidCategories lists the accepted document categories.
var ValidCategories = map[string]bool{
	"lab-report":        true,
	"imaging":           true,
	"insurance":         true,
	"referral":          true,
	"discharge-summary": true,
	"other":             true,
}

// AllowedContentTypes lists the MIME types accepted for upload.
var AllowedContentTypes = map[string]bool{
	"image/png":         true,
	"image/jpeg":        true,
	"application/pdf":   true,
	"application/dicom": true,
	"text/plain":        true,
	"text/csv":          true,
}

// Document maps to the documents table. The row holds metadata only;
// the file bytes live in the blob store under BlobID. Documents are
// immutable once uploaded.
type Document struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	UploaderID  uuid.UUID `db:"uploader_id" json:"uploader_id"`
	Title       string    `db:"title" json:"title"`
	Category    string    `db:"category" json:"category"`
	FileName    string    `db:"file_name" json:"file_name"`
	ContentType string    `db:"content_type" json:"content_type"`
	Size        int64     `db:"size_bytes" json:"size"`
	BlobID      string    `db:"blob_id" json:"blob_id"`
	Note        *string   `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
