package document

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Document, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Document, int, error)
	// ListByPatientWindow returns every document uploaded inside
	// [from, to]; nil bounds are open.
	ListByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*Document, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Document, int, error)
}
