package admission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carehub/carehub/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type queueRepoPG struct{ pool *pgxpool.Pool }

func NewQueueRepoPG(pool *pgxpool.Pool) QueueRepository { return &queueRepoPG{pool: pool} }

func (r *queueRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const queueCols = `id, hospital_id, location_id, booking_id, patient_id, bed_type,
	priority, score, status, enqueued_at, assigned_bed_id, allocated_at, created_at, updated_at`

func (r *queueRepoPG) scanEntry(row pgx.Row) (*QueueEntry, error) {
	var e QueueEntry
	err := row.Scan(&e.ID, &e.HospitalID, &e.LocationID, &e.BookingID, &e.PatientID, &e.BedType,
		&e.Priority, &e.Score, &e.Status, &e.EnqueuedAt, &e.AssignedBedID, &e.AllocatedAt, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *queueRepoPG) Create(ctx context.Context, e *QueueEntry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bed_queue (id, hospital_id, location_id, booking_id, patient_id, bed_type,
			priority, score, status, enqueued_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.HospitalID, e.LocationID, e.BookingID, e.PatientID, e.BedType,
		e.Priority, e.Score, e.Status, e.EnqueuedAt)
	return err
}

func (r *queueRepoPG) GetWaitingByBooking(ctx context.Context, hospitalID, bookingID uuid.UUID) (*QueueEntry, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+queueCols+` FROM bed_queue
		WHERE hospital_id = $1 AND booking_id = $2 AND status = 'waiting'
		ORDER BY enqueued_at DESC LIMIT 1`,
		hospitalID, bookingID)
	return r.scanEntry(row)
}

func (r *queueRepoPG) ListWaiting(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID) ([]*QueueEntry, error) {
	query := `SELECT ` + queueCols + ` FROM bed_queue WHERE hospital_id = $1 AND status = 'waiting'`
	args := []interface{}{hospitalID}
	if locationID != nil {
		query += ` AND location_id = $2`
		args = append(args, *locationID)
	}
	query += ` ORDER BY enqueued_at ASC, created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*QueueEntry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *queueRepoPG) HasActive(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bed_queue WHERE booking_id = $1 AND status IN ('waiting', 'allocated')`,
		bookingID).Scan(&count)
	return count > 0, err
}

func (r *queueRepoPG) MarkAllocated(ctx context.Context, entryID, bedID uuid.UUID, at time.Time) (bool, error) {
	// The status guard keeps two allocators from assigning the same entry:
	// the losing writer matches zero rows and mutates nothing.
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed_queue SET status = 'allocated', assigned_bed_id = $2, allocated_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'waiting'`,
		entryID, bedID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queueRepoPG) MarkWithdrawn(ctx context.Context, entryID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bed_queue SET status = 'withdrawn', updated_at = NOW()
		WHERE id = $1 AND status = 'waiting'`,
		entryID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
