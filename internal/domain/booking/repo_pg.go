package booking

import (
	"context"
	"fmt"
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

type bookingRepoPG struct{ pool *pgxpool.Pool }

func NewBookingRepoPG(pool *pgxpool.Pool) BookingRepository { return &bookingRepoPG{pool: pool} }

func (r *bookingRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const bookingCols = `id, patient_id, hospital_id, location_id, doctor_id, department,
	kind, bed_type, priority, status, scheduled_time, reason, created_at, updated_at`

func (r *bookingRepoPG) scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.PatientID, &b.HospitalID, &b.LocationID, &b.DoctorID, &b.Department,
		&b.Kind, &b.BedType, &b.Priority, &b.Status, &b.ScheduledTime, &b.Reason, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *bookingRepoPG) Create(ctx context.Context, b *Booking) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bookings (id, patient_id, hospital_id, location_id, doctor_id, department,
			kind, bed_type, priority, status, scheduled_time, reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		b.ID, b.PatientID, b.HospitalID, b.LocationID, b.DoctorID, b.Department,
		b.Kind, b.BedType, b.Priority, b.Status, b.ScheduledTime, b.Reason)
	return err
}

func (r *bookingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE id = $1`, id)
	return r.scanBooking(row)
}

func (r *bookingRepoPG) Update(ctx context.Context, b *Booking) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE bookings SET location_id=$2, doctor_id=$3, department=$4, bed_type=$5,
			priority=$6, status=$7, scheduled_time=$8, reason=$9, updated_at=NOW()
		WHERE id=$1`,
		b.ID, b.LocationID, b.DoctorID, b.Department, b.BedType,
		b.Priority, b.Status, b.ScheduledTime, b.Reason)
	return err
}

func (r *bookingRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	return err
}

func (r *bookingRepoPG) List(ctx context.Context, limit, offset int) ([]*Booking, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bookingCols+` FROM bookings ORDER BY scheduled_time DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}

func (r *bookingRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE patient_id = $1 ORDER BY scheduled_time DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}

func (r *bookingRepoPG) ListByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*Booking, error) {
	query := `SELECT ` + bookingCols + ` FROM bookings WHERE patient_id = $1`
	args := []interface{}{patientID}
	idx := 2

	if from != nil {
		query += fmt.Sprintf(` AND scheduled_time >= $%d`, idx)
		args = append(args, *from)
		idx++
	}
	if to != nil {
		query += fmt.Sprintf(` AND scheduled_time <= $%d`, idx)
		args = append(args, *to)
		idx++
	}
	query += ` ORDER BY scheduled_time DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Booking, int, error) {
	query := `SELECT ` + bookingCols + ` FROM bookings WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM bookings WHERE 1=1`
	var args []interface{}
	idx := 1

	if hospitalID, ok := params["hospital_id"]; ok && hospitalID != "" {
		clause := fmt.Sprintf(` AND hospital_id = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, hospitalID)
		idx++
	}
	if kind, ok := params["kind"]; ok && kind != "" {
		clause := fmt.Sprintf(` AND kind = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, kind)
		idx++
	}
	if status, ok := params["status"]; ok && status != "" {
		clause := fmt.Sprintf(` AND status = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, status)
		idx++
	}
	if department, ok := params["department"]; ok && department != "" {
		clause := fmt.Sprintf(` AND department = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, department)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY scheduled_time DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}
