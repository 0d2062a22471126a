package consultation

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

type consultationRepoPG struct{ pool *pgxpool.Pool }

func NewConsultationRepoPG(pool *pgxpool.Pool) ConsultationRepository {
	return &consultationRepoPG{pool: pool}
}

func (r *consultationRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const consultationCols = `id, patient_id, doctor_id, booking_id, mode, status,
	started_at, ended_at, diagnosis, notes, follow_up_at, created_at, updated_at`

func (r *consultationRepoPG) scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.BookingID, &c.Mode, &c.Status,
		&c.StartedAt, &c.EndedAt, &c.Diagnosis, &c.Notes, &c.FollowUpAt, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *consultationRepoPG) Create(ctx context.Context, c *Consultation) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consultations (id, patient_id, doctor_id, booking_id, mode, status,
			started_at, ended_at, diagnosis, notes, follow_up_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		c.ID, c.PatientID, c.DoctorID, c.BookingID, c.Mode, c.Status,
		c.StartedAt, c.EndedAt, c.Diagnosis, c.Notes, c.FollowUpAt)
	return err
}

func (r *consultationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+consultationCols+` FROM consultations WHERE id = $1`, id)
	return r.scanConsultation(row)
}

func (r *consultationRepoPG) Update(ctx context.Context, c *Consultation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE consultations SET mode=$2, status=$3, started_at=$4, ended_at=$5,
			diagnosis=$6, notes=$7, follow_up_at=$8, updated_at=NOW()
		WHERE id=$1`,
		c.ID, c.Mode, c.Status, c.StartedAt, c.EndedAt, c.Diagnosis, c.Notes, c.FollowUpAt)
	return err
}

func (r *consultationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM consultations WHERE id = $1`, id)
	return err
}

func (r *consultationRepoPG) List(ctx context.Context, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consultations`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+consultationCols+` FROM consultations
		 ORDER BY COALESCE(started_at, created_at) DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var consultations []*Consultation
	for rows.Next() {
		c, err := r.scanConsultation(rows)
		if err != nil {
			return nil, 0, err
		}
		consultations = append(consultations, c)
	}
	return consultations, total, rows.Err()
}

func (r *consultationRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM consultations WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+consultationCols+` FROM consultations WHERE patient_id = $1
		 ORDER BY COALESCE(started_at, created_at) DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var consultations []*Consultation
	for rows.Next() {
		c, err := r.scanConsultation(rows)
		if err != nil {
			return nil, 0, err
		}
		consultations = append(consultations, c)
	}
	return consultations, total, rows.Err()
}

func (r *consultationRepoPG) ListByPatientWindow(ctx context.Context, patientID uuid.UUID, from, to *time.Time) ([]*Consultation, error) {
	// The window matches EffectiveTime: started_at when set, else created_at.
	query := `SELECT ` + consultationCols + ` FROM consultations WHERE patient_id = $1`
	args := []interface{}{patientID}
	idx := 2

	if from != nil {
		query += fmt.Sprintf(` AND COALESCE(started_at, created_at) >= $%d`, idx)
		args = append(args, *from)
		idx++
	}
	if to != nil {
		query += fmt.Sprintf(` AND COALESCE(started_at, created_at) <= $%d`, idx)
		args = append(args, *to)
		idx++
	}
	query += ` ORDER BY COALESCE(started_at, created_at) DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var consultations []*Consultation
	for rows.Next() {
		c, err := r.scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		consultations = append(consultations, c)
	}
	return consultations, rows.Err()
}

func (r *consultationRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Consultation, int, error) {
	query := `SELECT ` + consultationCols + ` FROM consultations WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM consultations WHERE 1=1`
	var args []interface{}
	idx := 1

	if doctorID, ok := params["doctor_id"]; ok && doctorID != "" {
		clause := fmt.Sprintf(` AND doctor_id = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, doctorID)
		idx++
	}
	if mode, ok := params["mode"]; ok && mode != "" {
		clause := fmt.Sprintf(` AND mode = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, mode)
		idx++
	}
	if status, ok := params["status"]; ok && status != "" {
		clause := fmt.Sprintf(` AND status = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY COALESCE(started_at, created_at) DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var consultations []*Consultation
	for rows.Next() {
		c, err := r.scanConsultation(rows)
		if err != nil {
			return nil, 0, err
		}
		consultations = append(consultations, c)
	}
	return consultations, total, rows.Err()
}
