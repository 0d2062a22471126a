package hospital

import (
	"context"
	"fmt"

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

// =========== Hospital Repository ===========

type hospitalRepoPG struct{ pool *pgxpool.Pool }

func NewHospitalRepoPG(pool *pgxpool.Pool) HospitalRepository { return &hospitalRepoPG{pool: pool} }

func (r *hospitalRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const hospitalCols = `id, name, phone, email, address, created_at, updated_at`

func (r *hospitalRepoPG) scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(&h.ID, &h.Name, &h.Phone, &h.Email, &h.Address, &h.CreatedAt, &h.UpdatedAt)
	return &h, err
}

func (r *hospitalRepoPG) Create(ctx context.Context, h *Hospital) error {
	h.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hospitals (id, name, phone, email, address)
		VALUES ($1,$2,$3,$4,$5)`,
		h.ID, h.Name, h.Phone, h.Email, h.Address)
	return err
}

func (r *hospitalRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalCols+` FROM hospitals WHERE id = $1`, id)
	return r.scanHospital(row)
}

func (r *hospitalRepoPG) Update(ctx context.Context, h *Hospital) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE hospitals SET name=$2, phone=$3, email=$4, address=$5, updated_at=NOW()
		WHERE id=$1`,
		h.ID, h.Name, h.Phone, h.Email, h.Address)
	return err
}

func (r *hospitalRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM hospitals WHERE id = $1`, id)
	return err
}

func (r *hospitalRepoPG) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospitals`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+hospitalCols+` FROM hospitals ORDER BY name ASC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var hospitals []*Hospital
	for rows.Next() {
		h, err := r.scanHospital(rows)
		if err != nil {
			return nil, 0, err
		}
		hospitals = append(hospitals, h)
	}
	return hospitals, total, rows.Err()
}

func (r *hospitalRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Hospital, int, error) {
	query := `SELECT ` + hospitalCols + ` FROM hospitals WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM hospitals WHERE 1=1`
	var args []interface{}
	idx := 1

	if name, ok := params["name"]; ok && name != "" {
		clause := fmt.Sprintf(` AND name ILIKE $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, "%"+name+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var hospitals []*Hospital
	for rows.Next() {
		h, err := r.scanHospital(rows)
		if err != nil {
			return nil, 0, err
		}
		hospitals = append(hospitals, h)
	}
	return hospitals, total, rows.Err()
}

// =========== Location Repository ===========

type locationRepoPG struct{ pool *pgxpool.Pool }

func NewLocationRepoPG(pool *pgxpool.Pool) LocationRepository { return &locationRepoPG{pool: pool} }

func (r *locationRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const locationCols = `id, hospital_id, name, address, created_at, updated_at`

func (r *locationRepoPG) scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.HospitalID, &l.Name, &l.Address, &l.CreatedAt, &l.UpdatedAt)
	return &l, err
}

func (r *locationRepoPG) Create(ctx context.Context, l *Location) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO locations (id, hospital_id, name, address)
		VALUES ($1,$2,$3,$4)`,
		l.ID, l.HospitalID, l.Name, l.Address)
	return err
}

func (r *locationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+locationCols+` FROM locations WHERE id = $1`, id)
	return r.scanLocation(row)
}

func (r *locationRepoPG) Update(ctx context.Context, l *Location) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE locations SET name=$2, address=$3, updated_at=NOW() WHERE id=$1`,
		l.ID, l.Name, l.Address)
	return err
}

func (r *locationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	return err
}

func (r *locationRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Location, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM locations WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+locationCols+` FROM locations WHERE hospital_id = $1 ORDER BY name ASC LIMIT $2 OFFSET $3`,
		hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var locations []*Location
	for rows.Next() {
		l, err := r.scanLocation(rows)
		if err != nil {
			return nil, 0, err
		}
		locations = append(locations, l)
	}
	return locations, total, rows.Err()
}

// =========== Bed Repository ===========

type bedRepoPG struct{ pool *pgxpool.Pool }

func NewBedRepoPG(pool *pgxpool.Pool) BedRepository { return &bedRepoPG{pool: pool} }

func (r *bedRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const bedCols = `id, hospital_id, location_id, bed_number, bed_type, floor, ward,
	occupied, occupant_patient_id, occupant_booking_id, created_at, updated_at`

func (r *bedRepoPG) scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.HospitalID, &b.LocationID, &b.BedNumber, &b.BedType, &b.Floor, &b.Ward,
		&b.Occupied, &b.OccupantPatientID, &b.OccupantBookingID, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *bedRepoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO beds (id, hospital_id, location_id, bed_number, bed_type, floor, ward)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		b.ID, b.HospitalID, b.LocationID, b.BedNumber, b.BedType, b.Floor, b.Ward)
	return err
}

func (r *bedRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+bedCols+` FROM beds WHERE id = $1`, id)
	return r.scanBed(row)
}

func (r *bedRepoPG) GetByNumber(ctx context.Context, hospitalID uuid.UUID, number int) (*Bed, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+bedCols+` FROM beds WHERE hospital_id = $1 AND bed_number = $2
		 ORDER BY created_at ASC LIMIT 1`,
		hospitalID, number)
	return r.scanBed(row)
}

func (r *bedRepoPG) Update(ctx context.Context, b *Bed) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE beds SET location_id=$2, bed_number=$3, bed_type=$4, floor=$5, ward=$6, updated_at=NOW()
		WHERE id=$1`,
		b.ID, b.LocationID, b.BedNumber, b.BedType, b.Floor, b.Ward)
	return err
}

func (r *bedRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM beds WHERE id = $1`, id)
	return err
}

func (r *bedRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID, limit, offset int) ([]*Bed, int, error) {
	query := `SELECT ` + bedCols + ` FROM beds WHERE hospital_id = $1`
	countQuery := `SELECT COUNT(*) FROM beds WHERE hospital_id = $1`
	args := []interface{}{hospitalID}
	idx := 2

	if locationID != nil {
		clause := fmt.Sprintf(` AND location_id = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, *locationID)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY bed_number ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var beds []*Bed
	for rows.Next() {
		b, err := r.scanBed(rows)
		if err != nil {
			return nil, 0, err
		}
		beds = append(beds, b)
	}
	return beds, total, rows.Err()
}

func (r *bedRepoPG) ListAvailable(ctx context.Context, hospitalID uuid.UUID, locationID *uuid.UUID, bedType string) ([]*Bed, error) {
	query := `SELECT ` + bedCols + ` FROM beds WHERE hospital_id = $1 AND occupied = false`
	args := []interface{}{hospitalID}
	idx := 2

	if locationID != nil {
		query += fmt.Sprintf(` AND location_id = $%d`, idx)
		args = append(args, *locationID)
		idx++
	}
	if bedType != "" {
		query += fmt.Sprintf(` AND bed_type = $%d`, idx)
		args = append(args, bedType)
		idx++
	}
	query += ` ORDER BY bed_number ASC, created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beds []*Bed
	for rows.Next() {
		b, err := r.scanBed(rows)
		if err != nil {
			return nil, err
		}
		beds = append(beds, b)
	}
	return beds, rows.Err()
}

func (r *bedRepoPG) Occupy(ctx context.Context, bedID, patientID, bookingID uuid.UUID) (bool, error) {
	// The occupied=false guard makes concurrent allocations race-safe:
	// the losing writer matches zero rows and mutates nothing.
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE beds SET occupied=true, occupant_patient_id=$2, occupant_booking_id=$3, updated_at=NOW()
		WHERE id=$1 AND occupied=false`,
		bedID, patientID, bookingID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *bedRepoPG) ReleaseByBooking(ctx context.Context, hospitalID, bookingID uuid.UUID) (*Bed, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE beds SET occupied=false, occupant_patient_id=NULL, occupant_booking_id=NULL, updated_at=NOW()
		WHERE hospital_id=$1 AND occupant_booking_id=$2 AND occupied=true
		RETURNING `+bedCols,
		hospitalID, bookingID)
	return r.scanBed(row)
}
