package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Hospital Repository ===========

type hospitalRepoPG struct{ pool *pgxpool.Pool }

func NewHospitalRepoPG(pool *pgxpool.Pool) HospitalRepository { return &hospitalRepoPG{pool: pool} }

func (r *hospitalRepoPG) Create(ctx context.Context, h *Hospital) error {
	h.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO hospitals (id, name, address, phone) VALUES ($1, $2, $3, $4)`,
		h.ID, h.Name, h.Address, h.Phone)
	return err
}

func (r *hospitalRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	var h Hospital
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, address, phone, created_at, updated_at FROM hospitals WHERE id = $1`, id).
		Scan(&h.ID, &h.Name, &h.Address, &h.Phone, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *hospitalRepoPG) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM hospitals`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, name, address, phone, created_at, updated_at
		FROM hospitals ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Hospital
	for rows.Next() {
		var h Hospital
		if err := rows.Scan(&h.ID, &h.Name, &h.Address, &h.Phone, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &h)
	}
	return out, total, rows.Err()
}

// =========== Department Repository ===========

type departmentRepoPG struct{ pool *pgxpool.Pool }

func NewDepartmentRepoPG(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepoPG{pool: pool}
}

func (r *departmentRepoPG) Create(ctx context.Context, d *Department) error {
	d.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO departments (id, hospital_id, name) VALUES ($1, $2, $3)`,
		d.ID, d.HospitalID, d.Name)
	return err
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	var d Department
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, hospital_id, name, created_at FROM departments WHERE id = $1`, id).
		Scan(&d.ID, &d.HospitalID, &d.Name, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *departmentRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Department, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, hospital_id, name, created_at FROM departments
		WHERE hospital_id = $1 ORDER BY name`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.HospitalID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO doctors (id, hospital_id, department_id, name, specialty)
		VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.HospitalID, d.DepartmentID, d.Name, d.Specialty)
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, hospital_id, department_id, name, specialty, created_at
		FROM doctors WHERE id = $1`, id).
		Scan(&d.ID, &d.HospitalID, &d.DepartmentID, &d.Name, &d.Specialty, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Doctor, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM doctors WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, hospital_id, department_id, name, specialty, created_at
		FROM doctors WHERE hospital_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.HospitalID, &d.DepartmentID, &d.Name, &d.Specialty, &d.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &d)
	}
	return out, total, rows.Err()
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patients (id, hospital_id, name, phone, gender, birth_date)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.HospitalID, p.Name, p.Phone, p.Gender, p.BirthDate)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, hospital_id, name, phone, gender, birth_date, created_at, updated_at
		FROM patients WHERE id = $1`, id).
		Scan(&p.ID, &p.HospitalID, &p.Name, &p.Phone, &p.Gender, &p.BirthDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE patients SET name=$2, phone=$3, gender=$4, birth_date=$5, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Phone, p.Gender, p.BirthDate)
	return err
}

func (r *patientRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, hospital_id, name, phone, gender, birth_date, created_at, updated_at
		FROM patients WHERE hospital_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.HospitalID, &p.Name, &p.Phone, &p.Gender, &p.BirthDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &p)
	}
	return out, total, rows.Err()
}

// =========== Insurer Repository ===========

type insurerRepoPG struct{ pool *pgxpool.Pool }

func NewInsurerRepoPG(pool *pgxpool.Pool) InsurerRepository { return &insurerRepoPG{pool: pool} }

func (r *insurerRepoPG) Create(ctx context.Context, i *Insurer) error {
	i.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO insurers (id, name, code) VALUES ($1, $2, $3)`, i.ID, i.Name, i.Code)
	return err
}

func (r *insurerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Insurer, error) {
	var i Insurer
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, code, created_at FROM insurers WHERE id = $1`, id).
		Scan(&i.ID, &i.Name, &i.Code, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *insurerRepoPG) List(ctx context.Context) ([]*Insurer, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, name, code, created_at FROM insurers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Insurer
	for rows.Next() {
		var i Insurer
		if err := rows.Scan(&i.ID, &i.Name, &i.Code, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &i)
	}
	return out, rows.Err()
}

// =========== Rate Card Repository ===========

type rateCardRepoPG struct{ pool *pgxpool.Pool }

func NewRateCardRepoPG(pool *pgxpool.Pool) RateCardRepository { return &rateCardRepoPG{pool: pool} }

const rateCardCols = `id, hospital_id, scope, insurer_id, category, department_id, rate, created_at, updated_at`

func scanRateCard(row pgx.Row) (*RateCard, error) {
	var rc RateCard
	err := row.Scan(&rc.ID, &rc.HospitalID, &rc.Scope, &rc.InsurerID, &rc.Category,
		&rc.DepartmentID, &rc.Rate, &rc.CreatedAt, &rc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *rateCardRepoPG) Create(ctx context.Context, rc *RateCard) error {
	rc.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO rate_cards (id, hospital_id, scope, insurer_id, category, department_id, rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rc.ID, rc.HospitalID, rc.Scope, rc.InsurerID, rc.Category, rc.DepartmentID, rc.Rate)
	return err
}

func (r *rateCardRepoPG) Update(ctx context.Context, rc *RateCard) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE rate_cards SET rate=$2, updated_at=NOW() WHERE id = $1`, rc.ID, rc.Rate)
	return err
}

func (r *rateCardRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM rate_cards WHERE id = $1`, id)
	return err
}

func (r *rateCardRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RateCard, error) {
	return scanRateCard(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+rateCardCols+` FROM rate_cards WHERE id = $1`, id))
}

func (r *rateCardRepoPG) listRateCards(ctx context.Context, sql string, args ...interface{}) ([]*RateCard, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RateCard
	for rows.Next() {
		rc, err := scanRateCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *rateCardRepoPG) ListByCategory(ctx context.Context, hospitalID uuid.UUID, category string) ([]*RateCard, error) {
	return r.listRateCards(ctx, `
		SELECT `+rateCardCols+` FROM rate_cards
		WHERE hospital_id = $1 AND category = $2`, hospitalID, category)
}

func (r *rateCardRepoPG) ListAllByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*RateCard, error) {
	return r.listRateCards(ctx, `
		SELECT `+rateCardCols+` FROM rate_cards WHERE hospital_id = $1`, hospitalID)
}

func (r *rateCardRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*RateCard, int, error) {
	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM rate_cards WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}

	cards, err := r.listRateCards(ctx, `
		SELECT `+rateCardCols+` FROM rate_cards
		WHERE hospital_id = $1 ORDER BY category, scope LIMIT $2 OFFSET $3`,
		hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// =========== Room Repository ===========

type roomRepoPG struct{ pool *pgxpool.Pool }

func NewRoomRepoPG(pool *pgxpool.Pool) RoomRepository { return &roomRepoPG{pool: pool} }

func (r *roomRepoPG) CreateRoom(ctx context.Context, room *Room) error {
	room.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO rooms (id, hospital_id, name) VALUES ($1, $2, $3)`,
		room.ID, room.HospitalID, room.Name)
	return err
}

func (r *roomRepoPG) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	var room Room
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, hospital_id, name, created_at FROM rooms WHERE id = $1`, id).
		Scan(&room.ID, &room.HospitalID, &room.Name, &room.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepoPG) ListRooms(ctx context.Context, hospitalID uuid.UUID) ([]*Room, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, hospital_id, name, created_at FROM rooms
		WHERE hospital_id = $1 ORDER BY name`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.HospitalID, &room.Name, &room.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &room)
	}
	return out, rows.Err()
}

func (r *roomRepoPG) CreateBed(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO beds (id, room_id, number, daily_rate, occupied)
		VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.RoomID, b.Number, b.DailyRate, b.Occupied)
	return err
}

func (r *roomRepoPG) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	var b Bed
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT b.id, b.room_id, b.number, b.daily_rate, b.occupied, b.created_at, r.name
		FROM beds b JOIN rooms r ON r.id = b.room_id
		WHERE b.id = $1`, id).
		Scan(&b.ID, &b.RoomID, &b.Number, &b.DailyRate, &b.Occupied, &b.CreatedAt, &b.RoomName)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *roomRepoPG) ListBeds(ctx context.Context, roomID uuid.UUID) ([]*Bed, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT b.id, b.room_id, b.number, b.daily_rate, b.occupied, b.created_at, r.name
		FROM beds b JOIN rooms r ON r.id = b.room_id
		WHERE b.room_id = $1 ORDER BY b.number`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Bed
	for rows.Next() {
		var b Bed
		if err := rows.Scan(&b.ID, &b.RoomID, &b.Number, &b.DailyRate, &b.Occupied, &b.CreatedAt, &b.RoomName); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (r *roomRepoPG) SetBedOccupied(ctx context.Context, id uuid.UUID, occupied bool) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `UPDATE beds SET occupied = $2 WHERE id = $1`, id, occupied)
	return err
}
