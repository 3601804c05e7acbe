package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medagenda/clinic-scheduling/internal/faults"
)

const defaultSearchLimit = 100

const appointmentColumns = `id, patient_id, professional_id, service_id, resource_id, plan_id,
	start_time, end_time, status, payment_recorded, released_on, payment_notified,
	notes, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var resourceID, planID *uuid.UUID
	var releasedOn *time.Time
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProfessionalID,
		&a.ServiceID,
		&resourceID,
		&planID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.PaymentRecorded,
		&releasedOn,
		&a.PaymentNotified,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.ResourceID = resourceID
	a.PlanID = planID
	a.ReleasedOn = releasedOn
	a.Notes = notes
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, faults.Storef("list appointments by ids", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) Search(ctx context.Context, filter SearchFilter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)

	add := func(cond string, val any) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.PatientID != nil {
		add("patient_id = $%d", *filter.PatientID)
	}
	if filter.ProfessionalID != nil {
		add("professional_id = $%d", *filter.ProfessionalID)
	}
	if filter.ServiceID != nil {
		add("service_id = $%d", *filter.ServiceID)
	}
	if filter.From != nil {
		add("start_time >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("start_time <= $%d", *filter.To)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_time"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, faults.Storef("search appointments", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindOverlapping(ctx context.Context, q OverlapQuery) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status <> 'CANCELADO'
		  AND start_time < $1
		  AND end_time > $2
		  AND (professional_id = $3 OR patient_id = $4`
	args := []any{q.End, q.Start, q.ProfessionalID, q.PatientID}

	if q.ResourceID != nil {
		args = append(args, *q.ResourceID)
		query += fmt.Sprintf(" OR resource_id = $%d", len(args))
	}
	query += ")"

	if q.ExcludeID != nil {
		args = append(args, *q.ExcludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	query += " ORDER BY start_time"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, faults.Storef("find overlapping appointments", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) Release(ctx context.Context, id uuid.UUID, from Status, releasedOn time.Time, paymentRecorded bool) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'LIBERADO',
		    payment_recorded = $3,
		    released_on = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns+`
	`, id, from, paymentRecorded, releasedOn)

	a, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		// The row may exist in another status; the guard decides.
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return nil, ErrStatusChanged
		}
		return nil, ErrAppointmentNotFound
	}
	return a, err
}

func (r *PgRepository) MarkPaymentNotified(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET payment_notified = true,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'FINALIZADO'
		RETURNING `+appointmentColumns+`
	`, id)

	a, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return nil, ErrNotNotifiable
		}
		return nil, ErrAppointmentNotFound
	}
	return a, err
}

// FindPaymentNotifiable lists finished appointments with a recorded payment
// whose notification flag is still unset. Used by the notification sweep.
func (r *PgRepository) FindPaymentNotifiable(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM appointments
		WHERE status = 'FINALIZADO'
		  AND payment_recorded
		  AND NOT payment_notified
		ORDER BY updated_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, faults.Storef("find payment-notifiable appointments", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *PgRepository) SetPaymentRecorded(ctx context.Context, id uuid.UUID, recorded bool) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET payment_recorded = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, recorded)
	return scanAppointment(row)
}
