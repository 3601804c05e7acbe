package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medagenda/clinic-scheduling/internal/faults"
)

const uniqueViolation = "23505"

const receivableColumns = `id, patient_id, professional_id, insurer_id, bank_account_id,
	category_id, document_number, description,
	original_amount, discount, interest, penalty, net_amount, settled_amount,
	status, issued_on, due_on, settled_on, method, notes,
	created_by, created_at, updated_at`

// The pg stores all share one pgx pool; each implements one of the store
// interfaces in repository.go.

type PgReceivableStore struct {
	pool *pgxpool.Pool
}

func NewPgReceivableStore(pool *pgxpool.Pool) *PgReceivableStore {
	return &PgReceivableStore{pool: pool}
}

type PgLinkStore struct {
	pool *pgxpool.Pool
}

func NewPgLinkStore(pool *pgxpool.Pool) *PgLinkStore {
	return &PgLinkStore{pool: pool}
}

type PgCategoryStore struct {
	pool *pgxpool.Pool
}

func NewPgCategoryStore(pool *pgxpool.Pool) *PgCategoryStore {
	return &PgCategoryStore{pool: pool}
}

type PgPriceStore struct {
	pool *pgxpool.Pool
}

func NewPgPriceStore(pool *pgxpool.Pool) *PgPriceStore {
	return &PgPriceStore{pool: pool}
}

func scanReceivable(row pgx.Row) (*Receivable, error) {
	var r Receivable
	var method *SettlementMethod
	var settledOn *time.Time

	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.ProfessionalID,
		&r.InsurerID,
		&r.BankAccountID,
		&r.CategoryID,
		&r.DocumentNumber,
		&r.Description,
		&r.OriginalAmount,
		&r.Discount,
		&r.Interest,
		&r.Penalty,
		&r.NetAmount,
		&r.SettledAmount,
		&r.Status,
		&r.IssuedOn,
		&r.DueOn,
		&settledOn,
		&method,
		&r.Notes,
		&r.CreatedBy,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceivableNotFound
		}
		return nil, err
	}

	r.SettledOn = settledOn
	r.Method = method
	return &r, nil
}

func (p *PgReceivableStore) Create(ctx context.Context, rec *Receivable) (*Receivable, error) {
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO receivables (
			id, patient_id, professional_id, insurer_id, bank_account_id,
			category_id, document_number, description,
			original_amount, discount, interest, penalty, net_amount, settled_amount,
			status, issued_on, due_on, settled_on, method, notes,
			created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, now(), now())
		RETURNING `+receivableColumns+`
	`,
		id, rec.PatientID, rec.ProfessionalID, rec.InsurerID, rec.BankAccountID,
		rec.CategoryID, rec.DocumentNumber, rec.Description,
		rec.OriginalAmount, rec.Discount, rec.Interest, rec.Penalty, rec.NetAmount, rec.SettledAmount,
		rec.Status, rec.IssuedOn, rec.DueOn, rec.SettledOn, rec.Method, rec.Notes,
		rec.CreatedBy,
	)

	created, err := scanReceivable(row)
	if err != nil {
		return nil, faults.Storef("create receivable", err)
	}
	return created, nil
}

func (p *PgReceivableStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM receivables WHERE id = $1`, id)
	if err != nil {
		return faults.Storef("delete receivable", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReceivableNotFound
	}
	return nil
}

func scanLink(row pgx.Row) (*LedgerLink, error) {
	var l LedgerLink

	err := row.Scan(
		&l.ID,
		&l.AppointmentID,
		&l.ReceivableID,
		&l.PayableID,
		&l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	return &l, nil
}

func (p *PgLinkStore) Create(ctx context.Context, link *LedgerLink) (*LedgerLink, error) {
	id := link.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO ledger_links (id, appointment_id, receivable_id, payable_id, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, appointment_id, receivable_id, payable_id, created_at
	`, id, link.AppointmentID, link.ReceivableID, link.PayableID)

	created, err := scanLink(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyLinked
		}
		return nil, faults.Storef("create ledger link", err)
	}
	return created, nil
}

func (p *PgLinkStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM ledger_links WHERE id = $1`, id)
	if err != nil {
		return faults.Storef("delete ledger link", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (p *PgLinkStore) FindByAppointmentAndSide(ctx context.Context, appointmentID uuid.UUID, side LedgerSide) (*LedgerLink, error) {
	sideColumn := "receivable_id"
	if side == SidePayable {
		sideColumn = "payable_id"
	}

	row := p.pool.QueryRow(ctx, `
		SELECT id, appointment_id, receivable_id, payable_id, created_at
		FROM ledger_links
		WHERE appointment_id = $1
		  AND `+sideColumn+` IS NOT NULL
	`, appointmentID)
	return scanLink(row)
}

func (p *PgCategoryStore) ListActiveByType(ctx context.Context, categoryType CategoryType) ([]Category, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, type, code, name, active
		FROM ledger_categories
		WHERE type = $1
		  AND active
		ORDER BY name
	`, categoryType)
	if err != nil {
		return nil, faults.Storef("list ledger categories", err)
	}
	defer rows.Close()

	var result []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Type, &c.Code, &c.Name, &c.Active); err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (p *PgPriceStore) GetByServiceID(ctx context.Context, serviceID uuid.UUID) (*PriceEntry, error) {
	var e PriceEntry

	err := p.pool.QueryRow(ctx, `
		SELECT service_id, unit_price
		FROM service_prices
		WHERE service_id = $1
	`, serviceID).Scan(&e.ServiceID, &e.UnitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPriceNotFound
		}
		return nil, faults.Storef("get service price", err)
	}

	return &e, nil
}
