package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/medagenda/clinic-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 4)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	patients, err := seedPatients(context.Background(), pool, 500)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	professionals, err := seedProfessionals(context.Background(), pool, 25)
	if err != nil {
		log.Fatalf("seed professionals: %v", err)
	}
	services, err := seedServices(context.Background(), pool)
	if err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedCategories(context.Background(), pool); err != nil {
		log.Fatalf("seed categories: %v", err)
	}
	if err := seedAppointmentSeries(context.Background(), pool, patients, professionals, services); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 100
	ids := make([]uuid.UUID, 0, count)

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
	}

	log.Println("patients seeded")
	return ids, nil
}

func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d professionals", count)

	specialties := []string{
		"Fisioterapia",
		"Psicologia",
		"Fonoaudiologia",
		"Nutrição",
		"Terapia Ocupacional",
		"Clínica Geral",
		"Pediatria",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO professionals (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("professionals seeded")
	return ids, nil
}

func seedServices(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	services := []struct {
		name  string
		price string
	}{
		{"Consulta particular", "180.00"},
		{"Sessão de fisioterapia", "100.00"},
		{"Sessão de psicoterapia", "150.00"},
		{"Avaliação inicial", "220.00"},
		{"Retorno", "90.00"},
	}

	log.Printf("seeding %d services with prices", len(services))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, len(services))
	for _, svc := range services {
		id := uuid.New()

		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, name, created_at, updated_at)
			VALUES ($1, $2, now(), now())
		`, id, svc.name)
		if err != nil {
			return nil, err
		}

		price, err := decimal.NewFromString(svc.price)
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO service_prices (service_id, unit_price)
			VALUES ($1, $2)
		`, id, price)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("services seeded")
	return ids, nil
}

func seedCategories(ctx context.Context, pool *pgxpool.Pool) error {
	categories := []struct {
		catType string
		code    string
		name    string
	}{
		{"RECEITA", "PART", "Atendimento particular"},
		{"RECEITA", "CONV", "Convênios"},
		{"DESPESA", "REPASSE", "Repasse a profissionais"},
		{"DESPESA", "ADM", "Despesas administrativas"},
	}

	log.Printf("seeding %d ledger categories", len(categories))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, c := range categories {
		_, err := tx.Exec(ctx, `
			INSERT INTO ledger_categories (id, type, code, name, active)
			VALUES ($1, $2, $3, $4, true)
		`, uuid.New(), c.catType, c.code, c.name)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedAppointmentSeries creates weekly recurring series: one per patient
// sampled, four weeks ahead, all AGENDADO.
func seedAppointmentSeries(ctx context.Context, pool *pgxpool.Pool, patients, professionals, services []uuid.UUID) error {
	const seriesCount = 200

	log.Printf("seeding %d weekly appointment series", seriesCount)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < seriesCount; i++ {
		patient := patients[gofakeit.Number(0, len(patients)-1)]
		professional := professionals[gofakeit.Number(0, len(professionals)-1)]
		service := services[gofakeit.Number(0, len(services)-1)]

		hour := gofakeit.Number(8, 17)
		first := time.Now().AddDate(0, 0, gofakeit.Number(1, 7))
		first = time.Date(first.Year(), first.Month(), first.Day(), hour, 0, 0, 0, time.Local)

		for week := 0; week < 4; week++ {
			start := first.AddDate(0, 0, 7*week)
			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (
					id, patient_id, professional_id, service_id,
					start_time, end_time, status,
					payment_recorded, payment_notified,
					created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, 'AGENDADO', false, false, now(), now())
			`, uuid.New(), patient, professional, service, start, start.Add(50*time.Minute))
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("appointments seeded")
	return nil
}
