package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/pkg/psqlbuilder"
)

const table = "appointment_snapshots"

var columns = []string{
	"session_id",
	"appointment_id",
	"status",
	"scheduled_at",
	"end_at",
	"estimated_cost",
	"client_id",
	"professional_id",
	"payment_ref",
	"conversation_ref",
	"paid_at",
	"mode",
	"synthetic",
	"created_at",
	"updated_at",
}

var schema = map[string]string{
	psqlbuilder.DriverPostgres: `CREATE TABLE IF NOT EXISTS appointment_snapshots (
	session_id       TEXT        NOT NULL,
	appointment_id   TEXT        NOT NULL,
	status           TEXT        NOT NULL,
	scheduled_at     TIMESTAMPTZ NOT NULL,
	end_at           TIMESTAMPTZ NOT NULL,
	estimated_cost   NUMERIC(12, 2),
	client_id        TEXT        NOT NULL,
	professional_id  TEXT        NOT NULL,
	payment_ref      TEXT,
	conversation_ref TEXT,
	paid_at          TIMESTAMPTZ,
	mode             TEXT        NOT NULL,
	synthetic        BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, appointment_id)
)`,
	psqlbuilder.DriverSQLite: `CREATE TABLE IF NOT EXISTS appointment_snapshots (
	session_id       TEXT      NOT NULL,
	appointment_id   TEXT      NOT NULL,
	status           TEXT      NOT NULL,
	scheduled_at     TIMESTAMP NOT NULL,
	end_at           TIMESTAMP NOT NULL,
	estimated_cost   TEXT,
	client_id        TEXT      NOT NULL,
	professional_id  TEXT      NOT NULL,
	payment_ref      TEXT,
	conversation_ref TEXT,
	paid_at          TIMESTAMP,
	mode             TEXT      NOT NULL,
	synthetic        BOOLEAN   NOT NULL DEFAULT 0,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, appointment_id)
)`,
}

// Snapshot последнее известное сессии состояние записи
type Snapshot struct {
	Appointment *domain.Appointment
	Mode        domain.DataSourceMode
	// Synthetic запись сгенерирована демо-режимом целиком
	Synthetic bool
	// PaidAt момент оплаты, если он известен локально (демо-режим или колбэк оплаты)
	PaidAt *time.Time
}

// Repository репозиторий снимков записей в PostgreSQL или SQLite
type Repository struct {
	db     DBExecutor
	driver string
	sb     squirrel.StatementBuilderType
}

// NewRepository создает новый экземпляр репозитория снимков
func NewRepository(db DBExecutor, driver string) *Repository {
	return &Repository{
		db:     db,
		driver: driver,
		sb:     psqlbuilder.ForDriver(driver),
	}
}

// Migrate создает таблицу снимков, если её нет
func (r *Repository) Migrate(ctx context.Context) error {
	ddl, ok := schema[r.driver]
	if !ok {
		return fmt.Errorf("%w: Migrate - unsupported driver %q", ErrBuildQuery, r.driver)
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: Migrate - create table: %v", ErrExecQuery, err)
	}
	return nil
}

// Get получает снимок записи в рамках сессии
func (r *Repository) Get(ctx context.Context, sessionID, appointmentID string) (*Snapshot, error) {
	query, args, err := r.sb.Select(columns...).
		From(table).
		Where(squirrel.Eq{"session_id": sessionID, "appointment_id": appointmentID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Get - build select query: %v", ErrBuildQuery, err)
	}

	var (
		snap                              Snapshot
		appt                              domain.Appointment
		storedSession, status, mode       string
		cost, paymentRef, conversationRef sql.NullString
		paidAt                            sql.NullTime
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&storedSession,
		&appt.ID,
		&status,
		&appt.ScheduledAt,
		&appt.EndAt,
		&cost,
		&appt.ClientID,
		&appt.ProfessionalID,
		&paymentRef,
		&conversationRef,
		&paidAt,
		&mode,
		&snap.Synthetic,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Get - scan snapshot: %v", ErrScanRow, err)
	}

	appt.Status, err = domain.ParseBackendStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: Get - stored status: %v", ErrScanRow, err)
	}
	if cost.Valid {
		d, err := decimal.NewFromString(cost.String)
		if err != nil {
			return nil, fmt.Errorf("%w: Get - stored cost: %v", ErrScanRow, err)
		}
		appt.EstimatedCost = decimal.NewNullDecimal(d)
	}
	if paymentRef.Valid {
		appt.PaymentRef = &paymentRef.String
	}
	if conversationRef.Valid {
		appt.ConversationRef = &conversationRef.String
	}
	if paidAt.Valid {
		t := paidAt.Time
		snap.PaidAt = &t
	}

	snap.Appointment = &appt
	snap.Mode = domain.DataSourceMode(mode)
	return &snap, nil
}

// Save сохраняет снимок записи (insert или update)
func (r *Repository) Save(ctx context.Context, sessionID string, snap *Snapshot) error {
	appt := snap.Appointment

	var cost interface{}
	if appt.EstimatedCost.Valid {
		cost = appt.EstimatedCost.Decimal.String()
	}

	query, args, err := r.sb.Insert(table).
		Columns(columns...).
		Values(
			sessionID,
			appt.ID,
			string(appt.Status),
			appt.ScheduledAt,
			appt.EndAt,
			cost,
			appt.ClientID,
			appt.ProfessionalID,
			nullableString(appt.PaymentRef),
			nullableString(appt.ConversationRef),
			nullableTime(snap.PaidAt),
			string(snap.Mode),
			snap.Synthetic,
			appt.CreatedAt,
			appt.UpdatedAt,
		).
		Suffix(`ON CONFLICT (session_id, appointment_id) DO UPDATE SET
			status = EXCLUDED.status,
			scheduled_at = EXCLUDED.scheduled_at,
			end_at = EXCLUDED.end_at,
			estimated_cost = EXCLUDED.estimated_cost,
			client_id = EXCLUDED.client_id,
			professional_id = EXCLUDED.professional_id,
			payment_ref = EXCLUDED.payment_ref,
			conversation_ref = EXCLUDED.conversation_ref,
			paid_at = EXCLUDED.paid_at,
			mode = EXCLUDED.mode,
			synthetic = EXCLUDED.synthetic,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Save - build upsert query: %v", ErrBuildQuery, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Save - execute upsert: %v", ErrExecQuery, err)
	}
	return nil
}

// Delete удаляет снимок записи (представление закрыто)
func (r *Repository) Delete(ctx context.Context, sessionID, appointmentID string) error {
	query, args, err := r.sb.Delete(table).
		Where(squirrel.Eq{"session_id": sessionID, "appointment_id": appointmentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Delete - build delete query: %v", ErrBuildQuery, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Delete - execute delete: %v", ErrExecQuery, err)
	}
	return nil
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
