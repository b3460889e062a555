package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// NOTE: This repository assumes the following table exists. The name is
// configurable (DB_USERS_TABLE) and may be schema-qualified; the production
// database keeps it as leadsaveai.users.
//
//	users (
//	  user_id             TEXT PRIMARY KEY,
//	  twilio_phone_number TEXT UNIQUE,
//	  business_name       TEXT,
//	  industry            TEXT,
//	  service_types       JSONB NOT NULL DEFAULT '[]',
//	  business_qa         JSONB NOT NULL DEFAULT '{}',
//	  callback_window     TEXT NOT NULL DEFAULT 'soon',
//	  notification_phone  TEXT NULL,
//	  notification_email  TEXT NULL,
//	  created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	  updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	)
//
// Queries go through database/sql with the pgx stdlib driver registered by main.

const userColumns = `user_id, COALESCE(twilio_phone_number, ''), COALESCE(business_name, ''), COALESCE(industry, ''),
service_types, business_qa, callback_window, notification_phone, notification_email, created_at, updated_at`

// DefaultUsersTable is used when no table name is configured.
const DefaultUsersTable = "users"

// PostgresRepo persists user configuration in Postgres.
type PostgresRepo struct {
	db    *sql.DB
	table string
}

// NewPostgresRepo binds the repository to table, which may be "schema.table".
// Each part is quoted as an identifier.
func NewPostgresRepo(db *sql.DB, table string) *PostgresRepo {
	return &PostgresRepo{db: db, table: quoteTable(table)}
}

func quoteTable(table string) string {
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultUsersTable
	}
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u            User
		serviceTypes []byte
		businessQA   []byte
		notifPhone   sql.NullString
		notifEmail   sql.NullString
	)
	if err := row.Scan(
		&u.UserID,
		&u.PhoneNumber,
		&u.BusinessName,
		&u.Industry,
		&serviceTypes,
		&businessQA,
		&u.CallbackWindow,
		&notifPhone,
		&notifEmail,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	u.ServiceTypes = []string{}
	if len(serviceTypes) > 0 {
		if err := json.Unmarshal(serviceTypes, &u.ServiceTypes); err != nil {
			return User{}, fmt.Errorf("users: decode service_types for %s: %w", u.UserID, err)
		}
	}
	u.BusinessQA = map[string]string{}
	if len(businessQA) > 0 {
		if err := json.Unmarshal(businessQA, &u.BusinessQA); err != nil {
			return User{}, fmt.Errorf("users: decode business_qa for %s: %w", u.UserID, err)
		}
	}
	if notifPhone.Valid {
		u.NotificationPhone = &notifPhone.String
	}
	if notifEmail.Valid {
		u.NotificationEmail = &notifEmail.String
	}
	return u, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]User, error) {
	q := `SELECT ` + userColumns + `
FROM ` + r.table + `
WHERE twilio_phone_number IS NOT NULL
ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, userID string) (User, error) {
	q := `SELECT ` + userColumns + `
FROM ` + r.table + `
WHERE user_id = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, userID))
}

func (r *PostgresRepo) GetByPhoneNumber(ctx context.Context, phone string) (User, error) {
	q := `SELECT ` + userColumns + `
FROM ` + r.table + `
WHERE twilio_phone_number = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, phone))
}

func (r *PostgresRepo) Update(ctx context.Context, userID string, f Fields, now time.Time) (User, error) {
	serviceTypes, err := json.Marshal(f.ServiceTypes)
	if err != nil {
		return User{}, err
	}
	businessQA, err := json.Marshal(f.BusinessQA)
	if err != nil {
		return User{}, err
	}

	q := `UPDATE ` + r.table + `
SET
  business_name = $2,
  industry = $3,
  service_types = $4,
  business_qa = $5,
  callback_window = $6,
  notification_phone = $7,
  notification_email = $8,
  updated_at = $9
WHERE user_id = $1
RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, q,
		userID,
		f.BusinessName,
		f.Industry,
		string(serviceTypes),
		string(businessQA),
		f.CallbackWindow,
		f.NotificationPhone,
		f.NotificationEmail,
		now,
	))
}
