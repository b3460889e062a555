package users

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeRow feeds scanUser the column values a pgx-backed row would produce.
// A nil value stands for SQL NULL.
type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("expected %d columns, got %d", len(r.vals), len(dest))
	}
	for i, d := range dest {
		v := r.vals[i]
		switch p := d.(type) {
		case *string:
			*p = v.(string)
		case *[]byte:
			if v == nil {
				*p = nil
			} else {
				*p = v.([]byte)
			}
		case *sql.NullString:
			if v == nil {
				*p = sql.NullString{}
			} else {
				*p = sql.NullString{String: v.(string), Valid: true}
			}
		case *time.Time:
			*p = v.(time.Time)
		default:
			return fmt.Errorf("unsupported dest %T", d)
		}
	}
	return nil
}

func userRow(serviceTypes, businessQA []byte, phone, email any) fakeRow {
	created := time.Unix(1700000000, 0).UTC()
	return fakeRow{vals: []any{
		"u1", "+15551234567", "Acme", "plumbing",
		serviceTypes, businessQA, "soon",
		phone, email,
		created, created.Add(time.Hour),
	}}
}

func TestScanUser_DecodesJSONAndContacts(t *testing.T) {
	u, err := scanUser(userRow([]byte(`["drains","boilers"]`), []byte(`{"Hours?":"24/7"}`), "+15550001111", "ops@acme.test"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if u.UserID != "u1" || u.PhoneNumber != "+15551234567" || u.BusinessName != "Acme" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if len(u.ServiceTypes) != 2 || u.ServiceTypes[1] != "boilers" {
		t.Fatalf("unexpected service types: %v", u.ServiceTypes)
	}
	if u.BusinessQA["Hours?"] != "24/7" {
		t.Fatalf("unexpected business qa: %v", u.BusinessQA)
	}
	if u.NotificationPhone == nil || *u.NotificationPhone != "+15550001111" {
		t.Fatalf("expected notification phone, got %v", u.NotificationPhone)
	}
	if u.NotificationEmail == nil || *u.NotificationEmail != "ops@acme.test" {
		t.Fatalf("expected notification email, got %v", u.NotificationEmail)
	}
	if !u.UpdatedAt.After(u.CreatedAt) {
		t.Fatalf("expected timestamps scanned, got %v / %v", u.CreatedAt, u.UpdatedAt)
	}
}

func TestScanUser_NullColumnsGetDefaults(t *testing.T) {
	u, err := scanUser(userRow(nil, nil, nil, nil))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if u.ServiceTypes == nil || len(u.ServiceTypes) != 0 {
		t.Fatalf("expected empty service types, got %#v", u.ServiceTypes)
	}
	if u.BusinessQA == nil || len(u.BusinessQA) != 0 {
		t.Fatalf("expected empty business qa, got %#v", u.BusinessQA)
	}
	if u.NotificationPhone != nil || u.NotificationEmail != nil {
		t.Fatalf("expected nil contacts, got %v / %v", u.NotificationPhone, u.NotificationEmail)
	}
}

func TestScanUser_BadJSON(t *testing.T) {
	if _, err := scanUser(userRow([]byte(`{"not":"a list"}`), nil, nil, nil)); err == nil {
		t.Fatalf("expected service_types decode error")
	}
	if _, err := scanUser(userRow(nil, []byte(`["not","a","map"]`), nil, nil)); err == nil {
		t.Fatalf("expected business_qa decode error")
	}
}

func TestScanUser_NoRowsIsNotFound(t *testing.T) {
	if _, err := scanUser(fakeRow{err: sql.ErrNoRows}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	boom := errors.New("conn reset")
	if _, err := scanUser(fakeRow{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected driver error passed through, got %v", err)
	}
}

func TestNewPostgresRepo_QuotesTable(t *testing.T) {
	cases := map[string]string{
		"":                 `"users"`,
		"leadsaveai.users": `"leadsaveai"."users"`,
		" users ":          `"users"`,
	}
	for in, want := range cases {
		if got := NewPostgresRepo(nil, in).table; got != want {
			t.Fatalf("%q: expected %s, got %s", in, want, got)
		}
	}
}
