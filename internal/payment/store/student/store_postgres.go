// Package student maintains the denormalized payment state on student
// records: a per-payment-type status field and a flat list of payment
// references for fast history display without a second query. Writes here
// are best-effort relative to the primary payment record.
//
// Schema:
//
//	CREATE TABLE student_payment_profiles (
//	    user_id             TEXT PRIMARY KEY,
//	    registration_status TEXT,
//	    exam_status         TEXT,
//	    course_status       TEXT,
//	    late_fee_status     TEXT,
//	    payment_refs        TEXT[] NOT NULL DEFAULT '{}',
//	    updated_at          TIMESTAMPTZ NOT NULL
//	);
package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"portalpay/internal/payment/models"
	"portalpay/pkg/requestcontext"
)

// statusColumns maps payment types onto their profile columns. Column names
// come only from this map, never from input.
var statusColumns = map[models.Type]string{
	models.TypeRegistration: "registration_status",
	models.TypeExam:         "exam_status",
	models.TypeCourse:       "course_status",
	models.TypeLateFee:      "late_fee_status",
}

// PostgresStore persists student payment profiles.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ApplyPayment sets the status for the payment's type and maintains the
// reference list replace-by-txref: an existing entry for the same tx_ref is
// removed before the new one is appended, so re-verification never grows the
// list.
func (s *PostgresStore) ApplyPayment(ctx context.Context, userID string, rec *models.Record) error {
	if rec == nil {
		return fmt.Errorf("payment record is required")
	}
	column, ok := statusColumns[rec.PaymentType]
	if !ok {
		return fmt.Errorf("unknown payment type %q", rec.PaymentType)
	}

	query := fmt.Sprintf(`
		INSERT INTO student_payment_profiles (user_id, %s, payment_refs, updated_at)
		VALUES ($1, $2, ARRAY[$3], $4)
		ON CONFLICT (user_id) DO UPDATE SET
			%s           = EXCLUDED.%s,
			payment_refs = array_append(array_remove(student_payment_profiles.payment_refs, $3), $3),
			updated_at   = EXCLUDED.updated_at`,
		column, column, column)

	_, err := s.db.ExecContext(ctx, query,
		userID, string(rec.Status), rec.TxRef, requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("apply payment to student profile: %w", err)
	}
	return nil
}

// Profile is the denormalized view read back for history display.
type Profile struct {
	UserID      string
	Statuses    map[models.Type]string
	PaymentRefs []string
}

// GetProfile returns a student's payment profile, or nil when none exists.
func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, registration_status, exam_status, course_status,
		       late_fee_status, payment_refs
		FROM student_payment_profiles
		WHERE user_id = $1`,
		userID,
	)

	var (
		p       Profile
		reg     sql.NullString
		exam    sql.NullString
		course  sql.NullString
		lateFee sql.NullString
		refs    pq.StringArray
	)
	err := row.Scan(&p.UserID, &reg, &exam, &course, &lateFee, &refs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student payment profile: %w", err)
	}

	p.Statuses = make(map[models.Type]string)
	for typ, val := range map[models.Type]sql.NullString{
		models.TypeRegistration: reg,
		models.TypeExam:         exam,
		models.TypeCourse:       course,
		models.TypeLateFee:      lateFee,
	} {
		if val.Valid {
			p.Statuses[typ] = val.String
		}
	}
	p.PaymentRefs = refs
	return &p, nil
}
