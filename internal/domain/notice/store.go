package notice

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgContactResolver looks guardians up in the learner_guardians collection
// the registry also purges.
type PgContactResolver struct {
	DB *pgxpool.Pool
}

func NewPgContactResolver(db *pgxpool.Pool) *PgContactResolver {
	return &PgContactResolver{DB: db}
}

func (r *PgContactResolver) GuardianContact(ctx context.Context, tenantID, subjectID string) (Contact, error) {
	var contact Contact
	err := r.DB.QueryRow(ctx, `
    SELECT guardian_name, guardian_email
    FROM learner_guardians
    WHERE tenant_id = $1 AND learner_user_id = $2
    ORDER BY created_at DESC
    LIMIT 1
  `, tenantID, subjectID).Scan(&contact.Name, &contact.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNoContact
	}
	if err != nil {
		return Contact{}, err
	}
	return contact, nil
}
