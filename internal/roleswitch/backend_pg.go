package roleswitch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventreg/eventreg/internal/platform/db"
	"github.com/eventreg/eventreg/internal/roles"
)

const pgUniqueViolation = "23505"

// Request is a registrar access request awaiting a decision.
type Request struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

// PGBackend implements Backend on PostgreSQL.
type PGBackend struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPGBackend constructs a PGBackend.
func NewPGBackend(pool *pgxpool.Pool) *PGBackend {
	return &PGBackend{pool: pool, now: time.Now}
}

// RequestRegistrarAccess records a pending request. A request that is
// already pending is accepted silently.
func (b *PGBackend) RequestRegistrarAccess(ctx context.Context, principalID string) error {
	return db.WithTx(ctx, b.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET requested_switch = TRUE, updated_at = $2
WHERE id = $1 AND role = $3 AND NOT can_switch_roles`, principalID, b.now().UTC(), string(roles.Worker))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotEligible
		}
		err = db.WithSavepoint(ctx, tx, func(sp pgx.Tx) error {
			_, err := sp.Exec(ctx, `INSERT INTO role_switch_requests (id, user_id, status, created_at)
VALUES ($1, $2, 'pending', $3)`, uuid.NewString(), principalID, b.now().UTC())
			return err
		})
		if isUniqueViolation(err) {
			return nil
		}
		return err
	})
}

// SwitchRole stores target as the active role if switching is granted.
func (b *PGBackend) SwitchRole(ctx context.Context, principalID string, target roles.Role) (roles.Role, error) {
	const query = `UPDATE users SET active_role = $2, updated_at = $3
WHERE id = $1 AND can_switch_roles AND $2 IN ($4, $5)
RETURNING active_role`
	var active string
	err := b.pool.QueryRow(ctx, query, principalID, string(target), b.now().UTC(), string(roles.Worker), string(roles.Registrar)).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidTransition
		}
		return "", err
	}
	return roles.Role(active), nil
}

// Approve grants switching and closes the pending request.
func (b *PGBackend) Approve(ctx context.Context, adminID, principalID string) error {
	return db.WithTx(ctx, b.pool, func(tx pgx.Tx) error {
		if err := b.closeRequest(ctx, tx, adminID, principalID, "approved", ""); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE users SET can_switch_roles = TRUE, requested_switch = FALSE, updated_at = $2
WHERE id = $1`, principalID, b.now().UTC())
		return err
	})
}

// Reject closes the pending request without granting anything.
func (b *PGBackend) Reject(ctx context.Context, adminID, principalID, reason string) error {
	return db.WithTx(ctx, b.pool, func(tx pgx.Tx) error {
		if err := b.closeRequest(ctx, tx, adminID, principalID, "rejected", reason); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE users SET requested_switch = FALSE, updated_at = $2 WHERE id = $1`, principalID, b.now().UTC())
		return err
	})
}

// Revoke withdraws the grant and resets the active role to the primary one.
func (b *PGBackend) Revoke(ctx context.Context, adminID, principalID string) error {
	tag, err := b.pool.Exec(ctx, `UPDATE users SET can_switch_roles = FALSE, active_role = role, updated_at = $2
WHERE id = $1 AND can_switch_roles`, principalID, b.now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// ListPending returns open requests oldest first.
func (b *PGBackend) ListPending(ctx context.Context) ([]Request, error) {
	rows, err := b.pool.Query(ctx, `SELECT r.id, r.user_id, u.name, u.email, r.created_at
FROM role_switch_requests r JOIN users u ON u.id = r.user_id
WHERE r.status = 'pending' ORDER BY r.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Request
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.ID, &r.PrincipalID, &r.Name, &r.Email, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *PGBackend) closeRequest(ctx context.Context, tx pgx.Tx, adminID, principalID, status, reason string) error {
	tag, err := tx.Exec(ctx, `UPDATE role_switch_requests
SET status = $3, reason = NULLIF($4, ''), decided_by = $2, decided_at = $5
WHERE user_id = $1 AND status = 'pending'`, principalID, adminID, status, reason, b.now().UTC())
	if err != nil {
		return fmt.Errorf("close request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var _ Backend = (*PGBackend)(nil)
