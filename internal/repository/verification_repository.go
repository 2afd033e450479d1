package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stayserve/hotel-orders/internal/domain"
)

type VerificationRepository interface {
	Create(ctx context.Context, adminID int64, passcode string, expiresAt time.Time) (*domain.AdminVerification, error)
	// ConsumeLatestValid flips used=false to true on the newest matching
	// unexpired record. The update is conditional on used=false, so of two
	// concurrent racers only one observes a consumed row.
	ConsumeLatestValid(ctx context.Context, adminID int64, passcode string) (bool, error)
	// DeleteStaleUsed removes used records older than the retention window.
	DeleteStaleUsed(ctx context.Context, adminID int64, olderThan time.Duration) (int64, error)
}

type verificationRepository struct {
	pool *pgxpool.Pool
}

func NewVerificationRepository(pool *pgxpool.Pool) VerificationRepository {
	return &verificationRepository{pool: pool}
}

const verificationCols = `id, admin_id, passcode, expires_at, used, created_at`

func (r *verificationRepository) Create(ctx context.Context, adminID int64, passcode string, expiresAt time.Time) (*domain.AdminVerification, error) {
	const q = `
		INSERT INTO admin_verifications (admin_id, passcode, expires_at, used)
		VALUES ($1, $2, $3, false)
		RETURNING ` + verificationCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var v domain.AdminVerification
	err := r.pool.QueryRow(ctx, q, adminID, passcode, expiresAt).Scan(
		&v.ID, &v.AdminID, &v.Passcode, &v.ExpiresAt, &v.Used, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *verificationRepository) ConsumeLatestValid(ctx context.Context, adminID int64, passcode string) (bool, error) {
	// Single conditional UPDATE: the inner select picks the newest live
	// record, the outer used=false guard makes the transition atomic per
	// row even without a wrapping transaction.
	const q = `
		UPDATE admin_verifications
		SET used = true
		WHERE id = (
			SELECT id FROM admin_verifications
			WHERE admin_id = $1
			  AND passcode = $2
			  AND used = false
			  AND expires_at > now()
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
		  AND used = false
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id int64
	err := r.pool.QueryRow(ctx, q, adminID, passcode).Scan(&id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *verificationRepository) DeleteStaleUsed(ctx context.Context, adminID int64, olderThan time.Duration) (int64, error) {
	const q = `
		DELETE FROM admin_verifications
		WHERE admin_id = $1
		  AND used = true
		  AND created_at < now() - make_interval(secs => $2)`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, adminID, olderThan.Seconds())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
