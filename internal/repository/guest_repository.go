package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stayserve/hotel-orders/internal/domain"
)

type GuestRepository interface {
	// FindOrCreateByEmail upserts the guest record, refreshing the stored
	// name on repeat logins. The bool reports whether a new row was created.
	FindOrCreateByEmail(ctx context.Context, email, name string) (*domain.Guest, bool, error)
	FindByID(ctx context.Context, id int64) (*domain.Guest, error)
	// HasOrderedAtHotel reports whether the guest has at least one order at
	// the hotel; guest hotel access is earned, never granted.
	HasOrderedAtHotel(ctx context.Context, guestID, hotelID int64) (bool, error)
}

type guestRepository struct {
	pool *pgxpool.Pool
}

func NewGuestRepository(pool *pgxpool.Pool) GuestRepository {
	return &guestRepository{pool: pool}
}

const guestCols = `id, name, email, created_at, updated_at`

func (r *guestRepository) FindOrCreateByEmail(ctx context.Context, email, name string) (*domain.Guest, bool, error) {
	// xmax = 0 only holds for freshly inserted rows
	const q = `
		INSERT INTO guests (email, name)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, updated_at = now()
		RETURNING ` + guestCols + `, (xmax = 0)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		g       domain.Guest
		created bool
	)
	err := r.pool.QueryRow(ctx, q, email, name).Scan(
		&g.ID, &g.Name, &g.Email, &g.CreatedAt, &g.UpdatedAt, &created,
	)
	if err != nil {
		return nil, false, err
	}
	return &g, created, nil
}

func (r *guestRepository) FindByID(ctx context.Context, id int64) (*domain.Guest, error) {
	const q = `SELECT ` + guestCols + ` FROM guests WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var g domain.Guest
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&g.ID, &g.Name, &g.Email, &g.CreatedAt, &g.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *guestRepository) HasOrderedAtHotel(ctx context.Context, guestID, hotelID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM orders WHERE guest_id = $1 AND hotel_id = $2)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var ok bool
	err := r.pool.QueryRow(ctx, q, guestID, hotelID).Scan(&ok)
	return ok, err
}
