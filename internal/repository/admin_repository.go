package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stayserve/hotel-orders/internal/domain"
)

type AdminRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Admin, error)
	FindByID(ctx context.Context, id int64) (*domain.Admin, error)
	BelongsToHotel(ctx context.Context, adminID, hotelID int64) (bool, error)
}

type adminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &adminRepository{pool: pool}
}

const adminCols = `id, name, email, phone, hotel_id, created_at, updated_at`

func (r *adminRepository) FindByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	const q = `SELECT ` + adminCols + ` FROM admins WHERE lower(email) = lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.Admin
	err := r.pool.QueryRow(ctx, q, email).Scan(
		&a.ID, &a.Name, &a.Email, &a.Phone, &a.HotelID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *adminRepository) FindByID(ctx context.Context, id int64) (*domain.Admin, error) {
	const q = `SELECT ` + adminCols + ` FROM admins WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.Admin
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.Name, &a.Email, &a.Phone, &a.HotelID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *adminRepository) BelongsToHotel(ctx context.Context, adminID, hotelID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM admins WHERE id = $1 AND hotel_id = $2)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var ok bool
	err := r.pool.QueryRow(ctx, q, adminID, hotelID).Scan(&ok)
	return ok, err
}
