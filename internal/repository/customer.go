package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MohasaidAli/coffee-shop-system/internal/domain/customer"
)

const (
	getCustomerByIDSQL = `SELECT id, name, email, role, created_at FROM users WHERE id = $1`

	getCustomerByEmailSQL = `SELECT id, name, email, role, created_at FROM users WHERE email = $1`

	createCustomerSQL = `INSERT INTO users (id, name, email, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role
		RETURNING created_at`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns the account with the given identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	return r.get(ctx, getCustomerByIDSQL, id)
}

// FindByEmail returns the account registered under the given email.
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	return r.get(ctx, getCustomerByEmailSQL, email)
}

// Create inserts an account, upserting on email so seeding is idempotent.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	err := r.pool.QueryRow(ctx, createCustomerSQL,
		c.ID, c.Name, c.Email, string(c.Role),
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating customer %q: %w", c.Email, err)
	}
	return nil
}

func (r *CustomerRepository) get(ctx context.Context, sql, arg string) (*customer.Customer, error) {
	var (
		c    customer.Customer
		role string
	)
	err := r.pool.QueryRow(ctx, sql, arg).Scan(&c.ID, &c.Name, &c.Email, &role, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer: %w", err)
	}
	c.Role = customer.Role(role)
	return &c, nil
}
