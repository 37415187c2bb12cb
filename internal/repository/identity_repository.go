package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/perizinan-backend/internal/model"
)

var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrEmailTaken       = errors.New("email already registered")
)

// IdentityRepository is the identity provider's account table.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository creates a new IdentityRepository.
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// GetByID retrieves an identity by ID.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*model.Identity, error) {
	i := &model.Identity{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM identities WHERE id = $1`, id,
	).Scan(&i.ID, &i.Email, &i.PasswordHash, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return i, nil
}

// GetByEmail retrieves an identity by its unique email.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	i := &model.Identity{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM identities WHERE email = lower($1)`, email,
	).Scan(&i.ID, &i.Email, &i.PasswordHash, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return i, nil
}

// Create inserts a new identity.
func (r *IdentityRepository) Create(ctx context.Context, i *model.Identity) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO identities (email, password_hash)
		 VALUES (lower($1), $2)
		 RETURNING id, email, created_at`,
		i.Email, i.PasswordHash,
	).Scan(&i.ID, &i.Email, &i.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// Delete removes an identity. Deleting a missing identity is not an error.
func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	return err
}

// List returns every identity ordered by creation time.
func (r *IdentityRepository) List(ctx context.Context) ([]model.Identity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, password_hash, created_at FROM identities ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var identities []model.Identity
	for rows.Next() {
		var i model.Identity
		if err := rows.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.CreatedAt); err != nil {
			return nil, err
		}
		identities = append(identities, i)
	}
	return identities, rows.Err()
}
