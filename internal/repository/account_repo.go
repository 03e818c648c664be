package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"zylorb/internal/model"
)

const uniqueViolation = "23505"

const accountColumns = `id, username, email, password_hash, avatar, zone,
	followers_count, posts_count, is_verified, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (model.Account, error) {
	return r.findOne(ctx, "find account by id", `WHERE id = $1`, id)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.findOne(ctx, "find account by email", `WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (model.Account, error) {
	return r.findOne(ctx, "find account by username", `WHERE lower(username) = lower($1)`, strings.TrimSpace(username))
}

func (r *AccountRepository) findOne(ctx context.Context, op string, where string, arg string) (model.Account, error) {
	var a model.Account
	err := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts `+where, arg).
		Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Avatar, &a.Zone,
			&a.FollowersCount, &a.PostsCount, &a.IsVerified, &a.CreatedAt, &a.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, model.ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, storeError(op, err)
	}
	return a, nil
}

// Insert relies on the unique indexes on lower(username) and lower(email), so
// two racing registrations cannot both succeed.
func (r *AccountRepository) Insert(ctx context.Context, a model.Account) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.Avatar, a.Zone,
		a.FollowersCount, a.PostsCount, a.IsVerified, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrDuplicateAccount
		}
		return storeError("insert account", err)
	}
	return nil
}

func (r *AccountRepository) Update(ctx context.Context, a model.Account) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts
		 SET avatar = $2, zone = $3, followers_count = $4, posts_count = $5,
		     is_verified = $6, updated_at = $7
		 WHERE id = $1`,
		a.ID, a.Avatar, a.Zone, a.FollowersCount, a.PostsCount, a.IsVerified, a.UpdatedAt)
	if err != nil {
		return storeError("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return storeError("ping", err)
	}
	return nil
}

func (r *AccountRepository) Backend() string {
	return "postgres"
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}
