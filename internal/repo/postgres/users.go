package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/monocontact/internal/domain/user"
	"github.com/geocoder89/monocontact/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userColumns = `id, email, password_hash, subscription, token, verified, verification_token, avatar_url, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Subscription,
		&u.Token,
		&u.Verified,
		&u.VerificationToken,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users(id, email, password_hash, subscription, token, verified, verification_token, avatar_url, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			u.ID, u.Email, u.PasswordHash, u.Subscription, u.Token, u.Verified, u.VerificationToken, u.AvatarURL, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailAlreadyUsed
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) getOne(ctx context.Context, op, query string, args ...interface{}) (user.User, error) {
	var u user.User
	var scanErr error

	err := r.observe(op, func() error {
		u, scanErr = scanUser(r.pool.QueryRow(ctx, query, args...))

		if errors.Is(scanErr, user.ErrNotFound) {
			// an absent row is not a store failure
			return nil
		}
		return scanErr
	})

	if err != nil {
		return user.User{}, err
	}

	if scanErr != nil {
		return user.User{}, scanErr
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id",
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email",
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByToken resolves the user holding the given session token. The stored
// token is the sole credential checked by the authorization middleware.
func (r *UsersRepo) GetByToken(ctx context.Context, token string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_token",
		`SELECT `+userColumns+` FROM users WHERE token = $1`, token)
}

func (r *UsersRepo) GetByVerificationToken(ctx context.Context, token string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_verification_token",
		`SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token)
}

// MarkVerified flips the one-way unverified -> verified transition and
// clears the consumed verification token.
func (r *UsersRepo) MarkVerified(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.mark_verified",
		`UPDATE users
			SET verified = TRUE,
					verification_token = NULL,
					updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id)
}

// SetToken stores the active session token; pass nil to sign out.
func (r *UsersRepo) SetToken(ctx context.Context, id string, token *string) (user.User, error) {
	return r.getOne(ctx, "users.set_token",
		`UPDATE users
			SET token = $2,
					updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, token)
}

func (r *UsersRepo) UpdateSubscription(ctx context.Context, id, subscription string) (user.User, error) {
	return r.getOne(ctx, "users.update_subscription",
		`UPDATE users
			SET subscription = $2,
					updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, subscription)
}

func (r *UsersRepo) UpdateAvatarURL(ctx context.Context, id, avatarURL string) (user.User, error) {
	return r.getOne(ctx, "users.update_avatar_url",
		`UPDATE users
			SET avatar_url = $2,
					updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, avatarURL)
}
