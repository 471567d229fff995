package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/monocontact/internal/domain/contact"
	"github.com/geocoder89/monocontact/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContactsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// constructor function

func NewContactsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ContactsRepo {
	return &ContactsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *ContactsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const contactColumns = `id, name, email, phone, favorite, owner_id, created_at, updated_at`

func scanContact(row pgx.Row) (contact.Contact, error) {
	var c contact.Contact

	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Favorite, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contact.Contact{}, contact.ErrNotFound
		}

		return contact.Contact{}, err
	}

	return c, nil
}

func (r *ContactsRepo) getOne(ctx context.Context, op, query string, args ...interface{}) (contact.Contact, error) {
	var c contact.Contact
	var scanErr error

	err := r.observe(op, func() error {
		c, scanErr = scanContact(r.pool.QueryRow(ctx, query, args...))

		if errors.Is(scanErr, contact.ErrNotFound) {
			// an absent row is not a store failure
			return nil
		}
		return scanErr
	})

	if err != nil {
		return contact.Contact{}, err
	}

	if scanErr != nil {
		return contact.Contact{}, scanErr
	}

	return c, nil
}

func (r *ContactsRepo) Create(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	err := r.observe("contacts.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO contacts(id, name, email, phone, favorite, owner_id, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			c.ID, c.Name, c.Email, c.Phone, c.Favorite, c.OwnerID, c.CreatedAt, c.UpdatedAt)
		return err
	})

	if err != nil {
		return contact.Contact{}, err
	}

	return c, nil
}

// List returns one page of the owner's contacts plus the total match count
// for page arithmetic.
func (r *ContactsRepo) List(ctx context.Context, filter contact.ListContactsFilter) ([]contact.Contact, int, error) {
	baseQuery := `SELECT ` + contactColumns + `,
		COUNT(*) OVER() AS total
	FROM contacts
	`

	conds := []string{"owner_id = $1"}
	args := []interface{}{filter.OwnerID}

	if filter.FavoriteOnly {
		conds = append(conds, "favorite = TRUE")
	}

	query := baseQuery + " WHERE " + strings.Join(conds, " AND ")

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	args = append(args, filter.Limit, filter.Offset)

	// the limit is caller-supplied; cap the preallocation
	capHint := filter.Limit
	if capHint < 0 || capHint > 1024 {
		capHint = 0
	}

	output := make([]contact.Contact, 0, capHint)
	total := 0

	err := r.observe("contacts.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var c contact.Contact
			var t int

			err = rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Favorite, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt, &t)

			if err != nil {
				return err
			}

			total = t
			output = append(output, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

func (r *ContactsRepo) GetByID(ctx context.Context, id string) (contact.Contact, error) {
	return r.getOne(ctx, "contacts.get_by_id",
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
}

// Update applies only the fields present in the request; nil fields keep
// their stored value.
func (r *ContactsRepo) Update(ctx context.Context, id string, req contact.UpdateContactRequest) (contact.Contact, error) {
	return r.getOne(ctx, "contacts.update",
		`UPDATE contacts
			SET name = COALESCE($2, name),
					email = COALESCE($3, email),
					phone = COALESCE($4, phone),
					favorite = COALESCE($5, favorite),
					updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+contactColumns,
		id,
		req.Name,
		req.Email,
		req.Phone,
		req.Favorite)
}

func (r *ContactsRepo) SetFavorite(ctx context.Context, id string, favorite bool) (contact.Contact, error) {
	return r.getOne(ctx, "contacts.set_favorite",
		`UPDATE contacts
			SET favorite = $2,
					updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+contactColumns,
		id, favorite)
}

func (r *ContactsRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.observe("contacts.delete", func() error {
		tag, err := r.pool.Exec(ctx, `
			DELETE FROM contacts WHERE id = $1
		`, id)

		if err != nil {
			return err
		}

		affected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return contact.ErrNotFound
	}

	return nil
}
