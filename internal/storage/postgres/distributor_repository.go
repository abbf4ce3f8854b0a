package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

type distributorRepository struct {
	db *sql.DB
}

// NewDistributorRepository создаёт PostgreSQL-реализацию DistributorRepository.
// Адрес хранится тремя колонками address_city, address_street, address_zip_code.
func NewDistributorRepository(store *Store) domain.DistributorRepository {
	return &distributorRepository{db: store.DB()}
}

func (r *distributorRepository) Create(distributor *domain.Distributor) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	state := distributor.State()
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO distributors (
				id, phone_number, name,
				address_city, address_street, address_zip_code,
				version, created_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			state.ID.String(), state.PhoneNumber, state.Name,
			state.Address.City, state.Address.Street, state.Address.ZipCode,
			state.Version, state.CreatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrDistributorExists, state.PhoneNumber)
			}
			return fmt.Errorf("insert distributor: %w", err)
		}
		return insertDistributorCategories(ctx, tx, state)
	})
}

func (r *distributorRepository) Get(id domain.DistributorID) (*domain.Distributor, error) {
	return r.getBy("id", id.String())
}

func (r *distributorRepository) GetByPhoneNumber(phoneNumber string) (*domain.Distributor, error) {
	return r.getBy("phone_number", phoneNumber)
}

func (r *distributorRepository) getBy(column, value string) (*domain.Distributor, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		state                 domain.DistributorState
		id                    uuid.UUID
		city, street, zipCode string
		legacyAddress         sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, phone_number, name,
		       address_city, address_street, address_zip_code, address,
		       version, created_at
		FROM distributors
		WHERE `+column+` = $1
	`, value).Scan(
		&id, &state.PhoneNumber, &state.Name,
		&city, &street, &zipCode, &legacyAddress,
		&state.Version, &state.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDistributorNotFound
		}
		return nil, fmt.Errorf("select distributor: %w", err)
	}
	state.ID = domain.DistributorID(id)
	state.Address = addressColumns(city, street, zipCode, legacyAddress)
	state.CreatedAt = state.CreatedAt.UTC()

	rows, err := r.db.QueryContext(ctx, `
		SELECT category
		FROM distributor_categories
		WHERE distributor_id = $1
		ORDER BY position ASC
	`, state.ID.String())
	if err != nil {
		return nil, fmt.Errorf("load distributor categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan distributor category: %w", err)
		}
		category, err := domain.ParseCategory(raw)
		if err != nil {
			return nil, fmt.Errorf("decode distributor category: %w", err)
		}
		state.Categories = append(state.Categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distributor categories: %w", err)
	}

	return domain.RestoreDistributor(state), nil
}

func (r *distributorRepository) Save(distributor *domain.Distributor) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	state := distributor.State()
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE distributors
			SET name = $1,
			    address_city = $2,
			    address_street = $3,
			    address_zip_code = $4,
			    address = NULL,
			    version = version + 1
			WHERE id = $5
			  AND version = $6
		`,
			state.Name, state.Address.City, state.Address.Street, state.Address.ZipCode,
			state.ID.String(), state.Version,
		)
		if err != nil {
			return fmt.Errorf("update distributor: %w", err)
		}
		if err := checkVersionedUpdate(ctx, tx, res, "distributors", state.ID.String(), domain.ErrDistributorNotFound); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM distributor_categories WHERE distributor_id = $1`, state.ID.String()); err != nil {
			return fmt.Errorf("delete distributor categories: %w", err)
		}
		return insertDistributorCategories(ctx, tx, state)
	})
	if err != nil {
		return err
	}

	distributor.IncrementVersion()
	return nil
}

func insertDistributorCategories(ctx context.Context, tx *sql.Tx, state domain.DistributorState) error {
	for position, category := range state.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO distributor_categories (distributor_id, category, position)
			VALUES ($1,$2,$3)
		`, state.ID.String(), category.String(), position); err != nil {
			return fmt.Errorf("insert distributor category: %w", err)
		}
	}
	return nil
}

var _ domain.DistributorRepository = (*distributorRepository)(nil)
