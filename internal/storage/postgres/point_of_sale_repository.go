package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// constraintAssignmentUnique — уникальность тройки (точка, дистрибьютор, категория).
const constraintAssignmentUnique = "uq_point_of_sale_distributor_category"

type pointOfSaleRepository struct {
	db *sql.DB
}

// NewPointOfSaleRepository создаёт PostgreSQL-реализацию PointOfSaleRepository.
func NewPointOfSaleRepository(store *Store) domain.PointOfSaleRepository {
	return &pointOfSaleRepository{db: store.DB()}
}

func (r *pointOfSaleRepository) Create(pointOfSale *domain.PointOfSale) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	state := pointOfSale.State()
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO points_of_sale (
				id, name, phone_number,
				address_city, address_street, address_zip_code,
				is_active, version, created_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			state.ID.String(), state.Name, state.PhoneNumber,
			state.Address.City, state.Address.Street, state.Address.ZipCode,
			state.IsActive, state.Version, state.CreatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrPointOfSaleExists, state.PhoneNumber)
			}
			return fmt.Errorf("insert point of sale: %w", err)
		}
		return insertAssignments(ctx, tx, state.Assignments)
	})
}

func (r *pointOfSaleRepository) Get(id domain.PointOfSaleID) (*domain.PointOfSale, error) {
	return r.getBy("id", id.String())
}

func (r *pointOfSaleRepository) GetByPhoneNumber(phoneNumber string) (*domain.PointOfSale, error) {
	return r.getBy("phone_number", phoneNumber)
}

func (r *pointOfSaleRepository) getBy(column, value string) (*domain.PointOfSale, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		state                 domain.PointOfSaleState
		id                    uuid.UUID
		city, street, zipCode string
		legacyAddress         sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, phone_number,
		       address_city, address_street, address_zip_code, address,
		       is_active, version, created_at
		FROM points_of_sale
		WHERE `+column+` = $1
	`, value).Scan(
		&id, &state.Name, &state.PhoneNumber,
		&city, &street, &zipCode, &legacyAddress,
		&state.IsActive, &state.Version, &state.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPointOfSaleNotFound
		}
		return nil, fmt.Errorf("select point of sale: %w", err)
	}
	state.ID = domain.PointOfSaleID(id)
	state.Address = addressColumns(city, street, zipCode, legacyAddress)
	state.CreatedAt = state.CreatedAt.UTC()

	if state.Assignments, err = r.loadAssignments(ctx, state.ID); err != nil {
		return nil, err
	}
	return domain.RestorePointOfSale(state), nil
}

func (r *pointOfSaleRepository) loadAssignments(ctx context.Context, id domain.PointOfSaleID) ([]domain.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, distributor_id, category, assigned_at
		FROM point_of_sale_distributors
		WHERE point_of_sale_id = $1
		ORDER BY assigned_at ASC, id ASC
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]domain.Assignment, 0)
	for rows.Next() {
		var (
			assignmentID, distributorID uuid.UUID
			category                    string
			a                           domain.Assignment
		)
		if err := rows.Scan(&assignmentID, &distributorID, &category, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.ID = domain.AssignmentID(assignmentID)
		a.PointOfSaleID = id
		a.DistributorID = domain.DistributorID(distributorID)
		a.AssignedAt = a.AssignedAt.UTC()
		if a.Category, err = domain.ParseCategory(category); err != nil {
			return nil, fmt.Errorf("decode assignment category: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return assignments, nil
}

// Save обновляет точку продаж с проверкой версии и синхронизирует назначения.
// Нарушение уникального индекса назначений возвращается как ErrAlreadyAssigned:
// in-memory проверки агрегата недостаточно при конкурентных запросах.
func (r *pointOfSaleRepository) Save(pointOfSale *domain.PointOfSale) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	state := pointOfSale.State()
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE points_of_sale
			SET name = $1,
			    address_city = $2,
			    address_street = $3,
			    address_zip_code = $4,
			    address = NULL,
			    is_active = $5,
			    version = version + 1
			WHERE id = $6
			  AND version = $7
		`,
			state.Name, state.Address.City, state.Address.Street, state.Address.ZipCode,
			state.IsActive, state.ID.String(), state.Version,
		)
		if err != nil {
			return fmt.Errorf("update point of sale: %w", err)
		}
		if err := checkVersionedUpdate(ctx, tx, res, "points_of_sale", state.ID.String(), domain.ErrPointOfSaleNotFound); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM point_of_sale_distributors WHERE point_of_sale_id = $1`, state.ID.String()); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		return insertAssignments(ctx, tx, state.Assignments)
	})
	if err != nil {
		return err
	}

	pointOfSale.IncrementVersion()
	return nil
}

func insertAssignments(ctx context.Context, tx *sql.Tx, assignments []domain.Assignment) error {
	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO point_of_sale_distributors (id, point_of_sale_id, distributor_id, category, assigned_at)
			VALUES ($1,$2,$3,$4,$5)
		`, a.ID.String(), a.PointOfSaleID.String(), a.DistributorID.String(), a.Category.String(), a.AssignedAt); err != nil {
			if constraint, ok := uniqueViolation(err); ok && constraint == constraintAssignmentUnique {
				return fmt.Errorf("%w: distributor %s, category %s", domain.ErrAlreadyAssigned, a.DistributorID, a.Category)
			}
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

var _ domain.PointOfSaleRepository = (*pointOfSaleRepository)(nil)
