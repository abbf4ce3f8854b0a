package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product *domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	state := product.State()
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, external_product_id, name, unit_price_amount, unit_price_currency,
			category, description, last_updated
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		state.ID.String(), state.ExternalID, state.Name,
		state.UnitPrice.Amount(), state.UnitPrice.Currency().String(),
		state.Category.String(), state.Description, state.LastUpdated,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicatedExternalID, state.ExternalID)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(id domain.ProductID) (*domain.Product, error) {
	return r.getBy("id", id.String())
}

func (r *productRepository) GetByExternalID(externalID string) (*domain.Product, error) {
	return r.getBy("external_product_id", externalID)
}

func (r *productRepository) getBy(column, value string) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		state              domain.ProductState
		id                 uuid.UUID
		amount             decimal.Decimal
		currency, category string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, external_product_id, name, unit_price_amount, unit_price_currency,
		       category, description, last_updated
		FROM products
		WHERE `+column+` = $1
	`, value).Scan(
		&id, &state.ExternalID, &state.Name, &amount, &currency,
		&category, &state.Description, &state.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}

	state.ID = domain.ProductID(id)
	state.LastUpdated = state.LastUpdated.UTC()
	if state.UnitPrice, err = moneyColumns(amount, currency); err != nil {
		return nil, err
	}
	if state.Category, err = domain.ParseCategory(category); err != nil {
		return nil, fmt.Errorf("decode product category: %w", err)
	}
	return domain.RestoreProduct(state), nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
