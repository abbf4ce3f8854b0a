package ordering

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// CreateProductCommand — позиция каталога. UnitPrice передаётся десятичной строкой ("42.50").
type CreateProductCommand struct {
	ExternalID   string
	Name         string
	UnitPrice    string
	CurrencyCode string
	Category     string
	Description  string
}

// CreateProduct добавляет продукт в каталог.
func (s *Service) CreateProduct(ctx context.Context, cmd CreateProductCommand) (product *domain.Product, err error) {
	finish := s.begin("create_product", log.Fields{"external_id": cmd.ExternalID})
	defer func() { finish(err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(cmd.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: unit price %q is not a number", domain.ErrValidation, cmd.UnitPrice)
	}
	currency, err := domain.CurrencyFromCode(cmd.CurrencyCode)
	if err != nil {
		return nil, err
	}
	price, err := domain.NewMoney(amount, currency)
	if err != nil {
		return nil, err
	}
	category, err := domain.ParseActiveCategory(cmd.Category)
	if err != nil {
		return nil, err
	}

	product, err = domain.NewProduct(cmd.ExternalID, cmd.Name, price, category, cmd.Description, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct возвращает продукт по внешнему идентификатору.
func (s *Service) GetProduct(_ context.Context, externalID string) (*domain.Product, error) {
	return s.products.GetByExternalID(externalID)
}
