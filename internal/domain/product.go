package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProductSnapshot — копия данных продукта, замороженная в строке заказа.
// Цена строки считается только от UnitPrice снимка, живой каталог не перечитывается.
type ProductSnapshot struct {
	ProductID  ProductID
	ExternalID string
	Name       string
	UnitPrice  Money
	Category   Category
}

// Product — позиция каталога.
type Product struct {
	id          ProductID
	externalID  string
	name        string
	unitPrice   Money
	category    Category
	description string
	lastUpdated time.Time
}

// NewProduct создаёт продукт. ExternalID — бизнес-ключ из учётной системы.
func NewProduct(externalID, name string, unitPrice Money, category Category, description string, now time.Time) (*Product, error) {
	externalID = strings.TrimSpace(externalID)
	name = strings.TrimSpace(name)
	if externalID == "" {
		return nil, fmt.Errorf("%w: external product id is required", ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if !unitPrice.Currency().Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurrency, unitPrice.Currency().String())
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category.String())
	}
	if category.Deprecated() {
		return nil, fmt.Errorf("%w: %s", ErrCategoryDeprecated, category)
	}

	return &Product{
		id:          NewProductID(),
		externalID:  externalID,
		name:        name,
		unitPrice:   unitPrice,
		category:    category,
		description: strings.TrimSpace(description),
		lastUpdated: now.UTC(),
	}, nil
}

func (p *Product) ID() ProductID          { return p.id }
func (p *Product) ExternalID() string     { return p.externalID }
func (p *Product) Name() string           { return p.name }
func (p *Product) UnitPrice() Money       { return p.unitPrice }
func (p *Product) Category() Category     { return p.category }
func (p *Product) Description() string    { return p.description }
func (p *Product) LastUpdated() time.Time { return p.lastUpdated }

// Snapshot фиксирует текущие данные продукта для строки заказа.
func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ProductID:  p.id,
		ExternalID: p.externalID,
		Name:       p.name,
		UnitPrice:  p.unitPrice,
		Category:   p.category,
	}
}

// ProductState — плоское представление продукта для хранилищ.
type ProductState struct {
	ID          ProductID
	ExternalID  string
	Name        string
	UnitPrice   Money
	Category    Category
	Description string
	LastUpdated time.Time
}

func (p *Product) State() ProductState {
	return ProductState{
		ID:          p.id,
		ExternalID:  p.externalID,
		Name:        p.name,
		UnitPrice:   p.unitPrice,
		Category:    p.category,
		Description: p.description,
		LastUpdated: p.lastUpdated,
	}
}

// RestoreProduct восстанавливает продукт из хранилища без повторной валидации.
func RestoreProduct(s ProductState) *Product {
	return &Product{
		id:          s.ID,
		externalID:  s.ExternalID,
		name:        s.Name,
		unitPrice:   s.UnitPrice,
		category:    s.Category,
		description: s.Description,
		lastUpdated: s.LastUpdated,
	}
}
