package memory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

func newProductSnapshot(t *testing.T, price int64) domain.ProductSnapshot {
	t.Helper()
	unit, err := domain.NewMoney(decimal.NewFromInt(price), domain.CurrencyUYU)
	if err != nil {
		t.Fatalf("money: %v", err)
	}
	return domain.ProductSnapshot{
		ProductID:  domain.NewProductID(),
		ExternalID: "EXT-1",
		Name:       "Dulce de leche 1kg",
		UnitPrice:  unit,
		Category:   domain.CategoryLacteos,
	}
}

func newOrder(t *testing.T, pos domain.PointOfSaleID, dist domain.DistributorID, createdOn time.Time) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(
		pos,
		dist,
		domain.NewAddress("Montevideo", "Bulevar Artigas 500", "11200"),
		domain.CurrencyUYU,
		createdOn,
		[]domain.LineItem{{Product: newProductSnapshot(t, 100), Quantity: domain.MustQuantity(5)}},
	)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	return order
}
