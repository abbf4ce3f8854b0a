package domain

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func snapshot(t *testing.T, unitPrice string, category Category) ProductSnapshot {
	t.Helper()
	id := NewProductID()
	return ProductSnapshot{
		ProductID:  id,
		ExternalID: "EXT-" + id.String()[:8],
		Name:       "Leche entera 1L",
		UnitPrice:  money(t, unitPrice, CurrencyUYU),
		Category:   category,
	}
}

func newTestOrder(t *testing.T, items ...LineItem) *Order {
	t.Helper()
	order, err := NewOrder(
		NewPointOfSaleID(),
		NewDistributorID(),
		NewAddress("Montevideo", "Av. Italia 1234", "11300"),
		CurrencyUYU,
		testNow,
		items,
	)
	require.NoError(t, err)
	return order
}

func requireConsistent(t *testing.T, order *Order) {
	t.Helper()
	require.Empty(t, order.ValidateInvariants())
}

func TestNewOrder(t *testing.T) {
	milk := snapshot(t, "40", CategoryLacteos)
	cheese := snapshot(t, "15.5", CategoryLacteos)

	order := newTestOrder(t,
		LineItem{Product: milk, Quantity: MustQuantity(2)},
		LineItem{Product: cheese, Quantity: MustQuantity(4)},
	)

	assert.Equal(t, StatusCreated, order.Status())
	assert.Equal(t, 2, order.LineCount())
	assert.Equal(t, "142.00 UYU", order.Price().String())
	assert.Equal(t, testNow, order.CreatedOn())
	assert.Nil(t, order.ConfirmedOn())
	assert.Zero(t, order.Version())
	requireConsistent(t, order)

	events := order.DrainEvents()
	require.Len(t, events, 3)
	assert.Equal(t, EventOrderCreated, events[0].EventType())
	assert.Equal(t, EventOrderLineAdded, events[1].EventType())
	assert.Equal(t, milk.ProductID.String(), events[1].(OrderLineAdded).ProductID)
	assert.Equal(t, cheese.ProductID.String(), events[2].(OrderLineAdded).ProductID)
	assert.Empty(t, order.PendingEvents())
}

func TestNewOrderValidation(t *testing.T) {
	milk := snapshot(t, "40", CategoryLacteos)
	addr := NewAddress("Montevideo", "Av. Italia 1234", "11300")

	t.Run("no lines", func(t *testing.T) {
		_, err := NewOrder(NewPointOfSaleID(), NewDistributorID(), addr, CurrencyUYU, testNow, nil)
		require.ErrorIs(t, err, ErrOrderHasNoLines)
	})

	t.Run("duplicate product", func(t *testing.T) {
		_, err := NewOrder(NewPointOfSaleID(), NewDistributorID(), addr, CurrencyUYU, testNow, []LineItem{
			{Product: milk, Quantity: MustQuantity(1)},
			{Product: milk, Quantity: MustQuantity(3)},
		})
		require.ErrorIs(t, err, ErrDuplicateProduct)
	})

	t.Run("currency mismatch", func(t *testing.T) {
		_, err := NewOrder(NewPointOfSaleID(), NewDistributorID(), addr, CurrencyUSD, testNow, []LineItem{
			{Product: milk, Quantity: MustQuantity(1)},
		})
		require.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("unknown currency", func(t *testing.T) {
		_, err := NewOrder(NewPointOfSaleID(), NewDistributorID(), addr, Currency("EUR"), testNow, []LineItem{
			{Product: milk, Quantity: MustQuantity(1)},
		})
		require.ErrorIs(t, err, ErrUnknownCurrency)
	})
}

func TestOrderAddLine(t *testing.T) {
	order := newTestOrder(t, LineItem{Product: snapshot(t, "100", CategoryLacteos), Quantity: MustQuantity(1)})
	order.DrainEvents()

	line := NewOrderLine(order.ID(), snapshot(t, "50", CategoryCongelados), MustQuantity(1), testNow)
	require.NoError(t, order.AddLine(line))

	assert.Equal(t, "150.00 UYU", order.Price().String())
	assert.Equal(t, 2, order.LineCount())
	requireConsistent(t, order)

	events := order.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, OrderLineAdded{
		OrderID:   order.ID().String(),
		LineID:    line.ID().String(),
		ProductID: line.ProductID().String(),
		Quantity:  1,
	}, events[0])
}

func TestOrderAddLineRejectsDuplicateProduct(t *testing.T) {
	p1 := snapshot(t, "10", CategoryLacteos)
	order := newTestOrder(t, LineItem{Product: p1, Quantity: MustQuantity(2)})
	order.DrainEvents()
	before := order.Price()

	err := order.AddLine(NewOrderLine(order.ID(), p1, MustQuantity(5), testNow))

	require.ErrorIs(t, err, ErrDuplicateProduct)
	assert.True(t, order.Price().Equal(before))
	assert.Equal(t, 1, order.LineCount())
	assert.Empty(t, order.PendingEvents())
}

func TestOrderAddLineRejectsForeignLine(t *testing.T) {
	order := newTestOrder(t, LineItem{Product: snapshot(t, "10", CategoryLacteos), Quantity: MustQuantity(1)})

	err := order.AddLine(NewOrderLine(NewOrderID(), snapshot(t, "5", CategoryLacteos), MustQuantity(1), testNow))

	require.ErrorIs(t, err, ErrLineOwnerMismatch)
	assert.Equal(t, 1, order.LineCount())
}

func TestOrderAddProduct(t *testing.T) {
	order := newTestOrder(t, LineItem{Product: snapshot(t, "10", CategoryLacteos), Quantity: MustQuantity(1)})

	line, err := order.AddProduct(snapshot(t, "3.25", CategorySubproductos), MustQuantity(4), testNow)

	require.NoError(t, err)
	assert.Equal(t, "13.00 UYU", line.SubTotal().String())
	assert.Equal(t, "23.00 UYU", order.Price().String())
	got, ok := order.Line(line.ID())
	require.True(t, ok)
	assert.Equal(t, line.ID(), got.ID())
}

func TestOrderUpdateLineQuantity(t *testing.T) {
	p1 := snapshot(t, "10", CategoryLacteos)
	order := newTestOrder(t,
		LineItem{Product: p1, Quantity: MustQuantity(2)},
		LineItem{Product: snapshot(t, "7", CategoryLacteos), Quantity: MustQuantity(1)},
	)
	order.DrainEvents()
	line := order.Lines()[0]
	require.Equal(t, "20.00 UYU", line.SubTotal().String())
	before := order.Price()

	require.NoError(t, order.UpdateLineQuantity(line.ID(), MustQuantity(5)))

	updated, ok := order.Line(line.ID())
	require.True(t, ok)
	assert.Equal(t, "50.00 UYU", updated.SubTotal().String())
	assert.Equal(t, 5, updated.Quantity().Int())
	delta, err := order.Price().Subtract(before)
	require.NoError(t, err)
	assert.Equal(t, "30.00 UYU", delta.String())
	requireConsistent(t, order)

	events := order.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, OrderLineQuantityUpdated{OrderID: order.ID().String(), LineID: line.ID().String(), Quantity: 5}, events[0])
}

func TestOrderUpdateLineQuantityDecrease(t *testing.T) {
	order := newTestOrder(t, LineItem{Product: snapshot(t, "10", CategoryLacteos), Quantity: MustQuantity(6)})
	line := order.Lines()[0]

	require.NoError(t, order.UpdateLineQuantity(line.ID(), MustQuantity(1)))

	assert.Equal(t, "10.00 UYU", order.Price().String())
	requireConsistent(t, order)
}

func TestOrderUpdateLineQuantityUnknownLine(t *testing.T) {
	order := newTestOrder(t, LineItem{Product: snapshot(t, "10", CategoryLacteos), Quantity: MustQuantity(1)})
	order.DrainEvents()

	err := order.UpdateLineQuantity(NewOrderLineID(), MustQuantity(3))

	require.ErrorIs(t, err, ErrLineNotFound)
	assert.Equal(t, "10.00 UYU", order.Price().String())
	assert.Empty(t, order.PendingEvents())
}

func TestOrderRemoveLine(t *testing.T) {
	order := newTestOrder(t,
		LineItem{Product: snapshot(t, "100", CategoryLacteos), Quantity: MustQuantity(1)},
		LineItem{Product: snapshot(t, "50", CategoryLacteos), Quantity: MustQuantity(1)},
	)
	order.DrainEvents()
	second := order.Lines()[1]

	require.NoError(t, order.RemoveLine(second.ID()))

	assert.Equal(t, 1, order.LineCount())
	assert.Equal(t, "100.00 UYU", order.Price().String())
	_, ok := order.Line(second.ID())
	assert.False(t, ok)
	requireConsistent(t, order)

	events := order.DrainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, OrderLineRemoved{
		OrderID:   order.ID().String(),
		LineID:    second.ID().String(),
		ProductID: second.ProductID().String(),
	}, events[0])
}

func TestOrderRemoveLastLineIsBlocked(t *testing.T) {
	order := newTestOrder(t, LineItem{Product: snapshot(t, "100", CategoryLacteos), Quantity: MustQuantity(1)})
	order.DrainEvents()
	only := order.Lines()[0]

	err := order.RemoveLine(only.ID())

	require.ErrorIs(t, err, ErrCannotRemoveLastLine)
	assert.Equal(t, 1, order.LineCount())
	assert.Equal(t, "100.00 UYU", order.Price().String())
	assert.Empty(t, order.PendingEvents())
}

func TestOrderRemoveUnknownLine(t *testing.T) {
	order := newTestOrder(t,
		LineItem{Product: snapshot(t, "1", CategoryLacteos), Quantity: MustQuantity(1)},
		LineItem{Product: snapshot(t, "2", CategoryLacteos), Quantity: MustQuantity(1)},
	)

	require.ErrorIs(t, order.RemoveLine(NewOrderLineID()), ErrLineNotFound)
	assert.Equal(t, 2, order.LineCount())
}

func TestOrderLinesAreReadOnlyView(t *testing.T) {
	order := newTestOrder(t, LineItem{Product: snapshot(t, "1", CategoryLacteos), Quantity: MustQuantity(1)})

	lines := order.Lines()
	lines[0] = OrderLine{}

	assert.NotEqual(t, OrderLineID{}, order.Lines()[0].ID())
}

func TestOrderUpdateStatus(t *testing.T) {
	order := newTestOrder(t, LineItem{Product: snapshot(t, "1", CategoryLacteos), Quantity: MustQuantity(1)})
	order.DrainEvents()

	confirmedAt := testNow.Add(time.Hour)
	require.NoError(t, order.UpdateStatus(StatusConfirmed, confirmedAt))
	assert.Equal(t, StatusConfirmed, order.Status())
	require.NotNil(t, order.ConfirmedOn())
	assert.Equal(t, confirmedAt, *order.ConfirmedOn())
	assert.Nil(t, order.DeliveredOn())
	assert.Nil(t, order.RejectedOn())
	assert.Nil(t, order.CanceledOn())

	deliveredAt := testNow.Add(2 * time.Hour)
	require.NoError(t, order.UpdateStatus(StatusDelivered, deliveredAt))
	assert.Equal(t, confirmedAt, *order.ConfirmedOn(), "other timestamps are untouched")
	assert.Equal(t, deliveredAt, *order.DeliveredOn())

	reconfirmedAt := testNow.Add(3 * time.Hour)
	require.NoError(t, order.UpdateStatus(StatusConfirmed, reconfirmedAt))
	assert.Equal(t, reconfirmedAt, *order.ConfirmedOn(), "same status re-stamps the timestamp")

	events := order.DrainEvents()
	require.Len(t, events, 3)
	assert.Equal(t, OrderStatusChanged{OrderID: order.ID().String(), Previous: "created", Status: "confirmed"}, events[0])
	assert.Equal(t, OrderStatusChanged{OrderID: order.ID().String(), Previous: "delivered", Status: "confirmed"}, events[2])
}

func TestOrderUpdateStatusStampsEachTerminalField(t *testing.T) {
	tests := []struct {
		status Status
		field  func(*Order) *time.Time
	}{
		{StatusConfirmed, (*Order).ConfirmedOn},
		{StatusRejected, (*Order).RejectedOn},
		{StatusDelivered, (*Order).DeliveredOn},
		{StatusCanceled, (*Order).CanceledOn},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			order := newTestOrder(t, LineItem{Product: snapshot(t, "1", CategoryLacteos), Quantity: MustQuantity(1)})

			require.NoError(t, order.UpdateStatus(tt.status, testNow))

			stamped := 0
			for _, f := range []func(*Order) *time.Time{(*Order).ConfirmedOn, (*Order).RejectedOn, (*Order).DeliveredOn, (*Order).CanceledOn} {
				if f(order) != nil {
					stamped++
				}
			}
			assert.Equal(t, 1, stamped)
			assert.Equal(t, testNow, *tt.field(order))
		})
	}
}

func TestOrderUpdateStatusRejectsUnknown(t *testing.T) {
	order := newTestOrder(t, LineItem{Product: snapshot(t, "1", CategoryLacteos), Quantity: MustQuantity(1)})

	err := order.UpdateStatus(Status("shipped"), testNow)

	require.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, StatusCreated, order.Status())
}

// Случайные последовательности операций не должны нарушать инварианты.
func TestOrderInvariantsHoldUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	catalogue := make([]ProductSnapshot, 0, 8)
	for i := 0; i < 8; i++ {
		catalogue = append(catalogue, snapshot(t, []string{"1.10", "2", "13.37", "99.99"}[i%4], CategoryLacteos))
	}
	order := newTestOrder(t, LineItem{Product: catalogue[0], Quantity: MustQuantity(1)})

	for i := 0; i < 500; i++ {
		lines := order.Lines()
		switch rng.IntN(3) {
		case 0:
			p := catalogue[rng.IntN(len(catalogue))]
			_, err := order.AddProduct(p, MustQuantity(rng.IntN(20)+1), testNow)
			if err != nil {
				require.ErrorIs(t, err, ErrDuplicateProduct)
			}
		case 1:
			err := order.RemoveLine(lines[rng.IntN(len(lines))].ID())
			if err != nil {
				require.ErrorIs(t, err, ErrCannotRemoveLastLine)
				require.Len(t, lines, 1)
			}
		case 2:
			require.NoError(t, order.UpdateLineQuantity(lines[rng.IntN(len(lines))].ID(), MustQuantity(rng.IntN(50)+1)))
		}

		requireConsistent(t, order)
		require.GreaterOrEqual(t, order.LineCount(), 1)
	}
}

func TestOrderStateRoundTrip(t *testing.T) {
	order := newTestOrder(t,
		LineItem{Product: snapshot(t, "10", CategoryLacteos), Quantity: MustQuantity(2)},
		LineItem{Product: snapshot(t, "4", CategoryCongelados), Quantity: MustQuantity(3)},
	)
	require.NoError(t, order.UpdateStatus(StatusConfirmed, testNow))
	order.IncrementVersion()

	restored := RestoreOrder(order.State())

	opts := cmp.Options{
		cmp.Comparer(func(a, b Money) bool { return a.Equal(b) }),
		cmp.Comparer(func(a, b Quantity) bool { return a.Int() == b.Int() }),
	}
	if diff := cmp.Diff(order.State(), restored.State(), opts); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, restored.PendingEvents())
	assert.Equal(t, int64(1), restored.Version())
	requireConsistent(t, restored)
}

func TestOrderValidateInvariantsDetectsCorruptedState(t *testing.T) {
	order := newTestOrder(t, LineItem{Product: snapshot(t, "10", CategoryLacteos), Quantity: MustQuantity(2)})
	state := order.State()
	state.Price = money(t, "999", CurrencyUYU)

	corrupted := RestoreOrder(state)

	require.Error(t, corrupted.CheckInvariants())
	require.ErrorIs(t, corrupted.CheckInvariants(), ErrValidation)

	state = order.State()
	state.Lines = nil
	state.Price = ZeroMoney(CurrencyUYU)
	require.ErrorIs(t, RestoreOrder(state).CheckInvariants(), ErrOrderHasNoLines)
}
