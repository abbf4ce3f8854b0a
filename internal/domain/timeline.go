package domain

import (
	"strconv"
	"time"
)

// TimelineEvent — запись в истории заказа.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}

// TimelineReason формирует человекочитаемое описание события заказа.
func TimelineReason(e Event) string {
	switch ev := e.(type) {
	case OrderCreated:
		return "order created for point of sale " + ev.PointOfSaleID + " by distributor " + ev.DistributorID
	case OrderLineAdded:
		return "line " + ev.LineID + " added: product " + ev.ProductID + " x" + strconv.Itoa(ev.Quantity)
	case OrderLineRemoved:
		return "line " + ev.LineID + " removed: product " + ev.ProductID
	case OrderLineQuantityUpdated:
		return "line " + ev.LineID + " quantity set to " + strconv.Itoa(ev.Quantity)
	case OrderStatusChanged:
		return "status changed from " + ev.Previous + " to " + ev.Status
	default:
		return e.EventType()
	}
}
