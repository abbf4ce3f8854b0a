package grpcsvc

import (
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// request — чтение полей из google.protobuf.Struct. Отсутствующее поле читается как нулевое значение.
type request struct {
	fields map[string]*structpb.Value
}

func newRequest(in *structpb.Struct) request {
	return request{fields: in.GetFields()}
}

func (r request) str(name string) string {
	return strings.TrimSpace(r.fields[name].GetStringValue())
}

func (r request) required(name string) (string, error) {
	value := r.str(name)
	if value == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return value, nil
}

// integer читает целое число. JSON-числа приходят как double, дробная часть отклоняется.
func (r request) integer(name string) (int, error) {
	value, ok := r.fields[name]
	if !ok {
		return 0, nil
	}
	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
	}
	f := number.NumberValue
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	return int(f), nil
}

func (r request) strings(name string) []string {
	values := r.fields[name].GetListValue().GetValues()
	return lo.FilterMap(values, func(v *structpb.Value, _ int) (string, bool) {
		s := strings.TrimSpace(v.GetStringValue())
		return s, s != ""
	})
}

func (r request) nested(name string) request {
	return newRequest(r.fields[name].GetStructValue())
}

func (r request) list(name string) []request {
	values := r.fields[name].GetListValue().GetValues()
	return lo.Map(values, func(v *structpb.Value, _ int) request {
		return newRequest(v.GetStructValue())
	})
}

func (r request) address(name string) domain.Address {
	a := r.nested(name)
	return domain.NewAddress(a.str("city"), a.str("street"), a.str("zip_code"))
}

// respond собирает ответ. Значения должны быть типами, которые понимает structpb.NewValue.
func respond(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func encodeMoney(m domain.Money) map[string]any {
	return map[string]any{
		"amount":   m.AmountString(),
		"currency": m.Currency().String(),
	}
}

func encodeAddress(a domain.Address) map[string]any {
	return map[string]any{
		"city":     a.City,
		"street":   a.Street,
		"zip_code": a.ZipCode,
	}
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeLine(l domain.OrderLine) map[string]any {
	product := l.Product()
	return map[string]any{
		"id":                  l.ID().String(),
		"product_id":          product.ProductID.String(),
		"external_product_id": product.ExternalID,
		"product_name":        product.Name,
		"category":            product.Category.String(),
		"unit_price":          encodeMoney(product.UnitPrice),
		"quantity":            l.Quantity().Int(),
		"sub_total":           encodeMoney(l.SubTotal()),
	}
}

func encodeOrder(o *domain.Order) map[string]any {
	out := map[string]any{
		"id":               o.ID().String(),
		"point_of_sale_id": o.PointOfSaleID().String(),
		"distributor_id":   o.DistributorID().String(),
		"delivery_address": encodeAddress(o.DeliveryAddress()),
		"status":           o.Status().String(),
		"price":            encodeMoney(o.Price()),
		"created_on":       encodeTime(o.CreatedOn()),
		"version":          o.Version(),
		"lines":            lo.Map(o.Lines(), func(l domain.OrderLine, _ int) any { return encodeLine(l) }),
	}
	stamps := map[string]*time.Time{
		"confirmed_on": o.ConfirmedOn(),
		"rejected_on":  o.RejectedOn(),
		"delivered_on": o.DeliveredOn(),
		"canceled_on":  o.CanceledOn(),
	}
	for key, stamp := range stamps {
		if stamp != nil {
			out[key] = encodeTime(*stamp)
		}
	}
	return out
}

func encodeDistributor(d *domain.Distributor) map[string]any {
	return map[string]any{
		"id":           d.ID().String(),
		"phone_number": d.PhoneNumber(),
		"name":         d.Name(),
		"address":      encodeAddress(d.Address()),
		"created_at":   encodeTime(d.CreatedAt()),
		"version":      d.Version(),
		"categories": lo.Map(d.SupportedCategories(), func(c domain.Category, _ int) any {
			return c.String()
		}),
	}
}

func encodeAssignment(a domain.Assignment) map[string]any {
	return map[string]any{
		"id":               a.ID.String(),
		"point_of_sale_id": a.PointOfSaleID.String(),
		"distributor_id":   a.DistributorID.String(),
		"category":         a.Category.String(),
		"assigned_at":      encodeTime(a.AssignedAt),
	}
}

func encodePointOfSale(p *domain.PointOfSale) map[string]any {
	return map[string]any{
		"id":           p.ID().String(),
		"name":         p.Name(),
		"phone_number": p.PhoneNumber(),
		"address":      encodeAddress(p.Address()),
		"is_active":    p.IsActive(),
		"created_at":   encodeTime(p.CreatedAt()),
		"version":      p.Version(),
		"assignments":  lo.Map(p.Assignments(), func(a domain.Assignment, _ int) any { return encodeAssignment(a) }),
	}
}

func encodeProduct(p *domain.Product) map[string]any {
	return map[string]any{
		"id":                  p.ID().String(),
		"external_product_id": p.ExternalID(),
		"name":                p.Name(),
		"unit_price":          encodeMoney(p.UnitPrice()),
		"category":            p.Category().String(),
		"description":         p.Description(),
		"last_updated":        encodeTime(p.LastUpdated()),
	}
}

func encodeTimelineEvent(e domain.TimelineEvent) map[string]any {
	return map[string]any{
		"type":     e.Type,
		"reason":   e.Reason,
		"occurred": encodeTime(e.Occurred),
	}
}
