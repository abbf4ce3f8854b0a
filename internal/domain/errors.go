package domain

import "errors"

// Code — стабильный машиночитаемый код доменной ошибки.
// Граница (gRPC/обработчики) опирается только на код, а не на текст сообщения.
type Code string

// Error описывает нарушение бизнес-правила.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// newError создаёт доменную ошибку с кодом и сообщением.
func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	// Ошибки value objects.
	ErrCurrencyMismatch   = newError("Money.CurrencyMismatch", "currencies have to be equal")
	ErrNegativeResult     = newError("Money.NegativeResult", "money operation would produce a negative amount")
	ErrNegativeAmount     = newError("Money.NegativeAmount", "money amount must be non-negative")
	ErrInvalidAmountScale = newError("Money.InvalidScale", "money amount has more decimals than the currency allows")
	ErrInvalidQuantity    = newError("Quantity.Invalid", "quantity must be greater than zero")
	ErrUnknownCurrency    = newError("Currency.Unknown", "currency code is not supported")
	ErrUnknownCategory    = newError("Category.Unknown", "category is not supported")
	ErrCategoryDeprecated = newError("Category.Deprecated", "category is deprecated and cannot be used for new assignments")

	// Ошибки агрегата заказа.
	ErrOrderNotFound           = newError("Order.NotFound", "the order with the specified identifier was not found")
	ErrDuplicateProduct        = newError("Order.DuplicateProduct", "product already added to order")
	ErrLineNotFound            = newError("Order.LineNotFound", "order line not found")
	ErrCannotRemoveLastLine    = newError("Order.LastLineCannotBeRemoved", "cannot remove the last order line")
	ErrOrderHasNoLines         = newError("Order.NoLines", "order must contain at least one line")
	ErrLineOwnerMismatch       = newError("Order.LineOwnerMismatch", "order line belongs to another order")
	ErrInvalidStatus           = newError("Order.InvalidStatus", "order status is not supported")
	ErrStatusCreatedNotAllowed = newError("Order.StatusCreatedNotAllowed", "order status cannot be updated to created")

	// Ошибки дистрибьютора.
	ErrDistributorNotFound     = newError("Distributor.NotFound", "the distributor with the specified identifier was not found")
	ErrDistributorExists       = newError("Distributor.AlreadyExists", "a distributor with the specified phone number already exists")
	ErrCategoryNotSupported    = newError("Distributor.CategoryNotSupported", "the distributor does not support the specified category")
	ErrCategoryAlreadyAssigned = newError("Distributor.CategoryAlreadyAssigned", "the category is already assigned to the distributor")
	ErrCategoryNotAssigned     = newError("Distributor.CategoryNotAssigned", "the category is not currently assigned to the distributor")

	// Ошибки точки продаж и назначений.
	ErrPointOfSaleNotFound    = newError("PointOfSale.NotFound", "the point of sale with the specified identifier was not found")
	ErrPointOfSaleExists      = newError("PointOfSale.AlreadyExists", "a point of sale with the specified phone number already exists")
	ErrPointOfSaleInactive    = newError("PointOfSale.Inactive", "the point of sale is disabled")
	ErrPointOfSaleEnabled     = newError("PointOfSale.AlreadyEnabled", "the point of sale is already enabled")
	ErrPointOfSaleDisabled    = newError("PointOfSale.AlreadyDisabled", "the point of sale is already disabled")
	ErrAlreadyAssigned        = newError("PointOfSale.AlreadyAssigned", "the distributor is already assigned to this point of sale for the given category")
	ErrDistributorNotAssigned = newError("PointOfSale.DistributorNotAssigned", "the distributor is not assigned to this point of sale for the given category")

	// Ошибки каталога.
	ErrProductNotFound      = newError("Product.NotFound", "the product with the specified identifier was not found")
	ErrDuplicatedExternalID = newError("Product.DuplicatedExternalId", "a product with the same external product id already exists")

	// ErrValidation — общий код для некорректных входных данных (пустые поля и т.п.).
	ErrValidation = newError("Validation.Invalid", "request is invalid")

	// ErrVersionConflict сигнализирует о конфликте версий при сохранении агрегата.
	ErrVersionConflict = errors.New("aggregate version conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// CodeOf возвращает код доменной ошибки из цепочки err.
func CodeOf(err error) (Code, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code, true
	}
	return "", false
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
