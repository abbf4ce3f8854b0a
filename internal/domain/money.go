package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency — код валюты из закрытого набора поддерживаемых.
type Currency string

const (
	// CurrencyUYU — уругвайский песо, основная валюта заказов.
	CurrencyUYU Currency = "UYU"
	// CurrencyUSD — доллар США.
	CurrencyUSD Currency = "USD"
)

var supportedCurrencies = map[Currency]struct{}{
	CurrencyUYU: {},
	CurrencyUSD: {},
}

// CurrencyFromCode возвращает валюту по ISO-коду или ErrUnknownCurrency.
func CurrencyFromCode(code string) (Currency, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	c := Currency(unit.String())
	if _, ok := supportedCurrencies[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return c, nil
}

// Valid сообщает, входит ли валюта в поддерживаемый набор.
func (c Currency) Valid() bool {
	_, ok := supportedCurrencies[c]
	return ok
}

func (c Currency) String() string { return string(c) }

// Scale возвращает число знаков после запятой для валюты по данным CLDR (UYU, USD: 2).
func (c Currency) Scale() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Money — неизменяемая денежная сумма в конкретной валюте.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney создаёт сумму; отрицательные суммы, неизвестные валюты и суммы
// точнее минимальной единицы валюты отклоняются. Незначащие нули (10.2500) допустимы.
func NewMoney(amount decimal.Decimal, c Currency) (Money, error) {
	if !c.Valid() {
		return Money{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, string(c))
	}
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	if scale := c.Scale(); !amount.Equal(amount.Round(scale)) {
		return Money{}, fmt.Errorf("%w: %s allows %d decimals, got %s", ErrInvalidAmountScale, c, scale, amount)
	}
	return Money{amount: amount, currency: c}, nil
}

// ZeroMoney возвращает нулевую сумму в валюте c.
func ZeroMoney(c Currency) Money {
	return Money{amount: decimal.Zero, currency: c}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }

// IsZero сообщает, равна ли сумма нулю.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Add складывает суммы одной валюты.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract вычитает other; результат не может быть отрицательным.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	if m.amount.LessThan(other.amount) {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrNegativeResult, m, other)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Multiply умножает сумму на количество. Quantity всегда положительно, поэтому ошибки нет.
func (m Money) Multiply(q Quantity) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(q.Int()))), currency: m.currency}
}

// Equal сравнивает суммы структурно (1.50 == 1.5).
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return m.AmountString() + " " + string(m.currency)
}

// AmountString форматирует сумму с точностью валюты: 10 UYU -> "10.00".
func (m Money) AmountString() string {
	return m.amount.StringFixed(m.currency.Scale())
}
