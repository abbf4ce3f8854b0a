package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// pgUniqueViolation — SQLSTATE нарушения уникальности.
const pgUniqueViolation = "23505"

// uniqueViolation возвращает имя нарушенного ограничения уникальности.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func isUniqueViolation(err error) bool {
	_, ok := uniqueViolation(err)
	return ok
}

// moneyColumns собирает Money из пары колонок amount/currency.
func moneyColumns(amount decimal.Decimal, currency string) (domain.Money, error) {
	c, err := domain.CurrencyFromCode(currency)
	if err != nil {
		return domain.Money{}, fmt.Errorf("decode currency column: %w", err)
	}
	m, err := domain.NewMoney(amount, c)
	if err != nil {
		return domain.Money{}, fmt.Errorf("decode money columns: %w", err)
	}
	return m, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// rowScanner — общий интерфейс *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// addressColumns собирает Address из трёх колонок. Строки, записанные до
// разделения адреса на колонки, читаются из legacy-колонки address.
func addressColumns(city, street, zipCode string, legacy sql.NullString) domain.Address {
	address := domain.NewAddress(city, street, zipCode)
	if address.IsEmpty() && legacy.Valid && legacy.String != "" {
		return domain.ParseAddress(legacy.String)
	}
	return address
}
