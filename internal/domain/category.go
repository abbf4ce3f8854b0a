package domain

import (
	"fmt"
	"strings"
)

// Category — категория продукции. Набор закрыт и общий для всех агрегатов.
type Category string

const (
	CategoryLacteos      Category = "LACTEOS"
	CategoryCongelados   Category = "CONGELADOS"
	CategorySubproductos Category = "SUBPRODUCTOS"
	// CategoryBebidas оставлена для чтения старых записей; новые назначения с ней запрещены.
	CategoryBebidas Category = "BEBIDAS"
)

var knownCategories = map[Category]bool{
	CategoryLacteos:      false,
	CategoryCongelados:   false,
	CategorySubproductos: false,
	CategoryBebidas:      true,
}

// ParseCategory разбирает название категории без учёта регистра.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
	}
	return c, nil
}

// ParseActiveCategory — как ParseCategory, но отклоняет устаревшие категории.
func ParseActiveCategory(raw string) (Category, error) {
	c, err := ParseCategory(raw)
	if err != nil {
		return "", err
	}
	if c.Deprecated() {
		return "", fmt.Errorf("%w: %s", ErrCategoryDeprecated, c)
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := knownCategories[c]
	return ok
}

// Deprecated сообщает, что категорию нельзя использовать для новых данных.
func (c Category) Deprecated() bool { return knownCategories[c] }

func (c Category) String() string { return string(c) }
