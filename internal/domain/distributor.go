package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Distributor — дистрибьютор, обслуживающий точки продаж по набору категорий.
// Номер телефона — бизнес-ключ.
type Distributor struct {
	EventBuffer

	id          DistributorID
	phoneNumber string
	name        string
	address     Address
	createdAt   time.Time
	categories  []Category
	version     int64
}

// NewDistributor создаёт дистрибьютора. Устаревшие и неизвестные категории отклоняются,
// повторы в списке схлопываются.
func NewDistributor(phoneNumber, name string, address Address, categories []Category, createdAt time.Time) (*Distributor, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	name = strings.TrimSpace(name)
	if phoneNumber == "" {
		return nil, fmt.Errorf("%w: distributor phone number is required", ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: distributor name is required", ErrValidation)
	}
	for _, c := range categories {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c.String())
		}
		if c.Deprecated() {
			return nil, fmt.Errorf("%w: %s", ErrCategoryDeprecated, c)
		}
	}

	return &Distributor{
		id:          NewDistributorID(),
		phoneNumber: phoneNumber,
		name:        name,
		address:     address,
		createdAt:   createdAt.UTC(),
		categories:  lo.Uniq(categories),
	}, nil
}

func (d *Distributor) ID() DistributorID    { return d.id }
func (d *Distributor) PhoneNumber() string  { return d.phoneNumber }
func (d *Distributor) Name() string         { return d.name }
func (d *Distributor) Address() Address     { return d.address }
func (d *Distributor) CreatedAt() time.Time { return d.createdAt }
func (d *Distributor) Version() int64       { return d.version }
func (d *Distributor) IncrementVersion()    { d.version++ }

// SupportedCategories возвращает копию набора категорий в порядке добавления.
func (d *Distributor) SupportedCategories() []Category {
	return slices.Clone(d.categories)
}

// Supports сообщает, обслуживает ли дистрибьютор категорию.
func (d *Distributor) Supports(c Category) bool {
	return slices.Contains(d.categories, c)
}

// AddCategory добавляет категорию. false — категория уже была, состояние не менялось.
func (d *Distributor) AddCategory(c Category) bool {
	if d.Supports(c) {
		return false
	}
	d.categories = append(d.categories, c)
	d.raise(DistributorCategoryAdded{DistributorID: d.id.String(), Category: c.String()})
	return true
}

// RemoveCategory убирает категорию. false — категории не было.
func (d *Distributor) RemoveCategory(c Category) bool {
	if !d.Supports(c) {
		return false
	}
	d.categories = lo.Without(d.categories, c)
	d.raise(DistributorCategoryRemoved{DistributorID: d.id.String(), Category: c.String()})
	return true
}

// DistributorState — плоское представление дистрибьютора для хранилищ.
type DistributorState struct {
	ID          DistributorID
	PhoneNumber string
	Name        string
	Address     Address
	CreatedAt   time.Time
	Categories  []Category
	Version     int64
}

func (d *Distributor) State() DistributorState {
	return DistributorState{
		ID:          d.id,
		PhoneNumber: d.phoneNumber,
		Name:        d.name,
		Address:     d.address,
		CreatedAt:   d.createdAt,
		Categories:  slices.Clone(d.categories),
		Version:     d.version,
	}
}

func RestoreDistributor(s DistributorState) *Distributor {
	return &Distributor{
		id:          s.ID,
		phoneNumber: s.PhoneNumber,
		name:        s.Name,
		address:     s.Address,
		createdAt:   s.CreatedAt,
		categories:  slices.Clone(s.Categories),
		version:     s.Version,
	}
}
