package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Assignment — разрешение дистрибьютору поставлять категорию в точку продаж.
// Тройка (точка, дистрибьютор, категория) уникальна.
type Assignment struct {
	ID            AssignmentID
	PointOfSaleID PointOfSaleID
	DistributorID DistributorID
	Category      Category
	AssignedAt    time.Time
}

// PointOfSale — точка продаж, принимающая заказы от назначенных дистрибьюторов.
type PointOfSale struct {
	EventBuffer

	id          PointOfSaleID
	name        string
	phoneNumber string
	address     Address
	isActive    bool
	createdAt   time.Time
	assignments []Assignment
	version     int64
}

// NewPointOfSale создаёт активную точку продаж без назначений.
func NewPointOfSale(name, phoneNumber string, address Address, createdAt time.Time) (*PointOfSale, error) {
	name = strings.TrimSpace(name)
	phoneNumber = strings.TrimSpace(phoneNumber)
	if name == "" {
		return nil, fmt.Errorf("%w: point of sale name is required", ErrValidation)
	}
	if phoneNumber == "" {
		return nil, fmt.Errorf("%w: point of sale phone number is required", ErrValidation)
	}
	return &PointOfSale{
		id:          NewPointOfSaleID(),
		name:        name,
		phoneNumber: phoneNumber,
		address:     address,
		isActive:    true,
		createdAt:   createdAt.UTC(),
	}, nil
}

func (p *PointOfSale) ID() PointOfSaleID    { return p.id }
func (p *PointOfSale) Name() string         { return p.name }
func (p *PointOfSale) PhoneNumber() string  { return p.phoneNumber }
func (p *PointOfSale) Address() Address     { return p.address }
func (p *PointOfSale) IsActive() bool       { return p.isActive }
func (p *PointOfSale) CreatedAt() time.Time { return p.createdAt }
func (p *PointOfSale) Version() int64       { return p.version }
func (p *PointOfSale) IncrementVersion()    { p.version++ }

// Assignments возвращает копию назначений.
func (p *PointOfSale) Assignments() []Assignment {
	return slices.Clone(p.assignments)
}

// IsAssigned сообщает, назначен ли дистрибьютор на категорию в этой точке.
func (p *PointOfSale) IsAssigned(distributorID DistributorID, category Category) bool {
	return lo.ContainsBy(p.assignments, func(a Assignment) bool {
		return a.DistributorID == distributorID && a.Category == category
	})
}

// DistributorCategories возвращает категории, на которые назначен дистрибьютор.
func (p *PointOfSale) DistributorCategories(distributorID DistributorID) []Category {
	return lo.FilterMap(p.assignments, func(a Assignment, _ int) (Category, bool) {
		return a.Category, a.DistributorID == distributorID
	})
}

// AssignDistributor создаёт назначение. false — такая тройка уже есть.
// Проверка, что дистрибьютор поддерживает категорию, выполняется до вызова.
// Хранилище обязано дублировать уникальность ограничением: параллельные
// запросы могут одновременно пройти проверку в памяти.
func (p *PointOfSale) AssignDistributor(distributorID DistributorID, category Category, at time.Time) bool {
	if p.IsAssigned(distributorID, category) {
		return false
	}
	assignment := Assignment{
		ID:            NewAssignmentID(),
		PointOfSaleID: p.id,
		DistributorID: distributorID,
		Category:      category,
		AssignedAt:    at.UTC(),
	}
	p.assignments = append(p.assignments, assignment)
	p.raise(DistributorAssigned{
		PointOfSaleID: p.id.String(),
		DistributorID: distributorID.String(),
		AssignmentID:  assignment.ID.String(),
		Category:      category.String(),
	})
	return true
}

// UnassignDistributor удаляет назначение. false — назначения не было.
func (p *PointOfSale) UnassignDistributor(distributorID DistributorID, category Category) bool {
	idx := slices.IndexFunc(p.assignments, func(a Assignment) bool {
		return a.DistributorID == distributorID && a.Category == category
	})
	if idx < 0 {
		return false
	}
	p.assignments = slices.Delete(p.assignments, idx, idx+1)
	p.raise(DistributorUnassigned{
		PointOfSaleID: p.id.String(),
		DistributorID: distributorID.String(),
		Category:      category.String(),
	})
	return true
}

// Activate включает точку. false — уже активна.
func (p *PointOfSale) Activate() bool {
	if p.isActive {
		return false
	}
	p.isActive = true
	p.raise(PointOfSaleActivated{PointOfSaleID: p.id.String()})
	return true
}

// Deactivate выключает точку. false — уже выключена.
func (p *PointOfSale) Deactivate() bool {
	if !p.isActive {
		return false
	}
	p.isActive = false
	p.raise(PointOfSaleDeactivated{PointOfSaleID: p.id.String()})
	return true
}

// PointOfSaleState — плоское представление точки продаж для хранилищ.
type PointOfSaleState struct {
	ID          PointOfSaleID
	Name        string
	PhoneNumber string
	Address     Address
	IsActive    bool
	CreatedAt   time.Time
	Assignments []Assignment
	Version     int64
}

func (p *PointOfSale) State() PointOfSaleState {
	return PointOfSaleState{
		ID:          p.id,
		Name:        p.name,
		PhoneNumber: p.phoneNumber,
		Address:     p.address,
		IsActive:    p.isActive,
		CreatedAt:   p.createdAt,
		Assignments: slices.Clone(p.assignments),
		Version:     p.version,
	}
}

func RestorePointOfSale(s PointOfSaleState) *PointOfSale {
	return &PointOfSale{
		id:          s.ID,
		name:        s.Name,
		phoneNumber: s.PhoneNumber,
		address:     s.Address,
		isActive:    s.IsActive,
		createdAt:   s.CreatedAt,
		assignments: slices.Clone(s.Assignments),
		version:     s.Version,
	}
}
