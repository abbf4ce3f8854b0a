package ordering

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// RegisterPointOfSaleCommand — новая точка продаж. Номер телефона уникален.
type RegisterPointOfSaleCommand struct {
	Name        string
	PhoneNumber string
	Address     domain.Address
}

// RegisterPointOfSale регистрирует активную точку продаж без назначений.
func (s *Service) RegisterPointOfSale(ctx context.Context, cmd RegisterPointOfSaleCommand) (pointOfSale *domain.PointOfSale, err error) {
	finish := s.begin("register_point_of_sale", log.Fields{"phone": cmd.PhoneNumber})
	defer func() { finish(err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pointOfSale, err = domain.NewPointOfSale(cmd.Name, cmd.PhoneNumber, cmd.Address, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.pointsOfSale.Create(pointOfSale); err != nil {
		return nil, err
	}
	return pointOfSale, nil
}

// ActivatePointOfSale включает точку продаж.
func (s *Service) ActivatePointOfSale(ctx context.Context, pointOfSaleID string) (pointOfSale *domain.PointOfSale, err error) {
	finish := s.begin("activate_point_of_sale", log.Fields{"point_of_sale_id": pointOfSaleID})
	defer func() { finish(err) }()

	return s.mutatePointOfSaleByID(ctx, pointOfSaleID, func(p *domain.PointOfSale) error {
		if !p.Activate() {
			return domain.ErrPointOfSaleEnabled
		}
		return nil
	})
}

// DeactivatePointOfSale выключает точку продаж. Новые заказы для неё не принимаются.
func (s *Service) DeactivatePointOfSale(ctx context.Context, pointOfSaleID string) (pointOfSale *domain.PointOfSale, err error) {
	finish := s.begin("deactivate_point_of_sale", log.Fields{"point_of_sale_id": pointOfSaleID})
	defer func() { finish(err) }()

	return s.mutatePointOfSaleByID(ctx, pointOfSaleID, func(p *domain.PointOfSale) error {
		if !p.Deactivate() {
			return domain.ErrPointOfSaleDisabled
		}
		return nil
	})
}

// AssignDistributorCommand — назначение дистрибьютора точке продаж на категорию.
type AssignDistributorCommand struct {
	PointOfSaleID string
	DistributorID string
	Category      string
}

// AssignDistributor назначает дистрибьютора точке продаж.
//
// Поддержка категории дистрибьютором проверяется до мутации точки: это чтение
// другого агрегата. Повтор той же тройки отклоняется с PointOfSale.AlreadyAssigned,
// в том числе когда гонку ловит уникальный индекс хранилища.
func (s *Service) AssignDistributor(ctx context.Context, cmd AssignDistributorCommand) (assignment domain.Assignment, err error) {
	finish := s.begin("assign_distributor", log.Fields{
		"point_of_sale_id": cmd.PointOfSaleID,
		"distributor_id":   cmd.DistributorID,
		"category":         cmd.Category,
	})
	defer func() { finish(err) }()

	distributorID, err := domain.ParseID[domain.DistributorID](cmd.DistributorID)
	if err != nil {
		return domain.Assignment{}, err
	}
	category, err := domain.ParseActiveCategory(cmd.Category)
	if err != nil {
		return domain.Assignment{}, err
	}
	distributor, err := s.distributors.Get(distributorID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if !distributor.Supports(category) {
		return domain.Assignment{}, fmt.Errorf("%w: %s", domain.ErrCategoryNotSupported, category)
	}

	pointOfSale, err := s.mutatePointOfSaleByID(ctx, cmd.PointOfSaleID, func(p *domain.PointOfSale) error {
		if !p.AssignDistributor(distributorID, category, s.now()) {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyAssigned, category)
		}
		return nil
	})
	if err != nil {
		return domain.Assignment{}, err
	}

	assignment, _ = lo.Find(pointOfSale.Assignments(), func(a domain.Assignment) bool {
		return a.DistributorID == distributorID && a.Category == category
	})
	return assignment, nil
}

// UnassignDistributorCommand снимает назначение дистрибьютора на категорию.
type UnassignDistributorCommand struct {
	PointOfSaleID string
	DistributorID string
	Category      string
}

// UnassignDistributor снимает назначение. Отсутствующее назначение отклоняется
// с кодом PointOfSale.DistributorNotAssigned.
func (s *Service) UnassignDistributor(ctx context.Context, cmd UnassignDistributorCommand) (pointOfSale *domain.PointOfSale, err error) {
	finish := s.begin("unassign_distributor", log.Fields{
		"point_of_sale_id": cmd.PointOfSaleID,
		"distributor_id":   cmd.DistributorID,
		"category":         cmd.Category,
	})
	defer func() { finish(err) }()

	distributorID, err := domain.ParseID[domain.DistributorID](cmd.DistributorID)
	if err != nil {
		return nil, err
	}
	category, err := domain.ParseCategory(cmd.Category)
	if err != nil {
		return nil, err
	}
	return s.mutatePointOfSaleByID(ctx, cmd.PointOfSaleID, func(p *domain.PointOfSale) error {
		if !p.UnassignDistributor(distributorID, category) {
			return fmt.Errorf("%w: %s", domain.ErrDistributorNotAssigned, category)
		}
		return nil
	})
}

func (s *Service) mutatePointOfSaleByID(ctx context.Context, rawID string, mutate func(*domain.PointOfSale) error) (*domain.PointOfSale, error) {
	id, err := domain.ParseID[domain.PointOfSaleID](rawID)
	if err != nil {
		return nil, err
	}
	return unitOfWork(ctx, s,
		func() (*domain.PointOfSale, error) { return s.pointsOfSale.Get(id) },
		mutate,
		s.pointsOfSale.Save,
	)
}

// GetPointOfSale возвращает точку продаж вместе с назначениями.
func (s *Service) GetPointOfSale(_ context.Context, pointOfSaleID string) (*domain.PointOfSale, error) {
	id, err := domain.ParseID[domain.PointOfSaleID](pointOfSaleID)
	if err != nil {
		return nil, err
	}
	return s.pointsOfSale.Get(id)
}
