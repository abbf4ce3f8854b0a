package ordering

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
)

// RegisterDistributorCommand — новый дистрибьютор. Номер телефона уникален.
type RegisterDistributorCommand struct {
	PhoneNumber string
	Name        string
	Address     domain.Address
	Categories  []string
}

// RegisterDistributor регистрирует дистрибьютора с начальным набором категорий.
func (s *Service) RegisterDistributor(ctx context.Context, cmd RegisterDistributorCommand) (distributor *domain.Distributor, err error) {
	finish := s.begin("register_distributor", log.Fields{"phone": cmd.PhoneNumber})
	defer func() { finish(err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	categories, err := parseActiveCategories(cmd.Categories)
	if err != nil {
		return nil, err
	}
	distributor, err = domain.NewDistributor(cmd.PhoneNumber, cmd.Name, cmd.Address, categories, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.distributors.Create(distributor); err != nil {
		return nil, err
	}
	return distributor, nil
}

// AddDistributorCategory добавляет категорию. Повторное добавление отклоняется
// с кодом Distributor.CategoryAlreadyAssigned.
func (s *Service) AddDistributorCategory(ctx context.Context, distributorID, rawCategory string) (distributor *domain.Distributor, err error) {
	finish := s.begin("add_distributor_category", log.Fields{"distributor_id": distributorID, "category": rawCategory})
	defer func() { finish(err) }()

	id, err := domain.ParseID[domain.DistributorID](distributorID)
	if err != nil {
		return nil, err
	}
	category, err := domain.ParseActiveCategory(rawCategory)
	if err != nil {
		return nil, err
	}
	return s.mutateDistributor(ctx, id, func(d *domain.Distributor) error {
		if !d.AddCategory(category) {
			return fmt.Errorf("%w: %s", domain.ErrCategoryAlreadyAssigned, category)
		}
		return nil
	})
}

// RemoveDistributorCategory убирает категорию. Устаревшие категории убирать можно.
func (s *Service) RemoveDistributorCategory(ctx context.Context, distributorID, rawCategory string) (distributor *domain.Distributor, err error) {
	finish := s.begin("remove_distributor_category", log.Fields{"distributor_id": distributorID, "category": rawCategory})
	defer func() { finish(err) }()

	id, err := domain.ParseID[domain.DistributorID](distributorID)
	if err != nil {
		return nil, err
	}
	category, err := domain.ParseCategory(rawCategory)
	if err != nil {
		return nil, err
	}
	return s.mutateDistributor(ctx, id, func(d *domain.Distributor) error {
		if !d.RemoveCategory(category) {
			return fmt.Errorf("%w: %s", domain.ErrCategoryNotAssigned, category)
		}
		return nil
	})
}

func (s *Service) mutateDistributor(ctx context.Context, id domain.DistributorID, mutate func(*domain.Distributor) error) (*domain.Distributor, error) {
	return unitOfWork(ctx, s,
		func() (*domain.Distributor, error) { return s.distributors.Get(id) },
		mutate,
		s.distributors.Save,
	)
}

// GetDistributor возвращает дистрибьютора по идентификатору.
func (s *Service) GetDistributor(_ context.Context, distributorID string) (*domain.Distributor, error) {
	id, err := domain.ParseID[domain.DistributorID](distributorID)
	if err != nil {
		return nil, err
	}
	return s.distributors.Get(id)
}

func parseActiveCategories(raw []string) ([]domain.Category, error) {
	categories := make([]domain.Category, 0, len(raw))
	for _, value := range lo.Uniq(raw) {
		category, err := domain.ParseActiveCategory(value)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}
