package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/dairy-oms/internal/health"
	"github.com/vladislavdragonenkov/dairy-oms/internal/storage/memory"
	"github.com/vladislavdragonenkov/dairy-oms/internal/storage/postgres"
)

const storageInitTimeout = 30 * time.Second

// runtimeDependencies — хранилища выбранного драйвера и ресурсы, которые нужно закрыть при остановке.
type runtimeDependencies struct {
	orders       domain.OrderRepository
	distributors domain.DistributorRepository
	pointsOfSale domain.PointOfSaleRepository
	products     domain.ProductRepository
	outbox       domain.OutboxRepository
	timeline     domain.TimelineRepository

	// storageChecker nil для memory: проверять нечего.
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
		return
	}
	logger.Info("storage closed")
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			orders:       memory.NewOrderRepository(),
			distributors: memory.NewDistributorRepository(),
			pointsOfSale: memory.NewPointOfSaleRepository(),
			products:     memory.NewProductRepository(),
			outbox:       memory.NewOutboxRepository(),
			timeline:     memory.NewTimelineRepository(),
		}, nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres dsn is required for %s storage driver", StorageDriverPostgres)
	}

	initCtx, cancel := context.WithTimeout(ctx, storageInitTimeout)
	defer cancel()

	store, err := postgres.Open(initCtx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(initCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		logger.Info("postgres schema is up to date")
	}

	logger.Info("using postgres storage")
	return &runtimeDependencies{
		orders:         postgres.NewOrderRepository(store),
		distributors:   postgres.NewDistributorRepository(store),
		pointsOfSale:   postgres.NewPointOfSaleRepository(store),
		products:       postgres.NewProductRepository(store),
		outbox:         postgres.NewOutboxRepository(store),
		timeline:       postgres.NewTimelineRepository(store),
		storageChecker: healthcheck.NewCriticalChecker("postgres", store.Ping),
		closeFn:        store.Close,
	}, nil
}

// outboxBacklogCheck сообщает о переполненном outbox: события создаются быстрее, чем публикуются.
func outboxBacklogCheck(repo domain.OutboxRepository, maxPending int) func(ctx context.Context) error {
	return func(context.Context) error {
		stats, err := repo.Stats()
		if err != nil {
			return fmt.Errorf("outbox stats: %w", err)
		}
		if maxPending > 0 && stats.PendingCount > maxPending {
			return fmt.Errorf("outbox backlog %d exceeds %d", stats.PendingCount, maxPending)
		}
		return nil
	}
}
