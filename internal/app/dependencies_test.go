package app

import (
	"context"
	"os"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/dairy-oms/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/dairy-oms/internal/health"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: StorageDriverMemory},
		log.WithField("test", "memory-storage"))
	require.NoError(t, err)

	assert.NotNil(t, deps.orders)
	assert.NotNil(t, deps.distributors)
	assert.NotNil(t, deps.pointsOfSale)
	assert.NotNil(t, deps.products)
	assert.NotNil(t, deps.outbox)
	assert.NotNil(t, deps.timeline)
	assert.Nil(t, deps.storageChecker)
	deps.close(log.WithField("test", "memory-storage"))
}

func TestInitRuntimeDependencies_Errors(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: StorageDriverPostgres},
		log.WithField("test", "postgres-missing-dsn"))
	require.ErrorContains(t, err, "postgres dsn is required")

	_, err = initRuntimeDependencies(context.Background(), Config{StorageDriver: "sqlite"},
		log.WithField("test", "unsupported-driver"))
	require.ErrorContains(t, err, "unsupported storage driver")
}

func TestInitRuntimeDependencies_PostgresSuccess(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("ORDERS_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("ORDERS_POSTGRES_TEST_DSN is not set")
	}

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = dsn

	logger := log.WithField("test", "postgres-init")
	deps, err := initRuntimeDependencies(context.Background(), cfg, logger)
	if err != nil {
		t.Skipf("postgres is not available for app integration test: %v", err)
	}
	defer deps.close(logger)

	require.NotNil(t, deps.storageChecker)
	check := deps.storageChecker.Check(context.Background())
	assert.Equal(t, healthcheck.StatusHealthy, check.Status, check.Message)
}

func TestOutboxBacklogCheck(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), DefaultConfig(), log.WithField("test", "outbox"))
	require.NoError(t, err)

	check := outboxBacklogCheck(deps.outbox, 1)
	require.NoError(t, check(context.Background()))

	for range 2 {
		_, err := deps.outbox.Enqueue(domain.OutboxMessage{
			AggregateType: domain.AggregateOrder,
			AggregateID:   "order-1",
			EventType:     domain.EventOrderCreated,
		})
		require.NoError(t, err)
	}
	require.ErrorContains(t, check(context.Background()), "outbox backlog 2 exceeds 1")
	require.NoError(t, outboxBacklogCheck(deps.outbox, 0)(context.Background()))
}
