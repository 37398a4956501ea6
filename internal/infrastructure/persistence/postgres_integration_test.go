//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/migration"
	"github.com/erp/procurement/migrations"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newPostgresRepository starts a throwaway PostgreSQL container, applies the
// embedded migrations and returns a repository bound to it.
func newPostgresRepository(t *testing.T) *GormPurchaseOrderRepository {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("procurement_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migration.DriverPostgres, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return NewGormPurchaseOrderRepository(db, WithClock(fixedClock))
}

func TestPostgres_PurchaseOrderLifecycle(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()

	number, err := repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PO-2026-00001", number)

	order := newOrder(t, number, uuid.New(), "Acme Foods")
	require.NoError(t, repo.Save(ctx, order))

	next, err := repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PO-2026-00002", next)

	approve(t, order)
	require.NoError(t, repo.SaveWithLock(ctx, order))

	_, err = order.ReceiveGoods(procurement.ReceiveGoodsInput{
		ReceivedBy: "clerk-1",
		Items: []procurement.ReceiptItemInput{{
			LineItemID:       order.Items[0].ID,
			QuantityReceived: decimal.NewFromInt(100),
			QuantityAccepted: decimal.NewFromInt(100),
		}},
		QualityApproved: true,
	})
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, order))

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.OrderStatusPartial, loaded.Status)
	assert.Equal(t, 3, loaded.Version)
	require.Len(t, loaded.Receipts, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(loaded.Items[0].ReceivedQuantity))
	assert.True(t, order.TotalAmount.Equal(loaded.TotalAmount))

	filter := procurement.DefaultOrderFilter()
	filter.Status = procurement.OrderStatusPartial
	count, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPostgres_SaveWithLock_StaleVersion(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()

	order := newOrder(t, "PO-2026-00001", uuid.New(), "Acme Foods")
	require.NoError(t, repo.Save(ctx, order))

	first, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, first.Submit())
	require.NoError(t, repo.SaveWithLock(ctx, first))

	require.NoError(t, second.Submit())
	err = repo.SaveWithLock(ctx, second)
	require.Error(t, err)
	assert.True(t, shared.IsConcurrency(err))
}
