package store

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	perrors "github.com/abgdnv/gopos/internal/pos/errors"
	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "POS_SVC_SKIP_INTEGRATION_TESTS"

// PgStoreSuite runs the store contract against a PostgreSQL container.
type PgStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       *PgStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite starts PostgreSQL, applies the embedded migrations and opens the pool.
func (s *PgStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("pos"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	cfg, err := pgxpool.ParseConfig(connStr)
	require.NoError(s.T(), err, "Failed to parse pool config")
	cfg.AfterConnect = RegisterTypes
	s.dbPool, err = pgxpool.NewWithConfig(s.ctx, cfg)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	require.NoError(s.T(), MigratePostgres(connStr), "Failed to apply migrations")
	// a second run must be a no-op
	require.NoError(s.T(), MigratePostgres(connStr))

	s.store = NewPgStore(s.dbPool)
	s.logger.Info("Initialization complete for PgStoreSuite")
}

// TearDownSuite closes the pool and terminates the container.
func (s *PgStoreSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

func (s *PgStoreSuite) truncate() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE sale_items, sales, price_history, products RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate tables")
}

// SetupTest empties every table.
func (s *PgStoreSuite) SetupTest() {
	s.truncate()
}

func TestPgStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(PgStoreSuite))
}

func (s *PgStoreSuite) TestContract() {
	for _, tc := range contractCases {
		s.Run(tc.name, func() {
			s.truncate()
			tc.run(s.T(), s.store)
		})
	}
}

func (s *PgStoreSuite) TestSaveProductWithHistory_FailureWritesNothing() {
	// given
	p := testProduct("123", "Milk")
	p.Quantity = -1
	entries := []model.ProductPriceHistory{p.Snapshot(baseTime)}
	// when
	err := s.store.SaveProductWithHistory(s.ctx, p, entries)
	// then
	require.ErrorIs(s.T(), err, perrors.ErrStorage)
	_, err = s.store.GetProductByBarcode(s.ctx, "123")
	require.ErrorIs(s.T(), err, perrors.ErrProductNotFound)
	history, err := s.store.GetPriceHistory(s.ctx, "123")
	require.NoError(s.T(), err)
	require.Empty(s.T(), history)
	require.Zero(s.T(), entries[0].ID)
}

func (s *PgStoreSuite) TestSaveSale_RejectsInvalidItemAtomically() {
	// given
	sale := &model.Sale{ClientID: "C1", Items: []model.SaleItem{
		{Barcode: "123", Quantity: 1, UnitPrice: dec("1")},
		{Barcode: "456", Quantity: 0, UnitPrice: dec("1")},
	}}
	// when
	_, err := s.store.SaveSale(s.ctx, sale, baseTime)
	// then
	require.ErrorIs(s.T(), err, perrors.ErrStorage)
	var headers int
	require.NoError(s.T(), s.dbPool.QueryRow(s.ctx, "SELECT count(*) FROM sales").Scan(&headers))
	require.Zero(s.T(), headers)
}
