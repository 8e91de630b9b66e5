//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/swgfv/internal/config"
	"github.com/BradenHooton/swgfv/internal/database"
	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/repositories"
	"github.com/BradenHooton/swgfv/migrations"
	"github.com/BradenHooton/swgfv/pkg/auth"
)

// TestDB manages a PostgreSQL testcontainer with every migration applied
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
}

// SetupTestDatabase starts PostgreSQL, connects through the application's
// pool configuration and runs the embedded migrations.
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("swgfv"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	portNum, _ := strconv.Atoi(port.Port())

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	db, err := database.NewConnection(&config.DatabaseConfig{
		Host:              host,
		Port:              portNum,
		User:              "postgres",
		Password:          "postgres",
		Name:              "swgfv",
		SSLMode:           "disable",
		MaxConns:          20,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: time.Minute,
	}, logger)
	if err != nil {
		container.Terminate(ctx)
		return nil, err
	}

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close()
		container.Terminate(ctx)
		return nil, err
	}

	return &TestDB{Container: container, DB: db}, nil
}

// Teardown closes the pool and stops the container
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.DB != nil {
		db.DB.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"audit_logs",
		"sizing_results",
		"sizing_inputs",
		"projects",
		"solar_panels",
		"inverters",
		"micro_inverters",
		"irradiance",
		"credential_locks",
		"sessions",
		"users",
	}

	for _, table := range tables {
		if _, err := db.DB.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// SeedUser inserts an active user with a hashed password
func SeedUser(ctx context.Context, db *database.DB, email, password, role string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := repositories.NewUserRepository(db).Create(ctx, &models.User{
		Email:           email,
		PasswordHash:    hash,
		FirstName:       "Test",
		PaternalSurname: "User",
		Role:            role,
		Active:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// SeedCatalog inserts one panel and one irradiance row and returns their ids
func SeedCatalog(ctx context.Context, db *database.DB) (panelID, irradianceID int64, err error) {
	repo := repositories.NewCatalogRepository(db)

	panel, err := repo.UpsertPanel(ctx, &models.SolarPanel{ModuleID: 101, Brand: "Acme", Model: "A550", PowerW: 550})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert panel: %w", err)
	}
	irr, err := repo.UpsertIrradiance(ctx, &models.Irradiance{
		City:    "Hermosillo",
		State:   "Sonora",
		Average: 5.5,
		Monthly: [12]float64{4.5, 5.5, 6.5, 7.2, 7.8, 7.6, 6.6, 6.3, 6.2, 5.8, 4.9, 4.3},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert irradiance: %w", err)
	}
	return panel.ID, irr.ID, nil
}
