// Command catalog-import loads equipment and irradiance catalogs from CSV
// files into the database.
//
//	catalog-import panels modules.csv
//	catalog-import irradiance --clear irradiance.csv
//	catalog-import migrate
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BradenHooton/swgfv/internal/config"
	"github.com/BradenHooton/swgfv/internal/database"
	"github.com/BradenHooton/swgfv/internal/repositories"
	"github.com/BradenHooton/swgfv/internal/services"
	"github.com/BradenHooton/swgfv/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&env{connect: dbConnector(logger)})
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// dbConnector opens the database from the environment configuration and
// builds the catalog service on top of it.
func dbConnector(logger *slog.Logger) connectFunc {
	return func(ctx context.Context, migrate bool) (*session, error) {
		cfg, err := config.LoadDatabase()
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}

		db, err := database.NewConnection(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}

		if migrate || cfg.AutoMigrate {
			if err := db.Migrate(ctx, migrations.FS); err != nil {
				db.Close()
				return nil, err
			}
		}

		audit := services.NewAuditService(repositories.NewAuditLogRepository(db), logger)
		return &session{
			importer: services.NewCatalogService(repositories.NewCatalogRepository(db), audit, logger),
			close:    db.Close,
		}, nil
	}
}
