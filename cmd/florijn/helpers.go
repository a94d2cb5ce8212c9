package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/florijnhq/florijn/internal/config"
	"github.com/florijnhq/florijn/internal/service"
	"github.com/florijnhq/florijn/internal/storage"
)

// databasePath resolves the configured database path, falling back to the
// default location under the user's data directory.
func databasePath() string {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/florijn/florijn.db"
	}
	return config.ExpandPath(dbPath)
}

// initStorage initializes the storage service with proper path expansion
// and runs pending schema migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}
