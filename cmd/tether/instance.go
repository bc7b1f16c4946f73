package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tetherhq/tether/internal/config"
	"github.com/tetherhq/tether/internal/connector"
	"github.com/tetherhq/tether/internal/store"
)

func parseSetValues(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", pair)
		}
		values[key] = value
	}
	return values, nil
}

// loadSavedConnector rebuilds a persisted connector instance by name.
func loadSavedConnector(ctx context.Context, cfg config.Config, reg *connector.Registry, name string) (*connector.Connector, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	saved, err := store.New(pool).Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return reg.FromRecord(saved.Record)
}
