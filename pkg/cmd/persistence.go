// Package cmd provides the shared wiring used by the campaign-sync
// binaries: persistence, event bus and lock construction from flags.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence/file"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme.
// postgres URLs get the relational store; anything else is treated as a
// file root for local development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	scheme, _, _ := strings.Cut(databaseURL, "://")

	switch scheme {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic("failed to initialize postgresql persistence: " + err.Error())
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}
