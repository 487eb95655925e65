package concertdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/migration"
)

// Migrate copies all relational data into the document store and switches
// the application to it. It is safe to run again: every document table is
// replaced.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) (*migration.Result, error) {
	m, err := a.Migrator(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare migration: %w", err)
	}
	return m.Run(ctx)
}

// statusView is the status document served over HTTP and printed by the
// status command.
type statusView struct {
	migration.Status
	DatabaseType string `json:"databaseType"`
	Override     bool   `json:"override"`
}

func (a *App) statusView() statusView {
	return statusView{
		Status:       a.status.Status(),
		DatabaseType: a.status.DatabaseType().String(),
		Override:     a.status.Override(),
	}
}

// PrintStatus writes the migration status as indented JSON.
func (a *App) PrintStatus(w io.Writer, cmd *StatusCommand) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a.statusView())
}

// Reset marks the migration as not done. The document store keeps its data;
// the next migration replaces it.
func (a *App) Reset(cmd *ResetCommand) {
	a.status.MarkNotMigrated()
	a.logger.Info().
		Str("type", a.status.DatabaseType().String()).
		Bool("override", a.status.Override()).
		Msg("Migration status reset")
}
