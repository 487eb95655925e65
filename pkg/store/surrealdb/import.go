package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
)

// The Replace methods load one migration stage. Each clears its table and
// inserts the given documents in a single transaction, so re-running a stage
// never leaves duplicates or a half-filled table behind.

func (s *Store) replace(ctx context.Context, table string, rows any, n int) error {
	query := fmt.Sprintf("BEGIN TRANSACTION; DELETE %s; COMMIT TRANSACTION;", table)
	if n > 0 {
		query = fmt.Sprintf("BEGIN TRANSACTION; DELETE %s; INSERT INTO %s $rows; COMMIT TRANSACTION;", table, table)
	}
	if _, err := surrealdb.Query[any](ctx, s.db, query, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("failed to replace %s records: %w", table, err)
	}
	return nil
}

func (s *Store) ReplaceUsers(ctx context.Context, users []models.User) error {
	return s.replace(ctx, models.TableUser, users, len(users))
}

func (s *Store) ReplaceArtists(ctx context.Context, artists []models.Artist) error {
	return s.replace(ctx, models.TableArtist, artists, len(artists))
}

func (s *Store) ReplaceArenas(ctx context.Context, arenas []models.Arena) error {
	return s.replace(ctx, models.TableArena, arenas, len(arenas))
}

// ReplaceConcerts stores concerts as given. Artists must already be full
// snapshots and Arena is not written.
func (s *Store) ReplaceConcerts(ctx context.Context, concerts []models.Concert) error {
	for i := range concerts {
		concerts[i].Arena = nil
	}
	return s.replace(ctx, models.TableConcert, concerts, len(concerts))
}

func (s *Store) ReplaceTickets(ctx context.Context, tickets []models.Ticket) error {
	return s.replace(ctx, models.TableTicket, tickets, len(tickets))
}
