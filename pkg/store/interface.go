// Package store provides the data access abstraction for the concert ticketing backend.
//
// The [Adapter] interface is implemented twice: by
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store/postgres.Store] against a
// normalized relational schema through GORM, and by
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store/surrealdb.Store] against
// denormalized SurrealDB documents. Callers obtain the active implementation from a
// [Factory], which consults the migration status on every call, and never learn which
// backend answered.
//
// # Entity Shaping
//
// All shaping of nested data happens inside the implementations. The relational
// adapter preloads role details, arena zones, concert artists and zone pricing and
// joins ticket snapshot fields; the document adapter returns embedded sub-documents
// as stored and resolves a concert's arena through its record link. Callers get the
// same [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models] values from
// both.
//
// # Lookups
//
// Every Get method returns a slice with zero or one element. An unknown id yields
// an empty slice and a nil error, so "not found" is never an error at this layer.
// Backend errors are returned as-is, apart from the translations listed in
// errors.go.
//
// # Writes
//
// Writes take effect immediately and are not grouped across calls. The one
// multi-row write is CreateConcert, which is a single transaction in the
// relational backend and a single document write in the document backend.
package store

import (
	"context"

	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
)

// DatabaseType names a backend.
type DatabaseType string

const (
	Relational DatabaseType = "relational"
	Document   DatabaseType = "document"
)

func (t DatabaseType) String() string { return string(t) }

// Stats holds entity counts for the admin statistics endpoint.
type Stats struct {
	Users      int64 `json:"users"`
	Fans       int64 `json:"fans"`
	Organizers int64 `json:"organizers"`
	Admins     int64 `json:"admins"`
	Artists    int64 `json:"artists"`
	Arenas     int64 `json:"arenas"`
	Concerts   int64 `json:"concerts"`
	Tickets    int64 `json:"tickets"`
}

// Adapter is the data access interface shared by both backends.
type Adapter interface {
	// Type reports which backend this adapter talks to.
	Type() DatabaseType

	// Migrate creates or updates the backend schema. It is safe to call on
	// every start.
	Migrate(ctx context.Context) error

	// Ping checks connectivity. Failures wrap ErrConnectivity.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error

	// CreateUser stores a user together with its role details. A zero ID and
	// registration date are filled in.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID returns the user with role details attached.
	GetUserByID(ctx context.Context, id models.UserID) ([]*models.User, error)

	GetUserByEmail(ctx context.Context, email string) ([]*models.User, error)

	ListUsers(ctx context.Context) ([]*models.User, error)

	CreateArtist(ctx context.Context, artist *models.Artist) error

	GetArtistByID(ctx context.Context, id models.ArtistID) ([]*models.Artist, error)

	ListArtists(ctx context.Context) ([]*models.Artist, error)

	// CreateArena stores an arena together with its zones.
	CreateArena(ctx context.Context, arena *models.Arena) error

	GetArenaByID(ctx context.Context, id models.ArenaID) ([]*models.Arena, error)

	ListArenas(ctx context.Context) ([]*models.Arena, error)

	// CreateConcert stores a concert with its zone pricing and artists.
	//
	// Artists may be given as ids only (Name empty) or as full values. The
	// relational backend links them by id inside one transaction; a failure
	// rolls back and wraps ErrTransactionFailure. The document backend resolves
	// id-only artists to snapshots first and then writes one document; if an
	// artist cannot be resolved nothing is written and the error wraps
	// ErrNotFound.
	CreateConcert(ctx context.Context, concert *models.Concert) error

	// GetConcertByID returns the concert with arena, artists and zone pricing.
	GetConcertByID(ctx context.Context, id models.ConcertID) ([]*models.Concert, error)

	// ListConcerts returns all concerts ordered by date, with arena, artists
	// and zone pricing.
	ListConcerts(ctx context.Context) ([]*models.Concert, error)

	ListConcertsByOrganizer(ctx context.Context, organizerID models.UserID) ([]*models.Concert, error)

	CreateTicket(ctx context.Context, ticket *models.Ticket) error

	// GetTicketByID returns the ticket with fan username, concert date and
	// zone price filled in.
	GetTicketByID(ctx context.Context, id models.TicketID) ([]*models.Ticket, error)

	ListTickets(ctx context.Context) ([]*models.Ticket, error)

	ListTicketsByFan(ctx context.Context, fanID models.UserID) ([]*models.Ticket, error)

	// GetStats counts the stored entities.
	GetStats(ctx context.Context) (*Stats, error)

	// GetUserByReferralCode returns the fan owning the referral code.
	GetUserByReferralCode(ctx context.Context, code string) ([]*models.User, error)

	// UpdateUserReferralPoints adds delta (which may be negative) to the fan's
	// point balance with a single atomic increment in the backend, so
	// concurrent calls never lose updates. It returns ErrNotFound if the user
	// has no fan details.
	UpdateUserReferralPoints(ctx context.Context, userID models.UserID, delta int) error

	// MarkReferralCodeUsed sets the fan's referral-code-used flag if and only
	// if it is currently unset. It reports whether this call flipped the flag;
	// false means the code was already used or the user is not a fan.
	MarkReferralCodeUsed(ctx context.Context, userID models.UserID) (bool, error)

	// SetReferrer records who referred the fan. Referring oneself fails with
	// ErrSelfReferral; longer referral cycles are not checked.
	SetReferrer(ctx context.Context, userID, referrerID models.UserID) error

	// RawQuery runs a backend-native parameterized query. Only the relational
	// backend supports it; the document backend always returns
	// ErrUnsupportedOperation.
	RawQuery(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}
