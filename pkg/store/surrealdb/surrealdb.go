// Package surrealdb provides the document implementation of the
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store.Adapter] interface using
// native SurrealQL.
//
// # Document Layout
//
// Each entity is one record in its table (user, artist, arena, concert, ticket),
// keyed by a RecordID built from its UUID. Role details are embedded in the user
// record as fan_details or organizer_details. Arenas embed their zones. Concerts
// embed a snapshot of their artists and their zone pricing, and keep a record
// link to the arena in arena_id that reads resolve with arena_id.* . Tickets
// carry the fan username, concert date and zone price taken when they were
// written.
//
// # CBOR
//
// The connection uses the surrealcbor codec. Typed ids from
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models] marshal to
// RecordIDs, time.Time to native datetimes and prices to floats, so models are
// written and read directly without intermediate document types.
//
// # Atomicity
//
// Every write is a single statement. Referral point changes use a += update
// and marking a referral code used is a conditional UPDATE, so both are atomic
// on one record. There are no multi-record transactions outside of the bulk
// Replace methods used by the migration procedure.
//
// # Query Safety
//
// All values reach SurrealDB as $parameters. Table names are fixed in the query
// text.
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

// Store implements store.Adapter on SurrealDB.
type Store struct {
	db       *surrealdb.DB
	ns       string
	database string
}

var _ store.Adapter = (*Store)(nil)

// NewStore connects to SurrealDB over WebSocket, signs in when credentials are
// given and selects the namespace and database.
//
// The connection is configured by hand rather than with FromEndpointURLString
// so that the surrealcbor codec handles both directions.
func NewStore(ctx context.Context, wsURL, namespace, database, username, password string) (*Store, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to SurrealDB: %w", store.ErrConnectivity, err)
	}

	if username != "" && password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": username,
			"pass": password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("%w: failed to authenticate: %w", store.ErrConnectivity, err)
		}
	}

	if err := db.Use(ctx, namespace, database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &Store{
		db:       db,
		ns:       namespace,
		database: database,
	}, nil
}

func (s *Store) Type() store.DatabaseType {
	return store.Document
}

// schema is applied by Migrate. Tables stay schemaless; the indexes back the
// lookups the adapter performs and enforce email uniqueness.
const schema = `
DEFINE TABLE IF NOT EXISTS user SCHEMALESS;
DEFINE TABLE IF NOT EXISTS artist SCHEMALESS;
DEFINE TABLE IF NOT EXISTS arena SCHEMALESS;
DEFINE TABLE IF NOT EXISTS concert SCHEMALESS;
DEFINE TABLE IF NOT EXISTS ticket SCHEMALESS;
DEFINE INDEX IF NOT EXISTS user_email ON TABLE user FIELDS email UNIQUE;
DEFINE INDEX IF NOT EXISTS user_referral_code ON TABLE user FIELDS fan_details.referral_code;
DEFINE INDEX IF NOT EXISTS concert_organizer ON TABLE concert FIELDS organizer_id;
DEFINE INDEX IF NOT EXISTS ticket_fan ON TABLE ticket FIELDS fan_id;
`

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, schema, nil); err != nil {
		return fmt.Errorf("failed to define schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[bool](ctx, s.db, "RETURN true", nil); err != nil {
		return fmt.Errorf("%w: %w", store.ErrConnectivity, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// handleNotFound treats the decoder errors SurrealDB produces for empty
// single-record results as a miss.
func handleNotFound(err error) error {
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "Expected a single or multiple results but got 0") ||
			strings.Contains(errStr, "cannot unmarshal array into Go value") {
			return nil
		}
	}
	return err
}

// selectOne reads a single record and returns it as a zero- or one-element
// slice.
func selectOne[T any](ctx context.Context, db *surrealdb.DB, id surrealmodels.RecordID) ([]*T, error) {
	row, err := surrealdb.Select[T](ctx, db, id)
	if err != nil {
		if handleNotFound(err) == nil {
			return []*T{}, nil
		}
		return nil, err
	}
	if row == nil {
		return []*T{}, nil
	}
	return []*T{row}, nil
}

// queryRows runs a query and returns the rows of its last statement.
func queryRows[T any](ctx context.Context, db *surrealdb.DB, query string, vars map[string]any) ([]*T, error) {
	res, err := surrealdb.Query[[]*T](ctx, db, query, vars)
	if err != nil {
		return nil, err
	}
	if res == nil || len(*res) == 0 {
		return []*T{}, nil
	}
	rows := (*res)[len(*res)-1].Result
	if rows == nil {
		rows = []*T{}
	}
	return rows, nil
}

// User operations

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Prepare()
	if _, err := surrealdb.Create[models.User](ctx, s.db, models.TableUser, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id models.UserID) ([]*models.User, error) {
	users, err := selectOne[models.User](ctx, s.db, id.RecordID())
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return users, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) ([]*models.User, error) {
	users, err := queryRows[models.User](ctx, s.db,
		"SELECT * FROM user WHERE email = $email LIMIT 1",
		map[string]any{"email": email})
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return users, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := queryRows[models.User](ctx, s.db,
		"SELECT * FROM user ORDER BY registration_date ASC", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Artist operations

func (s *Store) CreateArtist(ctx context.Context, artist *models.Artist) error {
	if artist.ID.IsZero() {
		artist.ID = models.NewArtistID()
	}
	if _, err := surrealdb.Create[models.Artist](ctx, s.db, models.TableArtist, artist); err != nil {
		return fmt.Errorf("failed to create artist: %w", err)
	}
	return nil
}

func (s *Store) GetArtistByID(ctx context.Context, id models.ArtistID) ([]*models.Artist, error) {
	artists, err := selectOne[models.Artist](ctx, s.db, id.RecordID())
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", err)
	}
	return artists, nil
}

func (s *Store) ListArtists(ctx context.Context) ([]*models.Artist, error) {
	artists, err := queryRows[models.Artist](ctx, s.db, "SELECT * FROM artist ORDER BY name ASC", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	return artists, nil
}

// Arena operations

// CreateArena writes the arena with its zones embedded.
func (s *Store) CreateArena(ctx context.Context, arena *models.Arena) error {
	if arena.ID.IsZero() {
		arena.ID = models.NewArenaID()
	}
	if _, err := surrealdb.Create[models.Arena](ctx, s.db, models.TableArena, arena); err != nil {
		return fmt.Errorf("failed to create arena: %w", err)
	}
	return nil
}

func (s *Store) GetArenaByID(ctx context.Context, id models.ArenaID) ([]*models.Arena, error) {
	arenas, err := selectOne[models.Arena](ctx, s.db, id.RecordID())
	if err != nil {
		return nil, fmt.Errorf("failed to get arena: %w", err)
	}
	return arenas, nil
}

func (s *Store) ListArenas(ctx context.Context) ([]*models.Arena, error) {
	arenas, err := queryRows[models.Arena](ctx, s.db, "SELECT * FROM arena ORDER BY name ASC", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list arenas: %w", err)
	}
	return arenas, nil
}

// Concert operations

const concertFields = "SELECT *, arena_id.* AS arena"

// CreateConcert writes one concert document. Artists given by id only are
// replaced with snapshots of the stored artist records first; if any of them
// is missing nothing is written.
func (s *Store) CreateConcert(ctx context.Context, concert *models.Concert) error {
	if concert.ID.IsZero() {
		concert.ID = models.NewConcertID()
	}

	artists, err := s.resolveArtists(ctx, concert.Artists)
	if err != nil {
		return err
	}

	doc := *concert
	doc.Arena = nil
	doc.Artists = artists
	if _, err := surrealdb.Create[models.Concert](ctx, s.db, models.TableConcert, &doc); err != nil {
		return fmt.Errorf("failed to create concert: %w", err)
	}

	concert.Artists = artists
	return nil
}

func (s *Store) resolveArtists(ctx context.Context, artists []models.Artist) ([]models.Artist, error) {
	var missing []surrealmodels.RecordID
	for _, a := range artists {
		if a.Name == "" {
			missing = append(missing, a.ID.RecordID())
		}
	}
	if len(missing) == 0 {
		return artists, nil
	}

	found, err := queryRows[models.Artist](ctx, s.db,
		"SELECT * FROM artist WHERE id IN $ids",
		map[string]any{"ids": missing})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artists: %w", err)
	}
	byID := make(map[models.ArtistID]*models.Artist, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}

	resolved := make([]models.Artist, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			resolved = append(resolved, a)
			continue
		}
		stored, ok := byID[a.ID]
		if !ok {
			return nil, fmt.Errorf("%w: artist %s", store.ErrNotFound, a.ID)
		}
		resolved = append(resolved, *stored)
	}
	return resolved, nil
}

func (s *Store) GetConcertByID(ctx context.Context, id models.ConcertID) ([]*models.Concert, error) {
	concerts, err := queryRows[models.Concert](ctx, s.db,
		concertFields+" FROM $id",
		map[string]any{"id": id.RecordID()})
	if err != nil {
		if handleNotFound(err) == nil {
			return []*models.Concert{}, nil
		}
		return nil, fmt.Errorf("failed to get concert: %w", err)
	}
	return concerts, nil
}

func (s *Store) ListConcerts(ctx context.Context) ([]*models.Concert, error) {
	concerts, err := queryRows[models.Concert](ctx, s.db,
		concertFields+" FROM concert ORDER BY date ASC", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list concerts: %w", err)
	}
	return concerts, nil
}

func (s *Store) ListConcertsByOrganizer(ctx context.Context, organizerID models.UserID) ([]*models.Concert, error) {
	concerts, err := queryRows[models.Concert](ctx, s.db,
		concertFields+" FROM concert WHERE organizer_id = $organizer ORDER BY date ASC",
		map[string]any{"organizer": organizerID.RecordID()})
	if err != nil {
		return nil, fmt.Errorf("failed to list concerts by organizer: %w", err)
	}
	return concerts, nil
}

// Ticket operations

// CreateTicket writes the ticket. Snapshot fields left empty are filled from
// the fan and concert records when those exist.
func (s *Store) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	ticket.Prepare()
	if err := s.fillTicketSnapshot(ctx, ticket); err != nil {
		return err
	}
	if _, err := surrealdb.Create[models.Ticket](ctx, s.db, models.TableTicket, ticket); err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func (s *Store) fillTicketSnapshot(ctx context.Context, ticket *models.Ticket) error {
	if ticket.FanUsername == "" {
		fan, err := s.GetUserByID(ctx, ticket.FanID)
		if err != nil {
			return err
		}
		if u := store.First(fan); u != nil && u.FanDetails != nil {
			ticket.FanUsername = u.FanDetails.Username
		}
	}
	if ticket.ConcertDate == nil || ticket.Price == nil {
		concert, err := selectOne[models.Concert](ctx, s.db, ticket.ConcertID.RecordID())
		if err != nil {
			return fmt.Errorf("failed to get concert: %w", err)
		}
		if c := store.First(concert); c != nil {
			if ticket.ConcertDate == nil {
				date := c.Date
				ticket.ConcertDate = &date
			}
			if price, ok := c.PriceFor(ticket.ZoneName); ok && ticket.Price == nil {
				ticket.Price = &price
			}
		}
	}
	return nil
}

func (s *Store) GetTicketByID(ctx context.Context, id models.TicketID) ([]*models.Ticket, error) {
	tickets, err := selectOne[models.Ticket](ctx, s.db, id.RecordID())
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return tickets, nil
}

func (s *Store) ListTickets(ctx context.Context) ([]*models.Ticket, error) {
	tickets, err := queryRows[models.Ticket](ctx, s.db, "SELECT * FROM ticket ORDER BY purchase_date ASC", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

func (s *Store) ListTicketsByFan(ctx context.Context, fanID models.UserID) ([]*models.Ticket, error) {
	tickets, err := queryRows[models.Ticket](ctx, s.db,
		"SELECT * FROM ticket WHERE fan_id = $fan ORDER BY purchase_date ASC",
		map[string]any{"fan": fanID.RecordID()})
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets by fan: %w", err)
	}
	return tickets, nil
}

// Statistics and referrals

const statsQuery = `RETURN {
	users: count(SELECT VALUE id FROM user),
	fans: count(SELECT VALUE id FROM user WHERE role = 'fan'),
	organizers: count(SELECT VALUE id FROM user WHERE role = 'organizer'),
	admins: count(SELECT VALUE id FROM user WHERE role = 'admin'),
	artists: count(SELECT VALUE id FROM artist),
	arenas: count(SELECT VALUE id FROM arena),
	concerts: count(SELECT VALUE id FROM concert),
	tickets: count(SELECT VALUE id FROM ticket)
}`

func (s *Store) GetStats(ctx context.Context) (*store.Stats, error) {
	res, err := surrealdb.Query[store.Stats](ctx, s.db, statsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count: %w", err)
	}
	if res == nil || len(*res) == 0 {
		return &store.Stats{}, nil
	}
	stats := (*res)[0].Result
	return &stats, nil
}

func (s *Store) GetUserByReferralCode(ctx context.Context, code string) ([]*models.User, error) {
	users, err := queryRows[models.User](ctx, s.db,
		"SELECT * FROM user WHERE fan_details.referral_code = $code LIMIT 1",
		map[string]any{"code": code})
	if err != nil {
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}
	return users, nil
}

func (s *Store) UpdateUserReferralPoints(ctx context.Context, userID models.UserID, delta int) error {
	updated, err := queryRows[models.User](ctx, s.db,
		"UPDATE $id SET fan_details.referral_points += $delta WHERE fan_details != NONE RETURN AFTER",
		map[string]any{"id": userID.RecordID(), "delta": delta})
	if err != nil {
		return fmt.Errorf("failed to update referral points: %w", err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("%w: fan %s", store.ErrNotFound, userID)
	}
	return nil
}

func (s *Store) MarkReferralCodeUsed(ctx context.Context, userID models.UserID) (bool, error) {
	updated, err := queryRows[models.User](ctx, s.db,
		"UPDATE $id SET fan_details.referral_code_used = true WHERE fan_details.referral_code_used = false RETURN AFTER",
		map[string]any{"id": userID.RecordID()})
	if err != nil {
		return false, fmt.Errorf("failed to mark referral code used: %w", err)
	}
	return len(updated) == 1, nil
}

func (s *Store) SetReferrer(ctx context.Context, userID, referrerID models.UserID) error {
	if userID == referrerID {
		return store.ErrSelfReferral
	}
	updated, err := queryRows[models.User](ctx, s.db,
		"UPDATE $id SET fan_details.referred_by = $referrer WHERE fan_details != NONE RETURN AFTER",
		map[string]any{"id": userID.RecordID(), "referrer": referrerID.RecordID()})
	if err != nil {
		return fmt.Errorf("failed to set referrer: %w", err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("%w: fan %s", store.ErrNotFound, userID)
	}
	return nil
}

// RawQuery is not available on the document backend.
func (s *Store) RawQuery(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	return nil, fmt.Errorf("%w: raw SQL queries", store.ErrUnsupportedOperation)
}

