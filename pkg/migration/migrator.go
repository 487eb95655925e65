// Package migration moves the concert data from the relational backend to the
// document backend and records which backend is authoritative.
//
// A [Migrator] runs five stages in order: users, artists, arenas, concerts and
// tickets. Each stage reads bare rows from the relational side, reshapes them
// into documents (embedding role details, zones, artist snapshots, zone
// pricing and ticket snapshots) and replaces the matching document table. A
// stage whose source table does not exist is skipped with a count of zero.
//
// After the last stage the built-in admin account is created in the document
// store if it is missing, and the [StatusStore] is flipped to migrated. The
// first failing stage aborts the run and leaves the status untouched. Re-running
// starts from scratch because every stage replaces its table.
//
// The migrator does not coordinate with other writers. Data written to the
// relational backend while a run is in progress may be missed.
package migration

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/metrics"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
)

// ErrInProgress is returned by Run while another run on the same Migrator is
// still going.
var ErrInProgress = errors.New("migration already in progress")

// Source reads the relational data.
type Source interface {
	HasTable(ctx context.Context, table string) (bool, error)
	UserRows(ctx context.Context) ([]models.User, error)
	FanDetailsFor(ctx context.Context, userID models.UserID) (*models.FanDetails, error)
	OrganizerDetailsFor(ctx context.Context, userID models.UserID) (*models.OrganizerDetails, error)
	ArtistRows(ctx context.Context) ([]models.Artist, error)
	ArenaRows(ctx context.Context) ([]models.Arena, error)
	ZonesFor(ctx context.Context, arenaID models.ArenaID) ([]models.Zone, error)
	ConcertRows(ctx context.Context) ([]models.Concert, error)
	ConcertArtistsFor(ctx context.Context, concertID models.ConcertID) ([]models.Artist, error)
	ZonePricingFor(ctx context.Context, concertID models.ConcertID) ([]models.ZonePricing, error)
	TicketRows(ctx context.Context) ([]models.Ticket, error)
}

// Target receives the documents.
type Target interface {
	ReplaceUsers(ctx context.Context, users []models.User) error
	ReplaceArtists(ctx context.Context, artists []models.Artist) error
	ReplaceArenas(ctx context.Context, arenas []models.Arena) error
	ReplaceConcerts(ctx context.Context, concerts []models.Concert) error
	ReplaceTickets(ctx context.Context, tickets []models.Ticket) error
	GetUserByEmail(ctx context.Context, email string) ([]*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// StatusWriter is flipped after a successful run.
type StatusWriter interface {
	MarkMigrated()
}

// AdminAccount describes the built-in administrator.
type AdminAccount struct {
	Email        string
	PasswordHash string
}

// Result counts the documents written per stage.
type Result struct {
	Users    int           `json:"users"`
	Artists  int           `json:"artists"`
	Arenas   int           `json:"arenas"`
	Concerts int           `json:"concerts"`
	Tickets  int           `json:"tickets"`
	Duration time.Duration `json:"-"`

	// DurationMS is Duration in whole milliseconds, as served over HTTP.
	DurationMS int64 `json:"duration_ms"`
}

// Migrator copies the relational data into the document store.
type Migrator struct {
	source Source
	target Target
	status StatusWriter
	admin  AdminAccount
	logger zerolog.Logger

	running atomic.Bool
}

// New creates a Migrator.
func New(source Source, target Target, status StatusWriter, admin AdminAccount, logger zerolog.Logger) *Migrator {
	return &Migrator{
		source: source,
		target: target,
		status: status,
		admin:  admin,
		logger: logger.With().Str("component", "migrator").Logger(),
	}
}

type stage struct {
	name  string
	run   func(ctx context.Context) (int, error)
	count *int
}

// Run executes all stages and marks the status as migrated on success.
func (m *Migrator) Run(ctx context.Context) (*Result, error) {
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrInProgress
	}
	defer m.running.Store(false)

	start := time.Now()
	result := &Result{}
	stages := []stage{
		{"users", m.migrateUsers, &result.Users},
		{"artists", m.migrateArtists, &result.Artists},
		{"arenas", m.migrateArenas, &result.Arenas},
		{"concerts", m.migrateConcerts, &result.Concerts},
		{"tickets", m.migrateTickets, &result.Tickets},
	}

	m.logger.Info().Msg("Starting migration")
	for _, st := range stages {
		stageStart := time.Now()
		n, err := st.run(ctx)
		if err != nil {
			err = fmt.Errorf("migration stage %s failed: %w", st.name, err)
			m.logger.Error().Err(err).Str("stage", st.name).Msg("Migration aborted")
			metrics.TrackMigrationRun(err)
			return nil, err
		}
		*st.count = n
		metrics.TrackMigrationStage(st.name, n, time.Since(stageStart))
		m.logger.Info().Str("stage", st.name).Int("records", n).Dur("duration", time.Since(stageStart)).Msg("Stage complete")
	}

	if err := m.ensureAdmin(ctx); err != nil {
		err = fmt.Errorf("failed to ensure admin account: %w", err)
		m.logger.Error().Err(err).Msg("Migration aborted")
		metrics.TrackMigrationRun(err)
		return nil, err
	}

	m.status.MarkMigrated()
	result.Duration = time.Since(start)
	result.DurationMS = result.Duration.Milliseconds()
	metrics.TrackMigrationRun(nil)
	m.logger.Info().
		Int("users", result.Users).
		Int("artists", result.Artists).
		Int("arenas", result.Arenas).
		Int("concerts", result.Concerts).
		Int("tickets", result.Tickets).
		Dur("duration", result.Duration).
		Msg("Migration complete")
	return result, nil
}

// hasTables reports whether every named source table exists.
func (m *Migrator) hasTables(ctx context.Context, tables ...string) (bool, error) {
	for _, table := range tables {
		ok, err := m.source.HasTable(ctx, table)
		if err != nil {
			return false, fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if !ok {
			m.logger.Debug().Str("table", table).Msg("Source table missing")
			return false, nil
		}
	}
	return true, nil
}

func (m *Migrator) migrateUsers(ctx context.Context) (int, error) {
	if ok, err := m.hasTables(ctx, "users"); !ok || err != nil {
		return 0, err
	}
	hasFans, err := m.hasTables(ctx, "fans")
	if err != nil {
		return 0, err
	}
	hasOrganizers, err := m.hasTables(ctx, "organizers")
	if err != nil {
		return 0, err
	}

	users, err := m.source.UserRows(ctx)
	if err != nil {
		return 0, err
	}

	for i := range users {
		u := &users[i]
		u.FanDetails = nil
		u.OrganizerDetails = nil

		if m.admin.Email != "" && u.Email == m.admin.Email {
			u.Role = models.RoleAdmin
			continue
		}
		if hasFans {
			if u.FanDetails, err = m.source.FanDetailsFor(ctx, u.ID); err != nil {
				return 0, err
			}
		}
		if hasOrganizers {
			if u.OrganizerDetails, err = m.source.OrganizerDetailsFor(ctx, u.ID); err != nil {
				return 0, err
			}
		}
	}

	if err := m.target.ReplaceUsers(ctx, users); err != nil {
		return 0, err
	}
	return len(users), nil
}

func (m *Migrator) migrateArtists(ctx context.Context) (int, error) {
	if ok, err := m.hasTables(ctx, "artists"); !ok || err != nil {
		return 0, err
	}
	artists, err := m.source.ArtistRows(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.target.ReplaceArtists(ctx, artists); err != nil {
		return 0, err
	}
	return len(artists), nil
}

func (m *Migrator) migrateArenas(ctx context.Context) (int, error) {
	if ok, err := m.hasTables(ctx, "arenas"); !ok || err != nil {
		return 0, err
	}
	hasZones, err := m.hasTables(ctx, "zones")
	if err != nil {
		return 0, err
	}

	arenas, err := m.source.ArenaRows(ctx)
	if err != nil {
		return 0, err
	}
	for i := range arenas {
		arenas[i].Zones = []models.Zone{}
		if !hasZones {
			continue
		}
		if arenas[i].Zones, err = m.source.ZonesFor(ctx, arenas[i].ID); err != nil {
			return 0, err
		}
	}

	if err := m.target.ReplaceArenas(ctx, arenas); err != nil {
		return 0, err
	}
	return len(arenas), nil
}

func (m *Migrator) migrateConcerts(ctx context.Context) (int, error) {
	if ok, err := m.hasTables(ctx, "concerts"); !ok || err != nil {
		return 0, err
	}
	hasLineups, err := m.hasTables(ctx, "artists", "concert_artists")
	if err != nil {
		return 0, err
	}
	hasPricing, err := m.hasTables(ctx, "zone_pricing")
	if err != nil {
		return 0, err
	}

	concerts, err := m.source.ConcertRows(ctx)
	if err != nil {
		return 0, err
	}
	for i := range concerts {
		c := &concerts[i]
		c.Arena = nil
		c.Artists = []models.Artist{}
		c.ZonePricing = []models.ZonePricing{}

		if hasLineups {
			if c.Artists, err = m.source.ConcertArtistsFor(ctx, c.ID); err != nil {
				return 0, err
			}
		}
		if hasPricing {
			if c.ZonePricing, err = m.source.ZonePricingFor(ctx, c.ID); err != nil {
				return 0, err
			}
		}
	}

	if err := m.target.ReplaceConcerts(ctx, concerts); err != nil {
		return 0, err
	}
	return len(concerts), nil
}

// ticketSnapshots caches the lookups behind ticket snapshot fields.
type ticketSnapshots struct {
	source     Source
	hasFans    bool
	hasPricing bool
	usernames  map[models.UserID]string
	concerts   map[models.ConcertID]*models.Concert
	pricing    map[models.ConcertID][]models.ZonePricing
}

func (t *ticketSnapshots) username(ctx context.Context, fanID models.UserID) (string, error) {
	if !t.hasFans {
		return "", nil
	}
	if name, ok := t.usernames[fanID]; ok {
		return name, nil
	}
	details, err := t.source.FanDetailsFor(ctx, fanID)
	if err != nil {
		return "", err
	}
	name := ""
	if details != nil {
		name = details.Username
	}
	t.usernames[fanID] = name
	return name, nil
}

func (t *ticketSnapshots) zonePrice(ctx context.Context, concertID models.ConcertID, zone string) (*models.Price, error) {
	if !t.hasPricing {
		return nil, nil
	}
	pricing, ok := t.pricing[concertID]
	if !ok {
		var err error
		if pricing, err = t.source.ZonePricingFor(ctx, concertID); err != nil {
			return nil, err
		}
		t.pricing[concertID] = pricing
	}
	for _, zp := range pricing {
		if zp.ZoneName == zone {
			price := zp.Price
			return &price, nil
		}
	}
	return nil, nil
}

func (m *Migrator) migrateTickets(ctx context.Context) (int, error) {
	if ok, err := m.hasTables(ctx, "tickets"); !ok || err != nil {
		return 0, err
	}

	snap := &ticketSnapshots{
		source:    m.source,
		usernames: make(map[models.UserID]string),
		concerts:  make(map[models.ConcertID]*models.Concert),
		pricing:   make(map[models.ConcertID][]models.ZonePricing),
	}
	var err error
	if snap.hasFans, err = m.hasTables(ctx, "fans"); err != nil {
		return 0, err
	}
	if snap.hasPricing, err = m.hasTables(ctx, "zone_pricing"); err != nil {
		return 0, err
	}
	hasConcerts, err := m.hasTables(ctx, "concerts")
	if err != nil {
		return 0, err
	}
	if hasConcerts {
		concerts, err := m.source.ConcertRows(ctx)
		if err != nil {
			return 0, err
		}
		for i := range concerts {
			snap.concerts[concerts[i].ID] = &concerts[i]
		}
	}

	tickets, err := m.source.TicketRows(ctx)
	if err != nil {
		return 0, err
	}
	for i := range tickets {
		t := &tickets[i]

		if t.FanUsername, err = snap.username(ctx, t.FanID); err != nil {
			return 0, err
		}

		t.ConcertDate = nil
		if c, ok := snap.concerts[t.ConcertID]; ok {
			date := c.Date
			t.ConcertDate = &date
		}

		if t.Price, err = snap.zonePrice(ctx, t.ConcertID, t.ZoneName); err != nil {
			return 0, err
		}
		if t.Price == nil {
			price := t.PurchasePrice
			t.Price = &price
		}
	}

	if err := m.target.ReplaceTickets(ctx, tickets); err != nil {
		return 0, err
	}
	return len(tickets), nil
}

// ensureAdmin creates the admin account in the target unless a user with the
// admin email is already there.
func (m *Migrator) ensureAdmin(ctx context.Context) error {
	if m.admin.Email == "" {
		return nil
	}
	existing, err := m.target.GetUserByEmail(ctx, m.admin.Email)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	m.logger.Info().Str("email", m.admin.Email).Msg("Creating admin account in document store")
	return m.target.CreateUser(ctx, &models.User{
		Email:        m.admin.Email,
		PasswordHash: m.admin.PasswordHash,
		FirstName:    "Admin",
		LastName:     "User",
		Role:         models.RoleAdmin,
	})
}
