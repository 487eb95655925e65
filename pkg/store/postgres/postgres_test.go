package postgres_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store/postgres"
	"gorm.io/driver/sqlite"
)

// newTestStore opens a private in-memory SQLite database with the schema
// applied. A single connection keeps the shared-cache database alive for the
// whole test.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := postgres.NewWithDialector(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	require.NoError(t, err)

	sqlDB, err := s.DB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newFan(email, username, code string) *models.User {
	return &models.User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Fan",
		LastName:     username,
		Role:         models.RoleFan,
		FanDetails: &models.FanDetails{
			Username:       username,
			PreferredGenre: "rock",
			ReferralCode:   code,
		},
	}
}

func newOrganizer(email string) *models.User {
	return &models.User{
		Email:        email,
		PasswordHash: "hash",
		Role:         models.RoleOrganizer,
		OrganizerDetails: &models.OrganizerDetails{
			OrganizationName: "Live Nation",
			ContactInfo:      "contact@example.com",
		},
	}
}

// seedConcert creates an organizer, an arena with two zones, two artists and
// a concert selling both zones.
func seedConcert(t *testing.T, s *postgres.Store) *models.Concert {
	t.Helper()
	ctx := context.Background()

	organizer := newOrganizer(fmt.Sprintf("org-%s@example.com", models.NewUserID()))
	require.NoError(t, s.CreateUser(ctx, organizer))

	arena := &models.Arena{
		Name:     "Madison Square Garden",
		Location: "New York",
		Capacity: 20000,
		Zones: []models.Zone{
			{Name: "Floor", Capacity: 5000},
			{Name: "Balcony", Capacity: 15000},
		},
	}
	require.NoError(t, s.CreateArena(ctx, arena))

	headliner := &models.Artist{Name: "The Headliners", Genre: "rock"}
	opener := &models.Artist{Name: "Opening Act", Genre: "indie"}
	require.NoError(t, s.CreateArtist(ctx, headliner))
	require.NoError(t, s.CreateArtist(ctx, opener))

	concert := &models.Concert{
		Date:        time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Time:        "20:00",
		Description: "New Year's Eve",
		OrganizerID: organizer.ID,
		ArenaID:     arena.ID,
		Artists:     []models.Artist{{ID: headliner.ID}, {ID: opener.ID}},
		ZonePricing: []models.ZonePricing{
			{ZoneName: "Floor", Price: models.NewPrice(150)},
			{ZoneName: "Balcony", Price: models.NewPrice(75.5)},
		},
	}
	require.NoError(t, s.CreateConcert(ctx, concert))
	return concert
}

func TestStore_Type(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, store.Relational, s.Type())
	assert.NoError(t, s.Ping(context.Background()))
}

func TestStore_UserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fan := newFan("alice@example.com", "alice", "ALICE1")
	require.NoError(t, s.CreateUser(ctx, fan))
	require.False(t, fan.ID.IsZero())
	require.False(t, fan.RegistrationDate.IsZero())

	got, err := s.GetUserByID(ctx, fan.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice@example.com", got[0].Email)
	assert.Equal(t, models.RoleFan, got[0].Role)
	require.NotNil(t, got[0].FanDetails)
	assert.Equal(t, "alice", got[0].FanDetails.Username)
	assert.Equal(t, "ALICE1", got[0].FanDetails.ReferralCode)
	assert.Equal(t, 0, got[0].FanDetails.ReferralPoints)
	assert.False(t, got[0].FanDetails.ReferralCodeUsed)
	assert.Nil(t, got[0].OrganizerDetails)

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, fan.ID, byEmail[0].ID)

	organizer := newOrganizer("org@example.com")
	require.NoError(t, s.CreateUser(ctx, organizer))
	gotOrg := store.First(mustUsers(t)(s.GetUserByID(ctx, organizer.ID)))
	require.NotNil(t, gotOrg)
	require.NotNil(t, gotOrg.OrganizerDetails)
	assert.Equal(t, "Live Nation", gotOrg.OrganizerDetails.OrganizationName)
	assert.Nil(t, gotOrg.FanDetails)

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func mustUsers(t *testing.T) func([]*models.User, error) []*models.User {
	return func(users []*models.User, err error) []*models.User {
		t.Helper()
		require.NoError(t, err)
		return users
	}
}

func TestStore_LookupsReturnEmptySlices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	users, err := s.GetUserByID(ctx, models.NewUserID())
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = s.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, users)

	artists, err := s.GetArtistByID(ctx, models.NewArtistID())
	require.NoError(t, err)
	assert.Empty(t, artists)

	arenas, err := s.GetArenaByID(ctx, models.NewArenaID())
	require.NoError(t, err)
	assert.Empty(t, arenas)

	concerts, err := s.GetConcertByID(ctx, models.NewConcertID())
	require.NoError(t, err)
	assert.Empty(t, concerts)

	tickets, err := s.GetTicketByID(ctx, models.NewTicketID())
	require.NoError(t, err)
	assert.Empty(t, tickets)

	users, err = s.GetUserByReferralCode(ctx, "NOPE")
	require.NoError(t, err)
	assert.Empty(t, users)

	list, err := s.ListConcerts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestStore_ArenaWithZones(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	arena := &models.Arena{
		Name:     "Wembley",
		Location: "London",
		Capacity: 90000,
		Zones:    []models.Zone{{Name: "Pitch", Capacity: 30000}, {Name: "Upper", Capacity: 60000}},
	}
	require.NoError(t, s.CreateArena(ctx, arena))

	got, err := s.GetArenaByID(ctx, arena.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Wembley", got[0].Name)
	assert.ElementsMatch(t,
		[]models.Zone{{ArenaID: arena.ID, Name: "Pitch", Capacity: 30000}, {ArenaID: arena.ID, Name: "Upper", Capacity: 60000}},
		got[0].Zones)
}

func TestStore_CreateConcertAssemblesNestedData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	concert := seedConcert(t, s)

	got, err := s.GetConcertByID(ctx, concert.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	c := got[0]

	assert.Equal(t, "New Year's Eve", c.Description)
	assert.Equal(t, "20:00", c.Time)
	require.NotNil(t, c.Arena)
	assert.Equal(t, "Madison Square Garden", c.Arena.Name)
	assert.Len(t, c.Arena.Zones, 2)

	names := make([]string, 0, len(c.Artists))
	for _, a := range c.Artists {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"The Headliners", "Opening Act"}, names)

	floor, ok := c.PriceFor("Floor")
	require.True(t, ok)
	assert.True(t, floor.Equal(models.NewPrice(150)), "floor price %s", floor)
	balcony, ok := c.PriceFor("Balcony")
	require.True(t, ok)
	assert.True(t, balcony.Equal(models.NewPrice(75.5)), "balcony price %s", balcony)

	byOrganizer, err := s.ListConcertsByOrganizer(ctx, concert.OrganizerID)
	require.NoError(t, err)
	assert.Len(t, byOrganizer, 1)

	none, err := s.ListConcertsByOrganizer(ctx, models.NewUserID())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ListConcertsOrderedByDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := seedConcert(t, s)

	later := &models.Concert{
		Date:        first.Date.AddDate(0, 1, 0),
		OrganizerID: first.OrganizerID,
		ArenaID:     first.ArenaID,
		ZonePricing: []models.ZonePricing{{ZoneName: "Floor", Price: models.NewPrice(99)}},
	}
	earlier := &models.Concert{
		Date:        first.Date.AddDate(0, -1, 0),
		OrganizerID: first.OrganizerID,
		ArenaID:     first.ArenaID,
		ZonePricing: []models.ZonePricing{{ZoneName: "Floor", Price: models.NewPrice(99)}},
	}
	require.NoError(t, s.CreateConcert(ctx, later))
	require.NoError(t, s.CreateConcert(ctx, earlier))

	concerts, err := s.ListConcerts(ctx)
	require.NoError(t, err)
	require.Len(t, concerts, 3)
	assert.Equal(t, earlier.ID, concerts[0].ID)
	assert.Equal(t, first.ID, concerts[1].ID)
	assert.Equal(t, later.ID, concerts[2].ID)
}

func TestStore_CreateConcertRollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seeded := seedConcert(t, s)

	broken := &models.Concert{
		Date:        time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		OrganizerID: seeded.OrganizerID,
		ArenaID:     seeded.ArenaID,
		ZonePricing: []models.ZonePricing{
			{ZoneName: "Floor", Price: models.NewPrice(10)},
			{ZoneName: "Floor", Price: models.NewPrice(20)},
		},
	}
	err := s.CreateConcert(ctx, broken)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTransactionFailure)

	got, err := s.GetConcertByID(ctx, broken.ID)
	require.NoError(t, err)
	assert.Empty(t, got, "concert row must be rolled back")

	pricing, err := s.ZonePricingFor(ctx, broken.ID)
	require.NoError(t, err)
	assert.Empty(t, pricing)
}

func TestStore_TicketsCarrySnapshotFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	concert := seedConcert(t, s)

	fan := newFan("bob@example.com", "bob", "BOB123")
	require.NoError(t, s.CreateUser(ctx, fan))

	ticket := &models.Ticket{
		FanID:         fan.ID,
		ConcertID:     concert.ID,
		ArenaID:       concert.ArenaID,
		ZoneName:      "Balcony",
		PurchasePrice: models.NewPrice(70),
	}
	require.NoError(t, s.CreateTicket(ctx, ticket))
	require.False(t, ticket.ID.IsZero())

	got, err := s.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	tk := got[0]
	assert.Equal(t, fan.ID, tk.FanID)
	assert.Equal(t, "bob", tk.FanUsername)
	require.NotNil(t, tk.ConcertDate)
	assert.True(t, concert.Date.Equal(*tk.ConcertDate))
	require.NotNil(t, tk.Price)
	assert.True(t, tk.Price.Equal(models.NewPrice(75.5)))
	assert.True(t, tk.PurchasePrice.Equal(models.NewPrice(70)))

	byFan, err := s.ListTicketsByFan(ctx, fan.ID)
	require.NoError(t, err)
	assert.Len(t, byFan, 1)

	all, err := s.ListTickets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	other, err := s.ListTicketsByFan(ctx, models.NewUserID())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_UpdateReferralPointsIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fan := newFan("carol@example.com", "carol", "CAROL1")
	require.NoError(t, s.CreateUser(ctx, fan))

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.UpdateUserReferralPoints(ctx, fan.ID, 1)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := store.First(mustUsers(t)(s.GetUserByID(ctx, fan.ID)))
	require.NotNil(t, got)
	assert.Equal(t, workers, got.FanDetails.ReferralPoints)

	require.NoError(t, s.UpdateUserReferralPoints(ctx, fan.ID, -5))
	got = store.First(mustUsers(t)(s.GetUserByID(ctx, fan.ID)))
	assert.Equal(t, workers-5, got.FanDetails.ReferralPoints)
}

func TestStore_UpdateReferralPointsUnknownFan(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateUserReferralPoints(context.Background(), models.NewUserID(), 10)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_MarkReferralCodeUsedOnlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fan := newFan("dave@example.com", "dave", "DAVE01")
	require.NoError(t, s.CreateUser(ctx, fan))

	flipped, err := s.MarkReferralCodeUsed(ctx, fan.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = s.MarkReferralCodeUsed(ctx, fan.ID)
	require.NoError(t, err)
	assert.False(t, flipped)

	flipped, err = s.MarkReferralCodeUsed(ctx, models.NewUserID())
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestStore_ReferralCodeAndReferrer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	referrer := newFan("erin@example.com", "erin", "ABC123")
	newcomer := newFan("frank@example.com", "frank", "FRANK1")
	require.NoError(t, s.CreateUser(ctx, referrer))
	require.NoError(t, s.CreateUser(ctx, newcomer))

	owner, err := s.GetUserByReferralCode(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, owner, 1)
	assert.Equal(t, referrer.ID, owner[0].ID)
	require.NotNil(t, owner[0].FanDetails)

	assert.ErrorIs(t, s.SetReferrer(ctx, newcomer.ID, newcomer.ID), store.ErrSelfReferral)
	assert.ErrorIs(t, s.SetReferrer(ctx, models.NewUserID(), referrer.ID), store.ErrNotFound)

	require.NoError(t, s.SetReferrer(ctx, newcomer.ID, referrer.ID))
	got := store.First(mustUsers(t)(s.GetUserByID(ctx, newcomer.ID)))
	require.NotNil(t, got.FanDetails.ReferredBy)
	assert.Equal(t, referrer.ID, *got.FanDetails.ReferredBy)
}

func TestStore_GetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	concert := seedConcert(t, s)

	fan := newFan("gina@example.com", "gina", "GINA01")
	require.NoError(t, s.CreateUser(ctx, fan))
	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "admin@example.com", PasswordHash: "x", Role: models.RoleAdmin}))
	require.NoError(t, s.CreateTicket(ctx, &models.Ticket{
		FanID: fan.ID, ConcertID: concert.ID, ArenaID: concert.ArenaID,
		ZoneName: "Floor", PurchasePrice: models.NewPrice(150),
	}))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Stats{
		Users:      3,
		Fans:       1,
		Organizers: 1,
		Admins:     1,
		Artists:    2,
		Arenas:     1,
		Concerts:   1,
		Tickets:    1,
	}, *stats)
}

func TestStore_RawQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateArtist(ctx, &models.Artist{Name: "Rockers", Genre: "rock"}))
	require.NoError(t, s.CreateArtist(ctx, &models.Artist{Name: "Jazzers", Genre: "jazz"}))

	rows, err := s.RawQuery(ctx, "SELECT name FROM artists WHERE genre = ?", "rock")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Rockers", rows[0]["name"])

	_, err = s.RawQuery(ctx, "SELECT * FROM no_such_table")
	assert.Error(t, err)
}

func TestStore_ExportRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	concert := seedConcert(t, s)

	ok, err := s.HasTable(ctx, "concert_artists")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasTable(ctx, "playlists")
	require.NoError(t, err)
	assert.False(t, ok)

	artists, err := s.ConcertArtistsFor(ctx, concert.ID)
	require.NoError(t, err)
	require.Len(t, artists, 2)
	assert.Equal(t, "Opening Act", artists[0].Name)
	assert.Equal(t, "The Headliners", artists[1].Name)

	pricing, err := s.ZonePricingFor(ctx, concert.ID)
	require.NoError(t, err)
	require.Len(t, pricing, 2)
	assert.Equal(t, "Balcony", pricing[0].ZoneName)

	zones, err := s.ZonesFor(ctx, concert.ArenaID)
	require.NoError(t, err)
	assert.Len(t, zones, 2)

	users, err := s.UserRows(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Nil(t, users[0].OrganizerDetails, "bare rows are not preloaded")

	details, err := s.OrganizerDetailsFor(ctx, users[0].ID)
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "Live Nation", details.OrganizationName)

	fan, err := s.FanDetailsFor(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Nil(t, fan)
}
