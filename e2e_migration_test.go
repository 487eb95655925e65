package concertdb_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/client"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/concertdb"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/referral"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store/postgres"
)

const (
	testPort = "8095"
	testURL  = "http://localhost:8095"
)

// TestE2E_migrationFlow runs the whole switch-over against real PostgreSQL and
// SurrealDB servers:
//
//  1. Relational only: data is written to PostgreSQL and served from it.
//  2. Migration: POST /api/admin/migrate copies everything into SurrealDB.
//  3. Document only: the same API now answers from SurrealDB.
//  4. Rollback: the status is reset and PostgreSQL serves again.
//
// It needs POSTGRES_DSN and SURREALDB_URL (plus the usual SURREALDB_* settings)
// and is skipped without them.
func TestE2E_migrationFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping e2e test in short mode")
	}
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" || os.Getenv("SURREALDB_URL") == "" {
		t.Skip("POSTGRES_DSN and SURREALDB_URL are required")
	}

	statusFile := filepath.Join(t.TempDir(), "migration-status.json")
	app := startApp(t, "-port="+testPort, "-status-file="+statusFile)
	defer app.Stop()
	waitForServer(t, testURL)

	ctx := context.Background()
	c := client.NewClient(testURL)
	fx := seedRelational(t, dsn)

	t.Run("Stage1_RelationalOnly", func(t *testing.T) {
		health, err := c.Health(ctx)
		require.NoError(t, err)
		assert.Equal(t, "relational", health.DatabaseType)

		concert, err := c.GetConcert(ctx, fx.concert.ID)
		require.NoError(t, err)
		require.Len(t, concert.Artists, 1)
		assert.Equal(t, fx.artistName, concert.Artists[0].Name)
	})

	t.Run("Stage2_Migration", func(t *testing.T) {
		result, err := c.Migrate(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Users, 2)
		assert.GreaterOrEqual(t, result.Concerts, 1)
		assert.GreaterOrEqual(t, result.Tickets, 1)

		status, err := c.MigrationStatus(ctx)
		require.NoError(t, err)
		assert.True(t, status.Migrated)
		assert.Equal(t, "document", status.DatabaseType)
	})

	t.Run("Stage3_DocumentOnly", func(t *testing.T) {
		health, err := c.Health(ctx)
		require.NoError(t, err)
		assert.Equal(t, "document", health.DatabaseType)

		concert, err := c.GetConcert(ctx, fx.concert.ID)
		require.NoError(t, err)
		require.NotNil(t, concert.Arena)
		require.Len(t, concert.Artists, 1)
		assert.Equal(t, fx.artistName, concert.Artists[0].Name)
		require.Len(t, concert.ZonePricing, 1)

		tickets, err := c.ListUserTickets(ctx, fx.fan.ID)
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, fx.fan.FanDetails.Username, tickets[0].FanUsername)
		require.NotNil(t, tickets[0].Price)

		v, err := c.RedeemReferral(ctx, fx.fan.FanDetails.ReferralCode, fx.friend.ID)
		require.NoError(t, err)
		assert.True(t, v.Valid)

		v, err = c.ValidateReferral(ctx, fx.fan.FanDetails.ReferralCode, fx.friend.ID)
		require.NoError(t, err)
		assert.Equal(t, referral.MsgUsed, v.Message)
	})

	t.Run("Stage4_Rollback", func(t *testing.T) {
		status, err := c.ResetMigration(ctx)
		require.NoError(t, err)
		assert.False(t, status.Migrated)

		// The redemption happened in SurrealDB only.
		v, err := c.ValidateReferral(ctx, fx.fan.FanDetails.ReferralCode, fx.friend.ID)
		require.NoError(t, err)
		assert.True(t, v.Valid)
	})
}

type relationalFixture struct {
	fan        *models.User
	friend     *models.User
	concert    *models.Concert
	artistName string
}

// seedRelational writes a uniquely named data set so the test can share a
// database with other runs.
func seedRelational(t *testing.T, dsn string) relationalFixture {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	s, err := postgres.NewStore(dsn)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))

	fan := &models.User{
		Email:        "fan-" + suffix + "@example.com",
		PasswordHash: "hash",
		Role:         models.RoleFan,
		FanDetails:   &models.FanDetails{Username: "fan-" + suffix, ReferralCode: "F" + suffix},
	}
	friend := &models.User{
		Email:        "friend-" + suffix + "@example.com",
		PasswordHash: "hash",
		Role:         models.RoleFan,
		FanDetails:   &models.FanDetails{Username: "friend-" + suffix, ReferralCode: "R" + suffix},
	}
	organizer := &models.User{
		Email:            "org-" + suffix + "@example.com",
		PasswordHash:     "hash",
		Role:             models.RoleOrganizer,
		OrganizerDetails: &models.OrganizerDetails{OrganizationName: "Org " + suffix},
	}
	for _, u := range []*models.User{fan, friend, organizer} {
		require.NoError(t, s.CreateUser(ctx, u))
	}

	arena := &models.Arena{Name: "Arena " + suffix, Capacity: 500, Zones: []models.Zone{{Name: "Floor", Capacity: 500}}}
	require.NoError(t, s.CreateArena(ctx, arena))
	artist := &models.Artist{Name: "Artist " + suffix, Genre: "jazz"}
	require.NoError(t, s.CreateArtist(ctx, artist))

	concert := &models.Concert{
		Date:        time.Now().UTC().AddDate(0, 1, 0).Truncate(24 * time.Hour),
		Time:        "21:00",
		OrganizerID: organizer.ID,
		ArenaID:     arena.ID,
		Artists:     []models.Artist{{ID: artist.ID}},
		ZonePricing: []models.ZonePricing{{ZoneName: "Floor", Price: models.NewPrice(49.5)}},
	}
	require.NoError(t, s.CreateConcert(ctx, concert))

	require.NoError(t, s.CreateTicket(ctx, &models.Ticket{
		FanID:         fan.ID,
		ConcertID:     concert.ID,
		ArenaID:       arena.ID,
		ZoneName:      "Floor",
		PurchasePrice: models.NewPrice(49.5),
	}))

	return relationalFixture{fan: fan, friend: friend, concert: concert, artistName: artist.Name}
}

type TestApp struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (a *TestApp) Stop() {
	if a.cancel != nil {
		a.cancel()
		<-a.done
		a.cancel = nil
	}
}

func startApp(t *testing.T, args ...string) *TestApp {
	allArgs := append(args, "run")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := concertdb.Main(ctx, allArgs); err != nil && ctx.Err() == nil {
			t.Logf("App error: %v", err)
		}
	}()

	return &TestApp{cancel: cancel, done: done}
}

func waitForServer(t *testing.T, url string) {
	for i := 0; i < 30; i++ {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				t.Log("Server is ready")
				return
			}
		}
		time.Sleep(time.Second)
	}
	t.Fatal("Server failed to start within 30 seconds")
}
