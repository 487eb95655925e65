// Package postgres provides the relational implementation of the
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store.Adapter] interface using GORM.
//
// The schema is fully normalized. Fan and organizer details live in the fans and
// organizers tables keyed by user id, arena zones in zones, concert line-ups in the
// concert_artists join table and per-zone prices in zone_pricing. Reads reassemble
// these rows into the nested [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models]
// values with GORM preloads, and ticket reads join the fan username, concert date and
// zone price into each row.
//
// # Atomicity
//
// CreateConcert is the only multi-statement write and runs in one transaction.
// Referral point changes are a single UPDATE with an increment expression, and
// marking a referral code used is a conditional UPDATE whose affected-row count
// tells the caller whether it won.
//
// # Dialects
//
// [NewStore] opens PostgreSQL. [NewWithDialector] accepts any GORM dialector, which
// the application uses for SQLite files and the tests use for in-memory databases.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Pool limits applied to every relational connection.
const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxIdleTime = 5 * time.Minute
)

// Store implements store.Adapter on a relational database.
type Store struct {
	db *gorm.DB
}

var _ store.Adapter = (*Store)(nil)

// NewStore connects to PostgreSQL using dsn.
func NewStore(dsn string) (*Store, error) {
	return NewWithDialector(postgres.Open(dsn))
}

// NewWithDialector connects through an arbitrary GORM dialector.
//
// The underlying database/sql pool is bounded. Connections that fail are
// discarded by the pool and replaced on the next call, so a dropped idle
// connection does not leave the store unusable.
func NewWithDialector(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %w", store.ErrConnectivity, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get connection pool: %w", store.ErrConnectivity, err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return &Store{db: db}, nil
}

func (s *Store) getDB() *gorm.DB {
	return s.db
}

// DB exposes the GORM handle for tests and schema tooling.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Type() store.DatabaseType {
	return store.Relational
}

// Migrate creates or updates all tables. GORM orders the tables by their
// foreign keys and creates the concert_artists join table from the
// many-to-many tag on Concert.Artists.
func (s *Store) Migrate(ctx context.Context) error {
	return s.getDB().WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.FanDetails{},
		&models.OrganizerDetails{},
		&models.Artist{},
		&models.Arena{},
		&models.Zone{},
		&models.Concert{},
		&models.ZonePricing{},
		&models.Ticket{},
	)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrConnectivity, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", store.ErrConnectivity, err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// User operations

func (s *Store) usersQuery(ctx context.Context) *gorm.DB {
	return s.getDB().WithContext(ctx).
		Preload("FanDetails").
		Preload("OrganizerDetails")
}

// CreateUser inserts the user row and, through GORM's association saving, its
// fans or organizers row.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.getDB().WithContext(ctx).Create(user).Error
}

func (s *Store) GetUserByID(ctx context.Context, id models.UserID) ([]*models.User, error) {
	var users []*models.User
	err := s.usersQuery(ctx).Where("id = ?", id).Limit(1).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) ([]*models.User, error) {
	var users []*models.User
	err := s.usersQuery(ctx).Where("email = ?", email).Limit(1).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	err := s.usersQuery(ctx).Order("registration_date ASC").Find(&users).Error
	return users, err
}

// Artist operations

func (s *Store) CreateArtist(ctx context.Context, artist *models.Artist) error {
	return s.getDB().WithContext(ctx).Create(artist).Error
}

func (s *Store) GetArtistByID(ctx context.Context, id models.ArtistID) ([]*models.Artist, error) {
	var artists []*models.Artist
	err := s.getDB().WithContext(ctx).Where("id = ?", id).Limit(1).Find(&artists).Error
	if err != nil {
		return nil, err
	}
	return artists, nil
}

func (s *Store) ListArtists(ctx context.Context) ([]*models.Artist, error) {
	artists := []*models.Artist{}
	err := s.getDB().WithContext(ctx).Order("name ASC").Find(&artists).Error
	return artists, err
}

// Arena operations

// CreateArena inserts the arena and its zones.
func (s *Store) CreateArena(ctx context.Context, arena *models.Arena) error {
	return s.getDB().WithContext(ctx).Create(arena).Error
}

func (s *Store) GetArenaByID(ctx context.Context, id models.ArenaID) ([]*models.Arena, error) {
	var arenas []*models.Arena
	err := s.getDB().WithContext(ctx).Preload("Zones").Where("id = ?", id).Limit(1).Find(&arenas).Error
	if err != nil {
		return nil, err
	}
	return arenas, nil
}

func (s *Store) ListArenas(ctx context.Context) ([]*models.Arena, error) {
	arenas := []*models.Arena{}
	err := s.getDB().WithContext(ctx).Preload("Zones").Order("name ASC").Find(&arenas).Error
	return arenas, err
}
