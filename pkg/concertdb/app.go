package concertdb

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/migration"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store/postgres"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store/surrealdb"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
)

// App holds the application state.
type App struct {
	config  *Config
	logger  zerolog.Logger
	status  *migration.StatusStore
	factory *store.Factory
	admin   migration.AdminAccount

	mu       sync.Mutex
	migrator *migration.Migrator
}

// NewLogger builds the process logger from the log level and format flags.
func NewLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// New creates the application with adapters for the configured PostgreSQL
// (or SQLite) and SurrealDB connections. Connections are opened lazily on
// first use.
func New(config *Config, logger zerolog.Logger) (*App, error) {
	return NewWithBuilders(config, logger, map[store.DatabaseType]store.Builder{
		store.Relational: relationalBuilder(config, logger),
		store.Document:   documentBuilder(config, logger),
	})
}

// NewWithBuilders creates the application with custom adapter builders.
func NewWithBuilders(config *Config, logger zerolog.Logger, builders map[store.DatabaseType]store.Builder) (*App, error) {
	if config.AdminPassword == DefaultAdminPassword {
		logger.Warn().Msg("ADMIN_PASSWORD is not set, using the default admin password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(config.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	status := migration.NewStatusStore(config.StatusFile, config.UseDocumentDB, logger)
	return &App{
		config:  config,
		logger:  logger,
		status:  status,
		factory: store.NewFactory(status, builders),
		admin: migration.AdminAccount{
			Email:        config.AdminEmail,
			PasswordHash: string(hash),
		},
	}, nil
}

// relationalBuilder opens the relational store. DSNs starting with sqlite://
// or file: use the SQLite driver, anything else is handed to PostgreSQL.
func relationalBuilder(config *Config, logger zerolog.Logger) store.Builder {
	return func(ctx context.Context) (store.Adapter, error) {
		var (
			s   *postgres.Store
			err error
		)
		switch dsn := config.PostgresDSN; {
		case strings.HasPrefix(dsn, "sqlite://"):
			s, err = postgres.NewWithDialector(sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")))
		case strings.HasPrefix(dsn, "file:"):
			s, err = postgres.NewWithDialector(sqlite.Open(dsn))
		default:
			s, err = postgres.NewStore(dsn)
		}
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		logger.Info().Str("type", store.Relational.String()).Msg("Connected to relational store")
		return s, nil
	}
}

func documentBuilder(config *Config, logger zerolog.Logger) store.Builder {
	return func(ctx context.Context) (store.Adapter, error) {
		s, err := surrealdb.NewStore(ctx,
			config.SurrealDBURL,
			config.SurrealDBNS,
			config.SurrealDBDB,
			config.SurrealDBUser,
			config.SurrealDBPass,
		)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		logger.Info().
			Str("type", store.Document.String()).
			Str("url", config.SurrealDBURL).
			Msg("Connected to document store")
		return s, nil
	}
}

// Migrator returns the application's migrator, opening both stores on first
// use. The same Migrator is returned afterwards so concurrent runs are
// rejected with migration.ErrInProgress.
func (a *App) Migrator(ctx context.Context) (*migration.Migrator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.migrator != nil {
		return a.migrator, nil
	}

	rel, err := a.factory.AdapterFor(ctx, store.Relational)
	if err != nil {
		return nil, err
	}
	doc, err := a.factory.AdapterFor(ctx, store.Document)
	if err != nil {
		return nil, err
	}
	source, ok := rel.(migration.Source)
	if !ok {
		return nil, fmt.Errorf("%w: %T cannot export relational rows", store.ErrUnsupportedOperation, rel)
	}
	target, ok := doc.(migration.Target)
	if !ok {
		return nil, fmt.Errorf("%w: %T cannot import documents", store.ErrUnsupportedOperation, doc)
	}

	a.migrator = migration.New(source, target, a.status, a.admin, a.logger)
	return a.migrator, nil
}

// Adapter returns the adapter for the currently active store.
func (a *App) Adapter(ctx context.Context) (store.Adapter, error) {
	return a.factory.Adapter(ctx)
}

// Status returns the migration status store.
func (a *App) Status() *migration.StatusStore {
	return a.status
}

// Close closes every store the application opened.
func (a *App) Close() error {
	return a.factory.Close()
}
