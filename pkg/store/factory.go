package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// StatusReader tells the factory which backend is authoritative.
type StatusReader interface {
	IsMigrated() bool
	DatabaseType() DatabaseType
}

// Builder opens an adapter for one backend.
type Builder func(ctx context.Context) (Adapter, error)

// Factory hands out the adapter for the active backend.
//
// Each backend's adapter is built on first use and then cached for the life of
// the factory. Changing the migration status only changes which cached adapter
// is returned; adapters are not notified. A failed build is not cached, so the
// next call retries. Once closed, the factory refuses to build new adapters.
type Factory struct {
	status   StatusReader
	builders map[DatabaseType]Builder

	builds singleflight.Group

	mu       sync.Mutex
	adapters map[DatabaseType]Adapter
	closed   bool
}

// NewFactory creates a factory that reads the active backend from status and
// constructs adapters with the given builders.
func NewFactory(status StatusReader, builders map[DatabaseType]Builder) *Factory {
	return &Factory{
		status:   status,
		builders: builders,
		adapters: make(map[DatabaseType]Adapter),
	}
}

// Adapter returns the adapter for the database type currently reported by
// the migration status.
func (f *Factory) Adapter(ctx context.Context) (Adapter, error) {
	dbType := f.status.DatabaseType()
	adapter, err := f.AdapterFor(ctx, dbType)
	if err != nil {
		return nil, err
	}
	metrics.SetActiveDatabase(dbType.String(), Relational.String(), Document.String())
	return adapter, nil
}

// AdapterFor returns the adapter for dbType regardless of the migration
// status. The migration procedure uses it to reach both backends.
//
// Builds run outside the factory lock, so a slow or hanging build for one
// type does not block callers of an already built type. Concurrent callers
// for the same type share a single build.
func (f *Factory) AdapterFor(ctx context.Context, dbType DatabaseType) (Adapter, error) {
	if adapter, ok := f.cached(dbType); ok {
		return adapter, nil
	}

	build, ok := f.builders[dbType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDatabaseType, dbType)
	}

	v, err, _ := f.builds.Do(dbType.String(), func() (any, error) {
		if adapter, ok := f.cached(dbType); ok {
			return adapter, nil
		}

		adapter, err := build(ctx)
		metrics.TrackAdapterBuild(dbType.String(), err)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s adapter: %w", dbType, err)
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.closed {
			_ = adapter.Close()
			return nil, fmt.Errorf("failed to open %s adapter: %w", dbType, ErrFactoryClosed)
		}
		f.adapters[dbType] = adapter
		return adapter, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Adapter), nil
}

func (f *Factory) cached(dbType DatabaseType) (Adapter, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	adapter, ok := f.adapters[dbType]
	return adapter, ok
}

// CurrentDatabaseType reports the backend the next Adapter call will use.
func (f *Factory) CurrentDatabaseType() DatabaseType {
	return f.status.DatabaseType()
}

// IsMigrated reports whether the document backend is authoritative.
func (f *Factory) IsMigrated() bool {
	return f.status.IsMigrated()
}

// Close closes every adapter built so far.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	var errs []error
	for dbType, adapter := range f.adapters {
		if err := adapter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s adapter: %w", dbType, err))
		}
		delete(f.adapters, dbType)
	}
	return errors.Join(errs...)
}
