// Package concertdb is a concert ticketing backend that runs on either a
// relational database (PostgreSQL through GORM) or a document database
// (SurrealDB through the Go SDK) and can move its data from the first to the
// second while the HTTP API stays the same.
//
// # Features
//
//   - One data access interface, [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store.Adapter],
//     implemented against a normalized relational schema and against denormalized documents
//   - A factory that picks the backend per call from a persisted migration status
//   - A five-stage migration that embeds role details, arena zones, artist snapshots,
//     zone pricing and ticket snapshots into documents
//   - Fan referral codes with single-use redemption
//   - Prometheus metrics for adapter selection and migration stages
//
// # Architecture Overview
//
// Requests reach [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/concertdb.App], which asks
// the [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store.Factory] for the active adapter
// on every call. The factory consults the
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/migration.StatusStore]; until a migration
// succeeds that is the relational store.
//
// A migration is a one-way bulk copy. It is not incremental and does not
// coordinate with concurrent writers: writes that land in PostgreSQL during a
// run may be missed, and writes made to SurrealDB after the switch are not
// copied back on reset.
//
// # Data Model
//
//	User ─┬─ FanDetails (username, referral code, points, referred by)
//	      └─ OrganizerDetails
//	Arena ── Zone*
//	Concert ── Arena, Artist*, ZonePricing*
//	Ticket ── Fan, Concert, Zone
//
// In SurrealDB the role details, zones, artists and zone pricing are embedded
// in their parent document, and tickets carry the fan username, concert date
// and zone price as of migration time.
//
// # Testing
//
// Unit tests use in-memory SQLite databases and run without external services.
// Tests that need SurrealDB or PostgreSQL are skipped unless SURREALDB_URL and
// POSTGRES_DSN are set:
//
//	go test -short ./...
//	SURREALDB_URL=ws://localhost:8000/rpc POSTGRES_DSN=postgres://... go test ./...
package concertdb
