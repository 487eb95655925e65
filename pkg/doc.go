// Package pkg contains all the sub-packages for the concertdb application.
//
// # Application Layer
//
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/concertdb] - Command parsing, configuration,
// HTTP handlers and wiring of the stores and migrator.
//
// # Domain Layer
//
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models] - Users, artists, arenas, concerts
// and tickets with typed IDs and decimal prices.
//
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/referral] - Referral code validation and
// redemption on top of any adapter.
//
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/migration] - Migration status file and the
// relational to document migration procedure.
//
// # Infrastructure Layer
//
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store] - The Adapter interface, its errors
// and the Factory that selects the active backend.
//
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store/postgres] - GORM implementation for
// PostgreSQL and SQLite.
//
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store/surrealdb] - SurrealDB implementation
// using SurrealQL over the CBOR protocol.
//
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/metrics] - Prometheus collectors.
//
// # Integration Layer
//
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/client] - Typed HTTP client for the API.
//
// # Package Dependencies
//
//	concertdb → store, store/postgres, store/surrealdb, migration, referral, models, metrics
//	migration → store, models, metrics
//	referral → store, models
//	store → models, metrics
//	store/postgres → store, models
//	store/surrealdb → store, models
//	client → migration, referral, store, models
package pkg
