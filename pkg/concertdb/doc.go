// Package concertdb provides the application layer of a concert ticketing
// backend that can serve its data from PostgreSQL or SurrealDB and migrate
// between them without changing its HTTP surface.
//
// # Getting Started
//
// The application provides a command-line interface for running the server and
// managing the migration. For detailed usage information, see
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/concertdb.Main].
//
// For API endpoint documentation, see
// [github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/concertdb.App.Router].
//
// # Prerequisites
//
//   - Go 1.23+
//   - PostgreSQL, or a SQLite file for local runs (POSTGRES_DSN=sqlite://concertdb.db)
//   - SurrealDB running on localhost:8000
//
// # Switching Stores
//
// The store serving requests is chosen per request from the migration status
// file (MIGRATION_STATUS_FILE, default data/migration-status.json). Until a
// migration succeeds the relational store is used. Setting USE_DOCUMENT_DB=true
// forces the document store regardless of the file.
//
// # Basic Usage
//
//	# Start SurrealDB
//	surreal start --user root --pass root
//
//	# Run the server against the relational store
//	concertdb run
//
//	# Copy everything into SurrealDB and switch over
//	concertdb migrate
//
//	# Inspect or undo the switch
//	concertdb status
//	concertdb reset
package concertdb
