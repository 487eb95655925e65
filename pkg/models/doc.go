// Package models defines the domain entities of the concert ticketing backend.
//
// The same structs serve both persistence backends. GORM tags describe the
// normalized relational schema (users, fans, organizers, artists, arenas,
// zones, concerts, concert_artists, zone_pricing, tickets). JSON tags name the
// fields of the SurrealDB documents, where role details, zones, concert
// artists and zone pricing are embedded instead of joined.
//
// # Typed IDs
//
// [UserID], [ArtistID], [ArenaID], [ConcertID] and [TicketID] wrap a UUID and
// know their document table. They store as uuid columns in SQL, marshal to
// SurrealDB RecordIDs over CBOR, and travel as plain strings in JSON. Because a
// concert's ArenaID is a record link in SurrealDB, the document adapter can
// resolve the arena with a field fetch instead of a second query.
//
// # Prices
//
// [Price] wraps a decimal so that zone prices and purchase prices keep exact
// values in NUMERIC columns while documents always hold a number.
package models
