package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// recordIDTag is the CBOR tag SurrealDB uses for RecordID values.
const recordIDTag = 8

// Document table names. Each typed ID marshals to a RecordID in its table.
const (
	TableUser    = "user"
	TableArtist  = "artist"
	TableArena   = "arena"
	TableConcert = "concert"
	TableTicket  = "ticket"
)

// UserID is a typed ID for users (fans, organizers and admins)
type UserID struct {
	uuid uuid.UUID
}

func NewUserID() UserID {
	return UserID{uuid: uuid.New()}
}

func NewUserIDFromUUID(id uuid.UUID) UserID {
	return UserID{uuid: id}
}

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user ID: %w", err)
	}
	return UserID{uuid: id}, nil
}

func (u UserID) UUID() uuid.UUID { return u.uuid }
func (u UserID) String() string  { return u.uuid.String() }
func (u UserID) IsZero() bool    { return u.uuid == uuid.Nil }

func (u UserID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: TableUser, ID: u.uuid.String()}
}

func (u UserID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.uuid.String())
}

func (u *UserID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &u.uuid)
}

func (u UserID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID(TableUser, u.uuid)
}

func (u *UserID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableUser, &u.uuid)
}

func (u UserID) Value() (driver.Value, error) {
	if u.IsZero() {
		return nil, nil
	}
	return u.uuid.String(), nil
}

func (u *UserID) Scan(value any) error {
	return scanUUID(value, &u.uuid)
}

func (UserID) GormDataType() string { return "uuid" }

// ArtistID is a typed ID for artists
type ArtistID struct {
	uuid uuid.UUID
}

func NewArtistID() ArtistID {
	return ArtistID{uuid: uuid.New()}
}

func ParseArtistID(s string) (ArtistID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ArtistID{}, fmt.Errorf("invalid artist ID: %w", err)
	}
	return ArtistID{uuid: id}, nil
}

func (a ArtistID) UUID() uuid.UUID { return a.uuid }
func (a ArtistID) String() string  { return a.uuid.String() }
func (a ArtistID) IsZero() bool    { return a.uuid == uuid.Nil }

func (a ArtistID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: TableArtist, ID: a.uuid.String()}
}

func (a ArtistID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.uuid.String())
}

func (a *ArtistID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &a.uuid)
}

func (a ArtistID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID(TableArtist, a.uuid)
}

func (a *ArtistID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableArtist, &a.uuid)
}

func (a ArtistID) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil
	}
	return a.uuid.String(), nil
}

func (a *ArtistID) Scan(value any) error {
	return scanUUID(value, &a.uuid)
}

func (ArtistID) GormDataType() string { return "uuid" }

// ArenaID is a typed ID for arenas
type ArenaID struct {
	uuid uuid.UUID
}

func NewArenaID() ArenaID {
	return ArenaID{uuid: uuid.New()}
}

func ParseArenaID(s string) (ArenaID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ArenaID{}, fmt.Errorf("invalid arena ID: %w", err)
	}
	return ArenaID{uuid: id}, nil
}

func (a ArenaID) UUID() uuid.UUID { return a.uuid }
func (a ArenaID) String() string  { return a.uuid.String() }
func (a ArenaID) IsZero() bool    { return a.uuid == uuid.Nil }

func (a ArenaID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: TableArena, ID: a.uuid.String()}
}

func (a ArenaID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.uuid.String())
}

func (a *ArenaID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &a.uuid)
}

func (a ArenaID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID(TableArena, a.uuid)
}

func (a *ArenaID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableArena, &a.uuid)
}

func (a ArenaID) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil
	}
	return a.uuid.String(), nil
}

func (a *ArenaID) Scan(value any) error {
	return scanUUID(value, &a.uuid)
}

func (ArenaID) GormDataType() string { return "uuid" }

// ConcertID is a typed ID for concerts
type ConcertID struct {
	uuid uuid.UUID
}

func NewConcertID() ConcertID {
	return ConcertID{uuid: uuid.New()}
}

func ParseConcertID(s string) (ConcertID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ConcertID{}, fmt.Errorf("invalid concert ID: %w", err)
	}
	return ConcertID{uuid: id}, nil
}

func (c ConcertID) UUID() uuid.UUID { return c.uuid }
func (c ConcertID) String() string  { return c.uuid.String() }
func (c ConcertID) IsZero() bool    { return c.uuid == uuid.Nil }

func (c ConcertID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: TableConcert, ID: c.uuid.String()}
}

func (c ConcertID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.uuid.String())
}

func (c *ConcertID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &c.uuid)
}

func (c ConcertID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID(TableConcert, c.uuid)
}

func (c *ConcertID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableConcert, &c.uuid)
}

func (c ConcertID) Value() (driver.Value, error) {
	if c.IsZero() {
		return nil, nil
	}
	return c.uuid.String(), nil
}

func (c *ConcertID) Scan(value any) error {
	return scanUUID(value, &c.uuid)
}

func (ConcertID) GormDataType() string { return "uuid" }

// TicketID is a typed ID for tickets
type TicketID struct {
	uuid uuid.UUID
}

func NewTicketID() TicketID {
	return TicketID{uuid: uuid.New()}
}

func ParseTicketID(s string) (TicketID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TicketID{}, fmt.Errorf("invalid ticket ID: %w", err)
	}
	return TicketID{uuid: id}, nil
}

func (t TicketID) UUID() uuid.UUID { return t.uuid }
func (t TicketID) String() string  { return t.uuid.String() }
func (t TicketID) IsZero() bool    { return t.uuid == uuid.Nil }

func (t TicketID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{Table: TableTicket, ID: t.uuid.String()}
}

func (t TicketID) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.uuid.String())
}

func (t *TicketID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &t.uuid)
}

func (t TicketID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID(TableTicket, t.uuid)
}

func (t *TicketID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableTicket, &t.uuid)
}

func (t TicketID) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.uuid.String(), nil
}

func (t *TicketID) Scan(value any) error {
	return scanUUID(value, &t.uuid)
}

func (TicketID) GormDataType() string { return "uuid" }

func unmarshalJSONID(data []byte, target *uuid.UUID) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*target = uuid.Nil
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = id
	return nil
}

// marshalCBORID encodes the ID as a SurrealDB RecordID (tag 8, [table, id]).
func marshalCBORID(table string, id uuid.UUID) ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  recordIDTag,
		Content: []any{table, id.String()},
	})
}

func scanUUID(value any, target *uuid.UUID) error {
	if value == nil {
		*target = uuid.Nil
		return nil
	}

	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}

func unmarshalCBORID(data []byte, expectedTable string, target *uuid.UUID) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	// RecordIDs always arrive as a CBOR tag (major type 6)
	majorType := data[0] >> 5
	if majorType != 6 {
		return fmt.Errorf("expected CBOR tag for RecordID, got major type %d", majorType)
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}

	if tag.Number != recordIDTag {
		return fmt.Errorf("expected RecordID tag (%d), got %d", recordIDTag, tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}

	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}
	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}

	idStr, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: ID must be string")
	}

	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid UUID in RecordID: %w", err)
	}

	*target = parsed
	return nil
}
