package models

import (
	"time"

	"gorm.io/gorm"
)

// Role tags a user as a fan, an organizer or the administrator.
type Role string

const (
	RoleFan       Role = "fan"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// User is the identity record shared by every role.
//
// Exactly one of FanDetails and OrganizerDetails is set for fans and
// organizers; admins carry neither. In the relational schema the details live
// in the fans and organizers tables keyed by user id, in the document schema
// they are embedded sub-documents.
type User struct {
	ID               UserID            `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string            `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash     string            `gorm:"not null" json:"-" cbor:"password_hash"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	RegistrationDate time.Time         `gorm:"not null" json:"registration_date"`
	LastLogin        *time.Time        `json:"last_login,omitempty"`
	Role             Role              `gorm:"not null;default:fan" json:"role"`
	FanDetails       *FanDetails       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"fan_details,omitempty"`
	OrganizerDetails *OrganizerDetails `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"organizer_details,omitempty"`
}

// BeforeCreate hook to generate ID and registration date if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Prepare()
	return nil
}

// Prepare fills in the ID and registration date when they are unset.
// Both backends call it before writing a new user.
func (u *User) Prepare() {
	if u.ID.IsZero() {
		u.ID = NewUserID()
	}
	if u.RegistrationDate.IsZero() {
		u.RegistrationDate = time.Now().UTC()
	}
	if u.Role == "" {
		u.Role = RoleFan
	}
}

// FanDetails holds the fan-only profile and referral state.
type FanDetails struct {
	UserID           UserID  `gorm:"type:uuid;primaryKey" json:"-"`
	Username         string  `gorm:"uniqueIndex;not null" json:"username"`
	PreferredGenre   string  `json:"preferred_genre"`
	PhoneNumber      string  `json:"phone_number"`
	ReferralCode     string  `gorm:"uniqueIndex;not null" json:"referral_code"`
	ReferralPoints   int     `gorm:"not null;default:0" json:"referral_points"`
	ReferralCodeUsed bool    `gorm:"not null;default:false" json:"referral_code_used"`
	ReferredBy       *UserID `gorm:"type:uuid" json:"referred_by,omitempty"`
}

func (FanDetails) TableName() string { return "fans" }

// OrganizerDetails holds the organizer-only profile.
type OrganizerDetails struct {
	UserID           UserID `gorm:"type:uuid;primaryKey" json:"-"`
	OrganizationName string `gorm:"not null" json:"organization_name"`
	ContactInfo      string `json:"contact_info"`
}

func (OrganizerDetails) TableName() string { return "organizers" }

// Artist performs at concerts. Concert documents embed a snapshot of it.
type Artist struct {
	ID    ArtistID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string   `gorm:"not null" json:"name"`
	Genre string   `json:"genre"`
}

// BeforeCreate hook to generate ID if not set
func (a *Artist) BeforeCreate(tx *gorm.DB) error {
	if a.ID.IsZero() {
		a.ID = NewArtistID()
	}
	return nil
}

// Arena is a venue with named seating zones.
type Arena struct {
	ID       ArenaID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string  `gorm:"not null" json:"name"`
	Location string  `json:"location"`
	Capacity int     `gorm:"not null" json:"capacity"`
	Zones    []Zone  `gorm:"foreignKey:ArenaID;constraint:OnDelete:CASCADE" json:"zones"`
}

// BeforeCreate hook to generate ID if not set
func (a *Arena) BeforeCreate(tx *gorm.DB) error {
	if a.ID.IsZero() {
		a.ID = NewArenaID()
	}
	return nil
}

// Zone is a seating area of an arena. Its name is unique within the arena.
// The capacity is advisory and is not checked against the arena total.
type Zone struct {
	ArenaID  ArenaID `gorm:"type:uuid;primaryKey" json:"-"`
	Name     string  `gorm:"column:zone_name;primaryKey" json:"name"`
	Capacity int     `gorm:"not null" json:"capacity"`
}

// Concert is an event at an arena with one or more artists and a price per
// zone it is sold in.
//
// Arena is populated on reads only. Artists and ZonePricing are join rows in
// the relational schema and embedded arrays in the document schema; the
// embedded artists are a snapshot taken when the concert was written.
type Concert struct {
	ID          ConcertID     `gorm:"type:uuid;primaryKey" json:"id"`
	Date        time.Time     `gorm:"not null" json:"date"`
	Time        string        `json:"time"`
	Description string        `json:"description"`
	OrganizerID UserID        `gorm:"type:uuid;not null;index" json:"organizer_id"`
	ArenaID     ArenaID       `gorm:"type:uuid;not null;index" json:"arena_id"`
	Arena       *Arena        `gorm:"foreignKey:ArenaID" json:"arena,omitempty"`
	Artists     []Artist      `gorm:"many2many:concert_artists" json:"artists"`
	ZonePricing []ZonePricing `gorm:"foreignKey:ConcertID;constraint:OnDelete:CASCADE" json:"zone_pricing"`
}

// BeforeCreate hook to generate ID if not set
func (c *Concert) BeforeCreate(tx *gorm.DB) error {
	if c.ID.IsZero() {
		c.ID = NewConcertID()
	}
	return nil
}

// ArtistIDs returns the ids of the concert's artists in order.
func (c *Concert) ArtistIDs() []ArtistID {
	ids := make([]ArtistID, 0, len(c.Artists))
	for _, a := range c.Artists {
		ids = append(ids, a.ID)
	}
	return ids
}

// PriceFor returns the price of the named zone, if the concert sells it.
func (c *Concert) PriceFor(zoneName string) (Price, bool) {
	for _, zp := range c.ZonePricing {
		if zp.ZoneName == zoneName {
			return zp.Price, true
		}
	}
	return Price{}, false
}

// ZonePricing is the price of one zone at one concert.
type ZonePricing struct {
	ConcertID ConcertID `gorm:"type:uuid;primaryKey" json:"-"`
	ZoneName  string    `gorm:"primaryKey" json:"zone_name"`
	Price     Price     `gorm:"type:numeric(10,2);not null" json:"price"`
}

func (ZonePricing) TableName() string { return "zone_pricing" }

// Ticket is a fan's purchase of a seat in a zone at a concert.
//
// FanUsername, ConcertDate and Price are read-side snapshot fields. The
// relational adapter fills them with joins; the document adapter stores them
// on the ticket document when it is migrated.
type Ticket struct {
	ID               TicketID  `gorm:"type:uuid;primaryKey" json:"id"`
	FanID            UserID    `gorm:"type:uuid;not null;index" json:"fan_id"`
	ConcertID        ConcertID `gorm:"type:uuid;not null;index" json:"concert_id"`
	ArenaID          ArenaID   `gorm:"type:uuid;not null" json:"arena_id"`
	ZoneName         string    `gorm:"not null" json:"zone_name"`
	PurchaseDate     time.Time `gorm:"not null" json:"purchase_date"`
	PurchasePrice    Price     `gorm:"type:numeric(10,2);not null" json:"purchase_price"`
	ReferralCodeUsed bool      `gorm:"not null;default:false" json:"referral_code_used"`

	FanUsername string     `gorm:"-" json:"fan_username,omitempty"`
	ConcertDate *time.Time `gorm:"-" json:"concert_date,omitempty"`
	Price       *Price     `gorm:"-" json:"price,omitempty"`
}

// BeforeCreate hook to generate ID and purchase date if not set
func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	t.Prepare()
	return nil
}

// Prepare fills in the ID and purchase date when they are unset.
func (t *Ticket) Prepare() {
	if t.ID.IsZero() {
		t.ID = NewTicketID()
	}
	if t.PurchaseDate.IsZero() {
		t.PurchaseDate = time.Now().UTC()
	}
}
