package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// concertArtist is a row of the concert_artists join table.
type concertArtist struct {
	ConcertID models.ConcertID `gorm:"type:uuid;primaryKey"`
	ArtistID  models.ArtistID  `gorm:"type:uuid;primaryKey"`
}

func (concertArtist) TableName() string { return "concert_artists" }

func (s *Store) concertsQuery(ctx context.Context) *gorm.DB {
	return s.getDB().WithContext(ctx).
		Preload("Arena.Zones").
		Preload("Artists").
		Preload("ZonePricing").
		Order("concerts.date ASC")
}

// CreateConcert inserts the concert row, one zone_pricing row per zone and one
// concert_artists row per artist in a single transaction.
func (s *Store) CreateConcert(ctx context.Context, concert *models.Concert) error {
	if concert.ID.IsZero() {
		concert.ID = models.NewConcertID()
	}

	err := s.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(concert).Error; err != nil {
			return fmt.Errorf("failed to insert concert: %w", err)
		}

		for i := range concert.ZonePricing {
			concert.ZonePricing[i].ConcertID = concert.ID
			if err := tx.Create(&concert.ZonePricing[i]).Error; err != nil {
				return fmt.Errorf("failed to insert pricing for zone %q: %w", concert.ZonePricing[i].ZoneName, err)
			}
		}

		for _, artistID := range concert.ArtistIDs() {
			link := concertArtist{ConcertID: concert.ID, ArtistID: artistID}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("failed to link artist %s: %w", artistID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrTransactionFailure, err)
	}
	return nil
}

func (s *Store) GetConcertByID(ctx context.Context, id models.ConcertID) ([]*models.Concert, error) {
	var concerts []*models.Concert
	err := s.concertsQuery(ctx).Where("concerts.id = ?", id).Limit(1).Find(&concerts).Error
	if err != nil {
		return nil, err
	}
	return concerts, nil
}

func (s *Store) ListConcerts(ctx context.Context) ([]*models.Concert, error) {
	concerts := []*models.Concert{}
	err := s.concertsQuery(ctx).Find(&concerts).Error
	return concerts, err
}

func (s *Store) ListConcertsByOrganizer(ctx context.Context, organizerID models.UserID) ([]*models.Concert, error) {
	concerts := []*models.Concert{}
	err := s.concertsQuery(ctx).Where("concerts.organizer_id = ?", organizerID).Find(&concerts).Error
	return concerts, err
}

// Ticket operations

// ticketRow is a ticket joined with the fan's username, the concert date and
// the zone price.
type ticketRow struct {
	ID               models.TicketID
	FanID            models.UserID
	ConcertID        models.ConcertID
	ArenaID          models.ArenaID
	ZoneName         string
	PurchaseDate     time.Time
	PurchasePrice    models.Price
	ReferralCodeUsed bool
	FanUsername      sql.NullString
	ConcertDate      sql.NullTime
	ZonePrice        decimal.NullDecimal
}

func (r *ticketRow) toTicket() *models.Ticket {
	t := &models.Ticket{
		ID:               r.ID,
		FanID:            r.FanID,
		ConcertID:        r.ConcertID,
		ArenaID:          r.ArenaID,
		ZoneName:         r.ZoneName,
		PurchaseDate:     r.PurchaseDate,
		PurchasePrice:    r.PurchasePrice,
		ReferralCodeUsed: r.ReferralCodeUsed,
		FanUsername:      r.FanUsername.String,
	}
	if r.ConcertDate.Valid {
		date := r.ConcertDate.Time
		t.ConcertDate = &date
	}
	if r.ZonePrice.Valid {
		price := models.NewPriceFromDecimal(r.ZonePrice.Decimal)
		t.Price = &price
	}
	return t
}

func (s *Store) ticketsQuery(ctx context.Context) *gorm.DB {
	return s.getDB().WithContext(ctx).
		Table("tickets").
		Select(`tickets.id, tickets.fan_id, tickets.concert_id, tickets.arena_id, tickets.zone_name,
			tickets.purchase_date, tickets.purchase_price, tickets.referral_code_used,
			fans.username AS fan_username, concerts.date AS concert_date, zone_pricing.price AS zone_price`).
		Joins("LEFT JOIN fans ON fans.user_id = tickets.fan_id").
		Joins("LEFT JOIN concerts ON concerts.id = tickets.concert_id").
		Joins("LEFT JOIN zone_pricing ON zone_pricing.concert_id = tickets.concert_id AND zone_pricing.zone_name = tickets.zone_name").
		Order("tickets.purchase_date ASC")
}

func (s *Store) scanTickets(query *gorm.DB) ([]*models.Ticket, error) {
	var rows []ticketRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	tickets := make([]*models.Ticket, 0, len(rows))
	for i := range rows {
		tickets = append(tickets, rows[i].toTicket())
	}
	return tickets, nil
}

func (s *Store) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	return s.getDB().WithContext(ctx).Create(ticket).Error
}

func (s *Store) GetTicketByID(ctx context.Context, id models.TicketID) ([]*models.Ticket, error) {
	return s.scanTickets(s.ticketsQuery(ctx).Where("tickets.id = ?", id).Limit(1))
}

func (s *Store) ListTickets(ctx context.Context) ([]*models.Ticket, error) {
	return s.scanTickets(s.ticketsQuery(ctx))
}

func (s *Store) ListTicketsByFan(ctx context.Context, fanID models.UserID) ([]*models.Ticket, error) {
	return s.scanTickets(s.ticketsQuery(ctx).Where("tickets.fan_id = ?", fanID))
}
