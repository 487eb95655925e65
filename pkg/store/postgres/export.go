package postgres

import (
	"context"

	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
)

// The methods in this file read bare table rows without preloading, for the
// migration procedure to reshape into documents.

// HasTable reports whether table exists in the connected database.
func (s *Store) HasTable(ctx context.Context, table string) (bool, error) {
	return s.getDB().WithContext(ctx).Migrator().HasTable(table), nil
}

func (s *Store) UserRows(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.getDB().WithContext(ctx).Order("registration_date ASC").Find(&users).Error
	return users, err
}

// FanDetailsFor returns the fans row for userID, or nil if there is none.
func (s *Store) FanDetailsFor(ctx context.Context, userID models.UserID) (*models.FanDetails, error) {
	var rows []*models.FanDetails
	if err := s.getDB().WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// OrganizerDetailsFor returns the organizers row for userID, or nil if there
// is none.
func (s *Store) OrganizerDetailsFor(ctx context.Context, userID models.UserID) (*models.OrganizerDetails, error) {
	var rows []*models.OrganizerDetails
	if err := s.getDB().WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *Store) ArtistRows(ctx context.Context) ([]models.Artist, error) {
	var artists []models.Artist
	err := s.getDB().WithContext(ctx).Order("name ASC").Find(&artists).Error
	return artists, err
}

func (s *Store) ArenaRows(ctx context.Context) ([]models.Arena, error) {
	var arenas []models.Arena
	err := s.getDB().WithContext(ctx).Order("name ASC").Find(&arenas).Error
	return arenas, err
}

func (s *Store) ZonesFor(ctx context.Context, arenaID models.ArenaID) ([]models.Zone, error) {
	zones := []models.Zone{}
	err := s.getDB().WithContext(ctx).Where("arena_id = ?", arenaID).Order("zone_name ASC").Find(&zones).Error
	return zones, err
}

func (s *Store) ConcertRows(ctx context.Context) ([]models.Concert, error) {
	var concerts []models.Concert
	err := s.getDB().WithContext(ctx).Order("date ASC").Find(&concerts).Error
	return concerts, err
}

// ConcertArtistsFor returns the artists linked to concertID through
// concert_artists.
func (s *Store) ConcertArtistsFor(ctx context.Context, concertID models.ConcertID) ([]models.Artist, error) {
	artists := []models.Artist{}
	err := s.getDB().WithContext(ctx).
		Joins("JOIN concert_artists ON concert_artists.artist_id = artists.id").
		Where("concert_artists.concert_id = ?", concertID).
		Order("artists.name ASC").
		Find(&artists).Error
	return artists, err
}

func (s *Store) ZonePricingFor(ctx context.Context, concertID models.ConcertID) ([]models.ZonePricing, error) {
	pricing := []models.ZonePricing{}
	err := s.getDB().WithContext(ctx).Where("concert_id = ?", concertID).Order("zone_name ASC").Find(&pricing).Error
	return pricing, err
}

func (s *Store) TicketRows(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.getDB().WithContext(ctx).Order("purchase_date ASC").Find(&tickets).Error
	return tickets, err
}
