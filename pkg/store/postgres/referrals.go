package postgres

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store"
	"gorm.io/gorm"
)

func (s *Store) GetStats(ctx context.Context) (*store.Stats, error) {
	db := s.getDB().WithContext(ctx)
	stats := &store.Stats{}

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&stats.Users, db.Model(&models.User{})},
		{&stats.Fans, db.Model(&models.User{}).Where("role = ?", models.RoleFan)},
		{&stats.Organizers, db.Model(&models.User{}).Where("role = ?", models.RoleOrganizer)},
		{&stats.Admins, db.Model(&models.User{}).Where("role = ?", models.RoleAdmin)},
		{&stats.Artists, db.Model(&models.Artist{})},
		{&stats.Arenas, db.Model(&models.Arena{})},
		{&stats.Concerts, db.Model(&models.Concert{})},
		{&stats.Tickets, db.Model(&models.Ticket{})},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}
	return stats, nil
}

func (s *Store) GetUserByReferralCode(ctx context.Context, code string) ([]*models.User, error) {
	owner := s.getDB().WithContext(ctx).
		Model(&models.FanDetails{}).
		Select("user_id").
		Where("referral_code = ?", code)

	var users []*models.User
	err := s.usersQuery(ctx).Where("id IN (?)", owner).Limit(1).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserReferralPoints(ctx context.Context, userID models.UserID, delta int) error {
	result := s.getDB().WithContext(ctx).
		Model(&models.FanDetails{}).
		Where("user_id = ?", userID).
		UpdateColumn("referral_points", gorm.Expr("referral_points + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: fan %s", store.ErrNotFound, userID)
	}
	return nil
}

func (s *Store) MarkReferralCodeUsed(ctx context.Context, userID models.UserID) (bool, error) {
	result := s.getDB().WithContext(ctx).
		Model(&models.FanDetails{}).
		Where("user_id = ? AND referral_code_used = ?", userID, false).
		UpdateColumn("referral_code_used", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) SetReferrer(ctx context.Context, userID, referrerID models.UserID) error {
	if userID == referrerID {
		return store.ErrSelfReferral
	}
	result := s.getDB().WithContext(ctx).
		Model(&models.FanDetails{}).
		Where("user_id = ?", userID).
		UpdateColumn("referred_by", referrerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: fan %s", store.ErrNotFound, userID)
	}
	return nil
}

// RawQuery runs query with positional parameters and returns each row as a
// column-to-value map.
func (s *Store) RawQuery(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows := []map[string]any{}
	if err := s.getDB().WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
