// Package referral implements fan referral codes on top of any store.Adapter.
//
// Each fan owns one code. Another fan may use it once for a discount on a
// ticket purchase, after which the code is spent and its owner earns reward
// points.
//
// Validate only reads, so two purchases validating the same code at once can
// both see it as unused. Redeem closes that window for the write side by
// spending the code with a compare-and-swap; the caller that loses gets an
// "already used" result.
package referral

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store"
)

const (
	// Discount is the percentage taken off a ticket bought with a valid code.
	Discount = 10

	// RewardPoints are credited to the code owner on redemption.
	RewardPoints = 50
)

// Result messages.
const (
	MsgInvalidCode = "invalid referral code"
	MsgOwnCode     = "cannot use your own referral code"
	MsgUsed        = "already used"
	MsgUnknownFan  = "unknown fan"
)

// Validation is the outcome of checking a code for a fan.
type Validation struct {
	Valid      bool           `json:"valid"`
	Message    string         `json:"message,omitempty"`
	Discount   int            `json:"discount,omitempty"`
	ReferrerID *models.UserID `json:"referrer_id,omitempty"`
}

// Store is the part of store.Adapter referrals need.
type Store interface {
	GetUserByID(ctx context.Context, id models.UserID) ([]*models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) ([]*models.User, error)
	UpdateUserReferralPoints(ctx context.Context, userID models.UserID, delta int) error
	MarkReferralCodeUsed(ctx context.Context, userID models.UserID) (bool, error)
	SetReferrer(ctx context.Context, userID, referrerID models.UserID) error
}

var _ Store = store.Adapter(nil)

// Validate checks whether fanID may use code.
func Validate(ctx context.Context, s Store, code string, fanID models.UserID) (Validation, error) {
	owners, err := s.GetUserByReferralCode(ctx, code)
	if err != nil {
		return Validation{}, fmt.Errorf("failed to look up referral code: %w", err)
	}

	owner := store.First(owners)
	if owner == nil || owner.FanDetails == nil {
		return Validation{Message: MsgInvalidCode}, nil
	}
	if owner.ID == fanID {
		return Validation{Message: MsgOwnCode}, nil
	}
	if owner.FanDetails.ReferralCodeUsed {
		return Validation{Message: MsgUsed}, nil
	}

	referrer := owner.ID
	return Validation{Valid: true, Discount: Discount, ReferrerID: &referrer}, nil
}

// Redeem validates code for fanID and, if valid, spends it, credits the
// owner with RewardPoints and records the owner as the fan's referrer.
// fanID must name a stored fan; otherwise nothing is written.
func Redeem(ctx context.Context, s Store, code string, fanID models.UserID) (Validation, error) {
	v, err := Validate(ctx, s, code, fanID)
	if err != nil || !v.Valid {
		return v, err
	}
	referrer := *v.ReferrerID

	fans, err := s.GetUserByID(ctx, fanID)
	if err != nil {
		return Validation{}, fmt.Errorf("failed to look up fan: %w", err)
	}
	if fan := store.First(fans); fan == nil || fan.FanDetails == nil {
		return Validation{Message: MsgUnknownFan}, nil
	}

	flipped, err := s.MarkReferralCodeUsed(ctx, referrer)
	if err != nil {
		return Validation{}, fmt.Errorf("failed to mark referral code used: %w", err)
	}
	if !flipped {
		return Validation{Message: MsgUsed}, nil
	}

	if err := s.UpdateUserReferralPoints(ctx, referrer, RewardPoints); err != nil {
		return Validation{}, fmt.Errorf("failed to award referral points: %w", err)
	}
	if err := s.SetReferrer(ctx, fanID, referrer); err != nil {
		return Validation{}, fmt.Errorf("failed to record referrer: %w", err)
	}
	return v, nil
}
