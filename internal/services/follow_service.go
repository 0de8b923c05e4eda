package services

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bebranft/creator-market/internal/apperr"
	"github.com/bebranft/creator-market/internal/database"
	"github.com/bebranft/creator-market/internal/identity"
	"github.com/bebranft/creator-market/internal/models"
)

// FollowService maintains the directed follow graph between users.
type FollowService struct {
	db       *gorm.DB
	resolver *identity.Resolver
}

// NewFollowService creates a new FollowService
func NewFollowService(db *gorm.DB, resolver *identity.Resolver) *FollowService {
	return &FollowService{db: db, resolver: resolver}
}

// Follow inserts a follower -> followed edge. Both endpoints are lazily
// registered. Self-follows are rejected before any write; a duplicate edge
// reports Conflict and leaves the graph unchanged.
func (s *FollowService) Follow(ctx context.Context, followerAddress, followedAddress string) error {
	followerCanonical, err := identity.Normalize(followerAddress)
	if err != nil {
		return err
	}
	followedCanonical, err := identity.Normalize(followedAddress)
	if err != nil {
		return err
	}
	if followerCanonical == followedCanonical {
		return apperr.New(apperr.KindInvalidArgument, "cannot follow yourself")
	}

	follower, err := s.resolver.Resolve(ctx, followerCanonical)
	if err != nil {
		return err
	}
	followed, err := s.resolver.Resolve(ctx, followedCanonical)
	if err != nil {
		return err
	}

	edge := models.FollowEdge{
		FollowerID: follower.ID,
		FollowedID: followed.ID,
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge)
	if result.Error != nil {
		if database.IsUniqueViolation(result.Error) {
			return apperr.New(apperr.KindConflict, "%s already follows %s", followerCanonical, followedCanonical)
		}
		return fmt.Errorf("failed to create follow edge: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.KindConflict, "%s already follows %s", followerCanonical, followedCanonical)
	}

	log.Printf("Follow: %d -> %d", follower.ID, followed.ID)
	return nil
}

// Unfollow removes the edge. Removing an absent edge is a no-op.
func (s *FollowService) Unfollow(ctx context.Context, followerAddress, followedAddress string) error {
	follower, err := s.resolver.FindByAddress(ctx, followerAddress)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	followed, err := s.resolver.FindByAddress(ctx, followedAddress)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	result := s.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", follower.ID, followed.ID).
		Delete(&models.FollowEdge{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete follow edge: %w", result.Error)
	}
	return nil
}

// IsFollowing reports whether the edge exists.
func (s *FollowService) IsFollowing(ctx context.Context, followerAddress, followedAddress string) (bool, error) {
	follower, err := s.resolver.FindByAddress(ctx, followerAddress)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	followed, err := s.resolver.FindByAddress(ctx, followedAddress)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.FollowEdge{}).
		Where("follower_id = ? AND followed_id = ?", follower.ID, followed.ID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check follow edge: %w", err)
	}
	return count > 0, nil
}

// FollowerCounts returns (followers, following) for a user.
func (s *FollowService) FollowerCounts(ctx context.Context, userID uint) (int64, int64, error) {
	var followers, following int64
	if err := s.db.WithContext(ctx).Model(&models.FollowEdge{}).
		Where("followed_id = ?", userID).
		Count(&followers).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count followers: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.FollowEdge{}).
		Where("follower_id = ?", userID).
		Count(&following).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count following: %w", err)
	}
	return followers, following, nil
}
