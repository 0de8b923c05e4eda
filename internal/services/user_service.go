package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/bebranft/creator-market/internal/apperr"
	"github.com/bebranft/creator-market/internal/identity"
	"github.com/bebranft/creator-market/internal/models"
	"github.com/bebranft/creator-market/internal/storage"
)

// UserService handles profile reads and updates.
type UserService struct {
	db       *gorm.DB
	store    storage.ContentStore
	resolver *identity.Resolver
	stats    *StatsService
}

// NewUserService creates a new UserService
func NewUserService(db *gorm.DB, store storage.ContentStore, resolver *identity.Resolver, stats *StatsService) *UserService {
	return &UserService{db: db, store: store, resolver: resolver, stats: stats}
}

// Profile bundles a user with its aggregate counters.
type Profile struct {
	User  *models.User      `json:"user"`
	Stats *models.UserStats `json:"stats"`
}

// GetProfile returns the profile for an address, lazily registering it on
// first sight. Reading is also the opportunistic reconciliation point: a
// posts_count that disagrees with the counted rows is repaired in passing,
// so drift self-heals without a background job.
func (s *UserService) GetProfile(ctx context.Context, address string) (*Profile, error) {
	user, err := s.resolver.Resolve(ctx, address)
	if err != nil {
		return nil, err
	}

	counted, err := s.stats.ReconcilePostCount(ctx, user.ID)
	if err != nil {
		log.Printf("Warning: failed to reconcile posts_count for user %d: %v", user.ID, err)
		counted = -1
	}

	stats, err := s.stats.Get(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if counted >= 0 {
		stats.PostsCount = counted
	}

	return &Profile{User: user, Stats: stats}, nil
}

// ProfileUpdate carries the mutable profile fields. Nil pointers leave a
// field untouched.
type ProfileUpdate struct {
	Username    *string
	Email       *string
	Bio         *string
	SocialLinks map[string]string
}

// UpdateProfile mutates the profile and re-pins the profile blob. Content
// is immutable, so the update produces a fresh identifier and the previous
// blob is unpinned best effort.
func (s *UserService) UpdateProfile(ctx context.Context, address string, update ProfileUpdate) (*models.User, error) {
	user, err := s.resolver.FindByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	if update.Username != nil && *update.Username != user.Username {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("username = ? AND id <> ?", *update.Username, user.ID).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if count > 0 {
			return nil, apperr.New(apperr.KindConflict, "username %q already taken", *update.Username)
		}
		user.Username = *update.Username
	}

	if update.Email != nil {
		if *update.Email != "" {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("email = ? AND id <> ?", *update.Email, user.ID).
				Count(&count).Error; err != nil {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			if count > 0 {
				return nil, apperr.New(apperr.KindConflict, "email %q already taken", *update.Email)
			}
			user.Email = update.Email
		} else {
			user.Email = nil
		}
	}

	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.SocialLinks != nil {
		if err := user.SetSocialLinks(update.SocialLinks); err != nil {
			return nil, fmt.Errorf("failed to encode social links: %w", err)
		}
	}

	blob := map[string]interface{}{
		"address":    user.WalletAddress,
		"username":   user.Username,
		"bio":        user.Bio,
		"updated_at": time.Now().UTC(),
	}
	if user.Email != nil {
		blob["email"] = *user.Email
	}
	if links := user.SocialLinkMap(); len(links) > 0 {
		blob["social_links"] = links
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile blob: %w", err)
	}

	contentID, err := s.store.Put(ctx, raw)
	if err != nil {
		return nil, err
	}
	previousCID := user.ProfileCID
	user.ProfileCID = &contentID

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if previousCID != nil && *previousCID != contentID {
		if err := s.store.Unpin(ctx, *previousCID); err != nil {
			log.Printf("Warning: failed to unpin stale profile %s for user %d: %v", *previousCID, user.ID, err)
		}
	}

	log.Printf("Profile updated: wallet=%s cid=%s", user.WalletAddress, contentID)
	return user, nil
}

// UpdateStats applies a manual counter nudge. The posts counter is owned by
// reconciliation against counted rows and cannot be nudged by hand.
func (s *UserService) UpdateStats(ctx context.Context, address string, kind StatKind, delta int) (*models.UserStats, error) {
	if kind == StatPosts {
		return nil, apperr.New(apperr.KindInvalidArgument, "posts counter is reconciled from post rows, not adjusted manually")
	}

	user, err := s.resolver.FindByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := s.stats.Adjust(ctx, user.ID, kind, delta); err != nil {
		return nil, err
	}
	return s.stats.Get(ctx, user.ID)
}
