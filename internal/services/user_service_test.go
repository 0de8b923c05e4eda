package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/bebranft/creator-market/internal/apperr"
	"github.com/bebranft/creator-market/internal/identity"
	"github.com/bebranft/creator-market/internal/models"
	"github.com/bebranft/creator-market/internal/storage"
)

func newUserService(t *testing.T) (*UserService, *storage.MemoryStore, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	store := storage.NewMemoryStore()
	resolver := identity.NewResolver(db)
	return NewUserService(db, store, resolver, NewStatsService(db)), store, db
}

func TestGetProfileLazilyRegisters(t *testing.T) {
	svc, _, db := newUserService(t)
	addr := testAddress(t)

	profile, err := svc.GetProfile(context.Background(), addr)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.User.WalletAddress != addr {
		t.Errorf("expected wallet %s, got %s", addr, profile.User.WalletAddress)
	}
	if profile.Stats == nil || profile.Stats.PostsCount != 0 {
		t.Errorf("expected zeroed stats, got %+v", profile.Stats)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 user after first read, got %d", count)
	}
}

func TestGetProfileHealsStalePostCount(t *testing.T) {
	svc, _, db := newUserService(t)
	ctx := context.Background()
	addr := testAddress(t)

	profile, err := svc.GetProfile(ctx, addr)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	userID := profile.User.ID

	post := models.Post{UserID: userID, WalletAddress: addr, Title: "orphan", Status: models.PostStatusDraft}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	// Drift the cached counter away from the counted rows.
	if err := db.Model(&models.UserStats{}).Where("user_id = ?", userID).
		Update("posts_count", 40).Error; err != nil {
		t.Fatalf("failed to drift counter: %v", err)
	}

	profile, err = svc.GetProfile(ctx, addr)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Stats.PostsCount != 1 {
		t.Errorf("expected reconciled posts_count 1, got %d", profile.Stats.PostsCount)
	}

	var stored models.UserStats
	if err := db.First(&stored, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("stats read failed: %v", err)
	}
	if stored.PostsCount != 1 {
		t.Errorf("stored counter not healed: %d", stored.PostsCount)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, store, _ := newUserService(t)
	ctx := context.Background()
	addr := testAddress(t)

	if _, err := svc.GetProfile(ctx, addr); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}

	username := "fresh_name"
	bio := "painter of small things"
	user, err := svc.UpdateProfile(ctx, addr, ProfileUpdate{
		Username:    &username,
		Bio:         &bio,
		SocialLinks: map[string]string{"site": "https://example.com"},
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if user.Username != username || user.Bio != bio {
		t.Errorf("profile not updated: %+v", user)
	}
	if user.ProfileCID == nil {
		t.Fatal("profile blob not pinned")
	}
	if _, err := store.Get(ctx, *user.ProfileCID); err != nil {
		t.Errorf("pinned blob unreadable: %v", err)
	}

	// Updating again re-pins under a new identifier and drops the old one.
	firstCID := *user.ProfileCID
	bio2 := "sculptor now"
	user, err = svc.UpdateProfile(ctx, addr, ProfileUpdate{Bio: &bio2})
	if err != nil {
		t.Fatalf("second UpdateProfile failed: %v", err)
	}
	if *user.ProfileCID == firstCID {
		t.Error("content changed but identifier did not")
	}
	if _, err := store.Get(ctx, firstCID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("stale blob still pinned: %v", err)
	}
}

func TestUpdateProfileUsernameConflict(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	alice := testAddress(t)
	bob := testAddress(t)

	aliceProfile, err := svc.GetProfile(ctx, alice)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if _, err := svc.GetProfile(ctx, bob); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}

	taken := aliceProfile.User.Username
	if _, err := svc.UpdateProfile(ctx, bob, ProfileUpdate{Username: &taken}); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict for taken username, got %v", err)
	}
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc, _, _ := newUserService(t)

	bio := "ghost"
	_, err := svc.UpdateProfile(context.Background(), testAddress(t), ProfileUpdate{Bio: &bio})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestUpdateStats(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	addr := testAddress(t)

	if _, err := svc.GetProfile(ctx, addr); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}

	stats, err := svc.UpdateStats(ctx, addr, StatLikes, 5)
	if err != nil {
		t.Fatalf("UpdateStats failed: %v", err)
	}
	if stats.TotalLikes != 5 {
		t.Errorf("expected total_likes 5, got %d", stats.TotalLikes)
	}

	stats, err = svc.UpdateStats(ctx, addr, StatLikes, -10)
	if err != nil {
		t.Fatalf("UpdateStats failed: %v", err)
	}
	if stats.TotalLikes != 0 {
		t.Errorf("expected clamp at zero, got %d", stats.TotalLikes)
	}
}

func TestUpdateStatsRejectsPostsCounter(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()
	addr := testAddress(t)

	if _, err := svc.GetProfile(ctx, addr); err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if _, err := svc.UpdateStats(ctx, addr, StatPosts, 1); !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Errorf("expected invalid_argument for posts counter, got %v", err)
	}
}
