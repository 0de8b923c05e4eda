package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bebranft/creator-market/internal/apperr"
	"github.com/bebranft/creator-market/internal/database"
	"github.com/bebranft/creator-market/internal/models"
	"github.com/bebranft/creator-market/internal/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// A single connection keeps the in-memory database alive and shared
	// across goroutines.
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func testAddress(t *testing.T) string {
	t.Helper()
	return solana.NewWallet().PublicKey().String()
}

func TestNormalize(t *testing.T) {
	addr := testAddress(t)

	canonical, err := Normalize("  " + addr + "  ")
	if err != nil {
		t.Fatalf("Normalize rejected valid address: %v", err)
	}
	if canonical != addr {
		t.Errorf("expected canonical %s, got %s", addr, canonical)
	}

	for _, bad := range []string{"", "   ", "not-an-address", "0OIl"} {
		if _, err := Normalize(bad); !apperr.IsKind(err, apperr.KindInvalidArgument) {
			t.Errorf("Normalize(%q): expected invalid_argument, got %v", bad, err)
		}
	}
}

func TestResolveCreatesUserAndStats(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db)
	addr := testAddress(t)

	user, err := resolver.Resolve(context.Background(), addr)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if user.WalletAddress != addr {
		t.Errorf("expected wallet %s, got %s", addr, user.WalletAddress)
	}
	if user.Username != utils.PlaceholderNickname(addr) {
		t.Errorf("expected placeholder nickname, got %s", user.Username)
	}

	var stats models.UserStats
	if err := db.First(&stats, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("stats row missing after Resolve: %v", err)
	}
	if stats.PostsCount != 0 || stats.NFTsCount != 0 {
		t.Errorf("fresh stats should be zero, got %+v", stats)
	}
}

func TestResolveIdempotent(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db)
	addr := testAddress(t)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, addr)
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	second, err := resolver.Resolve(ctx, addr)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Resolve created a second user: %d vs %d", first.ID, second.ID)
	}

	var count int64
	db.Model(&models.User{}).Where("wallet_address = ?", addr).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 user row, got %d", count)
	}
}

func TestResolveConcurrent(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db)
	addr := testAddress(t)

	const workers = 8
	ids := make([]uint, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := resolver.Resolve(context.Background(), addr)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = user.ID
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: Resolve failed: %v", i, err)
		}
	}
	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Errorf("worker %d saw user %d, worker 0 saw %d", i, ids[i], ids[0])
		}
	}

	var count int64
	db.Model(&models.User{}).Where("wallet_address = ?", addr).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 user row under race, got %d", count)
	}
}

func TestResolveHealsMissingStats(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db)
	addr := testAddress(t)
	ctx := context.Background()

	user, err := resolver.Resolve(ctx, addr)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := db.Delete(&models.UserStats{}, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("failed to delete stats row: %v", err)
	}

	if _, err := resolver.Resolve(ctx, addr); err != nil {
		t.Fatalf("Resolve on existing user failed: %v", err)
	}
	var stats models.UserStats
	if err := db.First(&stats, "user_id = ?", user.ID).Error; err != nil {
		t.Errorf("stats row not recreated: %v", err)
	}
}

func TestFindByUsername(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db)
	addr := testAddress(t)

	created, err := resolver.Resolve(context.Background(), addr)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	found, err := resolver.FindByUsername(context.Background(), created.Username)
	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("expected user %d, got %d", created.ID, found.ID)
	}

	if _, err := resolver.FindByUsername(context.Background(), "no_such_user"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestFindByAddressDoesNotCreate(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db)
	addr := testAddress(t)

	if _, err := resolver.FindByAddress(context.Background(), addr); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not_found for unseen address, got %v", err)
	}
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Errorf("FindByAddress created %d users", count)
	}
}

func TestPlaceholderNicknameDeterministic(t *testing.T) {
	addr := testAddress(t)
	a := utils.PlaceholderNickname(addr)
	b := utils.PlaceholderNickname(addr)
	if a != b {
		t.Errorf("nickname not deterministic: %s vs %s", a, b)
	}
	if a == "" {
		t.Error("nickname is empty")
	}
}
