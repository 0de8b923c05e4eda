package database

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bebranft/creator-market/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// The services address several columns by raw name (gorm.Expr updates, Where
// clauses). Acronym-heavy field names do not all snake-case the way those
// queries assume, so the columns pin their names explicitly; this guards the
// migrated schema against drifting away from the query strings.
func TestMigratedColumnNames(t *testing.T) {
	db := openTestDB(t)

	cases := []struct {
		model  interface{}
		column string
	}{
		{&models.User{}, "profile_cid"},
		{&models.UserStats{}, "nfts_count"},
		{&models.UserStats{}, "posts_count"},
		{&models.UserStats{}, "collections_count"},
		{&models.UserStats{}, "total_likes"},
		{&models.Post{}, "metadata_cid"},
		{&models.Token{}, "metadata_cid"},
		{&models.Token{}, "contract_address"},
		{&models.Token{}, "edition_number"},
		{&models.Token{}, "current_supply"},
	}
	for _, tc := range cases {
		if !db.Migrator().HasColumn(tc.model, tc.column) {
			t.Errorf("%T: column %q missing from migrated schema", tc.model, tc.column)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Error("nil is not a violation")
	}
	if IsUniqueViolation(errors.New("connection refused")) {
		t.Error("arbitrary error is not a violation")
	}
	if !IsUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Error("gorm.ErrDuplicatedKey should match")
	}
	if !IsUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Error("postgres 23505 should match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: users.username")) {
		t.Error("sqlite constraint message should match")
	}
}
