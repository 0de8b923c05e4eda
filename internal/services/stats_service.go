package services

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bebranft/creator-market/internal/apperr"
	"github.com/bebranft/creator-market/internal/database"
	"github.com/bebranft/creator-market/internal/models"
)

// StatKind selects which aggregate counter an adjustment targets.
type StatKind string

const (
	StatPosts       StatKind = "posts"
	StatCollections StatKind = "collections"
	StatNFTs        StatKind = "nfts"
	StatLikes       StatKind = "likes"
)

// column maps a stat kind to its user_stats column.
func (k StatKind) column() (string, error) {
	switch k {
	case StatPosts:
		return "posts_count", nil
	case StatCollections:
		return "collections_count", nil
	case StatNFTs:
		return "nfts_count", nil
	case StatLikes:
		return "total_likes", nil
	default:
		return "", apperr.New(apperr.KindInvalidArgument, "unknown stat kind %q", k)
	}
}

// StatsService is the only writer of user_stats rows. Counters are a cache
// over counted rows: decrements clamp at zero and posts_count can always be
// rebuilt from the posts table.
type StatsService struct {
	db *gorm.DB
}

// NewStatsService creates a new StatsService
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// Increment bumps a counter by one.
func (s *StatsService) Increment(ctx context.Context, userID uint, kind StatKind) error {
	return s.Adjust(ctx, userID, kind, 1)
}

// Decrement lowers a counter by one, clamping at zero.
func (s *StatsService) Decrement(ctx context.Context, userID uint, kind StatKind) error {
	return s.Adjust(ctx, userID, kind, -1)
}

// Adjust applies a delta to a counter in a single UPDATE. Negative deltas
// clamp at zero so a double-decrement race can never drive a counter
// negative. A missing stats row is created first, detected by absence.
func (s *StatsService) Adjust(ctx context.Context, userID uint, kind StatKind, delta int) error {
	col, err := kind.column()
	if err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}

	expr := fmt.Sprintf("CASE WHEN %s + ? > 0 THEN %s + ? ELSE 0 END", col, col)
	result := s.db.WithContext(ctx).Model(&models.UserStats{}).
		Where("user_id = ?", userID).
		Update(col, gorm.Expr(expr, delta, delta))
	if result.Error != nil {
		return fmt.Errorf("failed to adjust %s for user %d: %w", col, userID, result.Error)
	}

	if result.RowsAffected == 0 {
		// Stats row missing — create it, then retry once.
		if err := s.EnsureRow(ctx, userID); err != nil {
			return err
		}
		result = s.db.WithContext(ctx).Model(&models.UserStats{}).
			Where("user_id = ?", userID).
			Update(col, gorm.Expr(expr, delta, delta))
		if result.Error != nil {
			return fmt.Errorf("failed to adjust %s for user %d: %w", col, userID, result.Error)
		}
	}
	return nil
}

// ReconcilePostCount recomputes posts_count from the counted post rows and
// overwrites the stored value when it differs. The counted rows are ground
// truth; the stored counter is only a cache. Calling it twice without
// intervening post mutations leaves the row unchanged after the first call.
func (s *StatsService) ReconcilePostCount(ctx context.Context, userID uint) (int, error) {
	var counted int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ?", userID).
		Count(&counted).Error; err != nil {
		return 0, fmt.Errorf("failed to count posts for user %d: %w", userID, err)
	}

	var stats models.UserStats
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		if err := s.EnsureRow(ctx, userID); err != nil {
			return 0, err
		}
		stats = models.UserStats{UserID: userID}
	} else if err != nil {
		return 0, fmt.Errorf("failed to read stats for user %d: %w", userID, err)
	}

	if stats.PostsCount != int(counted) {
		log.Printf("Reconciling posts_count for user %d: stored=%d counted=%d", userID, stats.PostsCount, counted)
		if err := s.db.WithContext(ctx).Model(&models.UserStats{}).
			Where("user_id = ?", userID).
			Update("posts_count", counted).Error; err != nil {
			return 0, fmt.Errorf("failed to store reconciled posts_count: %w", err)
		}
	}
	return int(counted), nil
}

// Get returns the stats row for a user.
func (s *StatsService) Get(ctx context.Context, userID uint) (*models.UserStats, error) {
	var stats models.UserStats
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.KindNotFound, "stats for user %d not found", userID)
		}
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return &stats, nil
}

// EnsureRow conditionally inserts a zeroed stats row, detected by absence.
func (s *StatsService) EnsureRow(ctx context.Context, userID uint) error {
	stats := models.UserStats{UserID: userID}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&stats)
	if result.Error != nil && !database.IsUniqueViolation(result.Error) {
		return fmt.Errorf("failed to create stats row for user %d: %w", userID, result.Error)
	}
	return nil
}
