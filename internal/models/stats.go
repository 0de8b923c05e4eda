package models

import (
	"time"
)

// UserStats holds per-user aggregate counters. The stored values are a cache:
// posts_count in particular is reconciled against the counted post rows and
// may be lazily repaired.
type UserStats struct {
	UserID           uint      `gorm:"primaryKey" json:"user_id"`
	User             *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PostsCount       int       `gorm:"default:0" json:"posts_count"`
	CollectionsCount int       `gorm:"default:0" json:"collections_count"`
	NFTsCount        int       `gorm:"column:nfts_count;default:0" json:"nfts_count"`
	TotalLikes       int       `gorm:"default:0" json:"total_likes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for UserStats model
func (UserStats) TableName() string {
	return "user_stats"
}
