package models

import (
	"time"
)

// FollowEdge is a directed follower -> followed relation. The composite
// unique index prevents duplicate edges; self-loops are rejected before
// insert.
type FollowEdge struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;index;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FollowedID uint      `gorm:"not null;index;uniqueIndex:idx_follow_pair" json:"followed_id"`
	Follower   *User     `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	Followed   *User     `gorm:"foreignKey:FollowedID" json:"followed,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for FollowEdge model
func (FollowEdge) TableName() string {
	return "follow_edges"
}
