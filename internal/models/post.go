package models

import (
	"time"
)

// Post status values. A post moves draft -> published -> minted and never
// reverts except via explicit correction.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
	PostStatusMinted    = "minted"
)

// Post represents a piece of content owned by a user. MetadataCID is filled
// once the token metadata blob has been pinned, so a retried or reconciled
// mint reuses the same content identifier.
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	User          *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	WalletAddress string     `gorm:"size:255;not null;index" json:"wallet_address"`
	Title         string     `gorm:"size:500;not null" json:"title"`
	Content       string     `gorm:"type:text" json:"content"`
	Metadata      string     `gorm:"type:text" json:"-"` // JSON: tags plus pending mint params
	Status        string     `gorm:"size:20;default:draft;index" json:"status"`
	MetadataCID   *string    `gorm:"column:metadata_cid;size:255" json:"metadata_cid,omitempty"`
	TokenID       *uint      `gorm:"index" json:"token_id,omitempty"`
	Token         *Token     `gorm:"foreignKey:TokenID" json:"token,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	MintedAt      *time.Time `json:"minted_at,omitempty"`
}

// TableName specifies the table name for Post model
func (Post) TableName() string {
	return "posts"
}
