package models

import (
	"encoding/json"
	"time"
)

// User represents a creator account keyed by its canonical wallet address.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WalletAddress string    `gorm:"uniqueIndex;size:255;not null" json:"wallet_address"`
	Username      string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email         *string   `gorm:"uniqueIndex;size:255" json:"email,omitempty"`
	Bio           string    `gorm:"type:text" json:"bio,omitempty"`
	SocialLinks   string    `gorm:"type:text" json:"-"` // JSON map of platform -> URL
	ProfileCID    *string   `gorm:"column:profile_cid;size:255" json:"profile_cid,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// SocialLinkMap decodes the stored social links, returning an empty map when unset.
func (u *User) SocialLinkMap() map[string]string {
	links := map[string]string{}
	if u.SocialLinks != "" {
		_ = json.Unmarshal([]byte(u.SocialLinks), &links)
	}
	return links
}

// SetSocialLinks encodes and stores the social links map.
func (u *User) SetSocialLinks(links map[string]string) error {
	if len(links) == 0 {
		u.SocialLinks = ""
		return nil
	}
	raw, err := json.Marshal(links)
	if err != nil {
		return err
	}
	u.SocialLinks = string(raw)
	return nil
}
