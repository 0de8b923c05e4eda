package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token kinds. NFT-variant tokens carry an edition number; coins are
// freestanding fungible tokens identified by their mint address alone
// (edition number 0).
const (
	TokenKindNFT  = "nft"
	TokenKindCoin = "coin"
)

// Token status values; status advances monotonically.
const (
	TokenStatusMinted = "minted"
	TokenStatusListed = "listed"
	TokenStatusSold   = "sold"
	TokenStatusBurned = "burned"
)

// Token represents an on-chain token recorded after a confirmed mint.
// (contract_address, edition_number) is the idempotency key for the
// recording step: replays upsert into the same row.
type Token struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ContractAddress string          `gorm:"size:255;not null;uniqueIndex:idx_tokens_contract_edition" json:"contract_address"`
	EditionNumber   uint64          `gorm:"default:0;uniqueIndex:idx_tokens_contract_edition" json:"edition_number"`
	Kind            string          `gorm:"size:20;default:nft" json:"kind"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Symbol          string          `gorm:"size:20" json:"symbol"`
	MaxSupply       uint64          `gorm:"default:1" json:"max_supply"`
	CurrentSupply   uint64          `gorm:"default:0" json:"current_supply"`
	Price           decimal.Decimal `gorm:"type:decimal(18,9);default:0" json:"price"`
	RoyaltyBps      int             `gorm:"default:0" json:"royalty_bps"`
	MetadataCID     string          `gorm:"column:metadata_cid;size:255;not null" json:"metadata_cid"`
	CreatorAddress  string          `gorm:"size:255;not null;index" json:"creator_address"`
	PostID          *uint           `gorm:"index" json:"post_id,omitempty"`
	Status          string          `gorm:"size:20;default:minted;index" json:"status"`
	TxHash          string          `gorm:"size:255" json:"tx_hash"`
	MintRequestID   string          `gorm:"size:64" json:"mint_request_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Token model
func (Token) TableName() string {
	return "tokens"
}

// SoldOut reports whether no supply remains to mint.
func (t *Token) SoldOut() bool {
	return t.CurrentSupply >= t.MaxSupply
}
