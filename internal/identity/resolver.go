package identity

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gagliardetto/solana-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bebranft/creator-market/internal/apperr"
	"github.com/bebranft/creator-market/internal/database"
	"github.com/bebranft/creator-market/internal/models"
	"github.com/bebranft/creator-market/internal/utils"
)

// Resolver maps wallet addresses to user rows, creating them on first
// sight. It is the single creation path for address-only contexts, so the
// check-then-insert race lives here and nowhere else.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a new Resolver
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Normalize validates a wallet address and returns its canonical form.
// Re-encoding the decoded public key yields exactly one spelling per key,
// so canonical addresses compare byte for byte.
func Normalize(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return "", apperr.New(apperr.KindInvalidArgument, "wallet address is required")
	}
	pk, err := solana.PublicKeyFromBase58(trimmed)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidArgument, err, "invalid wallet address %q", trimmed)
	}
	return pk.String(), nil
}

// Resolve returns the user for an address, creating user and stats rows if
// absent. Creation is a conditional insert: when two callers race, exactly
// one insert wins and the loser re-reads the winning row, so at most one
// user row ever exists per address.
func (r *Resolver) Resolve(ctx context.Context, address string) (*models.User, error) {
	canonical, err := Normalize(address)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = r.db.WithContext(ctx).Where("wallet_address = ?", canonical).First(&user).Error
	if err == nil {
		if err := r.ensureStats(ctx, user.ID); err != nil {
			log.Printf("Warning: failed to heal stats for user %d: %v", user.ID, err)
		}
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("database error: %w", err)
	}

	user = models.User{
		WalletAddress: canonical,
		Username:      utils.PlaceholderNickname(canonical),
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&user)
	if result.Error != nil && !database.IsUniqueViolation(result.Error) {
		return nil, fmt.Errorf("failed to create user: %w", result.Error)
	}

	if result.Error != nil || result.RowsAffected == 0 {
		// Lost the race — re-read the winning row.
		if err := r.db.WithContext(ctx).Where("wallet_address = ?", canonical).First(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to read user after insert conflict: %w", err)
		}
	} else {
		log.Printf("New user created: wallet=%s (ID: %d)", canonical, user.ID)
	}

	if err := r.ensureStats(ctx, user.ID); err != nil {
		return nil, apperr.Wrap(apperr.KindPartialFailure, err,
			"user %s created but stats row missing", canonical)
	}

	return &user, nil
}

// FindByUsername looks a user up by username.
func (r *Resolver) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.KindNotFound, "user %q not found", username)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

// FindByAddress looks a user up by address without creating one.
func (r *Resolver) FindByAddress(ctx context.Context, address string) (*models.User, error) {
	canonical, err := Normalize(address)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := r.db.WithContext(ctx).Where("wallet_address = ?", canonical).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.KindNotFound, "user %s not found", canonical)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

// ensureStats creates the paired stats row if it is missing. The row is
// detected by absence, not by transaction state, because user and stats
// inserts are not atomic here.
func (r *Resolver) ensureStats(ctx context.Context, userID uint) error {
	stats := models.UserStats{UserID: userID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&stats)
	if result.Error != nil && !database.IsUniqueViolation(result.Error) {
		return fmt.Errorf("failed to create stats row: %w", result.Error)
	}
	return nil
}
