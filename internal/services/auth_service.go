package services

import (
	"context"
	"log"

	"github.com/bebranft/creator-market/internal/identity"
	"github.com/bebranft/creator-market/internal/models"
)

// AuthService handles wallet-based login.
type AuthService struct {
	resolver *identity.Resolver
}

// NewAuthService creates a new AuthService
func NewAuthService(resolver *identity.Resolver) *AuthService {
	return &AuthService{resolver: resolver}
}

// ProcessWalletLogin finds or creates a user by wallet address. Login is
// the most common lazy-registration entry point, so it goes through the
// same exactly-once creation path as every other flow.
func (s *AuthService) ProcessWalletLogin(ctx context.Context, walletAddress string) (*models.User, error) {
	user, err := s.resolver.Resolve(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	log.Printf("User logged in: wallet=%s (ID: %d)", user.WalletAddress, user.ID)
	return user, nil
}
