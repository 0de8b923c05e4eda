package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bebranft/creator-market/internal/apperr"
	"github.com/bebranft/creator-market/internal/blockchain"
	"github.com/bebranft/creator-market/internal/database"
	"github.com/bebranft/creator-market/internal/identity"
	"github.com/bebranft/creator-market/internal/models"
	"github.com/bebranft/creator-market/internal/storage"
	"github.com/bebranft/creator-market/internal/utils"
)

// PublicationService orchestrates the storage -> chain -> database publish
// flow. Steps run strictly in that order so the cheapest-to-abandon state is
// created first: an orphaned metadata blob is harmless, an unrecorded mint
// is not. Every step that can succeed externally while its dependent
// database write fails has a named reconciliation path.
type PublicationService struct {
	db       *gorm.DB
	store    storage.ContentStore
	minter   blockchain.TokenMinter
	resolver *identity.Resolver
	stats    *StatsService

	minConfirmations int
	mintLocks        sync.Map // contract address -> *sync.Mutex
}

// NewPublicationService creates a new PublicationService
func NewPublicationService(
	db *gorm.DB,
	store storage.ContentStore,
	minter blockchain.TokenMinter,
	resolver *identity.Resolver,
	stats *StatsService,
	minConfirmations int,
) *PublicationService {
	if minConfirmations < 1 {
		minConfirmations = 1
	}
	return &PublicationService{
		db:               db,
		store:            store,
		minter:           minter,
		resolver:         resolver,
		stats:            stats,
		minConfirmations: minConfirmations,
	}
}

// profileBlob is the off-chain profile document pinned for each user.
type profileBlob struct {
	Address     string            `json:"address"`
	Username    string            `json:"username"`
	Email       string            `json:"email,omitempty"`
	Bio         string            `json:"bio,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// postParams is persisted in Post.Metadata at draft time so a retried or
// reconciled mint rebuilds the token row from the same parameters.
type postParams struct {
	Tags        []string        `json:"tags,omitempty"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol,omitempty"`
	Description string          `json:"description,omitempty"`
	ExternalURL string          `json:"external_url,omitempty"`
	Price       decimal.Decimal `json:"price"`
	MaxSupply   uint64          `json:"max_supply"`
	RoyaltyBps  int             `json:"royalty_bps"`
}

// tokenMetadata is the blob pinned as the token's metadata URI target.
type tokenMetadata struct {
	Name                 string `json:"name"`
	Symbol               string `json:"symbol,omitempty"`
	Description          string `json:"description,omitempty"`
	ExternalURL          string `json:"external_url,omitempty"`
	Image                string `json:"image,omitempty"`
	SellerFeeBasisPoints int    `json:"seller_fee_basis_points"`
}

// MintRecordError reports the critical inconsistency window: the chain holds
// a mint the database failed to record. It carries enough identity to drive
// ReconcileMint.
type MintRecordError struct {
	ContractAddress string
	EditionNumber   uint64
	PostID          uint
	TxHash          string
	Err             error
}

func (e *MintRecordError) Error() string {
	return fmt.Sprintf("minted token %s/%d (tx %s) not recorded for post %d: %v",
		e.ContractAddress, e.EditionNumber, e.TxHash, e.PostID, e.Err)
}

func (e *MintRecordError) Unwrap() error {
	return e.Err
}

// RegisterUser creates a user explicitly: uniqueness checks, profile blob
// upload, user row, stats row — in that order. A failure before the user row
// commits leaves no local state; a stats failure after it reports
// PartialFailure and is repaired by RepairUserStats.
func (s *PublicationService) RegisterUser(ctx context.Context, address, username, email string) (*models.User, error) {
	canonical, err := identity.Normalize(address)
	if err != nil {
		return nil, err
	}
	if username == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "username is required")
	}

	if err := s.checkRegistrationConflicts(ctx, canonical, username, email, 0); err != nil {
		return nil, err
	}

	blob := profileBlob{
		Address:   canonical,
		Username:  username,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile blob: %w", err)
	}
	contentID, err := s.store.Put(ctx, raw)
	if err != nil {
		return nil, err // StorageUnavailable, fully retryable, nothing committed
	}

	user := models.User{
		WalletAddress: canonical,
		Username:      username,
		ProfileCID:    &contentID,
	}
	if email != "" {
		user.Email = &email
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&user)
	if result.Error != nil && !database.IsUniqueViolation(result.Error) {
		return nil, fmt.Errorf("failed to create user: %w", result.Error)
	}
	if result.Error != nil || result.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindConflict, "address, username or email already registered")
	}

	log.Printf("User registered: wallet=%s username=%s (ID: %d)", canonical, username, user.ID)

	if err := s.stats.EnsureRow(ctx, user.ID); err != nil {
		return &user, apperr.Wrap(apperr.KindPartialFailure, err,
			"user %s created but stats row missing; retry RepairUserStats", canonical)
	}
	return &user, nil
}

// RepairUserStats creates the stats row a PartialFailure left missing.
// Idempotent: an existing row is left untouched.
func (s *PublicationService) RepairUserStats(ctx context.Context, address string) error {
	user, err := s.resolver.FindByAddress(ctx, address)
	if err != nil {
		return err
	}
	return s.stats.EnsureRow(ctx, user.ID)
}

// LazyEnsureUser registers an address on first sight with a placeholder
// username. Safe to call concurrently: at most one user row results.
func (s *PublicationService) LazyEnsureUser(ctx context.Context, address string) (*models.User, error) {
	return s.resolver.Resolve(ctx, address)
}

// PublishRequest carries the inputs of PublishAndMint.
type PublishRequest struct {
	CreatorAddress string
	Title          string
	Content        string
	Description    string
	ExternalURL    string
	Tags           []string
	Name           string
	Symbol         string
	Price          decimal.Decimal
	MaxSupply      uint64
	RoyaltyBps     int
}

// PublishAndMint drafts a post, pins the token metadata, mints the first
// edition, then records the token and flips the post to minted.
//
// Failure map: metadata upload fails -> post stays draft, retry safe. Mint
// fails or reverts -> post stays draft, the pinned blob is orphaned but
// harmless (idempotent re-put yields the same identifier). Mint succeeds but
// recording fails -> MintRecordError (PartialFailure kind) naming the
// contract and edition, repaired by ReconcileMint.
func (s *PublicationService) PublishAndMint(ctx context.Context, req PublishRequest) (*models.Post, *models.Token, error) {
	if req.Title == "" {
		return nil, nil, apperr.New(apperr.KindInvalidArgument, "title is required")
	}
	if req.Name == "" {
		req.Name = req.Title
	}
	if req.RoyaltyBps < 0 || req.RoyaltyBps > 10000 {
		return nil, nil, apperr.New(apperr.KindInvalidArgument, "royalty basis points must be within [0, 10000]")
	}
	if req.MaxSupply == 0 {
		req.MaxSupply = 1
	}

	user, err := s.resolver.Resolve(ctx, req.CreatorAddress)
	if err != nil {
		return nil, nil, err
	}

	params := postParams{
		Tags:        req.Tags,
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
		ExternalURL: req.ExternalURL,
		Price:       req.Price,
		MaxSupply:   req.MaxSupply,
		RoyaltyBps:  req.RoyaltyBps,
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode post metadata: %w", err)
	}

	post := models.Post{
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		Title:         req.Title,
		Content:       req.Content,
		Metadata:      string(rawParams),
		Status:        models.PostStatusDraft,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create post: %w", err)
	}
	if err := s.stats.Increment(ctx, user.ID, StatPosts); err != nil {
		log.Printf("Warning: failed to bump posts_count for user %d: %v", user.ID, err)
	}

	token, err := s.mintForPost(ctx, &post, user, params)
	if err != nil {
		return &post, nil, err
	}
	return &post, token, nil
}

// mintForPost runs the upload, mint and recording steps against an
// already-drafted post. Reused by RetryMint for drafts whose earlier attempt
// failed before the mint landed.
func (s *PublicationService) mintForPost(ctx context.Context, post *models.Post, user *models.User, params postParams) (*models.Token, error) {
	meta := tokenMetadata{
		Name:                 params.Name,
		Symbol:               params.Symbol,
		Description:          params.Description,
		ExternalURL:          params.ExternalURL,
		SellerFeeBasisPoints: params.RoyaltyBps,
	}
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token metadata: %w", err)
	}

	contentID, err := s.store.Put(ctx, rawMeta)
	if err != nil {
		return nil, err // post stays draft, retry re-enters here
	}
	if err := s.db.WithContext(ctx).Model(post).Update("metadata_cid", contentID).Error; err != nil {
		return nil, fmt.Errorf("failed to store metadata identifier: %w", err)
	}
	post.MetadataCID = &contentID

	result, err := s.minter.Mint(ctx, blockchain.MintRequest{
		MetadataCID: contentID,
		Recipient:   user.WalletAddress,
		Quantity:    1,
		Price:       params.Price,
	})
	if err != nil {
		return nil, err // Reverted / NetworkUnavailable, post stays draft
	}

	if _, err := s.minter.WaitForConfirmation(ctx, result.TxHash, s.minConfirmations); err != nil {
		// Timeout keeps the tx hash visible so the caller re-polls rather
		// than resubmitting.
		return nil, err
	}

	edition := result.EditionNumber
	if edition == 0 {
		edition = 1 // first edition of a fresh NFT mint
	}

	token, err := s.recordMintedToken(ctx, post, params, user.WalletAddress, result.ContractAddress, edition, result.TxHash)
	if err != nil {
		return nil, &MintRecordError{
			ContractAddress: result.ContractAddress,
			EditionNumber:   edition,
			PostID:          post.ID,
			TxHash:          result.TxHash,
			Err:             apperr.Wrap(apperr.KindPartialFailure, err, "mint confirmed but not recorded"),
		}
	}
	return token, nil
}

// recordMintedToken is step 4 of the saga: insert the token row and
// transition the post. Idempotent on (contract address, edition number) —
// a replay lands on the existing row instead of double-inserting.
func (s *PublicationService) recordMintedToken(
	ctx context.Context,
	post *models.Post,
	params postParams,
	creatorAddress string,
	contractAddress string,
	edition uint64,
	txHash string,
) (*models.Token, error) {
	postID := post.ID
	token := models.Token{
		ContractAddress: contractAddress,
		EditionNumber:   edition,
		Kind:            models.TokenKindNFT,
		Name:            params.Name,
		Symbol:          params.Symbol,
		MaxSupply:       params.MaxSupply,
		CurrentSupply:   1,
		Price:           params.Price,
		RoyaltyBps:      params.RoyaltyBps,
		MetadataCID:     derefOr(post.MetadataCID, ""),
		CreatorAddress:  creatorAddress,
		PostID:          &postID,
		Status:          models.TokenStatusMinted,
		TxHash:          txHash,
		MintRequestID:   uuid.NewString(),
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&token)
	if result.Error != nil && !database.IsUniqueViolation(result.Error) {
		return nil, fmt.Errorf("failed to record token: %w", result.Error)
	}
	inserted := result.Error == nil && result.RowsAffected > 0
	if !inserted {
		// Replay — the row already exists.
		if err := s.db.WithContext(ctx).
			Where("contract_address = ? AND edition_number = ?", contractAddress, edition).
			First(&token).Error; err != nil {
			return nil, fmt.Errorf("failed to read recorded token: %w", err)
		}
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(post).Updates(map[string]interface{}{
		"token_id":  token.ID,
		"status":    models.PostStatusMinted,
		"minted_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to transition post %d: %w", post.ID, err)
	}
	post.TokenID = &token.ID
	post.Status = models.PostStatusMinted
	post.MintedAt = &now

	if inserted {
		if err := s.stats.Increment(ctx, post.UserID, StatNFTs); err != nil {
			log.Printf("Warning: failed to bump nfts_count for user %d: %v", post.UserID, err)
		}
	}

	log.Printf("Token recorded: contract=%s edition=%d post=%d tx=%s", contractAddress, edition, post.ID, txHash)
	return &token, nil
}

// RetryMint re-enters the mint steps for a draft whose earlier attempt
// failed before anything landed on chain. The draft row and its stored mint
// parameters are reused, so retrying never duplicates the post or its
// posts_count contribution. A post that already minted returns its token.
func (s *PublicationService) RetryMint(ctx context.Context, postID uint) (*models.Post, *models.Token, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, apperr.New(apperr.KindNotFound, "post %d not found", postID)
		}
		return nil, nil, fmt.Errorf("failed to read post: %w", err)
	}

	if post.Status == models.PostStatusMinted && post.TokenID != nil {
		var token models.Token
		if err := s.db.WithContext(ctx).First(&token, *post.TokenID).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to read token for post %d: %w", postID, err)
		}
		return &post, &token, nil
	}

	params, err := s.paramsForPost(&post)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.resolver.FindByAddress(ctx, post.WalletAddress)
	if err != nil {
		return nil, nil, err
	}

	token, err := s.mintForPost(ctx, &post, user, params)
	if err != nil {
		return &post, nil, err
	}
	return &post, token, nil
}

// paramsForPost decodes the mint parameters persisted on the post at draft
// time, filling the same defaults the original publish applied.
func (s *PublicationService) paramsForPost(post *models.Post) (postParams, error) {
	var params postParams
	if post.Metadata != "" {
		if err := json.Unmarshal([]byte(post.Metadata), &params); err != nil {
			return params, fmt.Errorf("failed to decode post metadata: %w", err)
		}
	}
	if params.Name == "" {
		params.Name = post.Title
	}
	if params.MaxSupply == 0 {
		params.MaxSupply = 1
	}
	return params, nil
}

// ReconcileMint re-attempts the recording step for a mint that confirmed on
// chain but never reached the database. When the transaction hash is known
// it is re-verified first; recording stays idempotent, so replaying a mint
// that was recorded after all is a no-op.
func (s *PublicationService) ReconcileMint(ctx context.Context, contractAddress string, edition uint64, postID uint, txHash string) (*models.Token, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.KindNotFound, "post %d not found", postID)
		}
		return nil, fmt.Errorf("failed to read post: %w", err)
	}

	params, err := s.paramsForPost(&post)
	if err != nil {
		return nil, err
	}

	if txHash != "" {
		if _, err := s.minter.WaitForConfirmation(ctx, txHash, s.minConfirmations); err != nil {
			return nil, err
		}
	}

	return s.recordMintedToken(ctx, &post, params, post.WalletAddress, contractAddress, edition, txHash)
}

// MintSupply tops up an existing token. The check-then-mint sequence is
// serialized per contract, and the local supply check is advisory only: a
// chain-side revert is the authoritative sold-out signal and resyncs the
// cached supply.
func (s *PublicationService) MintSupply(ctx context.Context, contractAddress string, quantity uint64, recipientAddress string) (*models.Token, error) {
	if quantity == 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "quantity must be positive")
	}
	recipient, err := identity.Normalize(recipientAddress)
	if err != nil {
		return nil, err
	}

	lock := s.lockFor(contractAddress)
	lock.Lock()
	defer lock.Unlock()

	var token models.Token
	if err := s.db.WithContext(ctx).
		Where("contract_address = ?", contractAddress).
		Order("edition_number ASC").
		First(&token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.KindNotFound, "token %s not found", contractAddress)
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	// Local pre-flight guard; the chain contract has the final word.
	if token.SoldOut() || token.CurrentSupply+quantity > token.MaxSupply {
		return nil, apperr.New(apperr.KindReverted, "token %s sold out (%d/%d)",
			contractAddress, token.CurrentSupply, token.MaxSupply)
	}

	result, err := s.minter.Mint(ctx, blockchain.MintRequest{
		MetadataCID:     token.MetadataCID,
		Recipient:       recipient,
		Quantity:        quantity,
		Price:           token.Price,
		ContractAddress: contractAddress,
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindReverted) {
			s.resyncSupply(ctx, &token)
		}
		return nil, err
	}

	if _, err := s.minter.WaitForConfirmation(ctx, result.TxHash, s.minConfirmations); err != nil {
		if apperr.IsKind(err, apperr.KindReverted) {
			s.resyncSupply(ctx, &token)
		}
		return nil, err
	}

	newSupply := token.CurrentSupply + quantity
	if err := s.db.WithContext(ctx).Model(&token).Update("current_supply", newSupply).Error; err != nil {
		return nil, &MintRecordError{
			ContractAddress: contractAddress,
			EditionNumber:   token.EditionNumber,
			PostID:          derefOrUint(token.PostID, 0),
			TxHash:          result.TxHash,
			Err:             apperr.Wrap(apperr.KindPartialFailure, err, "top-up confirmed but supply not recorded"),
		}
	}
	token.CurrentSupply = newSupply

	log.Printf("Supply minted: contract=%s qty=%d supply=%d/%d tx=%s",
		contractAddress, quantity, newSupply, token.MaxSupply, result.TxHash)
	return &token, nil
}

// supplyReader is implemented by minters that can read authoritative
// on-chain supply.
type supplyReader interface {
	TokenSupply(ctx context.Context, contractAddress string) (uint64, error)
}

// resyncSupply overwrites the cached supply with the chain's answer after a
// revert proved the cache stale. Without a supply reader the cache is
// clamped to max, which is what a sold-out revert implies.
func (s *PublicationService) resyncSupply(ctx context.Context, token *models.Token) {
	supply := token.MaxSupply
	if reader, ok := s.minter.(supplyReader); ok {
		chainSupply, err := reader.TokenSupply(ctx, token.ContractAddress)
		if err != nil {
			log.Printf("Warning: failed to read chain supply for %s: %v", token.ContractAddress, err)
		} else {
			supply = chainSupply
		}
	}
	if supply == token.CurrentSupply {
		return
	}
	if err := s.db.WithContext(ctx).Model(token).Update("current_supply", supply).Error; err != nil {
		log.Printf("Warning: failed to resync supply for %s: %v", token.ContractAddress, err)
		return
	}
	token.CurrentSupply = supply
	log.Printf("Supply resynced from chain: contract=%s supply=%d", token.ContractAddress, supply)
}

// CoinRequest carries the inputs of CreateCoin.
type CoinRequest struct {
	CreatorAddress string
	Name           string
	Symbol         string
	Description    string
	InitialSupply  uint64
	MaxSupply      uint64
	Price          decimal.Decimal
}

// CreateCoin mints a freestanding fungible token with no backing post.
// Coins are identified by contract address alone (edition number 0).
func (s *PublicationService) CreateCoin(ctx context.Context, req CoinRequest) (*models.Token, error) {
	if req.Name == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "coin name is required")
	}
	if req.InitialSupply == 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "initial supply must be positive")
	}
	if req.MaxSupply == 0 {
		req.MaxSupply = req.InitialSupply
	}
	if req.InitialSupply > req.MaxSupply {
		return nil, apperr.New(apperr.KindInvalidArgument, "initial supply exceeds max supply")
	}

	user, err := s.resolver.Resolve(ctx, req.CreatorAddress)
	if err != nil {
		return nil, err
	}

	rawMeta, err := json.Marshal(tokenMetadata{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode coin metadata: %w", err)
	}
	contentID, err := s.store.Put(ctx, rawMeta)
	if err != nil {
		return nil, err
	}

	result, err := s.minter.Mint(ctx, blockchain.MintRequest{
		MetadataCID: contentID,
		Recipient:   user.WalletAddress,
		Quantity:    req.InitialSupply,
		Price:       req.Price,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.minter.WaitForConfirmation(ctx, result.TxHash, s.minConfirmations); err != nil {
		return nil, err
	}

	token, err := s.recordCoin(ctx, user, req, contentID, result.ContractAddress, result.TxHash)
	if err != nil {
		return nil, &MintRecordError{
			ContractAddress: result.ContractAddress,
			TxHash:          result.TxHash,
			Err:             apperr.Wrap(apperr.KindPartialFailure, err, "coin minted but not recorded; retry ReconcileCoin"),
		}
	}

	log.Printf("Coin created: contract=%s supply=%d/%d creator=%s",
		token.ContractAddress, token.CurrentSupply, token.MaxSupply, user.WalletAddress)
	return token, nil
}

// recordCoin inserts the edition-0 coin row and bumps the creator's
// collections counter. Idempotent on the contract address: a replay lands on
// the existing row and leaves the counter alone.
func (s *PublicationService) recordCoin(
	ctx context.Context,
	user *models.User,
	req CoinRequest,
	contentID string,
	contractAddress string,
	txHash string,
) (*models.Token, error) {
	token := models.Token{
		ContractAddress: contractAddress,
		EditionNumber:   0,
		Kind:            models.TokenKindCoin,
		Name:            req.Name,
		Symbol:          req.Symbol,
		MaxSupply:       req.MaxSupply,
		CurrentSupply:   req.InitialSupply,
		Price:           req.Price,
		MetadataCID:     contentID,
		CreatorAddress:  user.WalletAddress,
		Status:          models.TokenStatusMinted,
		TxHash:          txHash,
		MintRequestID:   uuid.NewString(),
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&token)
	if result.Error != nil && !database.IsUniqueViolation(result.Error) {
		return nil, fmt.Errorf("failed to record coin: %w", result.Error)
	}
	inserted := result.Error == nil && result.RowsAffected > 0
	if !inserted {
		if err := s.db.WithContext(ctx).
			Where("contract_address = ? AND edition_number = 0", contractAddress).
			First(&token).Error; err != nil {
			return nil, fmt.Errorf("failed to read recorded coin: %w", err)
		}
	}

	if inserted {
		if err := s.stats.Increment(ctx, user.ID, StatCollections); err != nil {
			log.Printf("Warning: failed to bump collections_count for user %d: %v", user.ID, err)
		}
	}
	return &token, nil
}

// ReconcileCoin re-attempts the recording step for a coin mint that
// confirmed on chain but never reached the database. Coins have no backing
// post to rebuild parameters from, so the caller resupplies them; the
// metadata re-pins to the same content identifier and recording stays
// idempotent on the contract address.
func (s *PublicationService) ReconcileCoin(ctx context.Context, req CoinRequest, contractAddress, txHash string) (*models.Token, error) {
	if req.Name == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "coin name is required")
	}
	if req.InitialSupply == 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "initial supply must be positive")
	}
	if req.MaxSupply == 0 {
		req.MaxSupply = req.InitialSupply
	}

	user, err := s.resolver.Resolve(ctx, req.CreatorAddress)
	if err != nil {
		return nil, err
	}

	rawMeta, err := json.Marshal(tokenMetadata{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode coin metadata: %w", err)
	}
	contentID, err := s.store.Put(ctx, rawMeta)
	if err != nil {
		return nil, err
	}

	if txHash != "" {
		if _, err := s.minter.WaitForConfirmation(ctx, txHash, s.minConfirmations); err != nil {
			return nil, err
		}
	}

	token, err := s.recordCoin(ctx, user, req, contentID, contractAddress, txHash)
	if err != nil {
		return nil, err
	}
	log.Printf("Coin reconciled: contract=%s supply=%d/%d tx=%s",
		token.ContractAddress, token.CurrentSupply, token.MaxSupply, txHash)
	return token, nil
}

// MigrateLegacyUser bootstraps a user from a previously-pinned profile blob.
// Strictly one-time: an existing user reports Conflict, never an upsert.
func (s *PublicationService) MigrateLegacyUser(ctx context.Context, address, contentID string) (*models.User, error) {
	canonical, err := identity.Normalize(address)
	if err != nil {
		return nil, err
	}

	if _, err := s.resolver.FindByAddress(ctx, canonical); err == nil {
		return nil, apperr.New(apperr.KindConflict, "user %s already registered", canonical)
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	raw, err := s.store.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	var blob profileBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidArgument, err, "profile blob %s is malformed", contentID)
	}

	username := blob.Username
	if username == "" {
		username = utils.PlaceholderNickname(canonical)
	}

	user := models.User{
		WalletAddress: canonical,
		Username:      username,
		Bio:           blob.Bio,
		ProfileCID:    &contentID,
	}
	if blob.Email != "" {
		user.Email = &blob.Email
	}
	if err := user.SetSocialLinks(blob.SocialLinks); err != nil {
		return nil, fmt.Errorf("failed to encode social links: %w", err)
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&user)
	if result.Error != nil && !database.IsUniqueViolation(result.Error) {
		return nil, fmt.Errorf("failed to create migrated user: %w", result.Error)
	}
	if result.Error != nil || result.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindConflict, "user %s already registered", canonical)
	}

	log.Printf("Legacy user migrated: wallet=%s username=%s cid=%s", canonical, username, contentID)

	if err := s.stats.EnsureRow(ctx, user.ID); err != nil {
		return &user, apperr.Wrap(apperr.KindPartialFailure, err,
			"user %s migrated but stats row missing; retry RepairUserStats", canonical)
	}
	return &user, nil
}

// DeleteUserAndCleanup tears a user down: stats, follow edges in both
// directions, then the user row. The relational deletion is the
// authoritative "user no longer exists" signal; unpinning the profile blob
// afterwards is best effort and storage-side garbage is acceptable.
func (s *PublicationService) DeleteUserAndCleanup(ctx context.Context, address string) error {
	user, err := s.resolver.FindByAddress(ctx, address)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).Delete(&models.UserStats{}).Error; err != nil {
		return fmt.Errorf("failed to delete stats: %w", err)
	}
	if err := s.db.WithContext(ctx).
		Where("follower_id = ? OR followed_id = ?", user.ID, user.ID).
		Delete(&models.FollowEdge{}).Error; err != nil {
		return fmt.Errorf("failed to delete follow edges: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&models.User{}, user.ID).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	log.Printf("User deleted: wallet=%s (ID: %d)", user.WalletAddress, user.ID)

	if user.ProfileCID != nil {
		if err := s.store.Unpin(ctx, *user.ProfileCID); err != nil {
			log.Printf("Warning: failed to unpin profile %s for deleted user %s: %v",
				*user.ProfileCID, user.WalletAddress, err)
		}
	}
	return nil
}

// checkRegistrationConflicts fails fast on taken address, username or email
// before any external call. excludeUserID skips the caller's own row on
// profile updates.
func (s *PublicationService) checkRegistrationConflicts(ctx context.Context, canonical, username, email string, excludeUserID uint) error {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("wallet_address = ?", canonical)
	if excludeUserID != 0 {
		q = q.Where("id <> ?", excludeUserID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check address: %w", err)
	}
	if count > 0 {
		return apperr.New(apperr.KindConflict, "address %s already registered", canonical)
	}

	if username != "" {
		q = s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username)
		if excludeUserID != 0 {
			q = q.Where("id <> ?", excludeUserID)
		}
		if err := q.Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if count > 0 {
			return apperr.New(apperr.KindConflict, "username %q already taken", username)
		}
	}

	if email != "" {
		q = s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
		if excludeUserID != 0 {
			q = q.Where("id <> ?", excludeUserID)
		}
		if err := q.Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if count > 0 {
			return apperr.New(apperr.KindConflict, "email %q already taken", email)
		}
	}
	return nil
}

// lockFor returns the per-contract mutex serializing top-up mints.
func (s *PublicationService) lockFor(contractAddress string) *sync.Mutex {
	actual, _ := s.mintLocks.LoadOrStore(contractAddress, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func derefOrUint(p *uint, fallback uint) uint {
	if p == nil {
		return fallback
	}
	return *p
}
