package blockchain

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/bebranft/creator-market/internal/apperr"
)

// MintRequest describes a mint against a metadata content identifier.
// An empty ContractAddress asks for a fresh mint account; a non-empty one
// tops up supply on an existing token.
type MintRequest struct {
	MetadataCID     string
	Recipient       string
	Quantity        uint64
	Price           decimal.Decimal
	ContractAddress string
}

// MintResult identifies what landed on chain.
type MintResult struct {
	ContractAddress string
	EditionNumber   uint64
	TxHash          string
}

// Receipt reports the confirmation outcome for a transaction.
type Receipt struct {
	TxHash    string
	Slot      uint64
	Confirmed bool
}

// TokenMinter is the chain boundary the publication pipeline drives.
// WaitForConfirmation returns a Timeout-kind error when the bound elapses:
// the transaction may still confirm later, so callers re-poll by hash
// instead of resubmitting.
type TokenMinter interface {
	Mint(ctx context.Context, req MintRequest) (*MintResult, error)
	WaitForConfirmation(ctx context.Context, txHash string, minConfirmations int) (*Receipt, error)
}

// SolanaMinter mints SPL tokens through the server wallet.
type SolanaMinter struct {
	client       *SolanaClient
	pollInterval time.Duration
	waitBound    time.Duration
}

// NewSolanaMinter creates a minter over an existing Solana client.
func NewSolanaMinter(client *SolanaClient) *SolanaMinter {
	return &SolanaMinter{
		client:       client,
		pollInterval: 2 * time.Second,
		waitBound:    60 * time.Second,
	}
}

// Mint builds, signs and sends the mint transaction. For a new token this is
// create-account + initialize-mint + create-recipient-ATA + mint-to; for a
// top-up only the mint-to against the existing mint account.
func (m *SolanaMinter) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	if m.client.serverWallet == nil {
		return nil, fmt.Errorf("server wallet not configured")
	}
	if req.Quantity == 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "mint quantity must be positive")
	}

	recipient, err := solana.PublicKeyFromBase58(req.Recipient)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidArgument, err, "invalid recipient address %q", req.Recipient)
	}

	payer := m.client.serverWallet.PublicKey()

	var (
		instructions []solana.Instruction
		mintPubkey   solana.PublicKey
		mintWallet   *solana.Wallet
	)

	if req.ContractAddress == "" {
		// Fresh mint account owned by the server wallet's mint authority.
		mintWallet = solana.NewWallet()
		mintPubkey = mintWallet.PublicKey()

		rent, err := m.client.rpcClient.GetMinimumBalanceForRentExemption(ctx, token.MINT_SIZE, rpc.CommitmentConfirmed)
		if err != nil {
			return nil, classifyRPCError(err, "failed to get rent exemption")
		}

		instructions = append(instructions,
			system.NewCreateAccountInstruction(
				rent,
				token.MINT_SIZE,
				solana.TokenProgramID,
				payer,
				mintPubkey,
			).Build(),
			token.NewInitializeMintInstruction(
				0, // NFT editions and coins are whole units
				payer,
				payer,
				mintPubkey,
				solana.SysVarRentPubkey,
			).Build(),
			associatedtokenaccount.NewCreateInstruction(
				payer,
				recipient,
				mintPubkey,
			).Build(),
		)
	} else {
		mintPubkey, err = solana.PublicKeyFromBase58(req.ContractAddress)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidArgument, err, "invalid contract address %q", req.ContractAddress)
		}
	}

	recipientATA, _, err := solana.FindAssociatedTokenAddress(recipient, mintPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token account: %w", err)
	}

	instructions = append(instructions,
		token.NewMintToInstruction(
			req.Quantity,
			mintPubkey,
			recipientATA,
			payer,
			nil,
		).Build(),
	)

	blockhash, err := m.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, classifyRPCError(err, "failed to get blockhash")
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &m.client.serverWallet.PrivateKey
		}
		if mintWallet != nil && key.Equals(mintWallet.PublicKey()) {
			return &mintWallet.PrivateKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := m.client.SendTransaction(ctx, tx)
	if err != nil {
		return nil, classifySendError(err)
	}

	log.Printf("Mint transaction sent: mint=%s, recipient=%s, qty=%d, tx=%s",
		mintPubkey, recipient, req.Quantity, sig)

	return &MintResult{
		ContractAddress: mintPubkey.String(),
		TxHash:          sig.String(),
	}, nil
}

// WaitForConfirmation polls signature status until the transaction is
// confirmed, fails, or the bound elapses.
func (m *SolanaMinter) WaitForConfirmation(ctx context.Context, txHash string, minConfirmations int) (*Receipt, error) {
	deadline := time.Now().Add(m.waitBound)

	for {
		details, err := m.client.VerifyTransaction(ctx, txHash)
		if err != nil {
			return nil, classifyRPCError(err, "failed to check transaction status")
		}

		if details != nil {
			if details.Failed {
				return nil, apperr.New(apperr.KindReverted, "transaction %s reverted: %s", txHash, details.FailErr)
			}
			if details.Confirmed {
				return &Receipt{
					TxHash:    txHash,
					Slot:      details.Slot,
					Confirmed: true,
				}, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, apperr.New(apperr.KindTimeout, "transaction %s not confirmed within bound", txHash)
		}

		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.KindTimeout, ctx.Err(), "confirmation wait cancelled for %s", txHash)
		case <-time.After(m.pollInterval):
		}
	}
}

// TokenSupply reads the authoritative minted supply for a contract.
func (m *SolanaMinter) TokenSupply(ctx context.Context, contractAddress string) (uint64, error) {
	supply, err := m.client.GetTokenSupply(ctx, contractAddress)
	if err != nil {
		return 0, classifyRPCError(err, "failed to read token supply")
	}
	return supply, nil
}

// classifySendError maps a send failure to the error taxonomy. A preflight
// simulation failure means the chain rejected the transaction outright.
func classifySendError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "custom program error"),
		strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "insufficient lamports"),
		strings.Contains(msg, "would exceed"),
		strings.Contains(msg, "mint capacity"):
		return apperr.Wrap(apperr.KindReverted, err, "chain rejected transaction")
	default:
		return apperr.Wrap(apperr.KindNetworkUnavailable, err, "failed to send transaction")
	}
}

// classifyRPCError maps RPC transport failures.
func classifyRPCError(err error, msg string) error {
	return apperr.Wrap(apperr.KindNetworkUnavailable, err, "%s", msg)
}
