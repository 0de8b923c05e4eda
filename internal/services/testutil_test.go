package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bebranft/creator-market/internal/blockchain"
	"github.com/bebranft/creator-market/internal/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// A single connection keeps the in-memory database alive and shared
	// across goroutines.
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func testAddress(t *testing.T) string {
	t.Helper()
	return solana.NewWallet().PublicKey().String()
}

// fakeMinter is a deterministic in-process TokenMinter. Errors are injected
// per call site; supply answers the chain-side reads after a revert.
type fakeMinter struct {
	mu           sync.Mutex
	mintCalls    int
	confirmCalls int

	mintErr    error
	confirmErr error

	nextContract string
	supply       map[string]uint64

	lastRequest blockchain.MintRequest
}

func newFakeMinter() *fakeMinter {
	return &fakeMinter{supply: make(map[string]uint64)}
}

func (f *fakeMinter) Mint(ctx context.Context, req blockchain.MintRequest) (*blockchain.MintResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintCalls++
	f.lastRequest = req
	if f.mintErr != nil {
		return nil, f.mintErr
	}

	contract := req.ContractAddress
	if contract == "" {
		contract = f.nextContract
		if contract == "" {
			contract = solana.NewWallet().PublicKey().String()
		}
	}
	return &blockchain.MintResult{
		ContractAddress: contract,
		TxHash:          fmt.Sprintf("fake-tx-%d", f.mintCalls),
	}, nil
}

func (f *fakeMinter) WaitForConfirmation(ctx context.Context, txHash string, minConfirmations int) (*blockchain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls++
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &blockchain.Receipt{TxHash: txHash, Slot: 1, Confirmed: true}, nil
}

func (f *fakeMinter) TokenSupply(ctx context.Context, contractAddress string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.supply[contractAddress], nil
}

func (f *fakeMinter) calls() (mints, confirms int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mintCalls, f.confirmCalls
}
