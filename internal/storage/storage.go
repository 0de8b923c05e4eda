package storage

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentStore pins opaque byte payloads to content-addressed storage.
// Content is immutable: putting identical bytes twice yields the same
// identifier, and "updates" are always fresh uploads with new identifiers.
// Unpin is best effort — callers treat its failure as residual garbage,
// not a consistency violation.
type ContentStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, contentID string) ([]byte, error)
	Unpin(ctx context.Context, contentID string) error
}

// ComputeCID derives the CIDv1 (raw codec, sha2-256) for a payload. The
// locally computed identifier is the source of truth for idempotency checks.
func ComputeCID(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

// ValidCID reports whether s parses as a content identifier.
func ValidCID(s string) bool {
	_, err := cid.Decode(s)
	return err == nil
}
