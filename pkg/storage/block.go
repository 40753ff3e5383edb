package storage

import (
	"context"
	"time"
)

// Block is a persisted block registry entry.
type Block struct {
	// URL is the exact URL string that was blocked.
	URL string
	// BlockedAt is when the URL was first confirmed dangerous.
	BlockedAt time.Time
}

// BlockStorage persists the block registry so it can survive restarts when
// configured to.
type BlockStorage interface {
	// StoreBlock inserts the block. Storing an existing URL keeps the earliest
	// BlockedAt.
	StoreBlock(ctx context.Context, block Block) error
	// DeleteBlock removes the block for URL. Deleting a missing URL is not an error.
	DeleteBlock(ctx context.Context, URL string) error
	// Blocks returns every persisted block ordered by URL.
	Blocks(ctx context.Context) ([]Block, error)
}
