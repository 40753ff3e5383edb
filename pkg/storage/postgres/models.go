package postgres

import (
	"time"
	"urlguard/pkg/storage"
)

type PgBlock struct {
	URL       string    `db:"url"`
	BlockedAt time.Time `db:"blocked_at"`
}

func (p *PgBlock) ToStorage() storage.Block {
	return storage.Block{
		URL:       p.URL,
		BlockedAt: p.BlockedAt,
	}
}

func (p *PgBlock) FromStorage(block storage.Block) {
	*p = PgBlock{
		URL:       block.URL,
		BlockedAt: block.BlockedAt.UTC(),
	}
}

func pgBlocksToStorage(blocks []PgBlock) []storage.Block {
	out := make([]storage.Block, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, block.ToStorage())
	}

	return out
}
