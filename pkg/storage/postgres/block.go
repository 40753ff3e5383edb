package postgres

import (
	"context"
	"fmt"
	"urlguard/pkg/storage"

	"github.com/doug-martin/goqu/v9"
)

const (
	blocksTable = "blocks"
)

// StoreBlock inserts the block, keeping the existing row when the URL is
// already blocked.
func (p *PgSQL) StoreBlock(ctx context.Context, block storage.Block) error {
	var row PgBlock
	row.FromStorage(block)
	if row.BlockedAt.IsZero() {
		return fmt.Errorf("could not store block of %q: missing blocked_at", block.URL)
	}

	_, err := p.Builder.Insert(blocksTable).
		Rows(row).
		OnConflict(goqu.DoNothing()).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not store block into pg: %w", err)
	}

	return nil
}

func (p *PgSQL) DeleteBlock(ctx context.Context, URL string) error {
	_, err := p.Builder.Delete(blocksTable).
		Where(goqu.I("url").Eq(URL)).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not delete block from pg: %w", err)
	}

	return nil
}

// Blocks returns all persisted blocks ordered by URL.
func (p *PgSQL) Blocks(ctx context.Context) ([]storage.Block, error) {
	var rows []PgBlock
	if err := p.Builder.From(blocksTable).
		Order(goqu.I("url").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch blocks from pg: %w", err)
	}

	return pgBlocksToStorage(rows), nil
}
