package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverdatabasesql"
	"github.com/riverqueue/river/rivertype"
)

// inserter returns an insert-only River client bound to the handle. It is
// never started, so it needs no workers. Transaction handles get a client
// without a pool; their inserts go through InsertTx.
func (p *PgSQL) inserter() (*river.Client[*sql.Tx], error) {
	p.riverOnce.Do(func() {
		db, _ := p.DB.(*sql.DB)
		p.river, p.riverErr = river.NewClient(riverdatabasesql.New(db), &river.Config{})
	})
	if p.riverErr != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", p.riverErr)
	}

	return p.river, nil
}

// AddJob enqueues a job. Inside a transaction the job only becomes visible
// once the transaction commits.
func (p *PgSQL) AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error) {
	client, err := p.inserter()
	if err != nil {
		return false, err
	}

	var res *rivertype.JobInsertResult
	if tx, ok := p.DB.(*sql.Tx); ok {
		res, err = client.InsertTx(ctx, tx, args, opts)
	} else {
		res, err = client.Insert(ctx, args, opts)
	}
	if err != nil {
		return false, fmt.Errorf("could not insert %s job: %w", args.Kind(), err)
	}

	return !res.UniqueSkippedAsDuplicate, nil
}
