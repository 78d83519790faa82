// internal/database/sync_runs.go
package database

import (
	"context"

	"starmap/internal/model"
)

const createSyncRun = `
INSERT INTO sync_runs (
    id, username, record_count, local_path, published,
    publish_outcome, publish_error, mirrored, started_at, finished_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func (q *Queries) CreateSyncRun(ctx context.Context, run model.SyncRun) error {
	_, err := q.db.Exec(ctx, createSyncRun,
		run.ID,
		run.Username,
		run.RecordCount,
		run.LocalPath,
		run.Published,
		run.PublishOutcome,
		run.PublishError,
		run.Mirrored,
		run.StartedAt,
		run.FinishedAt,
	)
	return err
}

const listSyncRuns = `
SELECT id, username, record_count, local_path, published,
       publish_outcome, publish_error, mirrored, started_at, finished_at
FROM sync_runs
ORDER BY started_at DESC
LIMIT $1
`

func (q *Queries) ListSyncRuns(ctx context.Context, limit int32) ([]model.SyncRun, error) {
	rows, err := q.db.Query(ctx, listSyncRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.SyncRun{}
	for rows.Next() {
		var i model.SyncRun
		if err := rows.Scan(
			&i.ID,
			&i.Username,
			&i.RecordCount,
			&i.LocalPath,
			&i.Published,
			&i.PublishOutcome,
			&i.PublishError,
			&i.Mirrored,
			&i.StartedAt,
			&i.FinishedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
