package store

import (
	"context"
	"fmt"
	"time"

	"cabwatch/internal/roster"

	"github.com/jackc/pgx/v5"
)

type Visit struct {
	ID         string    `json:"id"`
	LocationID string    `json:"location_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	ReportedAt time.Time `json:"reported_at"`
}

// ArchiveDailySummary writes one row per player of a rolled-over ledger.
func (s *Store) ArchiveDailySummary(ctx context.Context, locationID string, players []roster.Player, reportedAt time.Time) error {
	if len(players) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range players {
		batch.Queue(
			`INSERT INTO daily_visits (id, location_id, code, name, first_seen, last_seen, reported_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			NewIDAt(reportedAt), locationID, p.Code, p.Name, p.FirstSeen, p.LastSeen, reportedAt,
		)
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("archive %s: %w", locationID, err)
	}
	return tx.Commit(ctx)
}

func (s *Store) ListVisits(ctx context.Context, locationID string, limit int) ([]Visit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, location_id, code, name, first_seen, last_seen, reported_at
		   FROM daily_visits WHERE location_id = $1
		  ORDER BY reported_at DESC, id DESC LIMIT $2`,
		locationID, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Visit, error) {
		var v Visit
		err := row.Scan(&v.ID, &v.LocationID, &v.Code, &v.Name, &v.FirstSeen, &v.LastSeen, &v.ReportedAt)
		return v, err
	})
}
