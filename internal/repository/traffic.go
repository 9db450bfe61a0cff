package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/axonhq/axon/internal/model"
)

// TrafficRepository appends classified requests to the traffic table and
// aggregates them for the dashboard.
type TrafficRepository struct {
	pool *pgxpool.Pool
}

// NewTrafficRepository returns a TrafficRepository using the given pool.
func NewTrafficRepository(pool *pgxpool.Pool) *TrafficRepository {
	return &TrafficRepository{pool: pool}
}

func (r *TrafficRepository) Name() string { return "postgres" }

// Write inserts one row per verdict.
func (r *TrafficRepository) Write(ctx context.Context, ev model.TrafficEvent) error {
	_, err := r.Insert(ctx, ev)
	return err
}

// Insert stores the event and returns it with ID and CreatedAt set.
func (r *TrafficRepository) Insert(ctx context.Context, ev model.TrafficEvent) (model.TrafficEvent, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO traffic (timestamp, path, method, ip, country, user_agent, prediction, confidence, bot_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		ev.Timestamp,
		ev.Path,
		ev.Method,
		ev.IP,
		ev.Country,
		ev.UserAgent,
		string(ev.Prediction),
		ev.Confidence,
		ev.BotScore,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return ev, fmt.Errorf("insert traffic: %w", err)
	}
	return ev, nil
}

// Stats aggregates the whole table as of now.
func (r *TrafficRepository) Stats(ctx context.Context, now time.Time) (model.Stats, error) {
	var c Counts
	hourAgo := now.Add(-time.Hour).UnixMilli()
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE prediction = 'attack'),
			COUNT(*) FILTER (WHERE prediction = 'legit'),
			COUNT(*) FILTER (WHERE timestamp > $1)
		FROM traffic`, hourAgo).Scan(&c.Total, &c.Attacks, &c.Legit, &c.LastHour)
	if err != nil {
		return model.Stats{}, fmt.Errorf("count traffic: %w", err)
	}

	paths, err := r.TopAttackPaths(ctx, topAttackPaths)
	if err != nil {
		return model.Stats{}, err
	}
	return BuildStats(c, paths, now), nil
}

// TopAttackPaths returns the most frequent attack paths, most frequent first.
func (r *TrafficRepository) TopAttackPaths(ctx context.Context, limit int) ([]PathCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT path, COUNT(*) AS count
		FROM traffic
		WHERE prediction = 'attack'
		GROUP BY path
		ORDER BY count DESC, path
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attack paths: %w", err)
	}
	defer rows.Close()

	var list []PathCount
	for rows.Next() {
		var pc PathCount
		if err := rows.Scan(&pc.Path, &pc.Count); err != nil {
			return nil, fmt.Errorf("scan attack path: %w", err)
		}
		list = append(list, pc)
	}
	return list, rows.Err()
}
