// Package store persists the engine's audit feed to Postgres. Tables run
// fine without it; the server only wires a store when a DSN is configured.
package store

import (
	"context"
	"embed"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Babyy-dev/blackjack/internal/game"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

// InsertEvents appends a drained batch of audit events in one round trip.
func (db *DB) InsertEvents(ctx context.Context, events []game.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO game_events(table_id, round_id, seat_id, action, payload, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, ev.TableID, ev.RoundID, ev.SeatID, string(ev.Type), payload, ev.Timestamp)
	}
	return db.SendBatch(ctx, batch).Close()
}

// RecentEvents returns a table's latest audit entries, newest first.
func (db *DB) RecentEvents(ctx context.Context, tableID string, limit int) ([]game.Event, error) {
	rows, err := db.Query(ctx, `
		SELECT round_id, seat_id, action, payload, created_at
		  FROM game_events
		 WHERE table_id = $1
		 ORDER BY id DESC
		 LIMIT $2
	`, tableID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []game.Event
	for rows.Next() {
		var (
			ev      game.Event
			action  string
			payload []byte
		)
		ev.TableID = tableID
		if err := rows.Scan(&ev.RoundID, &ev.SeatID, &action, &payload, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Type = game.EventType(action)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ev.Payload); err != nil {
				return nil, err
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
