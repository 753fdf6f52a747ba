// Package postgres is the pgx-backed store driver.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		name TEXT PRIMARY KEY,
		occupancy INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		room TEXT NOT NULL,
		nickname TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		file_uuid TEXT,
		file_name TEXT,
		file_url TEXT,
		file_short_url TEXT,
		file_kind TEXT,
		file_status TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS messages_room_created_idx ON messages (room, created_at, id)`,
}

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects to dsn and applies the idempotent schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	s := &Store{pool: pool, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Str("module", "store.postgres").Msg("connected")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Append(ctx context.Context, msg domain.Message) (domain.Message, error) {
	var fileUUID, fileName, fileURL, fileShort, fileKind, fileStatus *string
	if a := msg.Attachment; a != nil {
		kind, status := string(a.Kind), string(a.Status)
		fileUUID, fileName, fileKind, fileStatus = &a.ID, &a.OriginalName, &kind, &status
		if a.RemoteURL != "" {
			fileURL = &a.RemoteURL
		}
		if a.ShortURL != "" {
			fileShort = &a.ShortURL
		}
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO messages (room, nickname, text, created_at, file_uuid, file_name, file_url, file_short_url, file_kind, file_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		string(msg.Room), msg.Nickname, msg.Text, msg.Timestamp,
		fileUUID, fileName, fileURL, fileShort, fileKind, fileStatus,
	).Scan(&id)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: append: %w", domain.ErrStoreUnavailable, err)
	}
	msg.ID = strconv.FormatInt(id, 10)
	return msg, nil
}

func (s *Store) QueryToday(ctx context.Context, room domain.RoomName) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, room, nickname, text, created_at, file_uuid, file_name, file_url, file_short_url, file_kind, file_status
		 FROM messages WHERE room = $1 AND created_at >= $2 ORDER BY created_at ASC, id ASC`,
		string(room), domain.StartOfDay(s.now()),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	out := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		var id int64
		var roomName string
		var fileUUID, fileName, fileURL, fileShort, fileKind, fileStatus *string
		if err := rows.Scan(&id, &roomName, &m.Nickname, &m.Text, &m.Timestamp,
			&fileUUID, &fileName, &fileURL, &fileShort, &fileKind, &fileStatus); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", domain.ErrStoreUnavailable, err)
		}
		m.ID = strconv.FormatInt(id, 10)
		m.Room = domain.RoomName(roomName)
		m.Timestamp = m.Timestamp.Local()
		if fileUUID != nil {
			m.Attachment = &domain.Attachment{
				ID:           *fileUUID,
				OriginalName: deref(fileName),
				RemoteURL:    deref(fileURL),
				ShortURL:     deref(fileShort),
				Kind:         domain.AttachmentKind(deref(fileKind)),
				Status:       domain.AttachmentStatus(deref(fileStatus)),
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", domain.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, occupancy FROM rooms ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list rooms: %w", domain.ErrStoreUnavailable, err)
	}
	rooms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Room, error) {
		var r domain.Room
		var name string
		err := row.Scan(&name, &r.Occupancy)
		r.Name = domain.RoomName(name)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list rooms: %w", domain.ErrStoreUnavailable, err)
	}
	return rooms, nil
}

func (s *Store) IncrementOccupancy(ctx context.Context, room domain.RoomName, delta int) error {
	if _, err := s.pool.Exec(ctx, `UPDATE rooms SET occupancy = occupancy + $2 WHERE name = $1`, string(room), delta); err != nil {
		return fmt.Errorf("%w: increment occupancy: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) SetOccupancy(ctx context.Context, room domain.RoomName, n int) error {
	if _, err := s.pool.Exec(ctx, `UPDATE rooms SET occupancy = $2 WHERE name = $1`, string(room), n); err != nil {
		return fmt.Errorf("%w: set occupancy: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) SeedRooms(ctx context.Context, names []domain.RoomName) (int, error) {
	batch := &pgx.Batch{}
	for _, name := range names {
		batch.Queue(`INSERT INTO rooms (name, occupancy) VALUES ($1, 0) ON CONFLICT (name) DO NOTHING`, string(name))
	}
	results := s.pool.SendBatch(ctx, batch)
	created := 0
	var errs []error
	for range names {
		tag, err := results.Exec()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		created += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return created, fmt.Errorf("%w: seed rooms: %w", domain.ErrStoreUnavailable, err)
	}
	return created, nil
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
