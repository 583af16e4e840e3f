package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/portaria/internal/db"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
)

type CameraStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCameraStore(db *sql.DB, writer *dbpkg.Worker) *CameraStore {
	return &CameraStore{db: db, writer: writer}
}

// MarkSeen registers the camera on first sight and bumps its counters.
func (s *CameraStore) MarkSeen(ctx context.Context, cameraID string, t time.Time) error {
	cameraID = strings.TrimSpace(cameraID)
	if cameraID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO cameras(camera_id, first_seen_at_ms, last_seen_at_ms, event_count)
VALUES (?, ?, ?, 1)
ON CONFLICT(camera_id) DO UPDATE SET
  first_seen_at_ms = MIN(cameras.first_seen_at_ms, excluded.first_seen_at_ms),
  last_seen_at_ms  = MAX(cameras.last_seen_at_ms, excluded.last_seen_at_ms),
  event_count      = cameras.event_count + 1;
`, cameraID, ms, ms); err != nil {
			return fmt.Errorf("MarkSeen upsert camera: %w", err)
		}
		return nil
	})
}

func (s *CameraStore) ListCameras(ctx context.Context) ([]store.CameraRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT camera_id, first_seen_at_ms, last_seen_at_ms, event_count
FROM cameras
ORDER BY camera_id;
`)
	if err != nil {
		return nil, fmt.Errorf("ListCameras query: %w", err)
	}
	defer rows.Close()

	var out []store.CameraRecord
	for rows.Next() {
		var (
			c               store.CameraRecord
			firstMs, lastMs sql.NullInt64
		)
		if err := rows.Scan(&c.CameraID, &firstMs, &lastMs, &c.EventCount); err != nil {
			return nil, fmt.Errorf("ListCameras scan: %w", err)
		}
		c.FirstSeen = fromNullMillis(firstMs)
		c.LastSeen = fromNullMillis(lastMs)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCameras rows: %w", err)
	}
	return out, nil
}
