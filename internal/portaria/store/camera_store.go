package store

import (
	"context"
	"time"
)

type CameraRecord struct {
	CameraID   string
	FirstSeen  time.Time
	LastSeen   time.Time
	EventCount int64
}

// CameraStore tracks capture devices by the events they report.
type CameraStore interface {
	MarkSeen(ctx context.Context, cameraID string, t time.Time) error
	ListCameras(ctx context.Context) ([]CameraRecord, error)
}
