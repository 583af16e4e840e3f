package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
)

type CameraStore struct {
	mu      sync.RWMutex
	cameras map[string]store.CameraRecord
}

func NewCameraStore() *CameraStore {
	return &CameraStore{cameras: make(map[string]store.CameraRecord)}
}

func (s *CameraStore) MarkSeen(_ context.Context, cameraID string, t time.Time) error {
	cameraID = strings.TrimSpace(cameraID)
	if cameraID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now()
	}
	t = t.UTC().Truncate(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.cameras[cameraID]
	if !ok {
		rec = store.CameraRecord{CameraID: cameraID, FirstSeen: t}
	}
	if t.After(rec.LastSeen) {
		rec.LastSeen = t
	}
	rec.EventCount++
	s.cameras[cameraID] = rec
	return nil
}

func (s *CameraStore) ListCameras(_ context.Context) ([]store.CameraRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.CameraRecord, 0, len(s.cameras))
	for _, c := range s.cameras {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b store.CameraRecord) int {
		return strings.Compare(a.CameraID, b.CameraID)
	})
	return out, nil
}
