package service

import (
	"context"
	"strings"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

// CameraRegistry records which capture devices report events.
type CameraRegistry struct {
	store store.CameraStore
	zone  localtime.Zone
	now   func() time.Time
}

func NewCameraRegistry(st store.CameraStore, zone localtime.Zone) *CameraRegistry {
	return &CameraRegistry{store: st, zone: zone, now: time.Now}
}

func (r *CameraRegistry) NoteSeen(ctx context.Context, cameraID string) error {
	cameraID = strings.TrimSpace(cameraID)
	if cameraID == "" {
		return nil
	}
	return r.store.MarkSeen(ctx, cameraID, r.now().UTC())
}

func (r *CameraRegistry) List(ctx context.Context) (types.CamerasResponse, error) {
	recs, err := r.store.ListCameras(ctx)
	if err != nil {
		return types.CamerasResponse{}, storageErr("list cameras", err)
	}
	out := types.CamerasResponse{Cameras: make([]types.CameraView, 0, len(recs))}
	for _, c := range recs {
		out.Cameras = append(out.Cameras, types.CameraView{
			CameraID:   c.CameraID,
			FirstSeen:  r.zone.FormatConfirmation(c.FirstSeen),
			LastSeen:   r.zone.FormatConfirmation(c.LastSeen),
			EventCount: c.EventCount,
		})
	}
	return out, nil
}
