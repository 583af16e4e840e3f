package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/portaria/internal/logging"
	"github.com/BrandonDHaskell/portaria/internal/metrics"
	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

const msgLogged = "Access logged successfully."

// IngestService appends access events reported by capture devices.
// Duplicate calls create duplicate events; deduplication is the device's job.
type IngestService struct {
	people  store.PersonStore
	events  store.EventStore
	cameras *CameraRegistry // optional
	zone    localtime.Zone
	now     func() time.Time
	log     zerolog.Logger
}

func NewIngestService(people store.PersonStore, events store.EventStore, cameras *CameraRegistry, zone localtime.Zone) *IngestService {
	return &IngestService{
		people:  people,
		events:  events,
		cameras: cameras,
		zone:    zone,
		now:     time.Now,
		log:     logging.With("ingest"),
	}
}

var ingestCodes = map[string]*ValidationError{
	"event_type": ErrInvalidEventType,
}

// LogAccess validates req and appends one event. Checks run in a fixed
// order: missing fields, event type, timestamp, person lookup, then the
// append itself.
func (s *IngestService) LogAccess(ctx context.Context, req types.AccessLogRequest) (types.AccessLogResponse, error) {
	resp, err := s.logAccess(ctx, req)
	if err != nil {
		metrics.IngestRejected.WithLabelValues(rejectReason(err)).Inc()
	}
	return resp, err
}

func (s *IngestService) logAccess(ctx context.Context, req types.AccessLogRequest) (types.AccessLogResponse, error) {
	req.PersonSystemID = strings.TrimSpace(req.PersonSystemID)
	req.EventType = strings.TrimSpace(req.EventType)
	req.TimestampUTC = strings.TrimSpace(req.TimestampUTC)
	req.CameraID = strings.TrimSpace(req.CameraID)

	if err := checkStruct(req, ingestCodes, ErrInvalidField); err != nil {
		return types.AccessLogResponse{}, err
	}

	eventType := types.EventType(req.EventType)
	if !eventType.Valid() {
		return types.AccessLogResponse{}, ErrInvalidEventType
	}

	at, ok := ParseTimestamp(req.TimestampUTC)
	if !ok {
		return types.AccessLogResponse{}, ErrInvalidTimestamp
	}

	person, err := s.people.GetPersonBySystemID(ctx, req.PersonSystemID)
	if errors.Is(err, store.ErrNotFound) {
		return types.AccessLogResponse{}, &NotFoundError{Kind: "person", Key: req.PersonSystemID}
	}
	if err != nil {
		return types.AccessLogResponse{}, storageErr("resolve person", err)
	}

	rec, err := s.events.AppendEvent(ctx, store.EventRecord{
		PersonID:   person.ID,
		PersonName: person.Name,
		Type:       eventType,
		OccurredAt: at,
		ReceivedAt: s.now().UTC(),
		CameraID:   req.CameraID,
		Confidence: req.Confidence,
	})
	if errors.Is(err, store.ErrNotFound) {
		// Deleted between lookup and append.
		return types.AccessLogResponse{}, &NotFoundError{Kind: "person", Key: req.PersonSystemID}
	}
	if err != nil {
		return types.AccessLogResponse{}, storageErr("append event", err)
	}

	if s.cameras != nil && req.CameraID != "" {
		if err := s.cameras.NoteSeen(ctx, req.CameraID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("camera_id", req.CameraID).Msg("camera registry update failed")
		}
	}

	metrics.EventsIngested.WithLabelValues(string(eventType)).Inc()
	s.log.Debug().
		Int64("event_id", rec.ID).
		Str("person_system_id", req.PersonSystemID).
		Str("event_type", string(eventType)).
		Time("occurred_at", rec.OccurredAt).
		Msg("access event logged")

	return types.AccessLogResponse{
		Message:            msgLogged,
		PersonName:         person.Name,
		EventType:          eventType,
		TimestampLocal:     s.zone.FormatConfirmation(rec.OccurredAt),
		TimestampUTCStored: localtime.FormatUTC(rec.OccurredAt),
	}, nil
}

func rejectReason(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Code
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}
