package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/BrandonDHaskell/portaria/internal/metrics"
	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/reconcile"
	"github.com/BrandonDHaskell/portaria/internal/portaria/report"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

// SessionService is the read side: it loads a window of events, hands them
// to the reconciler and shapes the result for the day view, the CSV export
// and the stays report. It holds no state between calls.
type SessionService struct {
	events    store.EventStore
	people    store.PersonStore
	zone      localtime.Zone
	lookahead int
	now       func() time.Time
}

// NewSessionService builds the read side. lookaheadDays is how many local
// days after its entry an exit may still close a session; export and bounded
// day-view windows are widened by the same amount so every view agrees.
// Negative values are treated as zero.
func NewSessionService(events store.EventStore, people store.PersonStore, zone localtime.Zone, lookaheadDays int) *SessionService {
	if lookaheadDays < 0 {
		lookaheadDays = 0
	}
	return &SessionService{
		events:    events,
		people:    people,
		zone:      zone,
		lookahead: lookaheadDays,
		now:       time.Now,
	}
}

func (s *SessionService) Zone() localtime.Zone { return s.zone }

// DayView reconciles every event between from and to (inclusive local
// dates; nil means unbounded) and returns sessions newest day first.
func (s *SessionService) DayView(ctx context.Context, from, to *localtime.Date) (types.SessionsResponse, error) {
	if from != nil && to != nil && to.Before(*from) {
		from, to = to, from
	}

	var q store.EventQuery
	if from != nil {
		q.From = s.zone.StartOf(*from)
	}
	if to != nil {
		q.To = s.zone.StartOf(to.AddDays(1 + s.lookahead))
	}

	res, err := s.reconcile(ctx, "day_view", q)
	if err != nil {
		return types.SessionsResponse{}, err
	}

	sessions := res.Display()
	if to != nil {
		kept := sessions[:0]
		for _, sess := range sessions {
			if !sess.Date.After(*to) {
				kept = append(kept, sess)
			}
		}
		sessions = kept
	}

	return types.SessionsResponse{
		Zone:        s.zone.Name(),
		Today:       s.zone.Today(s.now()).String(),
		Sessions:    report.SessionRows(sessions),
		OrphanExits: len(res.OrphanExits),
	}, nil
}

// DayExport is one local day's reconciled sessions, ready to be written as
// CSV.
type DayExport struct {
	Date     localtime.Date
	FileName string

	zone   localtime.Zone
	result reconcile.Result
}

// Records returns the data rows without the header, ordered by person name.
func (e *DayExport) Records() [][]string { return report.CSVRecords(e.result, e.Date) }

func (e *DayExport) Header() []string { return report.CSVHeader(e.zone) }

func (e *DayExport) WriteCSV(w io.Writer) error {
	return report.WriteCSV(w, e.zone, e.result, e.Date)
}

// ExportDay reconciles one local day. The query window runs lookahead days
// past the day so an exit after midnight still closes its session. It
// returns a NotFoundError when nothing happened on the day.
func (s *SessionService) ExportDay(ctx context.Context, d localtime.Date) (*DayExport, error) {
	start, end := s.zone.DayBounds(d)

	res, err := s.reconcile(ctx, "export", store.EventQuery{
		From: start,
		To:   s.zone.StartOf(d.AddDays(1 + s.lookahead)),
	})
	if err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	onDay, err := s.events.ListEvents(ctx, store.EventQuery{From: start, To: end})
	if err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		return nil, storageErr("list events", err)
	}
	if len(onDay) == 0 {
		metrics.ExportsTotal.WithLabelValues("empty").Inc()
		return nil, &NotFoundError{Kind: "events", Key: d.String()}
	}

	metrics.ExportsTotal.WithLabelValues("ok").Inc()
	return &DayExport{
		Date:     d,
		FileName: report.CSVFileName(d),
		zone:     s.zone,
		result:   res,
	}, nil
}

// Stays pairs every entry with the first exit after it. An empty system ID
// covers everyone.
func (s *SessionService) Stays(ctx context.Context, personSystemID string) (types.StaysResponse, error) {
	var q store.EventQuery
	if id := strings.TrimSpace(personSystemID); id != "" {
		p, err := s.people.GetPersonBySystemID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return types.StaysResponse{}, &NotFoundError{Kind: "person", Key: id}
		}
		if err != nil {
			return types.StaysResponse{}, storageErr("resolve person", err)
		}
		q.PersonID = p.ID
	}

	recs, err := s.events.ListEvents(ctx, q)
	if err != nil {
		return types.StaysResponse{}, storageErr("list events", err)
	}

	started := time.Now()
	events := toReconcileEvents(recs)
	stays := reconcile.Stays(events, s.zone)
	metrics.RecordReconcile("stays", len(events), 0, time.Since(started))

	return types.StaysResponse{Zone: s.zone.Name(), Stays: report.StayRows(stays)}, nil
}

func (s *SessionService) reconcile(ctx context.Context, view string, q store.EventQuery) (reconcile.Result, error) {
	recs, err := s.events.ListEvents(ctx, q)
	if err != nil {
		return reconcile.Result{}, storageErr("list events", err)
	}

	started := time.Now()
	events := toReconcileEvents(recs)
	res := reconcile.ReconcileWithin(events, s.zone, s.lookahead)
	metrics.RecordReconcile(view, len(events), len(res.OrphanExits), time.Since(started))
	return res, nil
}

func toReconcileEvents(recs []store.EventRecord) []reconcile.Event {
	out := make([]reconcile.Event, 0, len(recs))
	for _, r := range recs {
		if !r.Type.Valid() || r.OccurredAt.IsZero() || r.PersonID == 0 {
			continue
		}
		out = append(out, reconcile.Event{
			ID:         r.ID,
			PersonID:   r.PersonID,
			PersonName: r.PersonName,
			At:         r.OccurredAt,
			Type:       r.Type,
		})
	}
	return out
}
