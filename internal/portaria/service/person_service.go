package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/portaria/internal/logging"
	"github.com/BrandonDHaskell/portaria/internal/metrics"
	"github.com/BrandonDHaskell/portaria/internal/portaria/biometric"
	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

const catalogTimeLayout = "2006-01-02 15:04"

// PhotoUpload is an uploaded photo as received.
type PhotoUpload struct {
	Filename string
	Data     []byte
}

// PersonInput carries the editable fields of a registration.
type PersonInput struct {
	Name      string       `json:"name" validate:"required,max=100"`
	SystemID  string       `json:"person_system_id" validate:"required,max=50"`
	OtherData string       `json:"other_data" validate:"max=500"`
	Photo     *PhotoUpload `json:"-"`
}

// PersonService manages the registration catalog and the photo and
// encoding files that hang off each person.
type PersonService struct {
	people    store.PersonStore
	artifacts *biometric.ArtifactStore
	encoder   biometric.Encoder
	zone      localtime.Zone
	log       zerolog.Logger
}

func NewPersonService(people store.PersonStore, artifacts *biometric.ArtifactStore, encoder biometric.Encoder, zone localtime.Zone) *PersonService {
	if encoder == nil {
		encoder = biometric.DisabledEncoder{}
	}
	return &PersonService{
		people:    people,
		artifacts: artifacts,
		encoder:   encoder,
		zone:      zone,
		log:       logging.With("catalog"),
	}
}

func (s *PersonService) checkInput(in *PersonInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.SystemID = strings.TrimSpace(in.SystemID)
	in.OtherData = strings.TrimSpace(in.OtherData)

	if err := checkStruct(in, nil, ErrInvalidPerson); err != nil {
		return err
	}
	if in.Photo != nil {
		if len(in.Photo.Data) == 0 || !biometric.AllowedPhoto(in.Photo.Filename) {
			return ErrInvalidPhoto
		}
		if s.artifacts == nil {
			return withMessage(ErrInvalidPhoto, "photo storage is not configured")
		}
	}
	return nil
}

// Register adds a person. A failed face encoding does not fail the
// registration; the response carries EncodingGenerated=false and a warning.
func (s *PersonService) Register(ctx context.Context, in PersonInput) (types.PersonResponse, error) {
	if err := s.checkInput(&in); err != nil {
		return types.PersonResponse{}, err
	}

	if _, err := s.people.GetPersonBySystemID(ctx, in.SystemID); err == nil {
		return types.PersonResponse{}, conflictErr(in.SystemID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.PersonResponse{}, storageErr("check system id", err)
	}

	rec := store.PersonRecord{Name: in.Name, SystemID: in.SystemID, OtherData: in.OtherData}
	var warning string
	if in.Photo != nil {
		photo, enc, warn, err := s.storePhoto(ctx, in.SystemID, *in.Photo)
		if err != nil {
			return types.PersonResponse{}, err
		}
		rec.PhotoPath, rec.EncodingPath, warning = photo, enc, warn
	}

	created, err := s.people.CreatePerson(ctx, rec)
	if err != nil {
		s.discard(rec.PhotoPath, rec.EncodingPath)
		if errors.Is(err, store.ErrConflict) {
			return types.PersonResponse{}, conflictErr(in.SystemID)
		}
		return types.PersonResponse{}, storageErr("create person", err)
	}

	logging.Ctx(ctx).Info().Int64("person_id", created.ID).Str("person_system_id", created.SystemID).
		Bool("encoding", created.EncodingPath != "").Msg("person registered")

	return types.PersonResponse{
		Person:            s.view(created),
		EncodingGenerated: created.EncodingPath != "",
		Warning:           warning,
	}, nil
}

// Update changes a person's details. A new photo replaces the old photo and
// encoding; without one the stored files are kept as they are.
func (s *PersonService) Update(ctx context.Context, id int64, in PersonInput) (types.PersonResponse, error) {
	cur, err := s.getRecord(ctx, id)
	if err != nil {
		return types.PersonResponse{}, err
	}
	if err := s.checkInput(&in); err != nil {
		return types.PersonResponse{}, err
	}

	next := cur
	next.Name, next.SystemID, next.OtherData = in.Name, in.SystemID, in.OtherData

	var warning string
	if in.Photo != nil {
		photo, enc, warn, err := s.storePhoto(ctx, in.SystemID, *in.Photo)
		if err != nil {
			return types.PersonResponse{}, err
		}
		next.PhotoPath, next.EncodingPath, warning = photo, enc, warn
	}

	updated, err := s.people.UpdatePerson(ctx, next)
	if err != nil {
		if in.Photo != nil {
			s.discard(except(next.PhotoPath, cur.PhotoPath), except(next.EncodingPath, cur.EncodingPath))
		}
		switch {
		case errors.Is(err, store.ErrConflict):
			return types.PersonResponse{}, conflictErr(in.SystemID)
		case errors.Is(err, store.ErrNotFound):
			return types.PersonResponse{}, &NotFoundError{Kind: "person_id", Key: fmt.Sprint(id)}
		}
		return types.PersonResponse{}, storageErr("update person", err)
	}

	if in.Photo != nil {
		s.discard(except(cur.PhotoPath, updated.PhotoPath), except(cur.EncodingPath, updated.EncodingPath))
	}

	return types.PersonResponse{
		Person:            s.view(updated),
		EncodingGenerated: updated.EncodingPath != "",
		Warning:           warning,
	}, nil
}

func (s *PersonService) Get(ctx context.Context, id int64) (types.PersonView, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return types.PersonView{}, err
	}
	return s.view(rec), nil
}

// List returns every person ordered by name.
func (s *PersonService) List(ctx context.Context) (types.PeopleResponse, error) {
	recs, err := s.people.ListPeople(ctx)
	if err != nil {
		return types.PeopleResponse{}, storageErr("list people", err)
	}
	out := types.PeopleResponse{People: make([]types.PersonView, 0, len(recs))}
	for _, r := range recs {
		out.People = append(out.People, s.view(r))
	}
	return out, nil
}

// Delete removes the person and all of their events atomically, then
// removes their files. A file that cannot be removed is logged, not
// reported: the catalog entry is already gone.
func (s *PersonService) Delete(ctx context.Context, id int64) (types.DeletePersonResponse, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return types.DeletePersonResponse{}, err
	}

	n, err := s.people.DeletePerson(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.DeletePersonResponse{}, &NotFoundError{Kind: "person_id", Key: fmt.Sprint(id)}
	}
	if err != nil {
		return types.DeletePersonResponse{}, storageErr("delete person", err)
	}

	s.discard(rec.PhotoPath, rec.EncodingPath)
	logging.Ctx(ctx).Info().Int64("person_id", id).Int64("deleted_events", n).Msg("person deleted")

	return types.DeletePersonResponse{ID: id, DeletedEvents: n}, nil
}

func (s *PersonService) getRecord(ctx context.Context, id int64) (store.PersonRecord, error) {
	rec, err := s.people.GetPerson(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.PersonRecord{}, &NotFoundError{Kind: "person_id", Key: fmt.Sprint(id)}
	}
	if err != nil {
		return store.PersonRecord{}, storageErr("get person", err)
	}
	return rec, nil
}

// storePhoto saves the photo and tries to encode it. Only a failure to save
// the photo itself is an error.
func (s *PersonService) storePhoto(ctx context.Context, systemID string, photo PhotoUpload) (photoName, encodingName, warning string, err error) {
	photoName, err = s.artifacts.SavePhoto(systemID, photo.Filename, photo.Data)
	if err != nil {
		return "", "", "", withMessage(ErrInvalidPhoto, "could not save photo: %v", err)
	}

	enc, err := s.encoder.Encode(ctx, photo.Data, photoName)
	switch {
	case err == nil:
	case errors.Is(err, biometric.ErrNoFace):
		metrics.EncodingsTotal.WithLabelValues("no_face").Inc()
		return photoName, "", "Photo saved, but no face was found. Try a different photo.", nil
	case errors.Is(err, biometric.ErrEncoderDisabled):
		metrics.EncodingsTotal.WithLabelValues("disabled").Inc()
		return photoName, "", "Photo saved; face encoding is disabled on this server.", nil
	default:
		metrics.EncodingsTotal.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("person_system_id", systemID).Msg("face encoding failed")
		return photoName, "", "Photo saved, but face encoding failed. Edit the person later to retry.", nil
	}

	encodingName, err = s.artifacts.SaveEncoding(systemID, enc)
	if err != nil {
		metrics.EncodingsTotal.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("person_system_id", systemID).Msg("saving face encoding failed")
		return photoName, "", "Photo saved, but the face encoding could not be stored.", nil
	}

	metrics.EncodingsTotal.WithLabelValues("ok").Inc()
	return photoName, encodingName, "", nil
}

func (s *PersonService) discard(photo, encoding string) {
	if s.artifacts == nil {
		return
	}
	if err := s.artifacts.RemovePhoto(photo); err != nil {
		s.log.Warn().Err(err).Str("photo", photo).Msg("photo cleanup failed")
	}
	if err := s.artifacts.RemoveEncoding(encoding); err != nil {
		s.log.Warn().Err(err).Str("encoding", encoding).Msg("encoding cleanup failed")
	}
}

func (s *PersonService) view(r store.PersonRecord) types.PersonView {
	return types.PersonView{
		ID:             r.ID,
		Name:           r.Name,
		SystemID:       r.SystemID,
		PhotoPath:      r.PhotoPath,
		EncodingPath:   r.EncodingPath,
		HasEncoding:    r.EncodingPath != "",
		OtherData:      r.OtherData,
		CreatedAtLocal: r.CreatedAt.In(s.zone.Location()).Format(catalogTimeLayout),
		UpdatedAtLocal: r.UpdatedAt.In(s.zone.Location()).Format(catalogTimeLayout),
	}
}

// except returns name unless it equals keep, in which case the file is
// still in use and must not be removed.
func except(name, keep string) string {
	if name == keep {
		return ""
	}
	return name
}

func conflictErr(systemID string) error {
	return fmt.Errorf("%w: system ID '%s' is already registered", ErrConflict, systemID)
}
