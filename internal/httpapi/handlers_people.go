package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/BrandonDHaskell/portaria/internal/portaria/service"
)

const (
	maxPhotoBytes = 10 << 20
	// maxPersonBody leaves room for the form fields around the photo.
	maxPersonBody = maxPhotoBytes + 64<<10
)

// readPersonInput accepts multipart/form-data (fields name,
// person_system_id, other_data and an optional "photo" file) or a JSON body
// without a photo.
func readPersonInput(w http.ResponseWriter, r *http.Request) (service.PersonInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPersonBody)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		var in service.PersonInput
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
			return service.PersonInput{}, false
		}
		return in, true
	}

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_form", "invalid multipart form")
		return service.PersonInput{}, false
	}

	in := service.PersonInput{
		Name:      r.FormValue("name"),
		SystemID:  r.FormValue("person_system_id"),
		OtherData: r.FormValue("other_data"),
	}

	f, hdr, err := r.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, true
	case err != nil:
		writeError(w, http.StatusBadRequest, "bad_form", "invalid photo upload")
		return service.PersonInput{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_form", "invalid photo upload")
		return service.PersonInput{}, false
	}
	if len(data) > maxPhotoBytes {
		writeError(w, http.StatusBadRequest, service.ErrInvalidPhoto.Code, "photo is larger than 10 MiB")
		return service.PersonInput{}, false
	}
	// An empty file input posts a part with no name; treat it as no photo.
	if hdr.Filename != "" {
		in.Photo = &service.PhotoUpload{Filename: hdr.Filename, Data: data}
	}
	return in, true
}

func personID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, service.ErrInvalidField.Code, "invalid person id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	resp, err := s.people.List(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, "list_people", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterPerson(w http.ResponseWriter, r *http.Request) {
	in, ok := readPersonInput(w, r)
	if !ok {
		return
	}
	resp, err := s.people.Register(r.Context(), in)
	if err != nil {
		writeServiceError(r.Context(), w, "register_person", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(w, r)
	if !ok {
		return
	}
	p, err := s.people.Get(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, "get_person", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(w, r)
	if !ok {
		return
	}
	in, ok := readPersonInput(w, r)
	if !ok {
		return
	}
	resp, err := s.people.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(r.Context(), w, "update_person", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(w, r)
	if !ok {
		return
	}
	resp, err := s.people.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, "delete_person", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
