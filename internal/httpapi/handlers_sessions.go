package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/service"
)

// optionalDate parses query parameter key; absent means nil.
func optionalDate(r *http.Request, key string) (*localtime.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := service.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	from, err := optionalDate(r, "from")
	if err != nil {
		writeServiceError(r.Context(), w, "sessions", err)
		return
	}
	to, err := optionalDate(r, "to")
	if err != nil {
		writeServiceError(r.Context(), w, "sessions", err)
		return
	}

	resp, err := s.sessions.DayView(r.Context(), from, to)
	if err != nil {
		writeServiceError(r.Context(), w, "sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	d, err := optionalDate(r, "date")
	if err != nil {
		writeServiceError(r.Context(), w, "export", err)
		return
	}
	if d == nil {
		writeError(w, http.StatusBadRequest, service.ErrMissingFields.Code, "Missing required fields: date")
		return
	}

	exp, err := s.sessions.ExportDay(r.Context(), *d)
	if err != nil {
		writeServiceError(r.Context(), w, "export", err)
		return
	}

	var buf bytes.Buffer
	if err := exp.WriteCSV(&buf); err != nil {
		writeServiceError(r.Context(), w, "export", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleStays(w http.ResponseWriter, r *http.Request) {
	resp, err := s.sessions.Stays(r.Context(), r.URL.Query().Get("person"))
	if err != nil {
		writeServiceError(r.Context(), w, "stays", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
