package httpapi

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.PingResponse{
		Status:    "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAccessLog(w http.ResponseWriter, r *http.Request) {
	if isProtobuf(r) {
		s.handleAccessLogProto(w, r)
		return
	}

	var req types.AccessLogRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.ingest.LogAccess(r.Context(), req)
	if err != nil {
		writeServiceError(r.Context(), w, "access_log", err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAccessLogProto(w http.ResponseWriter, r *http.Request) {
	var msg structpb.Struct
	if err := readProto(r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "bad_protobuf", "invalid protobuf body")
		return
	}

	req, err := accessLogRequestFromStruct(&msg)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_protobuf", err.Error())
		return
	}

	resp, err := s.ingest.LogAccess(r.Context(), req)
	if err != nil {
		writeServiceError(r.Context(), w, "access_log", err)
		return
	}

	out, err := accessLogResponseToStruct(resp)
	if err != nil {
		writeServiceError(r.Context(), w, "access_log", err)
		return
	}
	writeProto(w, http.StatusCreated, out)
}

func (s *Server) handleCameras(w http.ResponseWriter, r *http.Request) {
	resp, err := s.cameras.List(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, "cameras", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
