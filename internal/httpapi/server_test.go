package httpapi_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/portaria/internal/httpapi"
	"github.com/BrandonDHaskell/portaria/internal/portaria/biometric"
	"github.com/BrandonDHaskell/portaria/internal/portaria/localtime"
	"github.com/BrandonDHaskell/portaria/internal/portaria/service"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store"
	"github.com/BrandonDHaskell/portaria/internal/portaria/store/memory"
	"github.com/BrandonDHaskell/portaria/internal/portaria/types"
)

var saoPaulo = localtime.MustLoadZone("America/Sao_Paulo")

type testEncoder struct{}

func (testEncoder) Encode(context.Context, []byte, string) (biometric.Encoding, error) {
	return biometric.Encoding{0.25, 0.5}, nil
}

type testOptions struct {
	events    store.EventStore
	rateLimit int
}

// newTestServer wires up the full dependency graph using in-memory stores
// and returns an httptest.Server whose URL can be hit with a plain http.Client.
func newTestServer(t *testing.T, opts testOptions) (*httptest.Server, *memory.Store) {
	t.Helper()

	st := memory.New()
	var events store.EventStore = st
	if opts.events != nil {
		events = opts.events
	}

	arts, err := biometric.NewArtifactStore(t.TempDir())
	if err != nil {
		t.Fatalf("artifacts: %v", err)
	}
	cameras := service.NewCameraRegistry(memory.NewCameraStore(), saoPaulo)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:            zerolog.Nop(),
		Addr:              ":0",
		IngestService:     service.NewIngestService(st, events, cameras, saoPaulo),
		SessionService:    service.NewSessionService(events, st, saoPaulo, 1),
		PersonService:     service.NewPersonService(st, arts, testEncoder{}, saoPaulo),
		CameraRegistry:    cameras,
		RateLimitRequests: opts.rateLimit,
		RateLimitWindow:   time.Minute,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func addPerson(t *testing.T, st *memory.Store, name, systemID string) store.PersonRecord {
	t.Helper()
	p, err := st.CreatePerson(context.Background(), store.PersonRecord{Name: name, SystemID: systemID})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	return p
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func do(t *testing.T, method, url, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func expectError(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("expected %d, got %d", status, resp.StatusCode)
	}
	var e types.ErrorResponse
	decode(t, resp, &e)
	if e.Error != code {
		t.Errorf("expected error code %q, got %q (%s)", code, e.Error, e.Message)
	}
}

// ── Ping ─────────────────────────────────────────────────────────────────────

func TestPing(t *testing.T) {
	ts, _ := newTestServer(t, testOptions{})

	resp := get(t, ts.URL+"/v1/ping")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected a request ID header")
	}
	var p types.PingResponse
	decode(t, resp, &p)
	if p.Status != "pong" {
		t.Errorf("status = %q", p.Status)
	}
}

// ── Access log ───────────────────────────────────────────────────────────────

func TestAccessLog_Created(t *testing.T) {
	ts, st := newTestServer(t, testOptions{})
	addPerson(t, st, "Alice Smith", "EMP001")

	resp := postJSON(t, ts.URL+"/v1/access_log",
		`{"person_system_id":"EMP001","event_type":"entry","timestamp_utc":"2026-02-15T12:00:00Z"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var out types.AccessLogResponse
	decode(t, resp, &out)
	if out.PersonName != "Alice Smith" || out.TimestampLocal != "2026-02-15 09:00:00 -03-0300" {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestAccessLog_Errors(t *testing.T) {
	ts, st := newTestServer(t, testOptions{})
	addPerson(t, st, "Alice Smith", "EMP001")

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `not json at all`, http.StatusBadRequest, "bad_json"},
		{"unknown field", `{"person_system_id":"EMP001","door":"x"}`, http.StatusBadRequest, "bad_json"},
		{"missing fields", `{"event_type":"entry"}`, http.StatusBadRequest, "missing_fields"},
		{"bad event type", `{"person_system_id":"EMP001","event_type":"in","timestamp_utc":"2026-02-15T12:00:00Z"}`, http.StatusBadRequest, "invalid_event_type"},
		{"bad timestamp", `{"person_system_id":"EMP001","event_type":"entry","timestamp_utc":"noon"}`, http.StatusBadRequest, "invalid_timestamp"},
		{"unknown person", `{"person_system_id":"EMP404","event_type":"entry","timestamp_utc":"2026-02-15T12:00:00Z"}`, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, postJSON(t, ts.URL+"/v1/access_log", tt.body), tt.status, tt.code)
		})
	}
}

func TestAccessLog_Protobuf(t *testing.T) {
	ts, st := newTestServer(t, testOptions{})
	addPerson(t, st, "Alice Smith", "EMP001")

	msg, err := structpb.NewStruct(map[string]any{
		"person_system_id": "EMP001",
		"event_type":       "exit",
		"timestamp_utc":    "2026-02-15T20:45:00Z",
		"confidence":       0.93,
	})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	body, err := proto.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp := do(t, http.MethodPost, ts.URL+"/v1/access_log", "application/x-protobuf", bytes.NewReader(body))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-protobuf" {
		t.Errorf("Content-Type = %q", ct)
	}

	raw, _ := io.ReadAll(resp.Body)
	var out structpb.Struct
	if err := proto.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := out.GetFields()["event_type"].GetStringValue(); got != "exit" {
		t.Errorf("event_type = %q", got)
	}

	evs, _ := st.ListEvents(context.Background(), store.EventQuery{})
	if len(evs) != 1 || evs[0].Confidence == nil || *evs[0].Confidence != 0.93 {
		t.Errorf("unexpected stored events: %+v", evs)
	}
}

func TestAccessLog_BadProtobuf(t *testing.T) {
	ts, _ := newTestServer(t, testOptions{})

	resp := do(t, http.MethodPost, ts.URL+"/v1/access_log", "application/x-protobuf", strings.NewReader("\xff\xff\xff"))
	expectError(t, resp, http.StatusBadRequest, "bad_protobuf")
}

func TestAccessLog_RateLimited(t *testing.T) {
	ts, _ := newTestServer(t, testOptions{rateLimit: 2})

	body := `{"event_type":"entry"}`
	for i := range 2 {
		if resp := postJSON(t, ts.URL+"/v1/access_log", body); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("request %d: expected 400, got %d", i, resp.StatusCode)
		}
	}
	expectError(t, postJSON(t, ts.URL+"/v1/access_log", body), http.StatusTooManyRequests, "rate_limited")
}

// ── Sessions, export, stays ──────────────────────────────────────────────────

func seedSessions(t *testing.T, ts *httptest.Server, st *memory.Store) {
	t.Helper()
	addPerson(t, st, "Alice Smith", "EMP001")
	addPerson(t, st, "Bob Jones", "EMP002")

	for _, b := range []string{
		`{"person_system_id":"EMP001","event_type":"entry","timestamp_utc":"2026-02-15T12:00:00Z"}`,
		`{"person_system_id":"EMP001","event_type":"exit","timestamp_utc":"2026-02-15T20:45:00Z"}`,
		`{"person_system_id":"EMP002","event_type":"entry","timestamp_utc":"2026-02-15T11:15:00Z"}`,
	} {
		if resp := postJSON(t, ts.URL+"/v1/access_log", b); resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed: expected 201, got %d", resp.StatusCode)
		}
	}
}

func TestSessions(t *testing.T) {
	ts, st := newTestServer(t, testOptions{})
	seedSessions(t, ts, st)

	resp := get(t, ts.URL+"/v1/sessions?from=2026-02-15&to=2026-02-15")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out types.SessionsResponse
	decode(t, resp, &out)
	if len(out.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(out.Sessions))
	}
	if out.Sessions[0].Duration != "08:45:00" || !out.Sessions[1].Open || out.Sessions[1].Duration != "N/A" {
		t.Errorf("unexpected sessions: %+v", out.Sessions)
	}
}

func TestSessions_BadDate(t *testing.T) {
	ts, _ := newTestServer(t, testOptions{})
	expectError(t, get(t, ts.URL+"/v1/sessions?from=15-02-2026"), http.StatusBadRequest, "invalid_date")
}

type brokenEvents struct{}

func (brokenEvents) AppendEvent(context.Context, store.EventRecord) (store.EventRecord, error) {
	return store.EventRecord{}, io.ErrUnexpectedEOF
}

func (brokenEvents) ListEvents(context.Context, store.EventQuery) ([]store.EventRecord, error) {
	return nil, io.ErrUnexpectedEOF
}

func TestSessions_StorageFailure500(t *testing.T) {
	ts, _ := newTestServer(t, testOptions{events: brokenEvents{}})
	expectError(t, get(t, ts.URL+"/v1/sessions"), http.StatusInternalServerError, "internal_error")
}

func TestExportCSV(t *testing.T) {
	ts, st := newTestServer(t, testOptions{})
	seedSessions(t, ts, st)

	resp := get(t, ts.URL+"/v1/sessions/export.csv?date=2026-02-15")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="entry_exit_logs_2026-02-15.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	want := "Date (Sao Paulo),Person Name,Entry Time (Sao Paulo),Exit Time (Sao Paulo),Duration\n" +
		"2026-02-15,Alice Smith,09:00:00,17:45:00,08h45m\n" +
		"2026-02-15,Bob Jones,08:15:00,---,open\n"
	if string(body) != want {
		t.Errorf("unexpected CSV:\n%s", body)
	}
}

func TestExportCSV_Errors(t *testing.T) {
	ts, st := newTestServer(t, testOptions{})
	seedSessions(t, ts, st)

	expectError(t, get(t, ts.URL+"/v1/sessions/export.csv"), http.StatusBadRequest, "missing_fields")
	expectError(t, get(t, ts.URL+"/v1/sessions/export.csv?date=yesterday"), http.StatusBadRequest, "invalid_date")
	expectError(t, get(t, ts.URL+"/v1/sessions/export.csv?date=2026-03-01"), http.StatusNotFound, "not_found")
}

func TestStays(t *testing.T) {
	ts, st := newTestServer(t, testOptions{})
	seedSessions(t, ts, st)

	resp := get(t, ts.URL+"/v1/stays?person=EMP001")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out types.StaysResponse
	decode(t, resp, &out)
	if len(out.Stays) != 1 || out.Stays[0].Minutes != 525 {
		t.Errorf("unexpected stays: %+v", out.Stays)
	}

	expectError(t, get(t, ts.URL+"/v1/stays?person=NOPE"), http.StatusNotFound, "not_found")
}

// ── People ───────────────────────────────────────────────────────────────────

func multipartBody(t *testing.T, fields map[string]string, photoName string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if photoName != "" {
		fw, err := mw.CreateFormFile("photo", photoName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write([]byte("\x89PNG fake"))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestPeople_Lifecycle(t *testing.T) {
	ts, st := newTestServer(t, testOptions{})

	body, ct := multipartBody(t, map[string]string{
		"name":             "Alice Smith",
		"person_system_id": "EMP001",
		"other_data":       "Engineering",
	}, "alice.png")
	resp := do(t, http.MethodPost, ts.URL+"/v1/people", ct, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var created types.PersonResponse
	decode(t, resp, &created)
	if !created.EncodingGenerated || created.Person.PhotoPath != "EMP001_alice.png" {
		t.Errorf("unexpected registration: %+v", created)
	}

	body, ct = multipartBody(t, map[string]string{"name": "Other", "person_system_id": "EMP001"}, "")
	expectError(t, do(t, http.MethodPost, ts.URL+"/v1/people", ct, body), http.StatusConflict, "conflict")

	list := get(t, ts.URL+"/v1/people")
	var people types.PeopleResponse
	decode(t, list, &people)
	if len(people.People) != 1 {
		t.Fatalf("expected 1 person, got %d", len(people.People))
	}

	id := created.Person.ID
	url := ts.URL + "/v1/people/" + strconv.FormatInt(id, 10)

	resp = do(t, http.MethodPut, url, "application/json",
		strings.NewReader(`{"name":"Alice S.","person_system_id":"EMP001","other_data":"Ops"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	var updated types.PersonResponse
	decode(t, resp, &updated)
	if updated.Person.Name != "Alice S." || !updated.Person.HasEncoding {
		t.Errorf("unexpected update: %+v", updated.Person)
	}

	p, _ := st.GetPerson(context.Background(), id)
	if _, err := st.AppendEvent(context.Background(), store.EventRecord{
		PersonID: id, PersonName: p.Name, Type: types.EventEntry, OccurredAt: time.Now(),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	resp = do(t, http.MethodDelete, url, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	var del types.DeletePersonResponse
	decode(t, resp, &del)
	if del.DeletedEvents != 1 {
		t.Errorf("expected 1 deleted event, got %d", del.DeletedEvents)
	}

	expectError(t, get(t, url), http.StatusNotFound, "not_found")
}

func TestPeople_BadInput(t *testing.T) {
	ts, _ := newTestServer(t, testOptions{})

	expectError(t, get(t, ts.URL+"/v1/people/abc"), http.StatusBadRequest, "invalid_field")

	body, ct := multipartBody(t, map[string]string{"name": "X", "person_system_id": "EMP009"}, "x.gif")
	expectError(t, do(t, http.MethodPost, ts.URL+"/v1/people", ct, body), http.StatusBadRequest, "invalid_photo")

	body, ct = multipartBody(t, map[string]string{"person_system_id": "EMP009"}, "")
	expectError(t, do(t, http.MethodPost, ts.URL+"/v1/people", ct, body), http.StatusBadRequest, "missing_fields")
}

// ── Cameras, metrics, routing ────────────────────────────────────────────────

func TestCameras(t *testing.T) {
	ts, st := newTestServer(t, testOptions{})
	addPerson(t, st, "Alice Smith", "EMP001")

	postJSON(t, ts.URL+"/v1/access_log",
		`{"person_system_id":"EMP001","event_type":"entry","timestamp_utc":"2026-02-15T12:00:00Z","camera_id":"gate-1"}`)

	var out types.CamerasResponse
	decode(t, get(t, ts.URL+"/v1/cameras"), &out)
	if len(out.Cameras) != 1 || out.Cameras[0].CameraID != "gate-1" {
		t.Errorf("unexpected cameras: %+v", out.Cameras)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, testOptions{})
	get(t, ts.URL+"/v1/ping")

	resp := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "portaria_api_requests_total") {
		t.Error("expected portaria_api_requests_total in /metrics")
	}
}

func TestUnknownRoute404(t *testing.T) {
	ts, _ := newTestServer(t, testOptions{})
	expectError(t, get(t, ts.URL+"/v1/nope"), http.StatusNotFound, "not_found")
}
