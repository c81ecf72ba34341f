package rest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/soctools/lurelab/internal/config"
	"github.com/soctools/lurelab/internal/domain"
	"github.com/soctools/lurelab/internal/service"
	"github.com/soctools/lurelab/internal/usecase"
)

// --- mocks ---

type mockCredentialRepo struct {
	records map[domain.Identity]domain.CredentialRecord
	err     error
}

func (m *mockCredentialRepo) Upsert(ctx context.Context, rec domain.CredentialRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records[rec.Identity] = rec
	return nil
}

type mockEventRepo struct {
	events     []domain.PhishEvent
	lastFilter domain.EventFilter
	lastLimit  int
}

func (m *mockEventRepo) Append(ctx context.Context, ev domain.PhishEvent) error {
	m.events = append(m.events, ev)
	return nil
}

// List walks appended events newest first, matching the repository contract.
func (m *mockEventRepo) List(ctx context.Context, filter domain.EventFilter, limit int) ([]domain.PhishEvent, error) {
	m.lastFilter = filter
	m.lastLimit = limit

	var out []domain.PhishEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		ev := m.events[i]
		if filter.Identity != "" && ev.Identity != filter.Identity {
			continue
		}
		if filter.Kind != "" && ev.Kind != filter.Kind {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

type mockDownloadRepo struct {
	downloads []domain.DownloadEvent
	lastLimit int
}

func (m *mockDownloadRepo) Append(ctx context.Context, ev domain.DownloadEvent) error {
	m.downloads = append(m.downloads, ev)
	return nil
}

func (m *mockDownloadRepo) List(ctx context.Context, limit int) ([]domain.DownloadEvent, error) {
	m.lastLimit = limit
	var out []domain.DownloadEvent
	for i := len(m.downloads) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.downloads[i])
	}
	return out, nil
}

type stubSignal struct {
	published []domain.FeedItem
}

func (s *stubSignal) Publish(ctx context.Context, item domain.FeedItem) error {
	s.published = append(s.published, item)
	return nil
}

func (s *stubSignal) Realtime(ctx context.Context, input chan []string, output chan domain.FeedItem) {
}

type testEnv struct {
	e           *echo.Echo
	credentials *mockCredentialRepo
	events      *mockEventRepo
	downloads   *mockDownloadRepo
	signal      *stubSignal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		credentials: &mockCredentialRepo{records: map[domain.Identity]domain.CredentialRecord{}},
		events:      &mockEventRepo{},
		downloads:   &mockDownloadRepo{},
		signal:      &stubSignal{},
	}

	artifact := service.NewArtifactService(config.Lure{
		ArtifactBase64: base64.StdEncoding.EncodeToString([]byte("lure payload")),
		ArtifactName:   "downloaded_file.pdf",
	})

	h := NewHandler(
		usecase.NewCredentialUsecase(env.credentials, service.NewSecretHasher()),
		usecase.NewEventUsecase(env.events),
		usecase.NewDownloadUsecase(env.downloads),
		artifact,
		env.signal,
	)

	env.e = echo.New()
	h.RegisterRoutes(env.e)
	return env
}

func (env *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("User-Agent", "test-agent")
	res := httptest.NewRecorder()
	env.e.ServeHTTP(res, req)
	return res
}

// --- tests ---

func TestLoginAlwaysRejects(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodPost, "/login", `{"email":" A@Example.com ","password":"hunter2"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Invalid email or password") {
		t.Fatalf("unexpected rejection body: %s", res.Body.String())
	}

	rec, ok := env.credentials.records["a@example.com"]
	if !ok {
		t.Fatalf("no credential stored under normalized identity: %v", env.credentials.records)
	}
	if rec.SecretHash == "hunter2" {
		t.Fatal("plaintext secret was stored")
	}
	if !strings.HasPrefix(rec.SecretHash, "$2") {
		t.Fatalf("stored secret is not a bcrypt hash: %q", rec.SecretHash)
	}
}

func TestLoginInvalidEmailWritesNothing(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodPost, "/login", `{"email":"bad","password":"x"}`)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
	if len(env.credentials.records) != 0 {
		t.Fatalf("expected no writes, got %v", env.credentials.records)
	}
}

func TestLoginPersistenceFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	env.credentials.err = context.DeadlineExceeded

	res := env.do(http.MethodPost, "/login", `{"email":"a@example.com","password":"x"}`)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "deadline") {
		t.Fatalf("internal detail leaked: %s", res.Body.String())
	}
}

func TestEventFunnelRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	for _, kind := range []string{"view", "click", "submit"} {
		res := env.do(http.MethodPost, "/api/events", `{"email":"u@x.com","event":"`+kind+`"}`)
		if res.Code != http.StatusOK {
			t.Fatalf("record %s: expected 200 got %d: %s", kind, res.Code, res.Body.String())
		}
		if strings.TrimSpace(res.Body.String()) != `{"ok":true}` {
			t.Fatalf("record %s: unexpected ack %s", kind, res.Body.String())
		}
	}

	res := env.do(http.MethodGet, "/api/events?email=u@x.com", "")
	if res.Code != http.StatusOK {
		t.Fatalf("list: expected 200 got %d", res.Code)
	}

	var events []domain.PhishEvent
	if err := json.Unmarshal(res.Body.Bytes(), &events); err != nil {
		t.Fatalf("decoding listing: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	wantOrder := []domain.EventKind{domain.EventKindSubmit, domain.EventKindClick, domain.EventKindView}
	for i, want := range wantOrder {
		if events[i].Kind != want {
			t.Fatalf("event %d is %s, want %s", i, events[i].Kind, want)
		}
	}

	if len(env.signal.published) != 3 {
		t.Fatalf("expected 3 feed items, got %d", len(env.signal.published))
	}
	if env.signal.published[0].Stream != domain.FeedStreamEvent {
		t.Fatalf("unexpected feed stream %q", env.signal.published[0].Stream)
	}
}

func TestRecordEventRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodPost, "/api/events", `{"email":"u@x.com","event":"bogus"}`)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
	if len(env.events.events) != 0 {
		t.Fatalf("expected no writes, got %d", len(env.events.events))
	}
	if len(env.signal.published) != 0 {
		t.Fatal("rejected event reached the feed")
	}
}

func TestRecordEventRejectsInvalidIdentity(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodPost, "/api/events", `{"email":"bad","event":"view"}`)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
	if len(env.events.events) != 0 {
		t.Fatalf("expected no writes, got %d", len(env.events.events))
	}
}

func TestListEventsClampsLimit(t *testing.T) {
	env := newTestEnv(t)

	if res := env.do(http.MethodGet, "/api/events?limit=500", ""); res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	if env.events.lastLimit != 100 {
		t.Fatalf("limit=500 reached repository as %d, want 100", env.events.lastLimit)
	}

	if res := env.do(http.MethodGet, "/api/events", ""); res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	if env.events.lastLimit != 50 {
		t.Fatalf("default limit reached repository as %d, want 50", env.events.lastLimit)
	}
}

func TestListEventsIgnoresBogusKindFilter(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/events", `{"email":"u@x.com","event":"view"}`)

	res := env.do(http.MethodGet, "/api/events?event=bogus", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	if env.events.lastFilter.Kind != "" {
		t.Fatalf("bogus kind filter was applied: %q", env.events.lastFilter.Kind)
	}

	var events []domain.PhishEvent
	if err := json.Unmarshal(res.Body.Bytes(), &events); err != nil {
		t.Fatalf("decoding listing: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected the unfiltered event, got %d", len(events))
	}
}

func TestListEventsRejectsBadLimit(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodGet, "/api/events?limit=abc", "")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
}

func TestRequestDownloadRecordsAndServesArtifact(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodGet, "/request-download?email=U%40X.com", "")

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", res.Code, res.Body.String())
	}

	if len(env.downloads.downloads) != 1 {
		t.Fatalf("expected 1 download record, got %d", len(env.downloads.downloads))
	}
	if env.downloads.downloads[0].Identity != "u@x.com" {
		t.Fatalf("identity not normalized: %q", env.downloads.downloads[0].Identity)
	}

	csp := res.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "script-src 'nonce-") {
		t.Fatalf("missing nonce CSP, got %q", csp)
	}

	body := res.Body.String()
	payload := base64.StdEncoding.EncodeToString([]byte("lure payload"))
	if !strings.Contains(body, payload) {
		t.Fatal("artifact payload missing from page")
	}
	if !strings.Contains(body, "downloaded_file.pdf") {
		t.Fatal("artifact filename missing from page")
	}

	if len(env.signal.published) != 1 || env.signal.published[0].Stream != domain.FeedStreamDownload {
		t.Fatalf("expected one download feed item, got %v", env.signal.published)
	}
}

func TestRequestDownloadInvalidEmail(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodGet, "/request-download?email=nope", "")

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
	if len(env.downloads.downloads) != 0 {
		t.Fatalf("expected no writes, got %d", len(env.downloads.downloads))
	}
}

func TestIndexRedirectsValidEmail(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodGet, "/?email=User%40X.com", "")

	if res.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", res.Code)
	}
	loc := res.Header().Get("Location")
	if loc != "/request-download?email=user%40x.com" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestIndexServesFormWithoutEmail(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodGet, "/", "")

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "/request-download") {
		t.Fatal("lure form missing from index page")
	}
}

func TestListDownloadsBounded(t *testing.T) {
	env := newTestEnv(t)

	if res := env.do(http.MethodGet, "/api/downloads?limit=500", ""); res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	if env.downloads.lastLimit != 200 {
		t.Fatalf("limit=500 reached repository as %d, want 200", env.downloads.lastLimit)
	}

	if res := env.do(http.MethodGet, "/api/downloads", ""); res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	if env.downloads.lastLimit != 200 {
		t.Fatalf("default limit reached repository as %d, want 200", env.downloads.lastLimit)
	}
}
