package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ajithvnr2001/edgelink/internal/clicks"
	"github.com/ajithvnr2001/edgelink/internal/device"
	"github.com/ajithvnr2001/edgelink/internal/geo"
	"github.com/ajithvnr2001/edgelink/internal/models"
	"github.com/ajithvnr2001/edgelink/internal/repository"
	"github.com/ajithvnr2001/edgelink/internal/service"
)

type memStore struct {
	records map[string]*models.LinkRecord
	err     error
}

func (s *memStore) FindBySlug(ctx context.Context, slug string) (*models.LinkRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	record, ok := s.records[slug]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return record, nil
}

type captureSink struct {
	mu     sync.Mutex
	events []models.ClickEvent
}

func (s *captureSink) Record(event models.ClickEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) all() []models.ClickEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ClickEvent(nil), s.events...)
}

// wedgedClickStore simulates a click sink backend that never responds.
type wedgedClickStore struct {
	release chan struct{}
}

func (s *wedgedClickStore) Insert(ctx context.Context, event *models.ClickEvent) error {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return ctx.Err()
}

func (s *wedgedClickStore) IncrementClickCount(ctx context.Context, slug string) error {
	return nil
}

func newTestHandler(store service.LinkStore, sink interface{ Record(models.ClickEvent) }) *RedirectHandler {
	resolver := service.NewResolver(store, nil, service.Options{LookupTimeout: time.Second}, zap.NewNop())
	return NewRedirectHandler(resolver, device.NewUAParser(), geo.Noop{}, sink, "X-Country", zap.NewNop())
}

func doRequest(h *RedirectHandler, r *http.Request) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	router.HandleFunc("/{slug}", h.Redirect).Methods(http.MethodGet)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestRedirect_PlainLink(t *testing.T) {
	store := &memStore{records: map[string]*models.LinkRecord{
		"abc123": {Slug: "abc123", Destination: "https://example.com", OwnerPlan: models.PlanFree},
	}}
	sink := &captureSink{}
	h := newTestHandler(store, sink)

	w := doRequest(h, httptest.NewRequest(http.MethodGet, "/abc123", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, "abc123", events[0].Slug)
}

func TestRedirect_NotFound(t *testing.T) {
	h := newTestHandler(&memStore{records: map[string]*models.LinkRecord{}}, &captureSink{})

	w := doRequest(h, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedirect_GoneWhenExhausted(t *testing.T) {
	limit := int64(5)
	store := &memStore{records: map[string]*models.LinkRecord{
		"dead": {
			Slug:        "dead",
			Destination: "https://example.com",
			OwnerPlan:   models.PlanFree,
			MaxClicks:   &limit,
			ClickCount:  5,
		},
	}}
	sink := &captureSink{}
	h := newTestHandler(store, sink)

	w := doRequest(h, httptest.NewRequest(http.MethodGet, "/dead", nil))

	assert.Equal(t, http.StatusGone, w.Code)
	assert.Empty(t, sink.all(), "denied requests must not produce click events")
}

func TestRedirect_PasswordFlow(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	store := &memStore{records: map[string]*models.LinkRecord{
		"secret": {
			Slug:         "secret",
			Destination:  "https://example.com",
			OwnerPlan:    models.PlanPro,
			PasswordHash: string(hash),
		},
	}}
	h := newTestHandler(store, &captureSink{})

	// No credential: 401 with the challenge header.
	w := doRequest(h, httptest.NewRequest(http.MethodGet, "/secret", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "true", w.Header().Get("X-Password-Required"))

	// Wrong credential: still 401.
	r := httptest.NewRequest(http.MethodGet, "/secret", nil)
	r.Header.Set(PasswordHeader, "wrong")
	w = doRequest(h, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct credential: redirect.
	r = httptest.NewRequest(http.MethodGet, "/secret", nil)
	r.Header.Set(PasswordHeader, "hunter2")
	w = doRequest(h, r)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))
}

func TestRedirect_StoreFailureIs502(t *testing.T) {
	h := newTestHandler(&memStore{err: errors.New("connection refused")}, &captureSink{})

	w := doRequest(h, httptest.NewRequest(http.MethodGet, "/abc123", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRedirect_DeviceRoutingUsesUserAgent(t *testing.T) {
	store := &memStore{records: map[string]*models.LinkRecord{
		"dev": {
			Slug:          "dev",
			Destination:   "https://example.com",
			OwnerPlan:     models.PlanPro,
			DeviceRouting: models.RouteMap{"mobile": "https://m.example.com"},
		},
	}}
	h := newTestHandler(store, &captureSink{})

	r := httptest.NewRequest(http.MethodGet, "/dev", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1")
	w := doRequest(h, r)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://m.example.com", w.Header().Get("Location"))
}

func TestRedirect_CountryHeaderDrivesGeoRouting(t *testing.T) {
	store := &memStore{records: map[string]*models.LinkRecord{
		"geo": {
			Slug:        "geo",
			Destination: "https://example.com",
			OwnerPlan:   models.PlanPro,
			GeoRouting:  models.RouteMap{"DE": "https://de.example.com"},
		},
	}}
	h := newTestHandler(store, &captureSink{})

	r := httptest.NewRequest(http.MethodGet, "/geo", nil)
	r.Header.Set("X-Country", "DE")
	w := doRequest(h, r)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://de.example.com", w.Header().Get("Location"))
}

func TestRedirect_UTMTemplateMergedIntoLocation(t *testing.T) {
	store := &memStore{records: map[string]*models.LinkRecord{
		"utm": {
			Slug:        "utm",
			Destination: "https://x.com/p?id=1",
			OwnerPlan:   models.PlanFree,
			UTMTemplate: "utm_source=a",
		},
	}}
	h := newTestHandler(store, &captureSink{})

	w := doRequest(h, httptest.NewRequest(http.MethodGet, "/utm", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://x.com/p?id=1&utm_source=a", w.Header().Get("Location"))
}

func TestRedirect_VariantRecordedOnClickEvent(t *testing.T) {
	store := &memStore{records: map[string]*models.LinkRecord{
		"exp": {
			Slug:        "exp",
			Destination: "https://example.com",
			OwnerPlan:   models.PlanPro,
			ABTest: &models.ABTest{
				VariantAURL: "https://a.example.com",
				VariantBURL: "https://b.example.com",
				Status:      models.ABTestActive,
			},
		},
	}}
	sink := &captureSink{}
	h := newTestHandler(store, sink)

	r := httptest.NewRequest(http.MethodGet, "/exp", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.50")
	w := doRequest(h, r)

	assert.Equal(t, http.StatusFound, w.Code)

	events := sink.all()
	require.Len(t, events, 1)
	assert.Contains(t, []string{"A", "B"}, events[0].Variant)
}

func TestRedirect_ResponseDoesNotWaitOnRecording(t *testing.T) {
	store := &memStore{records: map[string]*models.LinkRecord{
		"fast": {Slug: "fast", Destination: "https://example.com", OwnerPlan: models.PlanFree},
	}}

	// Production recorder wired to a backend that never answers: redirect
	// latency must not depend on the sink at all.
	wedged := &wedgedClickStore{release: make(chan struct{})}
	defer close(wedged.release)
	recorder := clicks.NewRecorder(wedged, zap.NewNop(), 4, 1)

	h := newTestHandler(store, recorder)

	for i := 0; i < 50; i++ {
		start := time.Now()
		w := doRequest(h, httptest.NewRequest(http.MethodGet, "/fast", nil))
		elapsed := time.Since(start)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.com", w.Header().Get("Location"))
		if elapsed > 50*time.Millisecond {
			t.Fatalf("redirect took %v with an unresponsive click sink", elapsed)
		}
	}
}
