package httptransport

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simtrack/internal/auth"
	cardhandler "simtrack/internal/card/handler"
	cardservice "simtrack/internal/card/service"
	cardstore "simtrack/internal/card/store"
	shophandler "simtrack/internal/shop/handler"
	shopservice "simtrack/internal/shop/service"
	shopstore "simtrack/internal/shop/store"
	"simtrack/internal/platform/metrics"
	"simtrack/pkg/platform/tx"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.Default()

	cards := cardstore.NewMemoryStore()
	shops := shopstore.NewMemoryStore()
	shopSvc := shopservice.New(shops, cards, tx.PassThrough, shopservice.WithLogger(logger))
	cardSvc := cardservice.New(cards, shopSvc, tx.PassThrough, cardservice.WithLogger(logger))

	authSvc := auth.NewService("router-test-key", "admin", "hunter2")

	return NewRouter(Deps{
		Logger:    logger,
		Metrics:   metrics.NewWith(prometheus.NewRegistry()),
		Validator: authSvc,
		Health:    NewHealth(cards, nil, nil),
		Public: []Registrar{
			auth.NewHandler(authSvc, logger),
		},
		Protected: []Registrar{
			cardhandler.New(cardSvc, logger),
			shophandler.New(shopSvc, logger),
		},
	})
}

func login(t *testing.T, router http.Handler) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "hunter2"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRouter_PublicEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/", "/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_ProtectedRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/simcards", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/simcards", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AuthenticatedFlow(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router)

	body, _ := json.Marshal(map[string]string{"code": "SIM-6001"})
	req := httptest.NewRequest(http.MethodPost, "/simcards", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/simcards", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SIM-6001")
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router)

	req := httptest.NewRequest(http.MethodPost, "/simcards", bytes.NewBufferString("code=SIM-6002"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_EchoesRequestID(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-abc-123", rec.Header().Get("X-Request-Id"))
}
