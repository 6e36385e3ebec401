package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simtrack/internal/authority"
	"simtrack/internal/card/models"
	cardstore "simtrack/internal/card/store"
	"simtrack/internal/reconcile"
	transitionstore "simtrack/internal/transition/store"
	id "simtrack/pkg/domain"
	"simtrack/pkg/platform/tx"
)

type stubAuthority struct {
	results map[string]authority.Result
}

func (s *stubAuthority) CheckStatus(_ context.Context, code string) authority.Result {
	if r, ok := s.results[code]; ok {
		return r
	}
	return authority.Result{Status: "active"}
}

type fixture struct {
	cards     *cardstore.MemoryStore
	authority *stubAuthority
	router    *chi.Mux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cards:     cardstore.NewMemoryStore(),
		authority: &stubAuthority{results: map[string]authority.Result{}},
	}
	engine := reconcile.NewEngine(f.cards, transitionstore.NewMemoryStore(), f.authority, tx.PassThrough)
	coord := reconcile.NewCoordinator(engine, slog.Default())

	f.router = chi.NewRouter()
	New(engine, coord, slog.Default()).Register(f.router)
	return f
}

func (f *fixture) seedAssigned(t *testing.T, code string) *models.SimCard {
	t.Helper()
	card, err := models.New(code, time.Now())
	require.NoError(t, err)
	require.NoError(t, card.Assign(id.NewShopID(), "Harbor Shop"))
	require.NoError(t, f.cards.Create(context.Background(), card))
	return card
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleCheck(t *testing.T) {
	f := newFixture(t)
	card := f.seedAssigned(t, "SIM-4001")
	saleDate := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	f.authority.results["SIM-4001"] = authority.Result{
		Status:   "sold",
		IsSold:   true,
		SaleDate: &saleDate,
		Message:  "Sold",
	}

	rec := doJSON(t, f.router, http.MethodGet, "/simcards/"+card.ID.String()+"/check-status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SimCard       *models.SimCard  `json:"simcard"`
		StatusChanged bool             `json:"statusChanged"`
		ExternalData  authority.Result `json:"externalData"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.StatusChanged)
	assert.Equal(t, id.CardStatusSold, resp.SimCard.Status)
	assert.Equal(t, "sold", resp.ExternalData.Status)
	assert.True(t, resp.ExternalData.IsSold)
}

func TestHandleCheck_Errors(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown card", func(t *testing.T) {
		rec := doJSON(t, f.router, http.MethodGet, "/simcards/"+id.NewCardID().String()+"/check-status", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := doJSON(t, f.router, http.MethodGet, "/simcards/not-a-uuid/check-status", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleCheck_AuthorityFailureIsStillOK(t *testing.T) {
	f := newFixture(t)
	card := f.seedAssigned(t, "SIM-4002")
	f.authority.results["SIM-4002"] = authority.ErrorResult("Failed to check status: timeout")

	rec := doJSON(t, f.router, http.MethodGet, "/simcards/"+card.ID.String()+"/check-status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SimCard      *models.SimCard  `json:"simcard"`
		ExternalData authority.Result `json:"externalData"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, authority.StatusError, resp.ExternalData.Status)
	assert.Equal(t, id.CardStatusAssigned, resp.SimCard.Status)
	assert.NotNil(t, resp.SimCard.LastChecked)
}

func TestHandleAutoCheck(t *testing.T) {
	f := newFixture(t)
	sold := f.seedAssigned(t, "SIM-4003")
	active := f.seedAssigned(t, "SIM-4004")
	f.authority.results["SIM-4003"] = authority.Result{Status: "sold", IsSold: true}

	body := map[string]any{"simCards": []map[string]string{
		{"id": sold.ID.String()},
		{"id": active.ID.String()},
		{"id": id.NewCardID().String()},
	}}
	rec := doJSON(t, f.router, http.MethodPost, "/simcards/auto-check", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var report reconcile.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 3, report.TotalChecked)
	assert.Len(t, report.Results, 2, "missing cards are skipped")
	require.Len(t, report.NewlySold, 1)
	assert.Equal(t, "SIM-4003", report.NewlySold[0].Code)
	assert.Equal(t, "Harbor Shop", report.NewlySold[0].ShopName)
}

func TestHandleAutoCheck_EmptyList(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodPost, "/simcards/auto-check", map[string]any{"simCards": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "simCards")
}

func TestHandleAutoCheck_MalformedBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/simcards/auto-check", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, fmt.Sprintf("body: %s", rec.Body.String()))
}
