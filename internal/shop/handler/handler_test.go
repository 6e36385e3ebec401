package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cardstore "simtrack/internal/card/store"
	"simtrack/internal/shop/models"
	"simtrack/internal/shop/service"
	"simtrack/internal/shop/store"
	id "simtrack/pkg/domain"
	"simtrack/pkg/platform/tx"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	svc := service.New(store.NewMemoryStore(), cardstore.NewMemoryStore(), tx.PassThrough)
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createShop(t *testing.T, r http.Handler) models.Shop {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/shops", map[string]string{
		"name":       "Corner Shop",
		"ownerName":  "Aye Aye",
		"ownerPhone": "09-123456",
		"address":    "12 Main St",
		"region":     "Yangon",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var shop models.Shop
	require.NoError(t, json.NewDecoder(w.Body).Decode(&shop))
	return shop
}

func TestShopLifecycle(t *testing.T) {
	r := newTestRouter(t)
	shop := createShop(t, r)
	assert.Equal(t, models.ShopStatusActive, shop.Status)

	w := doJSON(t, r, http.MethodGet, "/shops", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPut, "/shops/"+shop.ID.String(),
		map[string]string{"status": "inactive"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Shop
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, models.ShopStatusInactive, updated.Status)

	w = doJSON(t, r, http.MethodGet, "/shops/"+shop.ID.String()+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats service.Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 0, stats.Total)

	w = doJSON(t, r, http.MethodDelete, "/shops/"+shop.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodGet, "/shops/"+shop.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShopValidation(t *testing.T) {
	r := newTestRouter(t)

	t.Run("missing region rejected", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/shops", map[string]string{"name": "No Region"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown shop is 404", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/shops/"+id.NewShopID().String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad status rejected", func(t *testing.T) {
		shop := createShop(t, r)
		w := doJSON(t, r, http.MethodPut, "/shops/"+shop.ID.String(),
			map[string]string{"status": "broken"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
