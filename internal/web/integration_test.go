package web_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/shopexplore/internal/auth"
	"github.com/vbonduro/shopexplore/internal/db"
	"github.com/vbonduro/shopexplore/internal/events"
	"github.com/vbonduro/shopexplore/internal/posterstore"
	"github.com/vbonduro/shopexplore/internal/service"
	"github.com/vbonduro/shopexplore/internal/store"
	"github.com/vbonduro/shopexplore/internal/web"
)

// minimalPNG is the PNG signature followed by zeros, enough for
// http.DetectContentType.
var minimalPNG = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)

// memPosterStore is a simple in-memory implementation of posterstore.PosterStore.
type memPosterStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	mimes   map[string]string
	counter int
}

func newMemPosterStore() *memPosterStore {
	return &memPosterStore{
		data:  make(map[string][]byte),
		mimes: make(map[string]string),
	}
}

func (m *memPosterStore) Save(_ context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	key := fmt.Sprintf("%s_%d", prefix, m.counter)
	m.data[key] = data
	m.mimes[key] = mimeType
	return key, nil
}

func (m *memPosterStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, "", posterstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), m.mimes[key], nil
}

func (m *memPosterStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.mimes, key)
	return nil
}

// newTestServer sets up a real web.Server backed by in-memory SQLite.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database, err := db.OpenForTesting()
	require.NoError(t, err)

	issuer, err := auth.NewIssuer("integration-secret", time.Hour)
	require.NoError(t, err)

	shops := service.NewShopService(store.NewShopStore(database), newMemPosterStore(), events.Nop{}, 0, slog.Default())
	users := service.NewAuthService(store.NewUserStore(database), issuer, slog.Default())
	srv := httptest.NewServer(web.NewServer(shops, users, issuer, "http://localhost:5173", slog.Default()))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return srv
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any) (int, []byte) {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.send(req)
}

func (c *client) send(req *http.Request) (int, []byte) {
	c.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

// signIn registers and logs in a user, returning a client bearing its token.
func signIn(t *testing.T, srv *httptest.Server, email string) *client {
	t.Helper()
	c := &client{t: t, base: srv.URL}
	status, body := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "password": "secret1", "name": "Shopkeeper",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.Token)
	c.token = login.Token
	return c
}

type shopJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"location"`
	PosterURL  string   `json:"posterUrl"`
	CreatedBy  *int64   `json:"createdBy"`
	DistanceKm *float64 `json:"distanceKm"`
	Items      []struct {
		Name  string `json:"name"`
		Stock string `json:"stock"`
	} `json:"items"`
}

// shopBody builds a create/update body for a shop km kilometers north of
// Times Square.
func shopBody(name string, km float64) map[string]any {
	lat := 40.7580 + km/6371.0*180/math.Pi
	return map[string]any{
		"name":      name,
		"category":  "grocery",
		"location":  map[string]any{"type": "Point", "coordinates": []float64{-73.9855, lat}},
		"items":     []map[string]any{{"name": "Milk", "quantity": 12}},
		"createdBy": "forged-id",
	}
}

func createShop(t *testing.T, c *client, name string, km float64) shopJSON {
	t.Helper()
	status, body := c.do(http.MethodPost, "/api/shops", shopBody(name, km))
	require.Equal(t, http.StatusCreated, status, string(body))
	var shop shopJSON
	require.NoError(t, json.Unmarshal(body, &shop))
	return shop
}

func TestIntegration_Health(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}

	status, body := c.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"OK"`)

	status, body = c.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "Route not found")
}

func TestIntegration_AuthFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	c := signIn(t, srv, "ana@example.com")

	status, body := c.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "ana@example.com")
	assert.NotContains(t, string(body), "password")

	anon := &client{t: t, base: srv.URL}
	status, _ = anon.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "ANA@example.com", "password": "secret1", "name": "Again",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = anon.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "bo@example.com", "password": "123", "name": "Bo",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), `"password"`)

	status, body = anon.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "bo@example.com", "password": strings.Repeat("x", 80), "name": "Bo",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "at most 72")

	status, _ = anon.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	anon.token = "garbage"
	status, _ = anon.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestIntegration_ShopCRUD(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	owner := signIn(t, srv, "owner@example.com")
	other := signIn(t, srv, "other@example.com")
	anon := &client{t: t, base: srv.URL}

	status, _ := anon.do(http.MethodPost, "/api/shops", shopBody("Sneaky", 0))
	assert.Equal(t, http.StatusUnauthorized, status)

	shop := createShop(t, owner, "Deli", 0)
	assert.Equal(t, "Point", shop.Location.Type)
	assert.InDelta(t, -73.9855, shop.Location.Coordinates[0], 1e-9, "longitude comes first")
	require.NotNil(t, shop.CreatedBy)
	require.Len(t, shop.Items, 1)
	assert.Equal(t, "in_stock", shop.Items[0].Stock)

	path := fmt.Sprintf("/api/shops/%d", shop.ID)
	status, _ = anon.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = other.do(http.MethodPut, path, shopBody("Hijacked", 0))
	assert.Equal(t, http.StatusForbidden, status)

	status, body := owner.do(http.MethodPut, path, shopBody("Deli Two", 1))
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), "Deli Two")

	status, _ = other.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = owner.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = anon.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = anon.do(http.MethodGet, "/api/shops/abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIntegration_CreateShopValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	owner := signIn(t, srv, "owner@example.com")

	body := shopBody("Bad", 0)
	body["location"] = map[string]any{"type": "Point", "coordinates": []float64{-73.98, 95}}
	status, resp := owner.do(http.MethodPost, "/api/shops", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(resp), `"location"`)

	body = shopBody("", 0)
	body["items"] = []map[string]any{{"name": "Milk", "quantity": -2}}
	status, resp = owner.do(http.MethodPost, "/api/shops", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(resp), `"name"`)
	assert.Contains(t, string(resp), `"items[0].quantity"`)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/shops", strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+owner.token)
	status, _ = owner.send(req)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIntegration_NearbyAndDiscover(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	owner := signIn(t, srv, "owner@example.com")
	createShop(t, owner, "One", 1)
	createShop(t, owner, "Edge", 1.999)
	createShop(t, owner, "Three", 3)
	createShop(t, owner, "Half", 0.5)

	here := "lat=40.7580&lng=-73.9855"

	status, body := owner.do(http.MethodGet, "/api/shops/nearby?"+here, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var nearby []shopJSON
	require.NoError(t, json.Unmarshal(body, &nearby))
	require.Len(t, nearby, 3)
	assert.Equal(t, []string{"One", "Edge", "Half"}, names(nearby))
	require.NotNil(t, nearby[0].DistanceKm)
	assert.InDelta(t, 1.0, *nearby[0].DistanceKm, 1e-6)

	status, body = owner.do(http.MethodGet, "/api/shops/nearby?sort=distance&"+here, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &nearby))
	assert.Equal(t, []string{"Half", "One", "Edge"}, names(nearby))

	status, body = owner.do(http.MethodGet, "/api/shops/nearby?radius=5&"+here, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &nearby))
	assert.Len(t, nearby, 4)

	for _, q := range []string{"", "lat=40.7", "lat=95&lng=0", "lat=40&lng=-73&radius=-1", "lat=40&lng=-73&radius=x"} {
		status, _ = owner.do(http.MethodGet, "/api/shops/nearby?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, status, q)
	}

	var discovery struct {
		Mode   string `json:"mode"`
		Center struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"center"`
		Shops []shopJSON `json:"shops"`
	}
	status, body = owner.do(http.MethodGet, "/api/shops/discover", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &discovery))
	assert.Equal(t, "all", discovery.Mode)
	assert.Equal(t, []float64{-74.0060, 40.7128}, discovery.Center.Coordinates)
	assert.Len(t, discovery.Shops, 4)
	assert.Nil(t, discovery.Shops[0].DistanceKm)

	status, body = owner.do(http.MethodGet, "/api/shops/discover?"+here, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &discovery))
	assert.Equal(t, "nearby", discovery.Mode)
	assert.Len(t, discovery.Shops, 3)

	status, _ = owner.do(http.MethodGet, "/api/shops/discover?radius=-5", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIntegration_Search(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	owner := signIn(t, srv, "owner@example.com")
	createShop(t, owner, "Corner Deli", 0)

	status, body := owner.do(http.MethodGet, "/api/shops/search?q=milk", nil)
	require.Equal(t, http.StatusOK, status)
	var found []shopJSON
	require.NoError(t, json.Unmarshal(body, &found))
	assert.Equal(t, []string{"Corner Deli"}, names(found))

	status, body = owner.do(http.MethodGet, "/api/shops/search?q=", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestIntegration_Poster(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	owner := signIn(t, srv, "owner@example.com")
	shop := createShop(t, owner, "Deli", 0)
	path := fmt.Sprintf("/api/shops/%d/poster", shop.ID)

	status, _ := owner.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, status)

	upload := func(data []byte) (int, []byte) {
		body := &bytes.Buffer{}
		w := multipart.NewWriter(body)
		fw, err := w.CreateFormFile("image", "poster.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req, err := http.NewRequest(http.MethodPut, srv.URL+path, body)
		require.NoError(t, err)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+owner.token)
		return owner.send(req)
	}

	status, _ = upload([]byte("%PDF-1.4 not an image"))
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := upload(minimalPNG)
	require.Equal(t, http.StatusOK, status, string(body))
	var updated shopJSON
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, path, updated.PosterURL)

	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, minimalPNG, data)
}

func names(shops []shopJSON) []string {
	out := make([]string, 0, len(shops))
	for _, s := range shops {
		out = append(out, s.Name)
	}
	return out
}
