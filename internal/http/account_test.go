package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/http/handlers"
)

var tinyPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func (e *env) raw(t *testing.T, method, path, token, contentType string, body []byte) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type avatarBody struct {
	URL    string `json:"avatar_url"`
	Custom bool   `json:"custom"`
}

func TestAvatarLifecycle(t *testing.T) {
	e := newEnv(t, handlers.Options{})
	alice := e.token(t, "alice@storefront.test")

	resp := e.do(t, "GET", "/api/v1/me/avatar", alice, nil)
	expectStatus(t, resp, http.StatusOK)
	var av avatarBody
	decode(t, resp, &av)
	assert.False(t, av.Custom)

	expectStatus(t, e.raw(t, "PUT", "/api/v1/me/avatar", alice, "text/plain", []byte("definitely not an image")), http.StatusBadRequest)
	expectStatus(t, e.raw(t, "PUT", "/api/v1/me/avatar", alice, "image/png", tinyPNG), http.StatusOK)

	resp = e.do(t, "GET", "/api/v1/me/avatar", alice, nil)
	decode(t, resp, &av)
	assert.True(t, av.Custom)
	assert.True(t, strings.HasPrefix(av.URL, "data:image/png;base64,"), av.URL)

	// bob still has the default picture
	bob := e.token(t, "bob@storefront.test")
	resp = e.do(t, "GET", "/api/v1/me/avatar", bob, nil)
	decode(t, resp, &av)
	assert.False(t, av.Custom)

	expectStatus(t, e.do(t, "DELETE", "/api/v1/me/avatar", alice, nil), http.StatusNoContent)
	resp = e.do(t, "GET", "/api/v1/me/avatar", alice, nil)
	decode(t, resp, &av)
	assert.False(t, av.Custom)
}

func TestComments(t *testing.T) {
	e := newEnv(t, handlers.Options{})
	alice := e.token(t, "alice@storefront.test")

	expectStatus(t, e.doCookie(t, "POST", "/api/v1/comments", e.csrf(t), "", map[string]any{"body": "hi", "rating": 5}), http.StatusUnauthorized)
	expectStatus(t, e.do(t, "POST", "/api/v1/comments", alice, map[string]any{"body": "  Fast shipping  ", "rating": 5}), http.StatusCreated)
	expectStatus(t, e.do(t, "POST", "/api/v1/comments", alice, map[string]any{"body": "Good", "rating": 4}), http.StatusCreated)

	type comment struct {
		Body   string `json:"body"`
		Rating int    `json:"rating"`
	}
	resp := e.do(t, "GET", "/api/v1/comments?limit=1", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var list []comment
	decode(t, resp, &list)
	require.Len(t, list, 1)

	resp = e.do(t, "GET", "/api/v1/me/comments", alice, nil)
	expectStatus(t, resp, http.StatusOK)
	list = nil
	decode(t, resp, &list)
	require.Len(t, list, 2)
	var bodies []string
	for _, c := range list {
		bodies = append(bodies, c.Body)
	}
	assert.Contains(t, bodies, "Fast shipping")
}

func TestAdminMaintenanceAndDashboard(t *testing.T) {
	e := newEnv(t, handlers.Options{})
	alice := e.token(t, "alice@storefront.test")
	admin := e.token(t, "admin@storefront.test")
	id := e.product(t, "Game A", 10, 5)

	// an emptied cart is what the purge removes
	expectStatus(t, e.do(t, "POST", "/api/v1/cart/items", alice, map[string]any{"product_id": id}), http.StatusOK)
	expectStatus(t, e.do(t, "DELETE", "/api/v1/cart", alice, nil), http.StatusOK)

	resp := e.do(t, "POST", "/api/v1/admin/maintenance/purge-empty-carts", admin, nil)
	expectStatus(t, resp, http.StatusOK)
	var purged struct {
		Deleted int64 `json:"deleted"`
	}
	decode(t, resp, &purged)
	assert.Equal(t, int64(1), purged.Deleted)

	resp = e.do(t, "GET", "/api/v1/admin/dashboard", admin, nil)
	expectStatus(t, resp, http.StatusOK)
	var dash struct {
		ActiveProducts int `json:"active_products"`
	}
	decode(t, resp, &dash)
	assert.Equal(t, 1, dash.ActiveProducts)

	expectStatus(t, e.do(t, "GET", "/api/v1/admin/dashboard", alice, nil), http.StatusForbidden)
}
