package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-logos/nabla/app/models"
	"github.com/atelier-logos/nabla/internal/pkg/usercontext"
)

func TestHandleListPurchasesReturnsOwnRows(t *testing.T) {
	repo := &fakePurchaseRepository{purchases: []models.Purchase{
		{ID: 1, SubscriberID: 7, StripeSessionID: "cs_1", Status: models.PurchaseStatusCompleted},
		{ID: 2, SubscriberID: 7, StripeSessionID: "cs_2", Status: models.PurchaseStatusPending},
		{ID: 3, SubscriberID: 99, StripeSessionID: "cs_3", Status: models.PurchaseStatusCompleted},
	}}
	pc := NewPurchaseController(repo)

	app := newTestApp(customerContext(7))
	app.Get("/api/purchases", pc.HandleListPurchases)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/purchases", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	purchases, ok := body["purchases"].([]interface{})
	require.True(t, ok)
	assert.Len(t, purchases, 2)
}

func TestHandleListPurchasesRequiresLogin(t *testing.T) {
	repo := &fakePurchaseRepository{}
	pc := NewPurchaseController(repo)

	app := newTestApp(usercontext.UserContext{IsLoggedIn: false})
	app.Get("/api/purchases", pc.HandleListPurchases)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/purchases", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "unauthorized", body["error"])
}

func TestHandleListPurchasesRepositoryError(t *testing.T) {
	repo := &fakePurchaseRepository{err: assert.AnError}
	pc := NewPurchaseController(repo)

	app := newTestApp(customerContext(7))
	app.Get("/api/purchases", pc.HandleListPurchases)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/purchases", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
