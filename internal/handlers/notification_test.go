package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"pharmacist/internal/handlers"
	"pharmacist/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscription(endpoint string) map[string]any {
	return map[string]any{
		"subscription_info": map[string]any{
			"endpoint": endpoint,
			"keys":     map[string]string{"p256dh": "p256dh-key", "auth": "auth-key"},
		},
	}
}

func TestWebPushEndpoints(t *testing.T) {
	h := newHarness(t, true)
	_, token := h.user("09120000001")

	w := h.do(http.MethodGet, "/api/notifications/web-push/vapid-public-key/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true, "vapid_public_key": "public-key"}`, w.Body.String())

	w = h.do(http.MethodPost, "/api/notifications/web-push/subscribe/", token, map[string]any{"subscription_info": map[string]any{"endpoint": "not a url"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/notifications/web-push/subscribe/", token, subscription("https://push.example.com/abc"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// subscribing the same endpoint again updates it
	w = h.do(http.MethodPost, "/api/notifications/web-push/subscribe/", token, subscription("https://push.example.com/abc"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var subs int64
	require.NoError(t, h.db.Model(&models.PushSubscription{}).Count(&subs).Error)
	assert.Equal(t, int64(1), subs)

	w = h.do(http.MethodPost, "/api/notifications/web-push/test-notification/", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success": true, "sent": 1}`, w.Body.String())

	w = h.do(http.MethodPut, "/api/notifications/settings/", token, map[string]any{"push_enabled": false, "lead_minutes": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	settings := decode[models.NotificationSettings](t, w)
	assert.False(t, settings.PushEnabled)
	assert.Equal(t, 10, settings.LeadMinutes)

	w = h.do(http.MethodPut, "/api/notifications/settings/", token, map[string]any{"lead_minutes": 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/api/notifications/settings/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, decode[models.NotificationSettings](t, w).LeadMinutes)

	// push is disabled in settings, only the forced test goes out
	w = h.do(http.MethodPost, "/api/notifications/web-push/test-notification/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": false, "sent": 0}`, w.Body.String())

	w = h.do(http.MethodPost, "/api/notifications/web-push/force-test-notification/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true, "sent": 1}`, w.Body.String())
	assert.Len(t, h.push.payloads, 2)

	w = h.do(http.MethodPost, "/api/notifications/web-push/unsubscribe/", token, map[string]string{"endpoint": "https://push.example.com/abc"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, h.db.Model(&models.PushSubscription{}).Count(&subs).Error)
	assert.Zero(t, subs)
}

func TestWebPushNotConfigured(t *testing.T) {
	h := newHarness(t, false)
	_, token := h.user("09120000001")

	w := h.do(http.MethodGet, "/api/notifications/web-push/vapid-public-key/", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = h.do(http.MethodPost, "/api/notifications/web-push/force-test-notification/", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type fakeFinder struct {
	radius uint
	err    error
}

func (f *fakeFinder) NearbyPharmacies(_ context.Context, lat, lng float64, radius uint) ([]models.Pharmacy, error) {
	f.radius = radius
	if f.err != nil {
		return nil, f.err
	}
	return []models.Pharmacy{{PlaceID: "p1", Name: "داروخانه دکتر احمدی", Latitude: lat, Longitude: lng}}, nil
}

func (f *fakeFinder) PharmacyDetails(_ context.Context, placeID string) (*models.Pharmacy, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Pharmacy{PlaceID: placeID, Name: "داروخانه دکتر احمدی", Phone: "021 1234 5678"}, nil
}

func TestPharmacyEndpoints(t *testing.T) {
	finder := &fakeFinder{}
	h := newHarness(t, false, func(d *handlers.Dependencies) { d.Pharmacies = finder })
	_, token := h.user("09120000001")

	w := h.do(http.MethodGet, "/api/pharmacies/nearby/?lat=35.7&lng=51.4", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pharmacies := decode[[]models.Pharmacy](t, w)
	require.Len(t, pharmacies, 1)
	assert.Equal(t, "p1", pharmacies[0].PlaceID)
	assert.Zero(t, finder.radius)

	w = h.do(http.MethodGet, "/api/pharmacies/nearby/?lat=35.7&lng=51.4&radius=5000", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(5000), finder.radius)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/pharmacies/nearby/?lat=35.7", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/pharmacies/nearby/?lat=35.7&lng=51.4&radius=50000", token, nil).Code)

	w = h.do(http.MethodGet, "/api/pharmacies/place/p1/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "021 1234 5678", decode[models.Pharmacy](t, w).Phone)

	finder.err = errors.New("quota exceeded")
	assert.Equal(t, http.StatusBadGateway, h.do(http.MethodGet, "/api/pharmacies/nearby/?lat=35.7&lng=51.4", token, nil).Code)
}

func TestPharmaciesNotConfigured(t *testing.T) {
	h := newHarness(t, false)
	_, token := h.user("09120000001")
	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, "/api/pharmacies/nearby/?lat=35.7&lng=51.4", token, nil).Code)
}
