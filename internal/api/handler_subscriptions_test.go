package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hotel-maintenance-backend/internal/db"
	"hotel-maintenance-backend/internal/model"
	"hotel-maintenance-backend/internal/store"
)

func setupSubscriptionRouter(t *testing.T) *gin.Engine {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	s := store.NewGormStore(gormDB)
	require.NoError(t, s.DB().Create(&model.Hotel{ID: 1, Code: "GRD", Name: "Grand"}).Error)
	require.NoError(t, s.DB().Create(&model.Department{ID: 1, HotelID: 1, Name: "Engineering", CanReceiveOrders: true}).Error)
	require.NoError(t, s.DB().Create(&model.Department{ID: 2, HotelID: 1, Name: "Housekeeping", CanReceiveOrders: true}).Error)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(s, nil, nil, nil)
	r.PUT("/api/subscriptions", handler.PutSubscription)
	r.GET("/api/subscriptions", handler.GetSubscription)
	r.DELETE("/api/subscriptions", handler.DeleteSubscription)
	return r
}

func subscriptionRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func subscribedDepartments(t *testing.T, w *httptest.ResponseRecorder) []int64 {
	t.Helper()
	var resp struct {
		SubscribedDepartments []int64 `json:"subscribed_departments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.SubscribedDepartments
}

func TestPutSubscription_RejectsInvalidBody(t *testing.T) {
	router := setupSubscriptionRouter(t)

	w := subscriptionRequest(router, "PUT", "/api/subscriptions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing the required key material.
	w = subscriptionRequest(router, "PUT", "/api/subscriptions", `{"endpoint":"https://example.com/push"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	router := setupSubscriptionRouter(t)
	endpoint := "https://example.com/push/abc"

	// Create with two department subscriptions.
	w := subscriptionRequest(router, "PUT", "/api/subscriptions", fmt.Sprintf(
		`{"endpoint":%q,"p256dh":"key","auth":"secret","subscribed_departments":[1,2]}`, endpoint))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = subscriptionRequest(router, "GET", "/api/subscriptions?endpoint="+endpoint, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []int64{1, 2}, subscribedDepartments(t, w))

	// A second PUT for the same endpoint upserts the keys and replaces the
	// department set rather than accumulating.
	w = subscriptionRequest(router, "PUT", "/api/subscriptions", fmt.Sprintf(
		`{"endpoint":%q,"p256dh":"rotated","auth":"secret2","subscribed_departments":[2]}`, endpoint))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = subscriptionRequest(router, "GET", "/api/subscriptions?endpoint="+endpoint, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []int64{2}, subscribedDepartments(t, w))

	// Delete removes the subscription entirely.
	w = subscriptionRequest(router, "DELETE", "/api/subscriptions", fmt.Sprintf(`{"endpoint":%q}`, endpoint))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = subscriptionRequest(router, "GET", "/api/subscriptions?endpoint="+endpoint, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSubscription_RequiresEndpoint(t *testing.T) {
	router := setupSubscriptionRouter(t)

	w := subscriptionRequest(router, "GET", "/api/subscriptions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutSubscription_ClearsDepartmentsWhenOmitted(t *testing.T) {
	router := setupSubscriptionRouter(t)
	endpoint := "https://example.com/push/quiet"

	w := subscriptionRequest(router, "PUT", "/api/subscriptions", fmt.Sprintf(
		`{"endpoint":%q,"p256dh":"key","auth":"secret","subscribed_departments":[1]}`, endpoint))
	require.Equal(t, http.StatusCreated, w.Code)

	w = subscriptionRequest(router, "PUT", "/api/subscriptions", fmt.Sprintf(
		`{"endpoint":%q,"p256dh":"key","auth":"secret"}`, endpoint))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = subscriptionRequest(router, "GET", "/api/subscriptions?endpoint="+endpoint, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, subscribedDepartments(t, w))
}
