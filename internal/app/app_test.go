package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	t.Setenv("CORRPULSE_FINNHUB_API_KEY", "test-key")

	application, err := NewApplication()
	require.NoError(t, err)
	t.Cleanup(func() { application.Cache.Close() })
	return application
}

func TestNewApplication(t *testing.T) {
	application := newTestApplication(t)

	assert.NotNil(t, application.Router)
	assert.NotNil(t, application.Server)
	assert.NotNil(t, application.Provider)
	assert.NotNil(t, application.Universe)
	assert.NotNil(t, application.Correlation)
	assert.NotNil(t, application.Earnings)
	assert.NotNil(t, application.Events)
}

func TestNewApplicationRequiresAPIKey(t *testing.T) {
	t.Setenv("CORRPULSE_FINNHUB_API_KEY", "")

	_, err := NewApplication()
	require.Error(t, err)
}

func TestRouterHealth(t *testing.T) {
	application := newTestApplication(t)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestRouterMetrics(t *testing.T) {
	application := newTestApplication(t)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterUnknownRoute(t *testing.T) {
	application := newTestApplication(t)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestRouterValidationFailurePath(t *testing.T) {
	application := newTestApplication(t)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
