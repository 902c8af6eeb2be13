package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLandingRedirectsAndFlashesOnce(t *testing.T) {
	h := NewLandingHandler("http://localhost:8080", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/toolshub?paymentStatus=success&session_id=cs_1&view=rented", nil)
	rec := httptest.NewRecorder()
	h.Page(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/toolshub?view=rented", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, flashCookieName, cookies[0].Name)

	// the cleaned page shows the notification and clears the flash
	req = httptest.NewRequest(http.MethodGet, "/toolshub?view=rented", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.Page(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payment Successful")
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	// a refresh without the cookie shows nothing
	rec = httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/toolshub?view=rented", nil))
	assert.NotContains(t, rec.Body.String(), "Payment Successful")
}

func TestLandingUnknownMarkerIsStrippedSilently(t *testing.T) {
	h := NewLandingHandler("http://localhost:8080", testLogger())

	rec := httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/toolshub?connectAccountStatus=bogus", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/toolshub", rec.Header().Get("Location"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestLandingPlainPage(t *testing.T) {
	h := NewLandingHandler("http://localhost:8080", testLogger())

	rec := httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/toolshub", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ToolsHub")
}
