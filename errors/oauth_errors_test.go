package errors

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirectToEncodesError(t *testing.T) {
	oerr := NewAccessDenied("confirmation code mismatch").WithState("abc123")

	location, err := oerr.RedirectTo("https://app.example/cb?keep=1")
	require.NoError(t, err)

	u, err := url.Parse(location)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "access_denied", q.Get("error"))
	assert.Equal(t, "confirmation code mismatch", q.Get("error_description"))
	assert.Equal(t, "abc123", q.Get("state"))
	assert.Equal(t, "1", q.Get("keep"), "existing query parameters survive")
}

func TestRedirectToOmitsEmptyFields(t *testing.T) {
	location, err := NewTemporarilyUnavailable().RedirectTo("https://app.example/cb")
	require.NoError(t, err)

	u, err := url.Parse(location)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "temporarily_unavailable", q.Get("error"))
	assert.False(t, q.Has("error_description"))
	assert.False(t, q.Has("state"))
}

func TestNewErrorRedirectWrapsOriginal(t *testing.T) {
	err := NewErrorRedirect(NewInvalidScope("bad scope"), "https://app.example/cb")

	var redirect *ErrorRedirect
	require.ErrorAs(t, err, &redirect)
	assert.Contains(t, redirect.Location, "error=invalid_scope")

	var oerr *OAuth2Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, InvalidScope, oerr.Code)
}

func TestServerErrorNeverLeaksDetail(t *testing.T) {
	assert.Equal(t, "internal error", NewServerError().Description)
}
