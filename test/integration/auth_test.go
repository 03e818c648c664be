//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zylorb/internal/model"
)

func TestAuthFlowAndProtectedEndpoints(t *testing.T) {
	server := newServer(t, nil)
	user := uniqueUser()

	registerResp := doJSON(t, http.MethodPost, server.URL+"/api/register", user, "")
	require.Equal(t, http.StatusCreated, registerResp.StatusCode)
	registered := decodeBody[model.AuthResponse](t, registerResp)

	loginResp := doJSON(t, http.MethodPost, server.URL+"/api/login", map[string]string{
		"email":    user["email"],
		"password": user["password"],
	}, "")
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	loggedIn := decodeBody[model.AuthResponse](t, loginResp)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	meResp := doJSON(t, http.MethodGet, server.URL+"/api/me", nil, loggedIn.Token)
	require.Equal(t, http.StatusOK, meResp.StatusCode)
	assert.Equal(t, user["username"], decodeBody[model.AccountResponse](t, meResp).User.Username)

	updateResp := doJSON(t, http.MethodPatch, server.URL+"/api/me", map[string]string{"zone": "professional"}, loggedIn.Token)
	require.Equal(t, http.StatusOK, updateResp.StatusCode)
	assert.Equal(t, "professional", decodeBody[model.AccountResponse](t, updateResp).User.Zone)

	anonymous := doJSON(t, http.MethodGet, server.URL+"/api/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, anonymous.StatusCode)

	forged := doJSON(t, http.MethodGet, server.URL+"/api/me", nil, loggedIn.Token+"x")
	assert.Equal(t, http.StatusForbidden, forged.StatusCode)
}

func TestDuplicateRegistrationIsRejected(t *testing.T) {
	server := newServer(t, nil)
	user := uniqueUser()

	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, server.URL+"/api/register", user, "").StatusCode)

	dup := doJSON(t, http.MethodPost, server.URL+"/api/register", user, "")
	require.Equal(t, http.StatusBadRequest, dup.StatusCode)
	assert.Equal(t, "DUPLICATE_ACCOUNT", decodeBody[model.ErrorResponse](t, dup).Code)
}
