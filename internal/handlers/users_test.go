package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/catalog/internal/models"
)

func (env *handlerTestEnv) registerUser(t *testing.T, name, email string) models.UserSummary {
	t.Helper()
	rec := env.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": testPassword,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user models.UserSummary
	decodeData(t, rec, &user)
	return user
}

func TestUserHandlerListRequiresAdmin(t *testing.T) {
	env := setupHandlerTestEnv(t)
	user := env.registerUser(t, "Asha Rao", "asha@example.com")

	rec := env.do(newRequest(http.MethodGet, "/api/users/all"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "No token provided", decodeResponse(t, rec).Error.Message)

	rec = env.doJSON(t, http.MethodGet, "/api/users/all", nil, env.userToken(t, user.ID))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserHandlerListServedThroughCache(t *testing.T) {
	env := setupHandlerTestEnv(t)
	env.registerUser(t, "Asha Rao", "asha@example.com")
	token := env.adminToken(t)

	rec := env.doJSON(t, http.MethodGet, "/api/users/all", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "miss_populated", rec.Header().Get(CacheHeader))
	resp := decodeResponse(t, rec)
	require.Equal(t, "All registered users", resp.Message)
	require.Equal(t, 1, resp.Meta.Total)
	require.NotContains(t, rec.Body.String(), "password")

	rec = env.doJSON(t, http.MethodGet, "/api/users/all", nil, token)
	require.Equal(t, "hit", rec.Header().Get(CacheHeader))

	env.registerUser(t, "Ravi Kumar", "ravi@example.com")

	rec = env.doJSON(t, http.MethodGet, "/api/users/all", nil, token)
	require.Equal(t, "miss_populated", rec.Header().Get(CacheHeader))
	var users []models.UserSummary
	decodeData(t, rec, &users)
	require.Len(t, users, 2)
}

func TestUserHandlerGetAndDelete(t *testing.T) {
	env := setupHandlerTestEnv(t)
	user := env.registerUser(t, "Asha Rao", "asha@example.com")
	token := env.adminToken(t)

	rec := env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/users/%d", user.ID), nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched models.UserSummary
	decodeData(t, rec, &fetched)
	require.Equal(t, "asha@example.com", fetched.Email)

	rec = env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", user.ID), nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/users/%d", user.ID), nil, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "USER_NOT_FOUND", decodeResponse(t, rec).Error.Code)
}

func TestUserHandlerDeleteRefusesSelf(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.registerUser(t, "Site Admin", testAdminEmail)

	token, err := env.jwt.GenerateAccessToken(admin.ID, string(models.RoleAdmin))
	require.NoError(t, err)

	rec := env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", admin.ID), nil, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "You cannot delete your own account", decodeResponse(t, rec).Error.Message)
}
