package handlers

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthHandlerRegisterAndLogin(t *testing.T) {
	env := setupHandlerTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Site Admin",
		"email":    testAdminEmail,
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	require.Equal(t, "User registered successfully", resp.Message)

	var user struct {
		ID    uint   `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	decodeData(t, rec, &user)
	require.Equal(t, "ADMIN", user.Role)
	require.NotZero(t, user.ID)

	rec = env.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    testAdminEmail,
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token       string `json:"token"`
		Role        string `json:"role"`
		RedirectURL string `json:"redirectUrl"`
	}
	decodeData(t, rec, &login)
	require.NotEmpty(t, login.Token)
	require.Equal(t, "/admin", login.RedirectURL)

	claims, err := env.jwt.ValidateAccessToken(login.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
}

func TestAuthHandlerRegisterRejectsInvalidPayload(t *testing.T) {
	env := setupHandlerTestEnv(t)

	cases := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{
			name:    "weak password",
			body:    map[string]string{"name": "Asha Rao", "email": "asha@example.com", "password": "password"},
			message: "password must be at least 6 characters",
		},
		{
			name:    "digits in name",
			body:    map[string]string{"name": "Asha 2", "email": "asha@example.com", "password": testPassword},
			message: "name can only contain letters and spaces",
		},
		{
			name:    "missing email",
			body:    map[string]string{"name": "Asha Rao", "password": testPassword},
			message: "email is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodPost, "/api/auth/register", tc.body, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeResponse(t, rec)
			require.False(t, resp.Success)
			require.Equal(t, "BAD_REQUEST", resp.Error.Code)
			require.Contains(t, resp.Error.Message, tc.message)
			require.NotNil(t, resp.Error.Details)
		})
	}
}

func TestAuthHandlerRegisterDuplicateEmail(t *testing.T) {
	env := setupHandlerTestEnv(t)
	body := map[string]string{"name": "Asha Rao", "email": "asha@example.com", "password": testPassword}

	require.Equal(t, http.StatusCreated, env.doJSON(t, http.MethodPost, "/api/auth/register", body, "").Code)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "EMAIL_TAKEN", decodeResponse(t, rec).Error.Code)
}

func TestAuthHandlerLoginFailures(t *testing.T) {
	env := setupHandlerTestEnv(t)
	env.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Asha Rao", "email": "asha@example.com", "password": testPassword,
	}, "")

	rec := env.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nobody@example.com", "password": testPassword,
	}, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "asha@example.com", "password": "Wrong@123",
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_CREDENTIALS", decodeResponse(t, rec).Error.Code)
}

var mailedOTP = regexp.MustCompile(`<b>(\d{4})</b>`)

func TestAuthHandlerPasswordResetFlow(t *testing.T) {
	env := setupHandlerTestEnv(t)
	env.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Asha Rao", "email": "asha@example.com", "password": testPassword,
	}, "")

	rec := env.doJSON(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "asha@example.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OTP sent to email", decodeResponse(t, rec).Message)
	require.Len(t, env.mailer.sent, 1)
	match := mailedOTP.FindStringSubmatch(env.mailer.sent[0].Body)
	require.Len(t, match, 2)

	rec = env.doJSON(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "asha@example.com", "otp": "12"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeResponse(t, rec).Error.Message, "otp must be a 4-digit number")

	rec = env.doJSON(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "asha@example.com", "otp": match[1]}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var verified struct {
		Token string `json:"token"`
	}
	decodeData(t, rec, &verified)
	require.NotEmpty(t, verified.Token)

	rec = env.doJSON(t, http.MethodPost, "/api/auth/reset-password/"+verified.Token, map[string]string{"newPassword": "Changed#456"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Password reset successfully", decodeResponse(t, rec).Message)

	rec = env.doJSON(t, http.MethodPost, "/api/auth/reset-password/"+verified.Token, map[string]string{"newPassword": "Replayed#789"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "RESET_TOKEN_INVALID", decodeResponse(t, rec).Error.Code)

	rec = env.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "asha@example.com", "password": "Changed#456",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandlerResetPasswordRejectsBadToken(t *testing.T) {
	env := setupHandlerTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/auth/reset-password/not-a-token", map[string]string{"newPassword": "Changed#456"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "RESET_TOKEN_INVALID", decodeResponse(t, rec).Error.Code)
}
