package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/catalog/internal/services"
	"github.com/charlesng35/catalog/pkg/response"
)

// AuthHandler exposes registration, login and the password reset flow.
type AuthHandler struct {
	svc *services.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=50,personname"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,otp"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,password"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.Register(requestContext(c), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Success: true,
		Message: "User registered successfully",
		Data:    user,
	})
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.svc.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Success: true,
		Message: "Login successful",
		Data: gin.H{
			"token":       result.Token,
			"role":        result.Role,
			"redirectUrl": result.RedirectURL,
			"expiresIn":   int(result.ExpiresIn.Seconds()),
		},
	})
}

// ForgotPassword POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.svc.ForgotPassword(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "OTP sent to email")
}

// VerifyOTP POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}

	token, err := h.svc.VerifyOTP(requestContext(c), req.Email, req.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Success: true,
		Message: "OTP verified",
		Data:    gin.H{"token": token},
	})
}

// ResetPassword POST /api/auth/reset-password/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.svc.ResetPassword(requestContext(c), c.Param("token"), req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Password reset successfully")
}
