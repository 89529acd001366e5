package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"time"

	"github.com/amirphl/Raijin/app/dto"
	"github.com/amirphl/Raijin/app/services"
	"github.com/amirphl/Raijin/repository"
	"github.com/amirphl/Raijin/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	IssueToken(c fiber.Ctx) error
	RefreshToken(c fiber.Ctx) error
}

// AuthHandler exchanges tenant API credentials for JWT token pairs
type AuthHandler struct {
	tenantRepo   repository.TenantRepository
	tokenService services.TokenService
	validator    *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(tenantRepo repository.TenantRepository, tokenService services.TokenService) *AuthHandler {
	return &AuthHandler{
		tenantRepo:   tenantRepo,
		tokenService: tokenService,
		validator:    validator.New(),
	}
}

func (h *AuthHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AuthHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// IssueToken exchanges a tenant UUID and API key for a token pair
// @Summary Issue Token
// @Description Exchange tenant credentials for an access and refresh token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.IssueTokenRequest true "Tenant credentials"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "Tokens issued"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials or inactive tenant"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/token [post]
func (h *AuthHandler) IssueToken(c fiber.Ctx) error {
	var req dto.IssueTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tenant, err := h.tenantRepo.ByUUID(ctx, req.TenantUUID)
	if err != nil {
		log.Println("Tenant lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Token issuance failed", "TOKEN_ISSUANCE_FAILED", nil)
	}
	// Constant-time key comparison, and the same error for an unknown tenant
	// and a wrong key.
	if tenant == nil || subtle.ConstantTimeCompare([]byte(tenant.APIKey), []byte(req.APIKey)) != 1 {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid tenant credentials", "INVALID_CREDENTIALS", nil)
	}
	if !utils.IsTrue(tenant.IsActive) {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant is inactive", "TENANT_INACTIVE", nil)
	}

	accessToken, refreshToken, err := h.tokenService.GenerateTokens(tenant.ID)
	if err != nil {
		log.Println("Token generation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Token issuance failed", "TOKEN_ISSUANCE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tokens issued successfully", dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	})
}

// RefreshToken rotates a refresh token into a new token pair
// @Summary Refresh Token
// @Description Exchange a valid refresh token for a new access and refresh token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "Tokens rotated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Expired or invalid refresh token"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	accessToken, refreshToken, err := h.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrTokenExpired) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Refresh token has expired", "TOKEN_EXPIRED", nil)
		}
		if errors.Is(err, services.ErrTokenInvalid) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid refresh token", "TOKEN_INVALID", nil)
		}

		log.Println("Token refresh failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Token refresh failed", "TOKEN_REFRESH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tokens refreshed successfully", dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	})
}
