package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/showsec/security-demo/internal/core/domain"
	"github.com/showsec/security-demo/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Username   string `json:"username" validate:"required,min=3"`
	Password   string `json:"password" validate:"required,min=6"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	EnableTOTP bool   `json:"enable_totp"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type verifyRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Code      string `json:"code" validate:"required,len=6,numeric"`
}

type challengeResponse struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type registerResponse struct {
	User       *domain.User `json:"user"`
	OTPAuthURL string       `json:"otpauth_url,omitempty"`
}

// outcomeResponse is the envelope every login call answers with.
type outcomeResponse struct {
	Outcome   domain.Outcome     `json:"outcome"`
	Message   string             `json:"message"`
	Token     string             `json:"token,omitempty"`
	Challenge *challengeResponse `json:"challenge,omitempty"`
}

// Register creates a new demo account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username:      req.Username,
		Password:      req.Password,
		Email:         req.Email,
		ProvisionTOTP: req.EnableTOTP,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, registerResponse{
		User:       result.User,
		OTPAuthURL: result.OTPAuthURL,
	})
}

// LoginLevel1 authenticates with the plaintext comparison demo flow.
//
// @Summary      Level 1 login (plaintext compare, no rate limit)
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  outcomeResponse
// @Failure      401   {object}  outcomeResponse
// @Router       /auth/login/level1 [post]
func (h *AuthHandler) LoginLevel1(c echo.Context) error {
	return h.login(c, h.authService.LoginLevel1)
}

// LoginLevel2 authenticates with the salted-hash + lockout flow.
//
// @Summary      Level 2 login (hash compare, attempt lockout)
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  outcomeResponse
// @Failure      401   {object}  outcomeResponse
// @Failure      423   {object}  outcomeResponse
// @Router       /auth/login/level2 [post]
func (h *AuthHandler) LoginLevel2(c echo.Context) error {
	return h.login(c, h.authService.LoginLevel2)
}

// LoginLevel3 runs the first factor of the two-step TOTP flow.
//
// @Summary      Level 3 login, step one (hash compare, then TOTP challenge)
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      202   {object}  outcomeResponse
// @Failure      401   {object}  outcomeResponse
// @Failure      423   {object}  outcomeResponse
// @Router       /auth/login/level3 [post]
func (h *AuthHandler) LoginLevel3(c echo.Context) error {
	return h.login(c, h.authService.LoginLevel3)
}

// Verify2FA completes a Level 3 attempt with the submitted one-time code.
//
// @Summary      Level 3 login, step two (TOTP verification)
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyRequest  true  "Continuation session id and code"
// @Success      200   {object}  outcomeResponse
// @Failure      401   {object}  outcomeResponse
// @Failure      423   {object}  outcomeResponse
// @Router       /auth/2fa/verify [post]
func (h *AuthHandler) Verify2FA(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.VerifyTOTP(c.Request().Context(), req.SessionID, req.Code)
	if err != nil {
		return err
	}
	return respondOutcome(c, result)
}

// Logout acknowledges a token discard. Sessions are stateless JWTs, so there
// is nothing to revoke server-side in this demo.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "session ended, discard your token"})
}

type loginFunc func(ctx context.Context, username, password string) (*ports.AuthResult, error)

func (h *AuthHandler) login(c echo.Context, authenticate loginFunc) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return respondOutcome(c, result)
}

// respondOutcome maps a decided attempt onto the HTTP surface:
// authenticated 200, awaiting second factor 202, locked 423 with Retry-After,
// everything else 401.
func respondOutcome(c echo.Context, result *ports.AuthResult) error {
	resp := outcomeResponse{
		Outcome: result.Outcome,
		Message: result.Message,
		Token:   result.Token,
	}
	if result.Challenge != nil {
		resp.Challenge = &challengeResponse{
			SessionID: result.Challenge.SessionID,
			ExpiresAt: result.Challenge.ExpiresAt,
		}
	}

	switch result.Outcome {
	case domain.OutcomeAuthenticated:
		return c.JSON(http.StatusOK, resp)
	case domain.OutcomeAwaitingSecondFactor:
		return c.JSON(http.StatusAccepted, resp)
	case domain.OutcomeLockedOut:
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(result.LockedFor.Seconds())))
		return c.JSON(http.StatusLocked, resp)
	default: // rejected, expired
		return c.JSON(http.StatusUnauthorized, resp)
	}
}
