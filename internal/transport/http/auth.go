package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

type AuthHTTP struct {
	Svc *service.IdentityService
}

func setSession(c echo.Context, res *service.LoginResult) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp))
}

func loginResponse(res *service.LoginResult) transport.LoginResponse {
	return transport.LoginResponse{AccessToken: res.AccessToken, TokenType: "bearer", User: res.User}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register", "invalid body", err)
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		return serviceError(l, "register", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login", "invalid body", err)
	}
	return h.login(c, req)
}

// Token accepts the OAuth2 password form (username, password).
func (h *AuthHTTP) Token(c echo.Context) error {
	return h.login(c, transport.LoginRequest{
		Email:    c.FormValue("username"),
		Password: c.FormValue("password"),
	})
}

func (h *AuthHTTP) login(c echo.Context, req transport.LoginRequest) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			c.Response().Header().Set("WWW-Authenticate", "Bearer")
		}
		return serviceError(l, "login", err)
	}

	setSession(c, res)
	l.Info("login_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, loginResponse(res))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	cookie, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || cookie.Value == "" {
		l.Warn("refresh_error", "status", 401, "reason", "refresh cookie missing")
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	res, err := h.Svc.Refresh(ctx, cookie.Value)
	if err != nil {
		c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
		c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
		return serviceError(l, "refresh", err)
	}

	setSession(c, res)
	return c.JSON(http.StatusOK, loginResponse(res))
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if cookie, err := c.Cookie(tokens.RefreshCookie); err == nil {
		if err := h.Svc.LogOut(ctx, cookie.Value); err != nil {
			l.Error("logout_failed", "status", 500, "reason", "cannot revoke refreshToken", "error", err)
		}
	}

	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "logged out"})
}

func (h *AuthHTTP) GoogleLogin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.google_login")

	var req transport.GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "google_login", "invalid body", err)
	}

	res, err := h.Svc.FederatedLogin(ctx, req.Token)
	if err != nil {
		return serviceError(l, "google_login", err)
	}

	setSession(c, res)
	return c.JSON(http.StatusOK, loginResponse(res))
}

func (h *AuthHTTP) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.forgot_password")

	var req transport.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "forgot_password", "invalid body", err)
	}

	if err := h.Svc.ForgotPassword(ctx, req.Email); err != nil {
		if errors.Is(err, service.ErrValidation) {
			return serviceError(l, "forgot_password", err)
		}
		// the answer must not reveal whether the account exists
		l.Error("forgot_password_error", "status", 200, "reason", "cannot issue token", "error", err)
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: forgotPasswordMessage})
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.reset_password")

	var req transport.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "reset_password", "invalid body", err)
	}

	if err := h.Svc.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return badRequest(l, "reset_password", "Invalid or expired token", err)
		}
		return serviceError(l, "reset_password", err)
	}

	l.Info("reset_password_success")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Password updated successfully."})
}
