package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/competition-livestream/internal/config"
	"github.com/iliyamo/competition-livestream/internal/middleware"
	"github.com/iliyamo/competition-livestream/internal/utils"
)

// AuthHandler authenticates the single admin account configured
// through the environment. There is no user table; judges and the
// stream operator share one credential pair.
type AuthHandler struct {
	Cfg config.Config
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks the credentials and mints a short-lived admin token.
// Wrong username and wrong password produce the same response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Username != h.Cfg.AdminUser || !utils.VerifyPassword(h.Cfg.AdminPassHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.Username, middleware.RoleAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
	})
}
