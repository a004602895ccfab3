package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/repository"
)

// maxFavorites bounds how many passages one subscription can follow.
const maxFavorites = 50

// NotificationHandler manages push subscriptions and their favorites.
type NotificationHandler struct {
	Subs           *repository.SubscriptionRepo
	VAPIDPublicKey string
	Log            *zap.Logger
}

type subscribeRequest struct {
	Type     string `json:"type"`
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	Favorites []string `json:"favorites"`
}

// Subscribe handles POST /v1/notifications/subscribe. The endpoint is
// the natural key: re-subscribing updates keys and favorites in place.
func (h *NotificationHandler) Subscribe(c echo.Context) error {
	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Type == "" {
		req.Type = model.ChannelWeb
	}
	if err := validateSubscription(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	sub := &model.Subscription{
		ID:        model.NewID(),
		Type:      req.Type,
		Endpoint:  req.Endpoint,
		KeyP256dh: req.Keys.P256dh,
		KeyAuth:   req.Keys.Auth,
	}
	ctx := c.Request().Context()
	if err := h.Subs.Upsert(ctx, sub); err != nil {
		h.Log.Error("subscription upsert failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if req.Favorites != nil {
		if err := h.Subs.ReplaceFavorites(ctx, req.Endpoint, req.Favorites); err != nil {
			h.Log.Error("favorites replace failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "subscribed"})
}

type syncRequest struct {
	Endpoint  string   `json:"endpoint"`
	Favorites []string `json:"favorites"`
}

// SyncFavorites handles PUT /v1/notifications/sync, replacing the
// favorites list of an existing subscription.
func (h *NotificationHandler) SyncFavorites(c echo.Context) error {
	var req syncRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Endpoint == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "endpoint required"})
	}
	if err := validateFavorites(req.Favorites); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	if _, err := h.Subs.GetByEndpoint(ctx, req.Endpoint); err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "subscription not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Subs.ReplaceFavorites(ctx, req.Endpoint, req.Favorites); err != nil {
		h.Log.Error("favorites replace failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "synced", "count": len(req.Favorites)})
}

// VAPIDPublicKeyHandler handles GET /v1/notifications/vapid-public-key so
// browsers can subscribe without the key baked into the frontend.
func (h *NotificationHandler) VAPIDPublicKeyHandler(c echo.Context) error {
	if h.VAPIDPublicKey == "" {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "web push not configured"})
	}
	return c.JSON(http.StatusOK, echo.Map{"public_key": h.VAPIDPublicKey})
}

func validateSubscription(req *subscribeRequest) error {
	switch req.Type {
	case model.ChannelWeb:
		u, err := url.Parse(req.Endpoint)
		if err != nil || u.Host == "" {
			return errors.New("invalid endpoint")
		}
		// Push services are HTTPS-only; plain HTTP is allowed for
		// localhost development endpoints.
		if u.Scheme != "https" && !(u.Scheme == "http" && isLoopbackHost(u.Hostname())) {
			return errors.New("endpoint must be https")
		}
		if req.Keys.P256dh == "" || req.Keys.Auth == "" {
			return errors.New("missing encryption keys")
		}
	case model.ChannelFCM:
		if strings.TrimSpace(req.Endpoint) == "" {
			return errors.New("missing device token")
		}
	default:
		return errors.New("unknown subscription type")
	}
	return validateFavorites(req.Favorites)
}

func validateFavorites(favorites []string) error {
	if len(favorites) > maxFavorites {
		return errors.New("too many favorites")
	}
	for _, id := range favorites {
		if !model.IsID(id) {
			return errors.New("invalid favorite id")
		}
	}
	return nil
}

func isLoopbackHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
