// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/competition-livestream/internal/handler"
	"github.com/iliyamo/competition-livestream/internal/middleware"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Auth          *handler.AuthHandler
	Public        *handler.PublicHandler
	Notifications *handler.NotificationHandler
	Weather       *handler.WeatherHandler
	Socket        *handler.SocketHandler
	AdminStatus   *handler.AdminStatusHandler
	AdminScore    *handler.AdminScoreHandler
	AdminStream   *handler.AdminStreamHandler
	AdminSeed     *handler.AdminSeedHandler
	AdminExport   *handler.AdminExportHandler
	AdminStats    *handler.AdminStatsHandler
}

// RegisterRoutes registers the health check and the websocket upgrade.
// Neither goes through the response cache: one is trivial, the other
// is a long-lived connection.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", handler.Health)
	e.GET("/ws", h.Socket.Serve)
}

// RegisterPublic registers the unauthenticated read API. cached is the
// short-TTL Redis response cache for schedule data; weatherCached holds
// the upstream weather response much longer.
func RegisterPublic(e *echo.Echo, h Handlers, cached, weatherCached echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/schedule", h.Public.GetSchedule, cached)
	g.GET("/live", h.Public.GetLive)
	g.GET("/results", h.Public.GetResults, cached)
	g.GET("/streams", h.Public.GetStreams, cached)
	g.GET("/streams/:id", h.Public.GetStreamByID)
	g.GET("/weather", h.Weather.GetWeather, weatherCached)

	g.GET("/notifications/vapid-public-key", h.Notifications.VAPIDPublicKeyHandler)
	g.POST("/notifications/subscribe", h.Notifications.Subscribe)
	g.PUT("/notifications/sync", h.Notifications.SyncFavorites)
}

// RegisterAdmin registers the login endpoint and the protected admin
// API. Every mutation requires a valid admin token.
func RegisterAdmin(e *echo.Echo, h Handlers, jwtSecret string) {
	e.POST("/v1/auth/login", h.Auth.Login)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))

	admin.PUT("/passages/:id/status", h.AdminStatus.UpdateStatus)
	admin.PUT("/passages/:id/score", h.AdminScore.UpdateScore)
	admin.PATCH("/streams/:id", h.AdminStream.UpdateStream)
	admin.POST("/seed", h.AdminSeed.Seed)
	admin.GET("/results/export", h.AdminExport.ExportResults)
	admin.GET("/stats", h.AdminStats.GetStats)
}
