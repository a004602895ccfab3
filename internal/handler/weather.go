package handler

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// WeatherHandler proxies current conditions for the venue from
// Open-Meteo so the public site shows them without a client-side CORS
// hop. The route sits behind the response cache, so the upstream sees
// at most one request per cache TTL.
type WeatherHandler struct {
	Latitude  string
	Longitude string
	Log       *zap.Logger

	client *resty.Client
}

// NewWeatherHandler builds a handler with a shared resty client.
func NewWeatherHandler(lat, lon string, log *zap.Logger) *WeatherHandler {
	client := resty.New().
		SetBaseURL("https://api.open-meteo.com").
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(300 * time.Millisecond)
	return &WeatherHandler{Latitude: lat, Longitude: lon, Log: log, client: client}
}

type weatherResponse struct {
	Current struct {
		Temperature   float64 `json:"temperature_2m"`
		Precipitation float64 `json:"precipitation"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		WeatherCode   int     `json:"weather_code"`
	} `json:"current"`
}

// GetWeather handles GET /v1/weather.
func (h *WeatherHandler) GetWeather(c echo.Context) error {
	var out weatherResponse
	resp, err := h.client.R().
		SetContext(c.Request().Context()).
		SetQueryParams(map[string]string{
			"latitude":  h.Latitude,
			"longitude": h.Longitude,
			"current":   "temperature_2m,precipitation,wind_speed_10m,weather_code",
		}).
		SetResult(&out).
		Get("/v1/forecast")
	if err != nil {
		h.Log.Warn("weather upstream failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "weather unavailable"})
	}
	if resp.IsError() {
		h.Log.Warn("weather upstream error", zap.Int("status", resp.StatusCode()))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "weather unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"temperature":   out.Current.Temperature,
		"precipitation": out.Current.Precipitation,
		"wind_speed":    out.Current.WindSpeed,
		"weather_code":  out.Current.WeatherCode,
	})
}
