// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field maps to an
// environment variable; required variables are enforced by must() and
// halt startup when missing.
type Config struct {
	Env  string // application environment (dev/test/prod)
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	JWTSecret    string // secret used to sign admin tokens
	AccessTTLMin int    // admin token time-to-live in minutes

	AdminUser     string // login of the single admin account
	AdminPassHash string // bcrypt hash of the admin password

	// Web Push (VAPID). Empty keys disable the web channel.
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string // mailto: or https: contact URI

	// Firebase Cloud Messaging. Empty path disables the fcm channel.
	FCMCredentialsFile string

	// RabbitMQ broker URL. Empty means reminders are dispatched
	// in-process instead of through the queue.
	RabbitURL string

	SchedulerInterval time.Duration // status sweep cadence

	WeatherLatitude  string
	WeatherLongitude string
}

// Load reads configuration from the environment and returns a Config.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),

		AdminUser:     must("ADMIN_USER"),
		AdminPassHash: must("ADMIN_PASS_HASH"),

		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    envStr("VAPID_SUBJECT", "mailto:admin@localhost"),

		FCMCredentialsFile: os.Getenv("FCM_CREDENTIALS_FILE"),

		RabbitURL: os.Getenv("RABBITMQ_URL"),

		SchedulerInterval: envDur("SCHEDULER_INTERVAL", 30*time.Second),

		WeatherLatitude:  envStr("WEATHER_LATITUDE", "48.8566"),
		WeatherLongitude: envStr("WEATHER_LONGITUDE", "2.3522"),
	}
}

// must retrieves a required environment variable, exiting with a fatal
// log message when it is unset or empty.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
