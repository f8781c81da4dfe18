package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envFiles are loaded into the process environment before it is read.
// Variables already set in the environment win over file values.
var envFiles = []string{".env"}

// parseEnv overlays config with environment variables. Unset or empty
// variables leave the current value; malformed numbers, booleans and
// durations panic, matching the JSON and flag layers.
func parseEnv(config *Config) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			panic(err)
		}
	}

	envString(&config.HTTPAddr, "HTTP_ADDR")
	envString(&config.PublicBaseURL, "PUBLIC_BASE_URL")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SessionSecret, "SESSION_SECRET")
	envString(&config.BootstrapSecret, "BOOTSTRAP_SECRET")
	envBool(&config.Production, "PRODUCTION")
	envString(&config.LinkPolicy, "LINK_POLICY")
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.TurnstileSecret, "TURNSTILE_SECRET_KEY")
	envString(&config.TurnstileVerifyURL, "TURNSTILE_VERIFY_URL")
	envString(&config.ResendAPIKey, "RESEND_API_KEY")
	envString(&config.ResendBaseURL, "RESEND_BASE_URL")
	envString(&config.MailFrom, "MAIL_FROM")
	envString(&config.NotifyFallbackEmail, "ADMIN_EMAIL")
	envDuration(&config.NotifyTimeout, "NOTIFY_TIMEOUT")
	envString(&config.S3AccessKey, "S3_ACCESS_KEY")
	envString(&config.S3SecretKey, "S3_SECRET_KEY")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.S3PublicURL, "S3_PUBLIC_URL")
	if v, ok := lookup("MAX_IMAGE_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		config.MaxImageBytes = n
	}
	envString(&config.RedisAddr, "REDIS_ADDR")
	envInt(&config.LoginMaxAttempts, "LOGIN_MAX_ATTEMPTS")
	envDuration(&config.LoginWindow, "LOGIN_WINDOW")
	envDuration(&config.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func envString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func envInt(dst *int, name string) {
	if v, ok := lookup(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		*dst = n
	}
}

func envBool(dst *bool, name string) {
	if v, ok := lookup(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		*dst = b
	}
}

func envDuration(dst *time.Duration, name string) {
	if v, ok := lookup(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}
}
