package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/memorialboard/internal/flagx"
	"github.com/dmitrijs2005/memorialboard/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
// Zero values leave the current setting untouched.
type JsonConfig struct {
	HTTPAddr            string         `json:"http_addr"`
	PublicBaseURL       string         `json:"public_base_url"`
	DatabaseDSN         string         `json:"database_dsn"`
	SessionSecret       string         `json:"session_secret"`
	BootstrapSecret     string         `json:"bootstrap_secret"`
	Production          *bool          `json:"production"`
	LinkPolicy          string         `json:"link_policy"`
	LogLevel            string         `json:"log_level"`
	TurnstileSecret     string         `json:"turnstile_secret"`
	TurnstileVerifyURL  string         `json:"turnstile_verify_url"`
	ResendAPIKey        string         `json:"resend_api_key"`
	ResendBaseURL       string         `json:"resend_base_url"`
	MailFrom            string         `json:"mail_from"`
	NotifyFallbackEmail string         `json:"notify_fallback_email"`
	NotifyTimeout       timex.Duration `json:"notify_timeout"`
	S3AccessKey         string         `json:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	S3PublicURL         string         `json:"s3_public_url"`
	MaxImageBytes       int64          `json:"max_image_bytes"`
	RedisAddr           string         `json:"redis_addr"`
	LoginMaxAttempts    int            `json:"login_max_attempts"`
	LoginWindow         timex.Duration `json:"login_window"`
	ShutdownTimeout     timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads the file named by -c/-config, if any, into config.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SessionSecret, c.SessionSecret)
	setString(&config.BootstrapSecret, c.BootstrapSecret)
	if c.Production != nil {
		config.Production = *c.Production
	}
	setString(&config.LinkPolicy, c.LinkPolicy)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.TurnstileSecret, c.TurnstileSecret)
	setString(&config.TurnstileVerifyURL, c.TurnstileVerifyURL)
	setString(&config.ResendAPIKey, c.ResendAPIKey)
	setString(&config.ResendBaseURL, c.ResendBaseURL)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.NotifyFallbackEmail, c.NotifyFallbackEmail)
	if c.NotifyTimeout.Duration != 0 {
		config.NotifyTimeout = c.NotifyTimeout.Duration
	}
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)
	if c.MaxImageBytes != 0 {
		config.MaxImageBytes = c.MaxImageBytes
	}
	setString(&config.RedisAddr, c.RedisAddr)
	if c.LoginMaxAttempts != 0 {
		config.LoginMaxAttempts = c.LoginMaxAttempts
	}
	if c.LoginWindow.Duration != 0 {
		config.LoginWindow = c.LoginWindow.Duration
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
