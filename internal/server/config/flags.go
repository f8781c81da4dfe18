package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/memorialboard/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string            HTTP bind address (e.g., ":8080")
//	-u string            public base URL used in moderation links
//	-d string            PostgreSQL DSN
//	-s string            session secret
//	-bootstrap-secret    first-admin bootstrap secret
//	-link-policy string  flip | once
//	-production          enable production checks and secure cookies
//	-redis string        Redis address for the login limiter
//	-login-window int    login limiter window, minutes
//	-b string            S3 bucket name
//	-e string            S3 base endpoint
//	-log-level string    debug | info | warn | error
//
// os.Args is filtered through flagx first so flags owned by other loaders
// (-c/-config) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgsWithBools(os.Args[1:],
		[]string{"-a", "-u", "-d", "-s", "-bootstrap-secret", "-link-policy", "-redis", "-login-window", "-b", "-e", "-log-level"},
		[]string{"-production"},
	)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.PublicBaseURL, "u", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session secret")
	fs.StringVar(&config.BootstrapSecret, "bootstrap-secret", config.BootstrapSecret, "bootstrap secret")
	fs.StringVar(&config.LinkPolicy, "link-policy", config.LinkPolicy, "moderation link policy (flip|once)")
	fs.BoolVar(&config.Production, "production", config.Production, "production mode")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address for login throttling")

	loginWindow := fs.Int("login-window", int(config.LoginWindow.Minutes()), "login limiter window (in minutes)")

	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.LoginWindow = time.Duration(*loginWindow) * time.Minute
}
