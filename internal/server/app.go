// Package server wires the memorial board together: configuration, the
// PostgreSQL store, collaborators and the HTTP transport. It also handles
// OS signals and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/dmitrijs2005/memorialboard/internal/logging"
	"github.com/dmitrijs2005/memorialboard/internal/server/auth"
	"github.com/dmitrijs2005/memorialboard/internal/server/captcha"
	"github.com/dmitrijs2005/memorialboard/internal/server/config"
	"github.com/dmitrijs2005/memorialboard/internal/server/httpapi"
	"github.com/dmitrijs2005/memorialboard/internal/server/limiter"
	"github.com/dmitrijs2005/memorialboard/internal/server/media"
	"github.com/dmitrijs2005/memorialboard/internal/server/notify"
	"github.com/dmitrijs2005/memorialboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/memorialboard/internal/server/services"
	"github.com/redis/go-redis/v9"
)

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      redis.UniversalClient
	moderation *services.ModerationService
	http       *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	codec, err := auth.NewSessionCodec(sessionSecret(ctx, c, logger))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var images media.Host
	if c.S3AccessKey != "" {
		host, err := media.NewS3Host(ctx, media.S3Options{
			Region:       c.S3Region,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
			PublicURL:    c.S3PublicURL,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("image store init error: %w", err)
		}
		images = host
	} else {
		logger.Warn(ctx, "S3 credentials not set, image uploads are disabled")
	}

	notifier, err := newNotifier(c, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("notifier init error: %w", err)
	}

	var loginLimiter limiter.LoginLimiter
	loginLimiter, app.redis = newLoginLimiter(c)

	approvers := services.NewApproverService(db, rm, c, codec, loginLimiter, logger)

	app.moderation = services.NewModerationService(db, rm, c, services.Collaborators{
		Tokens:   auth.NewTokenIssuer(nil),
		Captcha:  captcha.NewTurnstile(c.TurnstileSecret, c.TurnstileVerifyURL, &http.Client{Timeout: 10 * time.Second}),
		Images:   images,
		Notifier: notifier,
	}, logger)

	gate := auth.NewGate(codec, approvers, logger)

	app.http = httpapi.NewServer(app.moderation, approvers, gate, httpapi.Options{
		SecureCookie: c.Production,
		MaxBodyBytes: maxBodyBytes(c.MaxImageBytes),
	}, logger)

	return app, nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// sessionSecret returns the configured secret, or a random per-process one
// outside production. Validate already refused production without one.
func sessionSecret(ctx context.Context, c *config.Config, logger logging.Logger) []byte {
	if c.SessionSecret != "" {
		return []byte(c.SessionSecret)
	}
	logger.Warn(ctx, "SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
	return common.GenerateRandByteArray(config.MinSessionSecretLength)
}

// newLoginLimiter picks Redis when configured and an in-process limiter
// otherwise. The returned client is nil for the latter.
func newLoginLimiter(c *config.Config) (limiter.LoginLimiter, redis.UniversalClient) {
	if c.RedisAddr == "" {
		return limiter.NewMemoryLimiter(c.LoginMaxAttempts, c.LoginWindow), nil
	}
	client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	return limiter.NewRedisLimiter(client, c.LoginMaxAttempts, c.LoginWindow), client
}

// newNotifier sends through Resend when an API key is configured and only
// logs notifications otherwise.
func newNotifier(c *config.Config, logger logging.Logger) (notify.Notifier, error) {
	if c.ResendAPIKey == "" {
		return notify.NewLogNotifier(logger), nil
	}
	return notify.NewResendNotifier(notify.ResendOptions{
		APIKey:     c.ResendAPIKey,
		From:       c.MailFrom,
		BaseURL:    c.ResendBaseURL,
		HTTPClient: &http.Client{Timeout: c.NotifyTimeout},
	})
}

// maxBodyBytes leaves room for base64 overhead and the JSON envelope.
func maxBodyBytes(maxImage int64) int64 {
	return maxImage*4/3 + 64<<10
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// drains pending notifications and releases resources.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	err := app.http.Run(ctx, app.config.HTTPAddr, app.config.ShutdownTimeout)
	if err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
	}

	app.moderation.Wait()
	app.close(ctx)

	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close failed", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
}
