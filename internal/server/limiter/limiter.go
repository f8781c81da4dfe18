// Package limiter throttles failed admin logins per e-mail and client IP.
package limiter

import (
	"context"
	"strings"
)

// LoginLimiter counts failed login attempts within a window.
type LoginLimiter interface {
	// Check returns common.ErrRateLimited once the budget for key is spent.
	Check(ctx context.Context, key string) error
	// Fail records a failed attempt.
	Fail(ctx context.Context, key string) error
	// Reset forgets the attempts for key after a successful login.
	Reset(ctx context.Context, key string) error
}

// LoginKey combines the normalised e-mail and client IP into a limiter key.
func LoginKey(email, ip string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "|" + strings.TrimSpace(ip)
}
