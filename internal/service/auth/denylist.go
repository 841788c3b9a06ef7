package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const denylistPrefix = "revoked:"

// Denylist tracks revoked access tokens in Redis. Entries expire with the
// token itself, so the set never grows past the live token window.
type Denylist struct {
	client *redis.Client
	logger *zap.Logger
}

func NewDenylist(client *redis.Client, logger *zap.Logger) *Denylist {
	return &Denylist{
		client: client,
		logger: logger,
	}
}

func denylistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return denylistPrefix + hex.EncodeToString(sum[:])
}

// Revoke marks a token as unusable until its natural expiry.
func (d *Denylist) Revoke(ctx context.Context, token string, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistKey(token), "1", ttl).Err()
}

// IsRevoked reports whether a token has been revoked. A Redis failure is
// logged and treated as not revoked so auth stays available.
func (d *Denylist) IsRevoked(ctx context.Context, token string) bool {
	n, err := d.client.Exists(ctx, denylistKey(token)).Result()
	if err != nil {
		d.logger.Warn("Denylist check failed", zap.Error(err))
		return false
	}
	return n > 0
}
