package port

import (
	"context"
	"time"
)

type CacheRepository interface {
	// Get loads the JSON value stored under key into dest. The bool reports
	// whether the key was present.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores val as JSON under key with the given expiry.
	Set(ctx context.Context, key string, val any, ttl time.Duration) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
}
