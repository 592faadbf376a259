// Package blacklist answers one question during registration: is this email
// address on a karma blacklist? The production lookup requires KYC and is a
// paid request, so the default implementation is a stub behind the same
// interface.
package blacklist

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cradoe/lenda/internal/cache"
	"github.com/redis/go-redis/v9"
)

// Checker reports whether an email address is blacklisted. True means reject.
type Checker interface {
	Check(ctx context.Context, email string) (bool, error)
}

// Stub verdict policies.
const (
	ModeAllow  = "allow"
	ModeDeny   = "deny"
	ModeRandom = "random"
)

const verdictTTL = 24 * time.Hour

// KarmaStub stands in for the external karma lookup. Verdicts are cached in
// redis so a given email keeps a stable answer even under the random policy.
type KarmaStub struct {
	mode   string
	cache  *cache.Cache
	logger *slog.Logger
}

func NewKarmaStub(mode string, cache *cache.Cache, logger *slog.Logger) *KarmaStub {
	return &KarmaStub{
		mode:   mode,
		cache:  cache,
		logger: logger,
	}
}

func (k *KarmaStub) Check(ctx context.Context, email string) (bool, error) {
	key := "blacklist:" + email

	if k.cache != nil {
		verdict, err := k.cache.Get(ctx, key)
		if err == nil {
			return verdict == "deny", nil
		}
		if !errors.Is(err, redis.Nil) {
			// a cache outage must not block registrations
			k.logger.Warn("blacklist cache read failed", "error", err)
		}
	}

	var denied bool
	switch k.mode {
	case ModeDeny:
		denied = true
	case ModeRandom:
		denied = rand.IntN(2) == 0
	default:
		denied = false
	}

	if k.cache != nil {
		verdict := "allow"
		if denied {
			verdict = "deny"
		}
		if err := k.cache.Set(ctx, key, verdict, verdictTTL); err != nil {
			k.logger.Warn("blacklist cache write failed", "error", err)
		}
	}

	return denied, nil
}
