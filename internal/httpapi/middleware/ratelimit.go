package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/brainwave-ai/gateway/internal/common"
	"github.com/brainwave-ai/gateway/internal/sysconfig"
)

// Counter is the slice of the cache store the rate limiter needs. All
// increments are backend-atomic.
type Counter interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// ConfigLoader loads the tenant-wide system configuration.
type ConfigLoader interface {
	Load(ctx context.Context) (sysconfig.Config, error)
}

// RateLimit enforces a fixed-window usage counter keyed by user and request
// path. The window is armed only on the increment that creates the counter;
// later increments inside the window never extend it, so the window resets
// only when the key fully expires.
//
// Tiers 0 and 1 compare against their configured limits. Any other tier is
// denied: an unrecognized tier failing open would make a misconfigured
// profile unlimited.
func RateLimit(counters Counter, configs ConfigLoader) Factory {
	return func(next Handler) Handler {
		return func(c *gin.Context) {
			user, ok := UserFromContext(c)
			if !ok || user.Tier == nil {
				common.Fail(c, http.StatusUnauthorized, "not_authenticated")
				return
			}

			ctx := c.Request.Context()
			key := user.ID + ":" + c.Request.URL.Path

			// The config entry and the counter are independent lookups.
			var (
				cfg        sysconfig.Config
				rawCount   string
				hasCounter bool
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				cfg, err = configs.Load(gctx)
				return err
			})
			g.Go(func() error {
				var err error
				rawCount, hasCounter, err = counters.Get(gctx, key)
				return err
			})
			if err := g.Wait(); err != nil {
				common.Fail(c, http.StatusInternalServerError, "error processing your request")
				return
			}

			if hasCounter {
				count, err := strconv.Atoi(rawCount)
				if err != nil {
					common.Fail(c, http.StatusInternalServerError, "error processing your request")
					return
				}

				var limit int
				switch *user.Tier {
				case 0:
					limit, err = cfg.FreeMessageLimit()
				case 1:
					limit, err = cfg.Tier1MessageLimit()
				default:
					common.Fail(c, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
				if err != nil {
					common.Fail(c, http.StatusNotFound, err.Error())
					return
				}

				if count > limit {
					common.Fail(c, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
			}

			n, err := counters.Incr(ctx, key)
			if err != nil {
				common.Fail(c, http.StatusInternalServerError, "error processing your request")
				return
			}
			if n == 1 {
				// This increment created the counter; arm its window. The
				// free-tier period is the window length for every tier, as
				// configured.
				period, err := cfg.FreeLimitPeriod()
				if err != nil {
					common.Fail(c, http.StatusNotFound, err.Error())
					return
				}
				if err := counters.Expire(ctx, key, period); err != nil {
					common.Fail(c, http.StatusInternalServerError, "error processing your request")
					return
				}
			}

			next(c)
		}
	}
}
