package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit is a fixed window budget. Each Bucket counts separately so cheap
// reads do not eat into the budget of expensive audio renders.
type RateLimit struct {
	Bucket string
	Limit  int
	Window time.Duration
}

var (
	AuthRateLimit  = RateLimit{Bucket: "auth", Limit: 10, Window: time.Minute}
	AudioRateLimit = RateLimit{Bucket: "audio", Limit: 30, Window: time.Minute}
	APIRateLimit   = RateLimit{Bucket: "api", Limit: 120, Window: time.Minute}
)

// rateLimitSubject keys authenticated requests by user, anything else by IP.
func rateLimitSubject(c *gin.Context) string {
	if userID, ok := GetUserID(c); ok && userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

func RateLimiterMiddleware(rdb *redis.Client, rule RateLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("rate_limit:%s:%s", rule.Bucket, rateLimitSubject(c))

		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, rule.Window)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			log.Printf("[RATE] Redis error, %s limiter skipped: %v", rule.Bucket, err)
			c.Next()
			return
		}

		count := incr.Val()
		retryIn := ttl.Val()
		if retryIn <= 0 {
			retryIn = rule.Window
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(rule.Limit)-count), 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(retryIn).Unix(), 10))

		if count > int64(rule.Limit) {
			c.Header("Retry-After", strconv.Itoa(int(retryIn.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests, slow down",
				"retry_in_s": int(retryIn.Seconds()),
			})
			return
		}

		c.Next()
	}
}
