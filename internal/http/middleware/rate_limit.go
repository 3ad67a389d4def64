package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/gigmarket/internal/interface/http/response"
)

// RateLimitMiddleware ограничивает изменяющие запросы.
// Ключ берётся из токена, для анонимных запросов используется IP.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{
		Period: period,
		Limit:  limit,
	})

	return func(c *gin.Context) {
		if c.Request.Method == "GET" || c.Request.Method == "OPTIONS" {
			c.Next()
			return
		}

		key := c.ClientIP()
		if userID, ok := c.Get(ContextUserIDKey); ok {
			if id, ok := userID.(uuid.UUID); ok {
				key = "user:" + id.String()
			}
		}

		state, err := instance.Get(c, key)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(state.Reset, 10))

		if state.Reached {
			response.TooManyRequests(c, "слишком много запросов, попробуйте позже")
			return
		}

		c.Next()
	}
}
