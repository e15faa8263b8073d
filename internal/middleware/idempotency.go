package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"leaveflow/internal/shared/apperror"
	"leaveflow/internal/shared/response"
)

const (
	idempotencyLockTTL  = 30 * time.Second
	idempotencyCacheTTL = 24 * time.Hour
)

// responseRecorder tees the handler's body so a successful response can be
// cached for replay.
type responseRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the cached response for a repeated Idempotency-Key and
// rejects a concurrent duplicate while the first attempt is still in flight.
// The lock uses SetNX so two replicas cannot both accept the same key; a
// successful response is cached under the key and the lock dropped, so a
// client retry after a timeout gets the original body instead of a second
// execution.
func Idempotency(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempKey := c.GetHeader("Idempotency-Key")
		if idempKey == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		employeeID := c.GetString("employee_id")
		cacheKey := fmt.Sprintf("idemp:%s:%s:%s", c.FullPath(), employeeID, idempKey)
		lockKey := cacheKey + ":lock"

		if cached, err := rdb.Get(c.Request.Context(), cacheKey).Result(); err == nil && cached != "" {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			c.Abort()
			return
		}

		locked, _ := rdb.SetNX(c.Request.Context(), lockKey, "locked", idempotencyLockTTL).Result()
		if !locked {
			response.Error(c, http.StatusConflict, apperror.CodeConflict,
				"A request with this idempotency key is still being processed", nil)
			c.Abort()
			return
		}

		rec := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		ctx := c.Request.Context()
		if status := rec.Status(); status >= http.StatusOK && status < http.StatusMultipleChoices {
			_ = rdb.Set(ctx, cacheKey, rec.body.Bytes(), idempotencyCacheTTL).Err()
		}
		_ = rdb.Del(ctx, lockKey).Err()
	}
}
