package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"

	"leaveflow/internal/middleware"
)

func setupIdempotencyRouter(t *testing.T, handlerStatus int) (*gin.Engine, redismock.ClientMock, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rdb, mock := redismock.NewClientMock()

	handlerCalls := 0
	router := gin.New()
	router.POST("/requests",
		func(c *gin.Context) {
			c.Set("employee_id", "emp-1")
		},
		middleware.Idempotency(rdb),
		func(c *gin.Context) {
			handlerCalls++
			c.JSON(handlerStatus, gin.H{"ok": handlerStatus < 300})
		},
	)
	return router, mock, &handlerCalls
}

func TestIdempotency(t *testing.T) {
	cacheKey := "idemp:/requests:emp-1:abc"
	lockKey := cacheKey + ":lock"

	t.Run("first attempt caches the response and drops the lock", func(t *testing.T) {
		router, mock, handlerCalls := setupIdempotencyRouter(t, http.StatusCreated)

		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(true)
		mock.ExpectSet(cacheKey, []byte(`{"ok":true}`), 24*time.Hour).SetVal("OK")
		mock.ExpectDel(lockKey).SetVal(1)

		req := httptest.NewRequest(http.MethodPost, "/requests", nil)
		req.Header.Set("Idempotency-Key", "abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, *handlerCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("repeated key replays the cached response", func(t *testing.T) {
		router, mock, handlerCalls := setupIdempotencyRouter(t, http.StatusCreated)

		mock.ExpectGet(cacheKey).SetVal(`{"ok":true,"data":{"id":"req-1"}}`)

		req := httptest.NewRequest(http.MethodPost, "/requests", nil)
		req.Header.Set("Idempotency-Key", "abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, *handlerCalls)
		assert.Contains(t, w.Body.String(), `"req-1"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed attempt drops the lock without caching", func(t *testing.T) {
		router, mock, handlerCalls := setupIdempotencyRouter(t, http.StatusInternalServerError)

		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(true)
		mock.ExpectDel(lockKey).SetVal(1)

		req := httptest.NewRequest(http.MethodPost, "/requests", nil)
		req.Header.Set("Idempotency-Key", "abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, 1, *handlerCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative concurrent duplicate is rejected", func(t *testing.T) {
		router, mock, handlerCalls := setupIdempotencyRouter(t, http.StatusCreated)

		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(false)

		req := httptest.NewRequest(http.MethodPost, "/requests", nil)
		req.Header.Set("Idempotency-Key", "abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, 0, *handlerCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("request without a key passes straight through", func(t *testing.T) {
		router, mock, handlerCalls := setupIdempotencyRouter(t, http.StatusCreated)

		req := httptest.NewRequest(http.MethodPost, "/requests", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, *handlerCalls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
