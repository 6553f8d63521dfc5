package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/internal/interfaces/http/response"
	"hostelhub.backend/pkg/logger"
	"hostelhub.backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks a response served from the cache
	IdempotencyReplayHeader = "X-Idempotency-Replayed"
	// LockDuration is the time we hold the lock while processing
	LockDuration = 30 * time.Second

	processingMarker = "processing"
	// fingerprintBytes caps how much of the body is hashed into the fingerprint
	fingerprintBytes = 1 << 20
)

var (
	redisGet   = redis.Get
	redisSet   = redis.Set
	redisSetNX = redis.SetNX
	redisDel   = redis.Del
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	Body        string `json:"body"`
}

// requestFingerprint hashes method, path and the leading body bytes, and
// restores the body for the handler. Multipart bodies are left out since
// clients pick a new boundary on every retry.
func requestFingerprint(c *gin.Context) (string, error) {
	h := sha256.New()
	_, _ = io.WriteString(h, c.Request.Method+" "+c.Request.URL.Path+"\n")
	if c.Request.Body == nil || c.ContentType() == gin.MIMEMultipartPOSTForm {
		return hex.EncodeToString(h.Sum(nil)), nil
	}
	head, err := io.ReadAll(io.LimitReader(c.Request.Body, fingerprintBytes))
	if err != nil {
		return "", err
	}
	h.Write(head)
	c.Request.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), c.Request.Body), c.Request.Body}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IdempotencyMiddleware replays the first successful response for a repeated
// Idempotency-Key from the same caller on the same request path. Reusing a key
// for a different request yields 409 without running the handler, as does a
// key still being processed. Redis outages fall through to normal handling.
func IdempotencyMiddleware(retention time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		caller := "anonymous"
		if userID, ok := GetUserID(c); ok {
			caller = userID.String()
		}
		storageKey := fmt.Sprintf("idempotency:%s:%s:%s:%s", caller, c.Request.Method, c.Request.URL.Path, key)
		ctx := c.Request.Context()

		fingerprint, err := requestFingerprint(c)
		if err != nil {
			response.Abort(c, domainerrors.BadRequest("request body could not be read"))
			return
		}

		val, err := redisGet(ctx, storageKey)
		switch {
		case err == nil && val == processingMarker:
			response.Abort(c, domainerrors.Conflict("request with this idempotency key is in progress"))
			return
		case err == nil:
			var stored storedResponse
			if jsonErr := json.Unmarshal([]byte(val), &stored); jsonErr == nil {
				if stored.Fingerprint != fingerprint {
					response.Abort(c, domainerrors.Conflict("idempotency key was already used for a different request"))
					return
				}
				c.Header(IdempotencyReplayHeader, "true")
				c.Data(stored.Status, "application/json; charset=utf-8", []byte(stored.Body))
				c.Abort()
				return
			}
			_ = redisDel(ctx, storageKey)
		case !errors.Is(err, redis.Nil):
			logger.Warn(ctx, "Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}

		acquired, err := redisSetNX(ctx, storageKey, processingMarker, LockDuration)
		if err != nil {
			logger.Warn(ctx, "Idempotency lock failed", zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			response.Abort(c, domainerrors.Conflict("request with this idempotency key is in progress"))
			return
		}

		w := &responseWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			_ = redisDel(ctx, storageKey)
			return
		}
		payload, err := json.Marshal(storedResponse{Fingerprint: fingerprint, Status: status, Body: w.body.String()})
		if err == nil {
			err = redisSet(ctx, storageKey, payload, retention)
		}
		if err != nil {
			logger.Warn(ctx, "Idempotency response not stored", zap.Error(err))
			_ = redisDel(ctx, storageKey)
		}
	}
}
