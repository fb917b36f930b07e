package mockapi

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const (
	ctxUserID = "teamlink.user"

	headerRequestID      = "X-Request-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

// GzipRequestMiddleware decompresses gzip encoded request bodies so handlers
// see plain JSON. Invalid gzip payloads are rejected with a 400 response.
func GzipRequestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !hasGzipEncoding(req.Header.Get(echo.HeaderContentEncoding)) {
				return next(c)
			}

			body := req.Body
			gr, err := gzip.NewReader(body)
			if err != nil {
				_ = body.Close()
				return c.JSON(http.StatusBadRequest, detail("Invalid gzip body."))
			}

			req.Body = &gzipReadCloser{Reader: gr, body: body}
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)

			return next(c)
		}
	}
}

func hasGzipEncoding(header string) bool {
	for _, enc := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "gzip") {
			return true
		}
	}
	return false
}

type gzipReadCloser struct {
	*gzip.Reader
	body io.Closer
}

func (g *gzipReadCloser) Close() error {
	err := g.Reader.Close()
	if cerr := g.body.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// requestLogger logs one entry per request.
func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			entry := logger.WithFields(log.Fields{
				"method":      c.Request().Method,
				"route":       c.Path(),
				"status":      status,
				"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
				"request_id":  c.Request().Header.Get(headerRequestID),
			})
			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("mockapi.request")
			case status >= http.StatusBadRequest:
				entry.Warn("mockapi.request")
			default:
				entry.Debug("mockapi.request")
			}
			return nil
		}
	}
}

// injectFaults answers requests matching an active fault.
func injectFaults(faults *Faults) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			fault, ok := faults.match(c.Request().Method, c.Path())
			if !ok {
				return next(c)
			}
			if fault.Delay > 0 {
				select {
				case <-time.After(fault.Delay):
				case <-c.Request().Context().Done():
					return c.Request().Context().Err()
				}
			}
			return c.JSON(fault.Status, fault.Body)
		}
	}
}

// authenticate requires a valid access token and stores the user id in the
// echo context.
func authenticate(tokens *Tokens, store *Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, detail("Authentication credentials were not provided."))
			}
			claims, err := tokens.Verify(raw, tokenAccess)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"detail": "Given token not valid for any token type",
					"code":   "token_not_valid",
				})
			}
			if _, ok := store.user(claims.UserID); !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"detail": "User not found",
					"code":   "user_not_found",
				})
			}
			c.Set(ctxUserID, claims.UserID)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if strings.Count(token, ".") != 2 {
		return "", false
	}
	return token, true
}

// idempotent rejects a POST whose Idempotency-Key was already applied, and
// one whose key was first used for a different request. The key is
// released again when the request fails so the client may retry.
func idempotent(deduper Deduper, logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(headerIdempotencyKey)
			if deduper == nil || key == "" || c.Request().Method != http.MethodPost {
				return next(c)
			}
			userID := currentUser(c)
			ctx := c.Request().Context()
			request := c.Request().Method + " " + c.Request().URL.Path
			prior, claimed, err := deduper.Claim(ctx, userID, key, request)
			if err != nil {
				logger.WithError(err).Error("mockapi.idempotency.claim_failed")
				return next(c)
			}
			if !claimed {
				if prior != request {
					logger.WithFields(log.Fields{"key": key, "first": prior, "request": request}).Warn("mockapi.idempotency.key_reused")
					return c.JSON(http.StatusUnprocessableEntity, detail("Idempotency-Key was already used for a different request."))
				}
				return c.JSON(http.StatusConflict, detail("Duplicate request."))
			}
			err = next(c)
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				if relErr := deduper.Release(ctx, userID, key); relErr != nil {
					logger.WithError(relErr).Warn("mockapi.idempotency.release_failed")
				}
			}
			return err
		}
	}
}

func currentUser(c echo.Context) string {
	id, _ := c.Get(ctxUserID).(string)
	return id
}
