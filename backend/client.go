package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Abrorbek-Ibaydullaev/TeamLink-Samandar-sub000/session"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultRefreshSkew = 30 * time.Second
	maxResponseSize    = 8 << 20

	headerRequestID      = "X-Request-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

// Client talks to the TeamLink REST API. Credentials come from the session
// provider; an expired access token is refreshed once per request.
type Client struct {
	BaseURL     string
	HTTP        *http.Client
	Session     session.Provider
	Logger      *log.Logger
	RefreshSkew time.Duration

	refreshGroup singleflight.Group
	now          func() time.Time
}

// New creates a Client for baseURL, e.g. http://localhost:8000/api.
func New(baseURL string, provider session.Provider, logger *log.Logger) *Client {
	if provider == nil {
		provider = session.NewMemoryStore()
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTP:        &http.Client{Timeout: defaultTimeout},
		Session:     provider,
		Logger:      logger,
		RefreshSkew: defaultRefreshSkew,
		now:         time.Now,
	}
}

// request describes one API call. route is the path template used for
// logging and tracing.
type request struct {
	method string
	route  string
	path   string
	body   any
	public bool
}

// do performs the request and decodes the unwrapped payload into out.
func (c *Client) do(ctx context.Context, r request, out any) error {
	status, body, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if err := decode(status, body, out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return err
		}
		return fmt.Errorf("%s %s: decode response: %w", r.method, r.route, err)
	}
	return nil
}

// send performs the request and returns the raw 2xx body.
func (c *Client) send(ctx context.Context, r request) (status int, body []byte, err error) {
	requestID := uuid.NewString()
	metrics, ctx := newRequestMetrics(ctx, c.Logger, r.method, r.route, requestID)
	defer func() {
		metrics.Log(status, err)
	}()

	var payload []byte
	if r.body != nil {
		payload, err = sonic.Marshal(r.body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
	}

	var token string
	if !r.public {
		token, err = c.accessToken(ctx)
		if err != nil {
			return 0, nil, err
		}
	}

	for {
		metrics.ObserveAttempt()
		status, body, err = c.roundTrip(ctx, r, payload, token, requestID)
		if err != nil {
			return status, nil, err
		}
		metrics.SetBytesIn(len(body))
		if status != http.StatusUnauthorized || r.public || metrics.refreshed {
			break
		}
		token, err = c.refresh(ctx, token)
		if err != nil {
			return status, nil, err
		}
		metrics.SetRefreshed()
	}

	if status < 200 || status >= 300 {
		return status, nil, newAPIError(status, body)
	}
	return status, body, nil
}

func (c *Client) roundTrip(ctx context.Context, r request, payload []byte, token, requestID string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.BaseURL+r.path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	// A retry after a token refresh reuses the key, so the API can tell it
	// from a second create.
	if r.method == http.MethodPost && !r.public {
		req.Header.Set(headerIdempotencyKey, requestID)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", r.method, r.route, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%s %s: read response: %w", r.method, r.route, err)
	}
	return resp.StatusCode, body, nil
}

// accessToken returns the current access token, refreshing it first when it
// is about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	s, err := c.Session.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if s.AccessToken == "" && s.RefreshToken == "" {
		return "", ErrNotSignedIn
	}
	if s.RefreshToken != "" && (s.AccessToken == "" || session.ExpiresWithin(s.AccessToken, c.RefreshSkew, c.now())) {
		return c.refresh(ctx, s.AccessToken)
	}
	return s.AccessToken, nil
}

// refresh exchanges the refresh token for a new access token. Concurrent
// callers that saw the same stale token share one refresh call, which keeps
// running when the caller that started it gives up. The session is cleared
// only when the API rejects the refresh token.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		ctx := shared
		s, err := c.Session.Get(ctx)
		if err != nil {
			return "", fmt.Errorf("read session: %w", err)
		}
		if s.AccessToken != "" && s.AccessToken != stale {
			return s.AccessToken, nil
		}
		if s.RefreshToken == "" {
			_ = c.Session.Clear(ctx)
			return "", ErrSessionExpired
		}

		var tokens wireTokens
		err = c.do(ctx, request{
			method: http.MethodPost,
			route:  "/auth/token/refresh/",
			path:   "/auth/token/refresh/",
			body:   map[string]string{"refresh": s.RefreshToken},
			public: true,
		}, &tokens)
		if err != nil && !rejectsRefresh(err) {
			return "", fmt.Errorf("refresh token: %w", err)
		}
		access, refresh := tokens.pair()
		if err != nil || access == "" {
			c.Logger.WithError(err).Warn("token refresh failed, clearing session")
			_ = c.Session.Clear(ctx)
			return "", ErrSessionExpired
		}

		s.AccessToken = access
		if refresh != "" {
			s.RefreshToken = refresh
		}
		if err := c.Session.Set(ctx, s); err != nil {
			return "", fmt.Errorf("store session: %w", err)
		}
		return access, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// rejectsRefresh reports whether err is the API turning the refresh token
// down, as opposed to the request not getting through.
func rejectsRefresh(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized
}
