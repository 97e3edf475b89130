package topten

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ferkcore/topadel/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	pathHealth         = "/health"
	pathNewRegister    = "/api/CommonWeb/NewRegister"
	pathAddCartProduct = "/api/Cart/AddCartProductExternal"
	pathPaymentSession = "/api/CommonWeb/PaymentPlacetopay"
	pathProductsDetail = "/api/Pro_Productos/GetProductosDetail"
	pathPayments       = "/payments"
)

// backoffSchedule is indexed by attempt number and clamped to its last
// entry. The generic request path additionally caps the actual sleep to
// bound worst-case synchronous wait.
var backoffSchedule = []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second}

const maxGenericSleep = 15 * time.Second

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Sleeper waits for d or until ctx is done. Injected so tests never sleep.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Params struct {
	fx.In

	Cfg      config.Config
	Settings *config.SettingsHolder
	Log      *zap.Logger
}

// Client talks to the TopTen platform. All calls are synchronous and
// blocking; retry sleeps are bounded per attempt, so callers should treat
// a full call as a potentially multi-second operation.
type Client struct {
	resolver *Resolver
	http     *http.Client
	log      *zap.Logger
	debug    bool
	sleep    Sleeper
}

func New(p Params) *Client {
	return &Client{
		resolver: NewResolver(p.Cfg, p.Settings, p.Log),
		http:     &http.Client{},
		log:      p.Log.Named("topten.client"),
		debug:    p.Cfg.TopTen.Debug,
		sleep:    defaultSleeper,
	}
}

// Resolver exposes credential resolution to collaborators that need the
// entity id or webhook secret without issuing requests.
func (c *Client) Resolver() *Resolver {
	return c.resolver
}

type requestOptions struct {
	overrides      Overrides
	query          url.Values
	idempotencyKey string
	body           any
}

// request is the generic retry path: retries+1 total attempts, retrying
// transport failures and the 429/5xx set, honoring Retry-After with a 1s
// floor and capping each sleep at maxGenericSleep.
func (c *Client) request(ctx context.Context, op, method, path string, opts requestOptions) ([]byte, error) {
	creds := c.resolver.Resolve(opts.overrides)

	base, err := c.resolver.BaseURL(creds)
	if err != nil {
		return nil, err
	}

	endpoint := base + "/" + strings.TrimLeft(path, "/")
	if len(opts.query) > 0 {
		endpoint += "?" + opts.query.Encode()
	}

	body, err := encodeBody(opts.body)
	if err != nil {
		return nil, err
	}

	if c.debug && opts.body != nil {
		c.log.Debug("outbound request",
			zap.String("op", op),
			zap.String("path", path),
			zap.Any("payload", maskPayload(opts.body)),
		)
	}

	timeout := time.Duration(creds.TimeoutSeconds) * time.Second

	var lastErr error
	for attempt := 0; attempt <= creds.Retries; attempt++ {
		resp, respBody, err := c.do(ctx, method, endpoint, body, creds, opts.idempotencyKey, timeout)
		if err != nil {
			observeAttempt(op, "transport_error")
			lastErr = err
			if attempt >= creds.Retries {
				return nil, &TransportError{Op: op, Err: err}
			}
			c.log.Warn("transport error, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			observeRetry(op)
			if err := c.sleep(ctx, capSleep(scheduleDelay(attempt))); err != nil {
				return nil, &TransportError{Op: op, Err: err}
			}
			continue
		}

		observeAttempt(op, statusClass(resp.StatusCode))

		if retryableStatus[resp.StatusCode] && attempt < creds.Retries {
			delay := scheduleDelay(attempt)
			if ra := parseRetryAfter(resp.Header.Get("Retry-After")); ra > 0 {
				delay = ra
			}
			delay = capSleep(delay)
			c.log.Warn("transient response, retrying",
				zap.String("op", op),
				zap.Int("code", resp.StatusCode),
				zap.Duration("delay", delay),
			)
			observeRetry(op)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, &TransportError{Op: op, Err: err}
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		return nil, &HTTPError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    remoteMessage(respBody),
		}
	}

	return nil, &TransportError{Op: op, Err: lastErr}
}

// requestScalar is the dedicated sub-operation path used by user and cart
// creation: two attempts with a fixed 1s pause, retrying transport
// failures and 5xx, decoding the loose scalar-id response shape.
func (c *Client) requestScalar(ctx context.Context, op, path string, payload any, o Overrides) (int64, error) {
	creds := c.resolver.Resolve(o)

	base, err := c.resolver.BaseURL(creds)
	if err != nil {
		return 0, err
	}

	endpoint := base + "/" + strings.TrimLeft(path, "/")

	body, err := encodeBody(payload)
	if err != nil {
		return 0, err
	}

	if c.debug {
		c.log.Debug("outbound request",
			zap.String("op", op),
			zap.String("path", path),
			zap.Any("payload", maskPayload(payload)),
		)
	}

	timeout := time.Duration(creds.TimeoutSeconds) * time.Second

	const maxTries = 2
	for attempt := 0; attempt < maxTries; attempt++ {
		resp, respBody, err := c.do(ctx, http.MethodPost, endpoint, body, creds, "", timeout)
		if err != nil {
			observeAttempt(op, "transport_error")
			if attempt >= maxTries-1 {
				return 0, &TransportError{Op: op, Err: err}
			}
			observeRetry(op)
			if err := c.sleep(ctx, time.Second); err != nil {
				return 0, &TransportError{Op: op, Err: err}
			}
			continue
		}

		observeAttempt(op, statusClass(resp.StatusCode))

		if resp.StatusCode >= 500 && attempt < maxTries-1 {
			observeRetry(op)
			if err := c.sleep(ctx, time.Second); err != nil {
				return 0, &TransportError{Op: op, Err: err}
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return 0, &HTTPError{
				Op:         op,
				StatusCode: resp.StatusCode,
				Message:    remoteMessage(respBody),
			}
		}

		return decodeScalarID(op, respBody)
	}

	return 0, &TransportError{Op: op, Err: fmt.Errorf("retry budget exhausted")}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, creds Credentials, idempotencyKey string, timeout time.Duration) (*http.Response, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, endpoint, reader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if creds.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return nil, nil, err
	}

	return resp, respBody, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func readBody(resp *http.Response) ([]byte, error) {
	const maxBody = 4 << 20
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(http.MaxBytesReader(nil, resp.Body, maxBody)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func scheduleDelay(attempt int) time.Duration {
	if attempt >= len(backoffSchedule) {
		return backoffSchedule[len(backoffSchedule)-1]
	}
	return backoffSchedule[attempt]
}

func capSleep(d time.Duration) time.Duration {
	if d > maxGenericSleep {
		return maxGenericSleep
	}
	if d < time.Second {
		return time.Second
	}
	return d
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		if seconds < 1 {
			seconds = 1
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		d := time.Until(at)
		if d < time.Second {
			d = time.Second
		}
		return d
	}
	return 0
}

// remoteMessage pulls the remote error message out of a failure body,
// matching the key case-insensitively.
func remoteMessage(body []byte) string {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ""
	}
	for key, value := range decoded {
		if strings.EqualFold(key, "message") {
			if s, ok := value.(string); ok {
				return s
			}
		}
	}
	return ""
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// maskPayload renders a payload for logging with sensitive values hidden.
// Any field whose key name contains "secret", "key", "password" or
// "clave" is masked.
func maskPayload(payload any) any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<unserializable>"
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "<unserializable>"
	}
	return maskValue(decoded)
}

func maskValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			if sensitiveKey(key) {
				out[key] = "***"
				continue
			}
			out[key] = maskValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = maskValue(inner)
		}
		return out
	default:
		return v
	}
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	return strings.Contains(key, "secret") ||
		strings.Contains(key, "key") ||
		strings.Contains(key, "password") ||
		strings.Contains(key, "clave")
}
