package topten

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ferkcore/topadel/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, cfg config.Config) (*Client, *[]time.Duration) {
	t.Helper()

	holder, err := config.NewSettingsHolder(config.Config{SettingsFile: "/nonexistent/topadel-test.yml"}, zap.NewNop())
	require.NoError(t, err)

	c := New(Params{Cfg: cfg, Settings: holder, Log: zap.NewNop()})

	sleeps := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return c, sleeps
}

func sandboxConfig(baseURL string, retries int) config.Config {
	return config.Config{
		TopTen: config.TopTenConfig{
			Sandbox:        true,
			BaseURLSandbox: baseURL,
			Retries:        retries,
			TimeoutSeconds: 5,
		},
	}
}

func TestRequestRetryCeiling(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, sandboxConfig(srv.URL, 3))

	_, err := c.request(context.Background(), "test", http.MethodGet, "/health", requestOptions{})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, int32(4), atomic.LoadInt32(&attempts))
}

func TestRequestHonorsRetryAfter(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, sandboxConfig(srv.URL, 3))

	_, err := c.request(context.Background(), "test", http.MethodGet, "/health", requestOptions{})
	require.NoError(t, err)

	require.Len(t, *sleeps, 1)
	assert.GreaterOrEqual(t, (*sleeps)[0], 5*time.Second)
}

func TestRequestCapsScheduleSleep(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, sandboxConfig(srv.URL, 3))

	_, err := c.request(context.Background(), "test", http.MethodGet, "/health", requestOptions{})
	require.NoError(t, err)

	require.Len(t, *sleeps, 1)
	assert.LessOrEqual(t, (*sleeps)[0], maxGenericSleep)
}

func TestRequestNonRetryableFailsImmediately(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"Message":"documento invalido"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, sandboxConfig(srv.URL, 3))

	_, err := c.request(context.Background(), "test", http.MethodPost, "/x", requestOptions{body: map[string]int{"a": 1}})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
	assert.Equal(t, "documento invalido", httpErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestRequestSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotIdem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := sandboxConfig(srv.URL, 0)
	cfg.TopTen.APIKey = "k_test"
	c, _ := newTestClient(t, cfg)

	_, err := c.request(context.Background(), "test", http.MethodPost, "/x", requestOptions{
		idempotencyKey: "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer k_test", gotAuth)
	assert.Equal(t, "idem-1", gotIdem)
}

func TestRegisterUserRetriesOnceThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`777`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, sandboxConfig(srv.URL, 3))

	id, err := c.RegisterUser(context.Background(), RegisterUserRequest{
		FirstName: "Ana", LastName: "Diaz", Email: "a@b.com", Password: "x", EntityID: 51, ExternalID: "a@b.com",
	}, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, int64(777), id)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	require.Len(t, *sleeps, 1)
	assert.Equal(t, time.Second, (*sleeps)[0])
}

func TestCreateCartTwoAttemptCap(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, sandboxConfig(srv.URL, 5))

	_, err := c.CreateCart(context.Background(), CreateCartRequest{
		UserID:       777,
		CartProducts: []CartProduct{{ProductID: 42, Quantity: 2}},
	}, Overrides{})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestCreatePaymentValidatesSuccessFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Token":"tok_x","UrlExternal":"https://pay/x","SuccessInfo":{"Success":false,"Message":"saldo insuficiente"}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, sandboxConfig(srv.URL, 0))

	_, err := c.CreatePayment(context.Background(), CreatePaymentRequest{CartID: 555}, Overrides{})

	var rejected *SessionRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "saldo insuficiente", rejected.Message)
}

func TestCreatePaymentParsesInconsistentCasing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"tok_abc","urlExternal":"https://pay/tok_abc","expirationUTC":1736000000,"idAdquiria":9001,"successInfo":{"success":true}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, sandboxConfig(srv.URL, 0))

	session, err := c.CreatePayment(context.Background(), CreatePaymentRequest{CartID: 555}, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "tok_abc", session.Token)
	assert.Equal(t, "https://pay/tok_abc", session.RedirectURL)
	assert.Equal(t, int64(1736000000), session.ExpirationUTC)
	assert.Equal(t, int64(9001), session.AcquirerID)
}

func TestBaseURLFallsBackToOtherEnvironment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := config.Config{
		TopTen: config.TopTenConfig{
			Sandbox:           true,
			BaseURLProduction: srv.URL,
			Retries:           0,
			TimeoutSeconds:    5,
		},
	}
	c, _ := newTestClient(t, cfg)

	_, err := c.request(context.Background(), "test", http.MethodGet, "/health", requestOptions{})
	require.NoError(t, err)
}

func TestBaseURLBothEmptyFails(t *testing.T) {
	c, _ := newTestClient(t, config.Config{TopTen: config.TopTenConfig{Sandbox: true}})

	_, err := c.request(context.Background(), "test", http.MethodGet, "/health", requestOptions{})

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "base_url", cfgErr.Field)
}

func TestResolveClampsAndOverrides(t *testing.T) {
	cfg := config.Config{
		TopTen: config.TopTenConfig{
			Sandbox:        true,
			BaseURLSandbox: "https://sandbox.example/",
			Retries:        9,
			TimeoutSeconds: 2,
		},
	}
	c, _ := newTestClient(t, cfg)

	creds := c.resolver.Resolve(Overrides{})
	assert.Equal(t, 5, creds.Retries)
	assert.Equal(t, 5, creds.TimeoutSeconds)

	sandbox := false
	retries := 1
	creds = c.resolver.Resolve(Overrides{
		Sandbox:           &sandbox,
		BaseURLProduction: "https://prod.example/",
		Retries:           &retries,
		TimeoutSeconds:    60,
	})
	assert.False(t, creds.Sandbox)
	assert.Equal(t, "https://prod.example", creds.BaseURLProduction)
	assert.Equal(t, 1, creds.Retries)
	assert.Equal(t, 60, creds.TimeoutSeconds)
}

func TestDecodeScalarID(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int64
		fail bool
	}{
		{name: "bare integer", body: "123", want: 123},
		{name: "padded integer", body: "  555\n", want: 555},
		{name: "value object", body: `{"value": 42}`, want: 42},
		{name: "value object cased", body: `{"Value":"7"}`, want: 7},
		{name: "numeric json string", body: `"88"`, want: 88},
		{name: "html error page", body: `<html>boom</html>`, fail: true},
		{name: "object without value", body: `{"id":3}`, fail: true},
		{name: "empty", body: "", fail: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeScalarID("test", []byte(tc.body))
			if tc.fail {
				var unexpected *UnexpectedResponseError
				require.True(t, errors.As(err, &unexpected))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMaskPayloadHidesSensitiveFields(t *testing.T) {
	masked := maskPayload(map[string]any{
		"Correo":     "a@b.com",
		"Clave":      "hunter2",
		"api_key":    "k",
		"WebhookSecret": "s",
		"nested":     map[string]any{"Password": "p", "ok": 1},
	})

	obj, ok := masked.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", obj["Correo"])
	assert.Equal(t, "***", obj["Clave"])
	assert.Equal(t, "***", obj["api_key"])
	assert.Equal(t, "***", obj["WebhookSecret"])
	nested := obj["nested"].(map[string]any)
	assert.Equal(t, "***", nested["Password"])
}
