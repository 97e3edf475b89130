package topten

import (
	"strings"

	"github.com/ferkcore/topadel/internal/config"
	"go.uber.org/zap"
)

// Credentials are the per-request connection parameters. They are resolved
// by merging stored settings with call-time overrides, call-time wins.
type Credentials struct {
	Sandbox           bool
	BaseURLSandbox    string
	BaseURLProduction string
	APIKey            string
	WebhookSecret     string
	TimeoutSeconds    int
	Retries           int
}

// Overrides are optional call-time credential overrides. Nil pointers and
// empty strings keep the stored value.
type Overrides struct {
	Sandbox           *bool
	BaseURLSandbox    string
	BaseURLProduction string
	APIKey            string
	TimeoutSeconds    int
	Retries           *int
}

// Resolver merges the environment defaults, the hot-reloadable settings
// snapshot, and call-time overrides into one Credentials value. Stateless
// apart from its inputs; reads the settings holder on every call so file
// edits take effect without a restart.
type Resolver struct {
	cfg      config.Config
	settings *config.SettingsHolder
	log      *zap.Logger
}

func NewResolver(cfg config.Config, settings *config.SettingsHolder, log *zap.Logger) *Resolver {
	return &Resolver{
		cfg:      cfg,
		settings: settings,
		log:      log.Named("topten.resolver"),
	}
}

// Resolve produces the effective credentials for one request.
func (r *Resolver) Resolve(o Overrides) Credentials {
	base := r.cfg.TopTen

	creds := Credentials{
		Sandbox:           base.Sandbox,
		BaseURLSandbox:    base.BaseURLSandbox,
		BaseURLProduction: base.BaseURLProduction,
		APIKey:            base.APIKey,
		WebhookSecret:     r.cfg.Webhook.Secret,
		TimeoutSeconds:    base.TimeoutSeconds,
		Retries:           base.Retries,
	}

	if r.settings != nil {
		s := r.settings.Get()
		if s.Sandbox != nil {
			creds.Sandbox = *s.Sandbox
		}
		if s.BaseURLSandbox != "" {
			creds.BaseURLSandbox = s.BaseURLSandbox
		}
		if s.BaseURLProduction != "" {
			creds.BaseURLProduction = s.BaseURLProduction
		}
		if s.APIKey != "" {
			creds.APIKey = s.APIKey
		}
		if s.WebhookSecret != "" {
			creds.WebhookSecret = s.WebhookSecret
		}
	}

	if o.Sandbox != nil {
		creds.Sandbox = *o.Sandbox
	}
	if o.BaseURLSandbox != "" {
		creds.BaseURLSandbox = strings.TrimRight(o.BaseURLSandbox, "/")
	}
	if o.BaseURLProduction != "" {
		creds.BaseURLProduction = strings.TrimRight(o.BaseURLProduction, "/")
	}
	if o.APIKey != "" {
		creds.APIKey = o.APIKey
	}
	if o.TimeoutSeconds > 0 {
		creds.TimeoutSeconds = o.TimeoutSeconds
	}
	if o.Retries != nil {
		creds.Retries = *o.Retries
	}

	creds.TimeoutSeconds = clampTimeout(creds.TimeoutSeconds)
	creds.Retries = clampRetries(creds.Retries)

	return creds
}

// EntityID returns the remote entity identifier, settings file first.
func (r *Resolver) EntityID() int64 {
	if r.settings != nil {
		if s := r.settings.Get(); s.EntityID > 0 {
			return s.EntityID
		}
	}
	return r.cfg.TopTen.EntityID
}

// BaseURL selects the environment base URL. An empty selection falls back
// to the other environment with a logged warning; both empty is a
// configuration failure.
func (r *Resolver) BaseURL(creds Credentials) (string, error) {
	selected, other := creds.BaseURLProduction, creds.BaseURLSandbox
	env, otherEnv := "production", "sandbox"
	if creds.Sandbox {
		selected, other = creds.BaseURLSandbox, creds.BaseURLProduction
		env, otherEnv = "sandbox", "production"
	}

	if selected != "" {
		return strings.TrimRight(selected, "/"), nil
	}
	if other != "" {
		r.log.Warn("base URL empty for selected environment, falling back",
			zap.String("selected", env),
			zap.String("fallback", otherEnv),
		)
		return strings.TrimRight(other, "/"), nil
	}
	return "", &ConfigurationError{Field: "base_url"}
}

func clampTimeout(seconds int) int {
	if seconds <= 0 {
		return 30
	}
	if seconds < 5 {
		return 5
	}
	return seconds
}

func clampRetries(retries int) int {
	if retries < 0 {
		return 0
	}
	if retries > 5 {
		return 5
	}
	return retries
}
