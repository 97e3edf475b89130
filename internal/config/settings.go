package config

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Settings are the operator-editable values that may change without a
// restart: remote credentials and the checkout constants. Anything left
// empty falls back to the environment configuration.
type Settings struct {
	Sandbox           *bool  `mapstructure:"sandbox"`
	BaseURLSandbox    string `mapstructure:"baseUrlSandbox"`
	BaseURLProduction string `mapstructure:"baseUrlProduction"`
	APIKey            string `mapstructure:"apiKey"`
	EntityID          int64  `mapstructure:"entityId"`
	WebhookSecret     string `mapstructure:"webhookSecret"`
	PaymentConceptID  int64  `mapstructure:"paymentConceptId"`
	PaymentMethodID   int64  `mapstructure:"paymentMethodId"`
	BranchID          int64  `mapstructure:"branchId"`
	ReturnBaseURL     string `mapstructure:"returnBaseUrl"`
}

// SettingsHolder serves the current Settings snapshot and hot reloads it
// when the backing file changes.
type SettingsHolder struct {
	current atomic.Value // holds Settings
}

// NewSettingsHolder reads the optional settings file and watches it for
// changes. A missing file is not an error; the holder then serves zero
// values and every consumer falls back to Config.
func NewSettingsHolder(cfg Config, log *zap.Logger) (*SettingsHolder, error) {
	holder := &SettingsHolder{}
	holder.current.Store(Settings{})

	v := viper.New()
	if cfg.SettingsFile != "" {
		v.SetConfigFile(cfg.SettingsFile)
	} else {
		v.SetConfigName("topadel")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/topadel")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("TOPADEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return holder, nil
		}
		if os.IsNotExist(err) {
			// Configured file not created yet, run on env defaults.
			return holder, nil
		}
		return nil, err
	}

	var settings Settings
	if err := v.UnmarshalKey("topten", &settings); err != nil {
		return nil, err
	}
	holder.current.Store(normalizeSettings(settings))

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Settings
		if err := v.UnmarshalKey("topten", &updated); err != nil {
			log.Warn("settings reload failed", zap.Error(err))
			return
		}
		holder.current.Store(normalizeSettings(updated))
		log.Info("settings reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *SettingsHolder) Get() Settings {
	return h.current.Load().(Settings)
}

// Store replaces the current snapshot. Used by tests and by admin tooling.
func (h *SettingsHolder) Store(s Settings) {
	h.current.Store(normalizeSettings(s))
}

func normalizeSettings(s Settings) Settings {
	s.BaseURLSandbox = strings.TrimRight(strings.TrimSpace(s.BaseURLSandbox), "/")
	s.BaseURLProduction = strings.TrimRight(strings.TrimSpace(s.BaseURLProduction), "/")
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.ReturnBaseURL = strings.TrimRight(strings.TrimSpace(s.ReturnBaseURL), "/")
	return s
}
