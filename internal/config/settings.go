package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/gst"
	"github.com/Shlokpalrecha/Finguru/internal/llm"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (FINGURU_GATE_THRESHOLD etc).
const EnvPrefix = "FINGURU"

// DefaultDatabasePath is where the ledger lives unless database.path is set.
const DefaultDatabasePath = "$HOME/.local/share/finguru/finguru.db"

// Pending store backends.
const (
	PendingBackendSQLite = "sqlite"
	PendingBackendMemory = "memory"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	LLM       llm.Config
	SpecPath  string
	DBPath    string
	Pending   PendingSettings
	Validator ValidatorSettings
	GSTMode   gst.Mode
	Threshold float64
	// RetryDelay is the pause before the strict re-prompt.
	RetryDelay time.Duration
	Workers    int
}

// PendingSettings configures the pending decision table.
type PendingSettings struct {
	Backend string
	TTL     time.Duration
}

// ValidatorSettings holds reconciliation penalties.
type ValidatorSettings struct {
	DisagreementPenalty float64
	FallbackPenalty     float64
}

// SetDefaults registers every documented default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("spec.path", "")
	v.SetDefault("gate.threshold", 0.85)
	v.SetDefault("validator.disagreement_penalty", 0.15)
	v.SetDefault("validator.fallback_penalty", 0.15)
	v.SetDefault("gst.mode", string(gst.Additive))
	v.SetDefault("pending.ttl", 24*time.Hour)
	v.SetDefault("pending.backend", PendingBackendSQLite)
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("oracle.retry_delay", 500*time.Millisecond)
	v.SetDefault("ingest.workers", 4)
}

// Bind configures v for env overrides with the FINGURU prefix.
func Bind(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load resolves and validates settings from v. Defaults must already be set.
func Load(v *viper.Viper) (*Settings, error) {
	mode, err := gst.ParseMode(v.GetString("gst.mode"))
	if err != nil {
		return nil, err
	}

	provider := strings.ToLower(v.GetString("llm.provider"))
	s := &Settings{
		SpecPath:  ExpandPath(v.GetString("spec.path")),
		DBPath:    ExpandPath(v.GetString("database.path")),
		GSTMode:   mode,
		Threshold: v.GetFloat64("gate.threshold"),
		Validator: ValidatorSettings{
			DisagreementPenalty: v.GetFloat64("validator.disagreement_penalty"),
			FallbackPenalty:     v.GetFloat64("validator.fallback_penalty"),
		},
		Pending: PendingSettings{
			Backend: strings.ToLower(v.GetString("pending.backend")),
			TTL:     v.GetDuration("pending.ttl"),
		},
		LLM: llm.Config{
			Provider:    provider,
			APIKey:      apiKey(v, provider),
			Model:       v.GetString("llm.model"),
			BaseURL:     v.GetString("llm.base_url"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			Timeout:     v.GetDuration("llm.timeout"),
			RateLimit:   v.GetInt("llm.rate_limit"),
		},
		RetryDelay: v.GetDuration("oracle.retry_delay"),
		Workers:    v.GetInt("ingest.workers"),
	}
	if s.DBPath == "" {
		s.DBPath = ExpandPath(DefaultDatabasePath)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate reports every out-of-range value.
func (s *Settings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{common.ErrInvalidConfig}, args...)...))
		}
	}

	check(s.Threshold >= 0 && s.Threshold <= 1, "gate.threshold %v outside [0,1]", s.Threshold)
	check(s.Validator.DisagreementPenalty >= 0 && s.Validator.DisagreementPenalty <= 1,
		"validator.disagreement_penalty %v outside [0,1]", s.Validator.DisagreementPenalty)
	check(s.Validator.FallbackPenalty >= 0 && s.Validator.FallbackPenalty <= 1,
		"validator.fallback_penalty %v outside [0,1]", s.Validator.FallbackPenalty)
	check(s.Pending.TTL > 0, "pending.ttl must be positive")
	check(s.Pending.Backend == PendingBackendSQLite || s.Pending.Backend == PendingBackendMemory,
		"pending.backend %q (want sqlite or memory)", s.Pending.Backend)
	check(s.RetryDelay >= 0, "oracle.retry_delay cannot be negative")
	check(s.Workers > 0, "ingest.workers must be positive")
	check(s.LLM.MaxTokens >= 0, "llm.max_tokens cannot be negative")
	check(s.LLM.RateLimit >= 0, "llm.rate_limit cannot be negative")

	return errors.Join(errs...)
}

// apiKey looks up the provider key in config first, then the provider's
// conventional environment variable.
func apiKey(v *viper.Viper, provider string) string {
	var key, env string
	switch provider {
	case "anthropic":
		key, env = "llm.anthropic_api_key", "ANTHROPIC_API_KEY"
	case "openrouter":
		key, env = "llm.openrouter_api_key", "OPENROUTER_API_KEY"
	default:
		key, env = "llm.openai_api_key", "OPENAI_API_KEY"
	}

	if k := v.GetString("llm.api_key"); k != "" {
		return k
	}
	if k := v.GetString(key); k != "" {
		return k
	}
	return os.Getenv(env)
}
