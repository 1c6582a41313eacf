// Package config loads process configuration: server/runtime settings
// from the environment, and the two JSON manifests named in spec §6 —
// creds.json (voice-platform and media-catalog credentials, plus the
// error-reports notify list) and numbers.json (the outbound number
// pool, loaded separately by internal/mediacatalog.LoadNumberLibrary).
// Grounded on the teacher's config.go: viper.NewWithOptions +
// mapstructure tags + go-playground/validator, adapted from its
// .env-file shape to this system's JSON-credentials-file shape.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// TwilioConfig is the voice-platform credential block of creds.json.
type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid" validate:"required"`
	AuthToken  string `mapstructure:"auth_token" validate:"required"`
}

// MediaCatalogConfig points at the media-asset catalog API.
type MediaCatalogConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required"`
	APIKey  string `mapstructure:"api_key"`
}

// ErrorReportsConfig names who gets an SMS when a script fails
// unrecoverably mid-call (spec §7, error_sms).
type ErrorReportsConfig struct {
	NumbersToText []string `mapstructure:"numbers_to_text"`
}

// AppConfig is the full process configuration: runtime/server settings
// plus the parsed contents of creds.json.
type AppConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`

	// TwimlBaseURL is this process's own externally reachable base URL,
	// used to build the twiml/status-callback URLs handed to Twilio for
	// conference legs (spec §6, /conf/twiml/<id>, /conf/status/<id>).
	TwimlBaseURL string `mapstructure:"twiml_base_url" validate:"required"`

	RedisAddr     string `mapstructure:"redis_addr" validate:"required"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	NumbersManifestPath string `mapstructure:"numbers_manifest_path" validate:"required"`

	DebugAuthSecret string `mapstructure:"debug_auth_secret" validate:"required"`

	LogFilePath string `mapstructure:"log_file_path"`

	Twilio       TwilioConfig       `mapstructure:"twilio" validate:"required"`
	MediaCatalog MediaCatalogConfig `mapstructure:"media_catalog" validate:"required"`
	ErrorReports ErrorReportsConfig `mapstructure:"error_reports"`
}

// InitConfig builds a viper instance layering, in priority order:
// SPINS_-prefixed environment variables, then the JSON creds file named
// by CREDS_PATH (default ./creds.json), then the defaults set below.
func InitConfig() (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("."))
	setDefaults(v)

	v.SetEnvPrefix("SPINS")
	v.AutomaticEnv()

	credsPath := os.Getenv("CREDS_PATH")
	if credsPath == "" {
		credsPath = "creds.json"
	}
	v.SetConfigFile(credsPath)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", credsPath, err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("twiml_base_url", "http://localhost:8080")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("numbers_manifest_path", "numbers.json")
	v.SetDefault("log_file_path", "")
}

// GetApplicationConfig unmarshals and validates v into an AppConfig.
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}
