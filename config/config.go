package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/classof2022/reunion-registration/telemetry"
	"github.com/spf13/viper"
)

type Environment int

const (
	LOCAL Environment = iota
	PROD
)

func (e Environment) String() string {
	switch e {
	case LOCAL:
		return "LOCAL"
	case PROD:
		return "PROD"
	default:
		return fmt.Sprintf("Environment(%d)", int(e))
	}
}

func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOCAL":
		return LOCAL, nil
	case "PROD":
		return PROD, nil
	default:
		return LOCAL, fmt.Errorf("unknown environment: %q", s)
	}
}

const envPrefix = "REUNION"

type Settings struct {
	Env         string `mapstructure:"environment"`
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	CatalogFile string `mapstructure:"catalog_file"`
	// Secret for signing the flow hand-off cookie.
	HandoffSecret   string   `mapstructure:"handoff_secret"`
	RecaptchaSecret string   `mapstructure:"recaptcha_secret"`
	CORSOrigins     []string `mapstructure:"cors_origins"`

	Store    StoreSettings    `mapstructure:"store"`
	Blob     BlobSettings     `mapstructure:"blob"`
	Razorpay RazorpaySettings `mapstructure:"razorpay"`
	Admin    AdminSettings    `mapstructure:"admin"`
	Email    EmailSettings    `mapstructure:"email"`
	Tracing  telemetry.Config `mapstructure:"tracing"`
}

type StoreSettings struct {
	// dynamo or sqlite.
	Kind        string `mapstructure:"kind"`
	DynamoTable string `mapstructure:"dynamo_table"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

type BlobSettings struct {
	// s3 or dir.
	Kind          string `mapstructure:"kind"`
	Bucket        string `mapstructure:"bucket"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	Dir           string `mapstructure:"dir"`
}

type RazorpaySettings struct {
	KeyID         string `mapstructure:"key_id"`
	KeySecret     string `mapstructure:"key_secret"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type AdminSettings struct {
	GoogleClientID string   `mapstructure:"google_client_id"`
	AllowedDomain  string   `mapstructure:"allowed_domain"`
	AllowedEmails  []string `mapstructure:"allowed_emails"`
	CookieDomain   string   `mapstructure:"cookie_domain"`
}

type EmailSettings struct {
	FromAddress string `mapstructure:"from_address"`
}

func (s Settings) Environment() Environment {
	env, _ := ParseEnvironment(s.Env)
	return env
}

func setDefaults(v *viper.Viper) {
	tracing := telemetry.DefaultConfig()

	v.SetDefault("environment", "LOCAL")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "8080")
	v.SetDefault("catalog_file", "")
	v.SetDefault("handoff_secret", "")
	v.SetDefault("recaptcha_secret", "")
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("store.kind", "sqlite")
	v.SetDefault("store.dynamo_table", "ReunionRegistration")
	v.SetDefault("store.sqlite_path", "reunion.db")
	v.SetDefault("blob.kind", "dir")
	v.SetDefault("blob.bucket", "")
	v.SetDefault("blob.public_base_url", "")
	v.SetDefault("blob.dir", "photos")
	v.SetDefault("razorpay.key_id", "")
	v.SetDefault("razorpay.key_secret", "")
	v.SetDefault("razorpay.webhook_secret", "")
	v.SetDefault("admin.google_client_id", "")
	v.SetDefault("admin.allowed_domain", "")
	v.SetDefault("admin.allowed_emails", []string{})
	v.SetDefault("admin.cookie_domain", "")
	v.SetDefault("email.from_address", "Class of 2022 Reunion <reunion2022@example.com>")
	v.SetDefault("tracing.enabled", tracing.Enabled)
	v.SetDefault("tracing.exporter", tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", tracing.SampleRate)
	v.SetDefault("tracing.service_name", tracing.ServiceName)
}

// Load reads settings from defaults, the optional config file and REUNION_*
// environment variables, in increasing order of precedence. Nested keys use
// underscores in the environment, e.g. REUNION_STORE_KIND.
func Load(v *viper.Viper, configFile string) (Settings, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read config file %q: %w", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}

	return s, nil
}

// Validate reports every problem at once so a bad deploy fails with the full list.
func (s Settings) Validate() error {
	var errs []error

	env, err := ParseEnvironment(s.Env)
	if err != nil {
		errs = append(errs, err)
	}

	switch s.Store.Kind {
	case "dynamo":
		if s.Store.DynamoTable == "" {
			errs = append(errs, errors.New("store.dynamo_table is required for the dynamo store"))
		}
	case "sqlite":
		if s.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.kind %q", s.Store.Kind))
	}

	switch s.Blob.Kind {
	case "s3":
		if s.Blob.Bucket == "" {
			errs = append(errs, errors.New("blob.bucket is required for the s3 blob store"))
		}
	case "dir":
		if s.Blob.Dir == "" {
			errs = append(errs, errors.New("blob.dir is required for the dir blob store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob.kind %q", s.Blob.Kind))
	}

	if s.Razorpay.KeyID == "" || s.Razorpay.KeySecret == "" {
		errs = append(errs, errors.New("razorpay.key_id and razorpay.key_secret are required"))
	}

	if env == PROD {
		if len(s.HandoffSecret) < 32 {
			errs = append(errs, errors.New("handoff_secret must be at least 32 bytes in PROD"))
		}
		if s.RecaptchaSecret == "" {
			errs = append(errs, errors.New("recaptcha_secret is required in PROD"))
		}
		if s.Razorpay.WebhookSecret == "" {
			errs = append(errs, errors.New("razorpay.webhook_secret is required in PROD"))
		}
		if s.Admin.GoogleClientID == "" {
			errs = append(errs, errors.New("admin.google_client_id is required in PROD"))
		}
		if s.Admin.AllowedDomain == "" && len(s.Admin.AllowedEmails) == 0 {
			errs = append(errs, errors.New("admin.allowed_domain or admin.allowed_emails is required in PROD"))
		}
		if len(s.CORSOrigins) == 0 {
			errs = append(errs, errors.New("cors_origins is required in PROD"))
		}
	}

	return errors.Join(errs...)
}
