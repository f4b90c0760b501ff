package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "VIDEOMAGIC_DB_DSN"
	EnvDBHost = "VIDEOMAGIC_DB_HOST"
	EnvDBUser = "VIDEOMAGIC_DB_USER"
	EnvDBName = "VIDEOMAGIC_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Supabase      SupabaseConfig
	Storage       StorageConfig
	Stripe        StripeConfig
	Sora          SoraConfig
	Generation    GenerationConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VIDEOMAGIC_APP_ENV" required:"true"`
	Port         string `envconfig:"VIDEOMAGIC_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"VIDEOMAGIC_APP_PUBLIC_URL"`
	FrontendURL  string `envconfig:"VIDEOMAGIC_APP_FRONTEND_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"VIDEOMAGIC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VIDEOMAGIC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VIDEOMAGIC_DB_DSN"`
	Driver string `envconfig:"VIDEOMAGIC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VIDEOMAGIC_DB_HOST"`
	LegacyPort     int    `envconfig:"VIDEOMAGIC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VIDEOMAGIC_DB_USER"`
	LegacyPassword string `envconfig:"VIDEOMAGIC_DB_PASSWORD"`
	LegacyName     string `envconfig:"VIDEOMAGIC_DB_NAME"`
	LegacySSLMode  string `envconfig:"VIDEOMAGIC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VIDEOMAGIC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VIDEOMAGIC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VIDEOMAGIC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VIDEOMAGIC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VIDEOMAGIC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VIDEOMAGIC_REDIS_ADDR"`
	Password     string        `envconfig:"VIDEOMAGIC_REDIS_PASSWORD"`
	DB           int           `envconfig:"VIDEOMAGIC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VIDEOMAGIC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VIDEOMAGIC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VIDEOMAGIC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VIDEOMAGIC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VIDEOMAGIC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies access tokens issued by the Supabase auth service.
// Secret is the project's JWT secret; tokens are minted upstream, never here.
type JWTConfig struct {
	Secret   string `envconfig:"VIDEOMAGIC_SUPABASE_JWT_SECRET" required:"true"`
	Issuer   string `envconfig:"VIDEOMAGIC_SUPABASE_JWT_ISSUER"`
	Audience string `envconfig:"VIDEOMAGIC_SUPABASE_JWT_AUDIENCE" default:"authenticated"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"VIDEOMAGIC_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"VIDEOMAGIC_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"VIDEOMAGIC_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VIDEOMAGIC_AUTO_MIGRATE" default:"false"`
}

type SupabaseConfig struct {
	ProjectURL     string `envconfig:"VIDEOMAGIC_SUPABASE_URL" required:"true"`
	AnonKey        string `envconfig:"VIDEOMAGIC_SUPABASE_ANON_KEY" required:"true"`
	ServiceRoleKey string `envconfig:"VIDEOMAGIC_SUPABASE_SERVICE_ROLE_KEY"`
}

// ProjectRef extracts the project reference from the project URL
// (https://<ref>.supabase.co). Empty when the URL does not parse.
func (s SupabaseConfig) ProjectRef() string {
	u, err := url.Parse(s.ProjectURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Host
	if idx := strings.Index(host, "."); idx > 0 {
		return host[:idx]
	}
	return host
}

type StorageConfig struct {
	VideosBucket  string        `envconfig:"VIDEOMAGIC_STORAGE_VIDEOS_BUCKET" default:"videos"`
	UploadTimeout time.Duration `envconfig:"VIDEOMAGIC_STORAGE_UPLOAD_TIMEOUT" default:"2m"`
}

type StripeConfig struct {
	APIKey string `envconfig:"VIDEOMAGIC_STRIPE_API_KEY"`
	Secret string `envconfig:"VIDEOMAGIC_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"VIDEOMAGIC_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SoraConfig struct {
	APIURL        string `envconfig:"VIDEOMAGIC_SORA_API_URL" default:"https://api.openai.com/v1/videos"`
	APIKey        string `envconfig:"VIDEOMAGIC_SORA_API_KEY"`
	WebhookSecret string `envconfig:"VIDEOMAGIC_SORA_WEBHOOK_SECRET"`
	// SkipWebhookVerify disables inbound signature checks. Degraded mode for
	// local development only; flagged loudly at startup.
	SkipWebhookVerify bool          `envconfig:"VIDEOMAGIC_SORA_SKIP_WEBHOOK_VERIFY" default:"false"`
	RequestTimeout    time.Duration `envconfig:"VIDEOMAGIC_SORA_REQUEST_TIMEOUT" default:"60s"`
}

type GenerationConfig struct {
	PollInterval    time.Duration `envconfig:"VIDEOMAGIC_GENERATION_POLL_INTERVAL" default:"5s"`
	PollMaxAttempts int           `envconfig:"VIDEOMAGIC_GENERATION_POLL_MAX_ATTEMPTS" default:"60"`
	SweepInterval   time.Duration `envconfig:"VIDEOMAGIC_GENERATION_SWEEP_INTERVAL" default:"30s"`
	MaxImageBytes   int64         `envconfig:"VIDEOMAGIC_GENERATION_MAX_IMAGE_BYTES" default:"10485760"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
