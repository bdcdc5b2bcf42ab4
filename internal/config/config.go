package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Postgres  PostgresConfig  `env:",prefix=POSTGRES_"`
	Redis     RedisConfig     `env:",prefix=REDIS_"`
	Session   SessionConfig   `env:",prefix=SESSION_"`
	MagicLink MagicLinkConfig `env:",prefix=MAGIC_LINK_"`
	WebAuthn  WebAuthnConfig  `env:",prefix=WEBAUTHN_"`
	OAuth     OAuthConfig     `env:",prefix=OAUTH_"`
	Security  SecurityConfig  `env:",prefix="`
	CORS      CORSConfig      `env:",prefix=CORS_"`
	BaseURL        string `env:"BASE_URL,default=http://localhost:8080"`
	MigrationsPath string `env:"MIGRATIONS_PATH,default=migrations"`
	Env            string `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=auth_service"`
	Password string `env:"PASSWORD,default=auth_service_password"`
	DBName   string `env:"DB,default=auth_service_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type SessionConfig struct {
	// Sessions live 30 days; any request inside the final renewal
	// window slides the expiry forward by a full TTL.
	TTL        Duration `env:"TTL,default=30d"`
	RenewBelow Duration `env:"RENEW_BELOW,default=7d"`
	SweepEvery Duration `env:"SWEEP_EVERY,default=1h"`
}

type MagicLinkConfig struct {
	TTL Duration `env:"TTL,default=15m"`
}

type WebAuthnConfig struct {
	RPID         string   `env:"RP_ID,default=localhost"`
	RPName       string   `env:"RP_NAME,default=Nimbus Note"`
	RPOrigins    []string `env:"RP_ORIGINS,default=http://localhost:8080"`
	ChallengeTTL Duration `env:"CHALLENGE_TTL,default=5m"`
}

type OAuthConfig struct {
	StateTTL Duration     `env:"STATE_TTL,default=10m"`
	Google   GoogleConfig `env:",prefix=GOOGLE_"`
	Apple    AppleConfig  `env:",prefix=APPLE_"`
}

type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI"`
}

type AppleConfig struct {
	ClientID      string `env:"CLIENT_ID"`
	TeamID        string `env:"TEAM_ID"`
	KeyID         string `env:"KEY_ID"`
	PrivateKeyPEM string `env:"PRIVATE_KEY"`
	RedirectURI   string `env:"REDIRECT_URI"`
}

type SecurityConfig struct {
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// Enabled reports whether the Google client is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Enabled reports whether the Apple client is configured.
func (a AppleConfig) Enabled() bool {
	return a.ClientID != "" && a.TeamID != "" && a.KeyID != "" && a.PrivateKeyPEM != ""
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if config.Session.RenewBelow.Duration >= config.Session.TTL.Duration {
		return nil, fmt.Errorf("SESSION_RENEW_BELOW must be shorter than SESSION_TTL")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
