package internal

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Tochka        TochkaConfig        `mapstructure:"tochka"`
	Sweeper       SweeperConfig       `mapstructure:"sweeper"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

// SecurityConfig carries the key material for inbound bearer-token checks.
// Tokens are issued by an external identity service; this process only
// verifies them.
type SecurityConfig struct {
	AuthPublicKey string `mapstructure:"auth_public_key" validate:"required"`
}

// TochkaConfig configures the SBP QR-payment gateway integration.
type TochkaConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	TokenURL       string        `mapstructure:"token_url"`
	ClientID       string        `mapstructure:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret"`
	MerchantID     string        `mapstructure:"merchant_id"`
	AccountID      string        `mapstructure:"account_id"`
	StaticToken    string        `mapstructure:"static_token"`
	RedirectURL    string        `mapstructure:"redirect_url"`
	WebhookKey     string        `mapstructure:"webhook_public_key" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	QRCodeTTL      int           `mapstructure:"qr_code_ttl_minutes"`
}

type SweeperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- ENV LOADING -----------------

// LoadConfigFromEnv builds a Config entirely from environment variables,
// used for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:           getEnv("SERVER_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Security: SecurityConfig{
			AuthPublicKey: getEnv("AUTH_PUBLIC_KEY", ""),
		},
		Tochka: TochkaConfig{
			BaseURL:        getEnv("TOCHKA_BASE_URL", "https://enter.tochka.com/sandbox/v2"),
			TokenURL:       getEnv("TOCHKA_TOKEN_URL", "https://enter.tochka.com/connect/token"),
			ClientID:       getEnv("TOCHKA_CLIENT_ID", ""),
			ClientSecret:   getEnv("TOCHKA_CLIENT_SECRET", ""),
			MerchantID:     getEnv("TOCHKA_MERCHANT_ID", ""),
			AccountID:      getEnv("TOCHKA_ACCOUNT_ID", ""),
			StaticToken:    getEnv("TOCHKA_STATIC_TOKEN", ""),
			RedirectURL:    getEnv("TOCHKA_REDIRECT_URL", ""),
			WebhookKey:     getEnv("TOCHKA_WEBHOOK_PUBLIC_KEY", ""),
			RequestTimeout: getEnvAsDuration("TOCHKA_REQUEST_TIMEOUT", 30*time.Second),
			QRCodeTTL:      getEnvAsInt("TOCHKA_QR_CODE_TTL_MINUTES", 15),
		},
		Sweeper: SweeperConfig{
			Interval: getEnvAsDuration("SWEEPER_INTERVAL", 1*time.Hour),
			MaxAge:   getEnvAsDuration("SWEEPER_MAX_AGE", 24*time.Hour),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Tochka.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("tochka config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *TochkaConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if c.WebhookKey != "" {
		if _, err := c.GetWebhookPublicKey(); err != nil {
			return fmt.Errorf("invalid webhook public key: %w", err)
		}
	}
	return nil
}

// HasClientCredentials reports whether a client-credentials exchange can be
// attempted at all.
func (c *TochkaConfig) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// GetWebhookPublicKey decodes the base64-wrapped PEM public key used to
// verify signed gateway callbacks.
func (c *TochkaConfig) GetWebhookPublicKey() (*rsa.PublicKey, error) {
	return parseRSAPublicKey(c.WebhookKey)
}

func (c *SecurityConfig) GetAuthPublicKey() (*rsa.PublicKey, error) {
	return parseRSAPublicKey(c.AuthPublicKey)
}

func parseRSAPublicKey(encoded string) (*rsa.PublicKey, error) {
	keyData, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaPub, nil
}
