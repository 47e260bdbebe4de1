// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Mail transports.
const (
	TransportLog      = "log"
	TransportSMTP     = "smtp"
	TransportSendGrid = "sendgrid"
)

// MinBcryptCost is the lowest accepted work factor.
const MinBcryptCost = 12

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	CORS      CORSConfig
	Cleanup   CleanupConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host           string
	Port           int
	MaxBodySize    int      // in MB
	TrustedProxies []string // CIDRs whose X-Forwarded-For is honored
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	Driver string // memory, sqlite, postgres
	DSN    string
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	JWTSecret  string // empty generates a random secret at startup
	TokenTTL   time.Duration
	BcryptCost int
	CodeTTL    time.Duration
}

type RateLimitConfig struct {
	AuthLimit    int
	AuthWindow   time.Duration
	VerifyLimit  int
	VerifyWindow time.Duration
}

type MailConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Transport string // log, smtp, sendgrid
	Locale    string
	SMTP      SMTPConfig
	SendGrid  SendGridConfig
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type SendGridConfig struct {
	APIKey  string
	Sandbox bool
}

type CORSConfig struct {
	AllowOrigins []string
}

type CleanupConfig struct {
	Schedule string // cron spec, e.g. "@every 1h"
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:           cmd.String("host"),
			Port:           int(cmd.Int("port")),
			MaxBodySize:    int(cmd.Int("max-body-size")),
			TrustedProxies: cmd.StringSlice("trusted-proxies"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(cmd.String("database-driver")),
			DSN:    cmd.String("database-dsn"),
		},
		Auth: AuthConfig{
			JWTSecret:  cmd.String("jwt-secret"),
			TokenTTL:   cmd.Duration("token-ttl"),
			BcryptCost: int(cmd.Int("bcrypt-cost")),
			CodeTTL:    cmd.Duration("code-ttl"),
		},
		RateLimit: RateLimitConfig{
			AuthLimit:    int(cmd.Int("auth-rate-limit")),
			AuthWindow:   cmd.Duration("auth-rate-window"),
			VerifyLimit:  int(cmd.Int("verify-rate-limit")),
			VerifyWindow: cmd.Duration("verify-rate-window"),
		},
		Mail: MailConfig{
			Transport: strings.ToLower(cmd.String("mail-transport")),
			Locale:    cmd.String("mail-locale"),
			SMTP: SMTPConfig{
				Host:     cmd.String("smtp-host"),
				Port:     int(cmd.Int("smtp-port")),
				Username: cmd.String("smtp-username"),
				Password: cmd.String("smtp-password"),
				From:     cmd.String("smtp-from"),
				FromName: cmd.String("smtp-from-name"),
				TLS:      cmd.Bool("smtp-tls"),
			},
			SendGrid: SendGridConfig{
				APIKey:  cmd.String("sendgrid-api-key"),
				Sandbox: cmd.Bool("sendgrid-sandbox"),
			},
		},
		CORS: CORSConfig{
			AllowOrigins: cmd.StringSlice("cors-allow-origins"),
		},
		Cleanup: CleanupConfig{
			Schedule: cmd.String("cleanup-schedule"),
		},
	}

	return cfg
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]string{DriverMemory, DriverSQLite, DriverPostgres}, c.Database.Driver) {
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.Driver == DriverPostgres && c.Database.DSN == "" {
		errs = append(errs, errors.New("database dsn is required for postgres"))
	}
	for _, cidr := range c.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errs = append(errs, fmt.Errorf("invalid trusted proxy range %q", cidr))
		}
	}
	if c.Auth.BcryptCost < MinBcryptCost {
		errs = append(errs, fmt.Errorf("bcrypt cost must be at least %d", MinBcryptCost))
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.CodeTTL <= 0 {
		errs = append(errs, errors.New("token and code ttl must be positive"))
	}
	if c.RateLimit.AuthLimit <= 0 || c.RateLimit.VerifyLimit <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.RateLimit.AuthWindow <= 0 || c.RateLimit.VerifyWindow <= 0 {
		errs = append(errs, errors.New("rate limit windows must be positive"))
	}

	switch c.Mail.Transport {
	case TransportLog:
	case TransportSMTP:
		if c.Mail.SMTP.Host == "" {
			errs = append(errs, errors.New("smtp host is required for the smtp transport"))
		}
		if c.Mail.SMTP.From == "" {
			errs = append(errs, errors.New("smtp from address is required for the smtp transport"))
		}
	case TransportSendGrid:
		if c.Mail.SendGrid.APIKey == "" {
			errs = append(errs, errors.New("sendgrid api key is required for the sendgrid transport"))
		}
		if c.Mail.SMTP.From == "" {
			errs = append(errs, errors.New("smtp from address is required for the sendgrid transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported mail transport %q", c.Mail.Transport))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   3000,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringSliceFlag{
			Name:    "trusted-proxies",
			Usage:   "CIDR ranges of reverse proxies allowed to set X-Forwarded-For",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TRUSTED_PROXIES"), toml.TOML("server.trusted_proxies", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-driver",
			Value:   DriverSQLite,
			Usage:   "Database driver (memory, sqlite, postgres)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DRIVER"), toml.TOML("database.driver", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Usage:   "Database DSN (defaults to ./data/remind.db for sqlite)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		// Auth flags
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "Secret for signing access tokens (random per start if empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET"), toml.TOML("auth.jwt_secret", configFile)),
		},
		&cli.DurationFlag{
			Name:    "token-ttl",
			Value:   7 * 24 * time.Hour,
			Usage:   "Access token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TOKEN_TTL"), toml.TOML("auth.token_ttl", configFile)),
		},
		&cli.IntFlag{
			Name:    "bcrypt-cost",
			Value:   MinBcryptCost,
			Usage:   "bcrypt work factor (at least 12)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BCRYPT_COST"), toml.TOML("auth.bcrypt_cost", configFile)),
		},
		&cli.DurationFlag{
			Name:    "code-ttl",
			Value:   15 * time.Minute,
			Usage:   "Verification code lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CODE_TTL"), toml.TOML("auth.code_ttl", configFile)),
		},
		// Rate limit flags
		&cli.IntFlag{
			Name:    "auth-rate-limit",
			Value:   10,
			Usage:   "Requests per window on signup and login",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_RATE_LIMIT"), toml.TOML("rate_limit.auth_limit", configFile)),
		},
		&cli.DurationFlag{
			Name:    "auth-rate-window",
			Value:   15 * time.Minute,
			Usage:   "Window for the signup and login limit",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_RATE_WINDOW"), toml.TOML("rate_limit.auth_window", configFile)),
		},
		&cli.IntFlag{
			Name:    "verify-rate-limit",
			Value:   5,
			Usage:   "Requests per window on email verification",
			Sources: cli.NewValueSourceChain(cli.EnvVar("VERIFY_RATE_LIMIT"), toml.TOML("rate_limit.verify_limit", configFile)),
		},
		&cli.DurationFlag{
			Name:    "verify-rate-window",
			Value:   5 * time.Minute,
			Usage:   "Window for the verification limit",
			Sources: cli.NewValueSourceChain(cli.EnvVar("VERIFY_RATE_WINDOW"), toml.TOML("rate_limit.verify_window", configFile)),
		},
		// Mail flags
		&cli.StringFlag{
			Name:    "mail-transport",
			Value:   TransportLog,
			Usage:   "Mail transport (log, smtp, sendgrid)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_TRANSPORT"), toml.TOML("mail.transport", configFile)),
		},
		&cli.StringFlag{
			Name:    "mail-locale",
			Value:   "en",
			Usage:   "Language of outgoing mail (en, de)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_LOCALE"), toml.TOML("mail.locale", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("mail.smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("mail.smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("mail.smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("mail.smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@remind.local",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("mail.smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "ReMind",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("mail.smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("mail.smtp.tls", configFile)),
		},
		&cli.StringFlag{
			Name:    "sendgrid-api-key",
			Usage:   "SendGrid API key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SENDGRID_API_KEY"), toml.TOML("mail.sendgrid.api_key", configFile)),
		},
		&cli.BoolFlag{
			Name:    "sendgrid-sandbox",
			Usage:   "Send SendGrid mail in sandbox mode",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SENDGRID_SANDBOX"), toml.TOML("mail.sendgrid.sandbox", configFile)),
		},
		// HTTP flags
		&cli.StringSliceFlag{
			Name:    "cors-allow-origins",
			Value:   []string{"*"},
			Usage:   "Allowed CORS origins",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CORS_ALLOW_ORIGINS"), toml.TOML("cors.allow_origins", configFile)),
		},
		&cli.StringFlag{
			Name:    "cleanup-schedule",
			Value:   "@every 1h",
			Usage:   "Cron schedule for purging expired verification codes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CLEANUP_SCHEDULE"), toml.TOML("cleanup.schedule", configFile)),
		},
	}
}
