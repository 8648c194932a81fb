package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/adriandotdev/pnc-topup/internal/logger"
)

const (
	defaultListenAddr     = "localhost:8000"
	defaultLoggingLevel   = logger.LevelInfo
	defaultEnvironment    = logger.EnvProduction
	defaultPollInterval   = time.Second
	defaultPollTimeout    = 30 * time.Second
	defaultExpireAfter    = time.Hour
	defaultExpireInterval = time.Minute
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the topup service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Environment: development logs as text, anything else as JSON
	Environment string

	// Secret to sign and verify user access tokens (HS256)
	AccessKey string

	// Path to PEM public key of payment redirect tokens (RS256)
	PaymentTokenPublicKey string
	PaymentTokenIssuer    string

	// Authorizer that hands out credentials for gateway calls
	AuthModuleURL           string
	AuthModuleGrantType     string
	AuthModuleAuthorization string

	GCashSourceURL    string
	GCashPaymentURL   string
	MayaPaymentURL    string
	MayaGetPaymentURL string
	CardPollInterval  time.Duration
	CardPollTimeout   time.Duration
	TopupExpireAfter  time.Duration
	TopupExpireEvery  time.Duration

	// Optional api client registered on start, used by verify endpoint callers
	APIClientUsername string
	APIClientPassword string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:           defaultLoggingLevel,
		ListenAddr:         defaultListenAddr,
		Environment:        defaultEnvironment,
		PaymentTokenIssuer: "parkncharge",
		CardPollInterval:   defaultPollInterval,
		CardPollTimeout:    defaultPollTimeout,
		TopupExpireAfter:   defaultExpireAfter,
		TopupExpireEvery:   defaultExpireInterval,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":              setString(&c.ListenAddr),
		"DATABASE_URI":             setString(&c.DatabaseDSN),
		"LOG_LEVEL":                setString(&c.LogLevel),
		"ENVIRONMENT":              setString(&c.Environment),
		"JWT_ACCESS_KEY":           setString(&c.AccessKey),
		"PAYMENT_TOKEN_PUBLIC_KEY": setString(&c.PaymentTokenPublicKey),
		"PAYMENT_TOKEN_ISSUER":     setString(&c.PaymentTokenIssuer),
		"AUTHMODULE_URL":           setString(&c.AuthModuleURL),
		"AUTHMODULE_GRANT_TYPE":    setString(&c.AuthModuleGrantType),
		"AUTHMODULE_AUTHORIZATION": setString(&c.AuthModuleAuthorization),
		"GCASH_SOURCE_URL":         setString(&c.GCashSourceURL),
		"GCASH_PAYMENT_URL":        setString(&c.GCashPaymentURL),
		"MAYA_PAYMENT_URL":         setString(&c.MayaPaymentURL),
		"MAYA_GET_PAYMENT_URL":     setString(&c.MayaGetPaymentURL),
		"CARD_POLL_INTERVAL":       setDuration(&c.CardPollInterval),
		"CARD_POLL_TIMEOUT":        setDuration(&c.CardPollTimeout),
		"TOPUP_EXPIRE_AFTER":       setDuration(&c.TopupExpireAfter),
		"TOPUP_EXPIRE_INTERVAL":    setDuration(&c.TopupExpireEvery),
		"API_CLIENT_USERNAME":      setString(&c.APIClientUsername),
		"API_CLIENT_PASSWORD":      setString(&c.APIClientPassword),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s. Err: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("pnctopup", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (development, production)")
	fs.StringVarP(&c.AccessKey, "access-key", "s", c.AccessKey, "Access token secret key")
	fs.StringVarP(&c.PaymentTokenPublicKey, "payment-public-key", "k", c.PaymentTokenPublicKey, "Path to payment token public key (PEM)")
	fs.StringVar(&c.PaymentTokenIssuer, "payment-issuer", c.PaymentTokenIssuer, "Expected payment token issuer, empty disables the check")
	fs.StringVar(&c.AuthModuleURL, "authmodule-url", c.AuthModuleURL, "Authorizer URL")
	fs.StringVar(&c.AuthModuleGrantType, "authmodule-grant-type", c.AuthModuleGrantType, "Authorizer grant type")
	fs.StringVar(&c.AuthModuleAuthorization, "authmodule-authorization", c.AuthModuleAuthorization, "Authorizer basic credential")
	fs.StringVar(&c.GCashSourceURL, "gcash-source-url", c.GCashSourceURL, "Wallet gateway source URL")
	fs.StringVar(&c.GCashPaymentURL, "gcash-payment-url", c.GCashPaymentURL, "Wallet gateway payment URL")
	fs.StringVar(&c.MayaPaymentURL, "maya-payment-url", c.MayaPaymentURL, "Card gateway payment URL")
	fs.StringVar(&c.MayaGetPaymentURL, "maya-get-payment-url", c.MayaGetPaymentURL, "Card gateway payment status URL")
	fs.DurationVar(&c.CardPollInterval, "card-poll-interval", c.CardPollInterval, "Card payment status poll interval")
	fs.DurationVar(&c.CardPollTimeout, "card-poll-timeout", c.CardPollTimeout, "Card payment status poll timeout")
	fs.DurationVar(&c.TopupExpireAfter, "topup-expire-after", c.TopupExpireAfter, "Age of pending topup to be expired")
	fs.DurationVar(&c.TopupExpireEvery, "topup-expire-interval", c.TopupExpireEvery, "How often pending topups are expired")

	return fs.Parse(args)
}

// Validate checks that everything required to serve topups is set
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"database dsn", c.DatabaseDSN},
		{"access token secret key", c.AccessKey},
		{"payment token public key", c.PaymentTokenPublicKey},
		{"authmodule url", c.AuthModuleURL},
		{"gcash source url", c.GCashSourceURL},
		{"gcash payment url", c.GCashPaymentURL},
		{"maya payment url", c.MayaPaymentURL},
		{"maya get payment url", c.MayaGetPaymentURL},
	}

	var errs []error
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}

	if c.CardPollInterval <= 0 || c.CardPollTimeout <= 0 {
		errs = append(errs, errors.New("card poll interval and timeout must be positive"))
	}
	if c.TopupExpireAfter <= 0 || c.TopupExpireEvery <= 0 {
		errs = append(errs, errors.New("topup expiry settings must be positive"))
	}
	if (c.APIClientUsername == "") != (c.APIClientPassword == "") {
		errs = append(errs, errors.New("api client username and password must be set together"))
	}

	return errors.Join(errs...)
}
