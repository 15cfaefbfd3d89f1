// Package config loads the application settings. Values are merged from
// built-in defaults, an optional JSON file, environment variables and
// command line flags, in that order of precedence, and then validated.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the rango server.
type Config struct {
	ConfigFile              string        `env:"CONFIG" json:"-"`
	RunAddr                 string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel                string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	DatabaseDSN             string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBFileName              string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"filepath"`
	DBConnectionTimeout     time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"-" validate:"gt=0"`
	SessionCookieName       string        `env:"SESSION_COOKIE_NAME" json:"session_cookie_name" validate:"required"`
	SessionSigningSecretKey string        `env:"SESSION_SECRET_KEY" json:"session_secret_key" validate:"required,base64url"`
	SessionMaxAge           time.Duration `env:"SESSION_MAX_AGE" json:"-" validate:"gt=0"`
	MediaDir                string        `env:"MEDIA_DIR" json:"media_dir" validate:"required,filepath"`
	TrustedSubnet           string        `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`
	ViewsQueueCapacity      int           `env:"VIEWS_QUEUE_CAPACITY" json:"views_queue_capacity" validate:"gt=0"`
	ViewsFlushInterval      time.Duration `env:"VIEWS_FLUSH_INTERVAL" json:"-" validate:"gt=0"`
	MaxRequestBodySize      int64         `env:"MAX_REQUEST_BODY_SIZE" json:"max_request_body_size" validate:"gt=0"`
}

const sessionKeySize = 32

var defaultConfig = Config{
	RunAddr:                 ":8080",
	LogLevel:                "info",
	DatabaseDSN:             "",
	DBFileName:              "",
	DBConnectionTimeout:     10 * time.Second,
	SessionCookieName:       "sessionid",
	SessionSigningSecretKey: "",
	SessionMaxAge:           14 * 24 * time.Hour,
	MediaDir:                "media",
	TrustedSubnet:           "",
	ViewsQueueCapacity:      1000,
	ViewsFlushInterval:      2 * time.Second,
	MaxRequestBodySize:      10 << 20,
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips command line parsing, which is what tests want.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs replaces os.Args[1:] as the source of command line flags.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds the configuration: defaults, then the JSON file named by
// CONFIG or -c, then environment variables, then flags.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	var valuesFromFlags Config
	if !options.disableFlagsParsing {
		if err := parseFlags(&valuesFromFlags, options.args); err != nil {
			return nil, err
		}
	}

	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}

	configFile := valuesFromEnv.ConfigFile
	if valuesFromFlags.ConfigFile != "" {
		configFile = valuesFromFlags.ConfigFile
	}
	if configFile != "" {
		valuesFromJSON, err := loadJSON(configFile)
		if err != nil {
			return nil, err
		}
		values.override(valuesFromJSON)
	}

	values.override(&valuesFromEnv)
	values.override(&valuesFromFlags)
	values.ConfigFile = configFile

	if values.SessionSigningSecretKey == "" {
		values.SessionSigningSecretKey, err = generateSessionKey()
		if err != nil {
			return nil, err
		}
		log.Printf("SESSION_SECRET_KEY is not set: sessions are signed with a random key and will not survive a restart")
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

// generateSessionKey returns a random base64url encoded key.
func generateSessionKey() (string, error) {
	key := make([]byte, sessionKeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("in internal/config/config.go/generateSessionKey(): error while `rand.Read()` calling: %w", err)
	}

	return base64.URLEncoding.EncodeToString(key), nil
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func parseFlags(values *Config, args []string) error {
	flagSet := flag.NewFlagSet("rango", flag.ContinueOnError)
	flagSet.StringVar(&values.RunAddr, "a", "", "address and port to run server")
	flagSet.StringVar(&values.LogLevel, "l", "", "logger level")
	flagSet.StringVar(&values.DBFileName, "f", "", "JSON file name with database")
	flagSet.StringVar(&values.DatabaseDSN, "d", "", "A string with the database connection details")
	flagSet.StringVar(&values.MediaDir, "m", "", "directory for uploaded profile pictures")
	flagSet.StringVar(&values.TrustedSubnet, "t", "", "CIDR allowed to read internal stats")
	flagSet.StringVar(&values.ConfigFile, "c", "", "JSON configuration file")

	return flagSet.Parse(args)
}

func loadJSON(fileName string) (*Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	var result Config
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	return &result, nil
}

func (c *Config) override(src *Config) {
	if src.RunAddr != "" {
		c.RunAddr = src.RunAddr
	}

	if src.LogLevel != "" {
		c.LogLevel = src.LogLevel
	}

	if src.DatabaseDSN != "" {
		c.DatabaseDSN = src.DatabaseDSN
	}

	if src.DBFileName != "" {
		c.DBFileName = src.DBFileName
	}

	if src.DBConnectionTimeout != 0 {
		c.DBConnectionTimeout = src.DBConnectionTimeout
	}

	if src.SessionCookieName != "" {
		c.SessionCookieName = src.SessionCookieName
	}

	if src.SessionSigningSecretKey != "" {
		c.SessionSigningSecretKey = src.SessionSigningSecretKey
	}

	if src.SessionMaxAge != 0 {
		c.SessionMaxAge = src.SessionMaxAge
	}

	if src.MediaDir != "" {
		c.MediaDir = src.MediaDir
	}

	if src.TrustedSubnet != "" {
		c.TrustedSubnet = src.TrustedSubnet
	}

	if src.ViewsQueueCapacity != 0 {
		c.ViewsQueueCapacity = src.ViewsQueueCapacity
	}

	if src.ViewsFlushInterval != 0 {
		c.ViewsFlushInterval = src.ViewsFlushInterval
	}

	if src.MaxRequestBodySize != 0 {
		c.MaxRequestBodySize = src.MaxRequestBodySize
	}
}
