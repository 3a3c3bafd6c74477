package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/tasaciones/crm-backend/internal/logger"
)

const (
	defaultListenAddr    = "localhost:8000"
	defaultLoggingLevel  = logger.LevelInfo
	defaultEnvironment   = logger.EnvProduction
	defaultMongoDatabase = "tasaciones"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the crm backend will be run
	ListenAddr string

	// Document database to connect to
	MongoURI      string
	MongoDatabase string

	// Server-side OAuth client for the calendar consent flow.
	// The only process-wide holder of the client secret.
	GoogleClientID     string
	GoogleClientSecret string

	// Service account used by the Drive upload proxy
	DriveServiceAccountEmail string
	DrivePrivateKey          string
	DriveFolderID            string

	// Secret key to verify signed uid assertions. Empty disables the check.
	SecretKey string

	// Also drop the stored refresh token when a user signs out
	RevokeOnSignOut bool

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:      defaultLoggingLevel,
		ListenAddr:    defaultListenAddr,
		MongoDatabase: defaultMongoDatabase,
		Environment:   defaultEnvironment,
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
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setBool := func(o *bool) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value == "true" || value == "1"
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":                  setString(&c.ListenAddr),
		"MONGO_URI":                    setString(&c.MongoURI),
		"MONGO_DB":                     setString(&c.MongoDatabase),
		"GOOGLE_CLIENT_ID":             setString(&c.GoogleClientID),
		"GOOGLE_CLIENT_SECRET":         setString(&c.GoogleClientSecret),
		"GOOGLE_SERVICE_ACCOUNT_EMAIL": setString(&c.DriveServiceAccountEmail),
		"GOOGLE_PRIVATE_KEY":           setString(&c.DrivePrivateKey),
		"GOOGLE_DRIVE_FOLDER_ID":       setString(&c.DriveFolderID),
		"SECRET_KEY":                   setString(&c.SecretKey),
		"REVOKE_ON_SIGNOUT":            setBool(&c.RevokeOnSignOut),
		"LOG_LEVEL":                    setString(&c.LogLevel),
		"ENVIRONMENT":                  setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("crmserver", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.MongoURI, "mongo-uri", "m", c.MongoURI, "Document database connection string")
	fs.StringVar(&c.MongoDatabase, "mongo-db", c.MongoDatabase, "Document database name")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key to verify uid assertions")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.BoolVar(&c.RevokeOnSignOut, "revoke-on-signout", c.RevokeOnSignOut, "Drop the refresh token on sign-out")

	return fs.Parse(args)
}

// Validate checks the options the server cannot start without.
// Google credentials are deliberately not here: the server boots without
// them and answers the affected routes with a configuration error.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return errors.New("document database connection string is required (MONGO_URI or --mongo-uri)")
	}
	return nil
}
