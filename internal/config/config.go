package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings" // strings helps normalize boolean flags

	"github.com/joho/godotenv" // godotenv loads a local .env file in development
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Strings for identifiers and secrets; booleans
// for feature flags.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	SecretKey    string // application secret; keys the at-rest session token digests
	ResendAPIKey string // Resend API key for verification email delivery
	EmailFrom    string // From address for outgoing verification mail
	DebugEmail   bool   // when true, email sends are simulated and the code is logged
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file is honored when present.  Required variables are
// enforced by must() and missing values cause the program to exit with a
// fatal log message.  RESEND_API_KEY is only required when DEBUG_EMAIL is
// not enabled, so local development works without a provider account.
func Load() Config {
	_ = godotenv.Load() // absence of a .env file is fine

	cfg := Config{
		Env:        must("APP_ENV"),      // environment (dev/test/prod)
		Port:       must("APP_PORT"),     // port to bind the HTTP server
		DBUser:     must("DB_USER"),      // database user
		DBPass:     os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:     must("DB_HOST"),      // database host
		DBPort:     must("DB_PORT"),      // database port
		DBName:     must("DB_NAME"),      // database name
		SecretKey:  must("SECRET_KEY"),   // secret for session token digests
		EmailFrom:  getenv("EMAIL_FROM", "onboarding@resend.dev"),
		DebugEmail: boolenv("DEBUG_EMAIL"),
	}
	if cfg.DebugEmail {
		cfg.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	} else {
		cfg.ResendAPIKey = must("RESEND_API_KEY")
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func boolenv(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
