package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Result store kinds accepted in results.store.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreXLSX     = "xlsx"
	StoreSheets   = "sheets"
)

// SourcePostgres selects the questions table as the question source.
const SourcePostgres = "postgres"

// ErrMissingGoogleCredentials is returned when service account variables are incomplete.
var ErrMissingGoogleCredentials = errors.New("missing google credential environment variables")

type Config struct {
	Server struct {
		Port       string `yaml:"port"`
		StaticDir  string `yaml:"static_dir"`
		TrustProxy bool   `yaml:"trust_proxy"` // honour X-Forwarded-For behind a reverse proxy
	} `yaml:"server"`
	Log struct {
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`
	Quiz struct {
		// Source is a .csv or .json question file, or "postgres".
		Source   string `yaml:"source"`
		Duration string `yaml:"duration"`
		TTL      string `yaml:"ttl"`
	} `yaml:"quiz"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Results struct {
		Store      string `yaml:"store"`
		TieBreak   string `yaml:"tie_break"`
		SQLitePath string `yaml:"sqlite_path"`
		XLSXPath   string `yaml:"xlsx_path"`
	} `yaml:"results"`
	Sheets struct {
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		Range           string `yaml:"range"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"sheets"`
	Admin struct {
		Password     string `yaml:"password"`
		PasswordHash string `yaml:"password_hash"`
		JWTSecret    string `yaml:"jwt_secret"`
		TokenTTL     string `yaml:"token_ttl"`
	} `yaml:"admin"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Env = "development"
	cfg.Log.Level = "info"
	cfg.Quiz.Source = "Question.csv"
	cfg.Quiz.Duration = "15m"
	cfg.Quiz.TTL = "10m"
	cfg.Redis.TTL = "30m"
	cfg.Results.Store = StoreMemory
	cfg.Results.TieBreak = "time_spent"
	cfg.Results.SQLitePath = "data/results.db"
	cfg.Results.XLSXPath = "data/results.xlsx"
	cfg.Sheets.Range = "Sheet1!A:Z"
	cfg.Admin.TokenTTL = "12h"
	return cfg
}

// Load reads YAML config from path over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding the real environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.Port, "PORT")
	set(&cfg.Log.Env, "APP_ENV")
	set(&cfg.Postgres.URL, "DATABASE_URL")
	set(&cfg.Redis.Addr, "REDIS_ADDR")
	set(&cfg.Redis.Password, "REDIS_PASSWORD")
	set(&cfg.Results.Store, "RESULTS_STORE")
	set(&cfg.Sheets.SpreadsheetID, "GOOGLE_SHEET_ID")
	set(&cfg.Admin.Password, "ADMIN_PASSWORD")
	set(&cfg.Admin.PasswordHash, "ADMIN_PASSWORD_HASH")
	set(&cfg.Admin.JWTSecret, "JWT_SECRET")

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}

	switch cfg.Results.Store {
	case StoreMemory, StorePostgres, StoreSQLite, StoreXLSX, StoreSheets:
	default:
		return fmt.Errorf("unknown results.store %q", cfg.Results.Store)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// GoogleCredentialVars maps service account JSON fields to the variables holding them.
var GoogleCredentialVars = []struct {
	Field string
	Env   string
}{
	{"type", "GOOGLE_TYPE"},
	{"project_id", "GOOGLE_PROJECT_ID"},
	{"private_key_id", "GOOGLE_PRIVATE_KEY_ID"},
	{"private_key", "GOOGLE_PRIVATE_KEY"},
	{"client_email", "GOOGLE_CLIENT_EMAIL"},
	{"client_id", "GOOGLE_CLIENT_ID"},
	{"auth_uri", "GOOGLE_AUTH_URI"},
	{"token_uri", "GOOGLE_TOKEN_URI"},
	{"auth_provider_x509_cert_url", "GOOGLE_AUTH_PROVIDER_X509_CERT_URL"},
	{"client_x509_cert_url", "GOOGLE_CLIENT_X509_CERT_URL"},
}

// GoogleCredentialsFromEnv assembles service account JSON from GOOGLE_* variables.
// On failure it returns the names of the missing variables.
func GoogleCredentialsFromEnv(lookup func(string) (string, bool)) ([]byte, []string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	creds := make(map[string]string, len(GoogleCredentialVars))
	var missing []string
	for _, v := range GoogleCredentialVars {
		value, ok := lookup(v.Env)
		if !ok || value == "" {
			missing = append(missing, v.Env)
			continue
		}
		creds[v.Field] = value
	}
	if len(missing) > 0 {
		return nil, missing, fmt.Errorf("%w: %v", ErrMissingGoogleCredentials, missing)
	}
	// .env files often carry the key with literal \n sequences
	creds["private_key"] = strings.ReplaceAll(creds["private_key"], `\n`, "\n")

	data, err := json.Marshal(creds)
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}

// GoogleCredentialsToEnv renders a service account JSON file as .env lines.
func GoogleCredentialsToEnv(credentialsJSON []byte, sheetID string) (string, error) {
	var creds map[string]interface{}
	if err := json.Unmarshal(credentialsJSON, &creds); err != nil {
		return "", fmt.Errorf("parse credentials: %w", err)
	}
	env := map[string]string{}
	for _, v := range GoogleCredentialVars {
		if s, ok := creds[v.Field].(string); ok {
			env[v.Env] = s
		}
	}
	if sheetID != "" {
		env["GOOGLE_SHEET_ID"] = sheetID
	}
	return godotenv.Marshal(env)
}
