package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Store     StoreConfig
	S3        S3Config
	Artefacts ArtefactConfig
	Log       LogConfig
	Manifest  ManifestConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StoreConfig selects the encounter store backend.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // postgres | sqlite
	SQLitePath string `mapstructure:"sqlite_path"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// ArtefactConfig locates per-document artefacts in object storage.
// Templates are expanded with {shell_file_id}.
type ArtefactConfig struct {
	OCRKeyTemplate      string `mapstructure:"ocr_key_template"`
	ResponseKeyTemplate string `mapstructure:"response_key_template"`
}

// OCRKey returns the object key of the OCR page-geometry artefact.
func (a *ArtefactConfig) OCRKey(shellFileID string) string {
	return strings.ReplaceAll(a.OCRKeyTemplate, "{shell_file_id}", shellFileID)
}

// ResponseKey returns the object key of the stored AI encounter response.
func (a *ArtefactConfig) ResponseKey(shellFileID string) string {
	return strings.ReplaceAll(a.ResponseKeyTemplate, "{shell_file_id}", shellFileID)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ManifestConfig holds encounter pipeline settings.
type ManifestConfig struct {
	Policy            string `mapstructure:"policy"`
	IdentifiedInPass  string `mapstructure:"identified_in_pass"`
	ReplayTimeoutSecs int    `mapstructure:"replay_timeout_secs"`
	MaxPage           int    `mapstructure:"max_page"`
}

// ReplayTimeout bounds one replay run. Zero or a negative setting disables the bound.
func (m *ManifestConfig) ReplayTimeout() time.Duration {
	if m.ReplayTimeoutSecs <= 0 {
		return 0
	}
	return time.Duration(m.ReplayTimeoutSecs) * time.Second
}

// Load reads configuration from environment variables with the GUARDIAN_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GUARDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_origins", "http://localhost:3000")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "guardian")
	v.SetDefault("db.password", "guardian_secret")
	v.SetDefault("db.name", "guardian_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Store defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "guardian.db")

	// S3 defaults
	v.SetDefault("s3.region", "ap-southeast-2")
	v.SetDefault("s3.bucket", "guardian-shell-files")
	v.SetDefault("s3.endpoint", "")

	// Artefact defaults
	v.SetDefault("artefacts.ocr_key_template", "ocr/{shell_file_id}/pages.json")
	v.SetDefault("artefacts.response_key_template", "ai/{shell_file_id}/encounters.json")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Manifest defaults
	v.SetDefault("manifest.policy", "abort_all")
	v.SetDefault("manifest.identified_in_pass", "pass_0.5")
	v.SetDefault("manifest.replay_timeout_secs", 120)
	v.SetDefault("manifest.max_page", 5000)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                     "GUARDIAN_SERVER_PORT",
		"server.read_timeout":             "GUARDIAN_SERVER_READ_TIMEOUT",
		"server.write_timeout":            "GUARDIAN_SERVER_WRITE_TIMEOUT",
		"server.environment":              "GUARDIAN_SERVER_ENVIRONMENT",
		"server.cors_origins":             "GUARDIAN_SERVER_CORS_ORIGINS",
		"db.host":                         "GUARDIAN_DB_HOST",
		"db.port":                         "GUARDIAN_DB_PORT",
		"db.user":                         "GUARDIAN_DB_USER",
		"db.password":                     "GUARDIAN_DB_PASSWORD",
		"db.name":                         "GUARDIAN_DB_NAME",
		"db.sslmode":                      "GUARDIAN_DB_SSLMODE",
		"db.max_open":                     "GUARDIAN_DB_MAX_OPEN",
		"db.max_idle":                     "GUARDIAN_DB_MAX_IDLE",
		"store.driver":                    "GUARDIAN_STORE_DRIVER",
		"store.sqlite_path":               "GUARDIAN_STORE_SQLITE_PATH",
		"s3.region":                       "GUARDIAN_S3_REGION",
		"s3.bucket":                       "GUARDIAN_S3_BUCKET",
		"s3.endpoint":                     "GUARDIAN_S3_ENDPOINT",
		"s3.access_key":                   "GUARDIAN_S3_ACCESS_KEY",
		"s3.secret_key":                   "GUARDIAN_S3_SECRET_KEY",
		"artefacts.ocr_key_template":      "GUARDIAN_ARTEFACTS_OCR_KEY_TEMPLATE",
		"artefacts.response_key_template": "GUARDIAN_ARTEFACTS_RESPONSE_KEY_TEMPLATE",
		"log.level":                       "GUARDIAN_LOG_LEVEL",
		"log.format":                      "GUARDIAN_LOG_FORMAT",
		"manifest.policy":                 "GUARDIAN_MANIFEST_POLICY",
		"manifest.identified_in_pass":     "GUARDIAN_MANIFEST_IDENTIFIED_IN_PASS",
		"manifest.replay_timeout_secs":    "GUARDIAN_MANIFEST_REPLAY_TIMEOUT_SECS",
		"manifest.max_page":               "GUARDIAN_MANIFEST_MAX_PAGE",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Hosting platforms set PORT. Use it if GUARDIAN_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("GUARDIAN_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		CORSOrigins:  splitList(v.GetString("server.cors_origins")),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Store = StoreConfig{
		Driver:     v.GetString("store.driver"),
		SQLitePath: v.GetString("store.sqlite_path"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Artefacts = ArtefactConfig{
		OCRKeyTemplate:      v.GetString("artefacts.ocr_key_template"),
		ResponseKeyTemplate: v.GetString("artefacts.response_key_template"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Manifest = ManifestConfig{
		Policy:            v.GetString("manifest.policy"),
		IdentifiedInPass:  v.GetString("manifest.identified_in_pass"),
		ReplayTimeoutSecs: v.GetInt("manifest.replay_timeout_secs"),
		MaxPage:           v.GetInt("manifest.max_page"),
	}

	switch cfg.Store.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	return cfg, nil
}

// splitList parses a comma-separated setting, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
