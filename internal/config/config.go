// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and
// an optional JSON config file.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultJWTSecret is the development signing secret. It must be
	// overridden in production.
	DefaultJWTSecret = "your-super-secret-jwt-key"
	// DefaultMaxFileSize is the upload limit in bytes (10 MiB).
	DefaultMaxFileSize int64 = 10 << 20
	// DefaultTokenTTL is the lifetime of issued admin tokens.
	DefaultTokenTTL = 7 * 24 * time.Hour
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// JWTSecret signs and verifies admin bearer tokens.
	JWTSecret string `json:"jwt_secret"`

	// TokenTTL is how long an issued token stays valid.
	TokenTTL time.Duration `json:"-"`

	// UploadDir is the filesystem root for uploaded report files.
	UploadDir string `json:"upload_dir"`

	// MaxFileSize is the largest accepted upload in bytes.
	MaxFileSize int64 `json:"max_file_size"`

	// Environment is "development" or "production".
	Environment string `json:"environment"`

	// LogLevel is a zap level name.
	LogLevel string `json:"log_level"`

	// StorageBackend selects where uploads go: "disk" or "s3".
	StorageBackend string `json:"storage_backend"`

	S3Bucket    string `json:"s3_bucket"`
	S3Region    string `json:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`

	// SeedAdminUsername and SeedAdminPassword describe the default
	// administrator created on first start.
	SeedAdminUsername string `json:"admin_username"`
	SeedAdminPassword string `json:"admin_password"`
}

// IsProduction reports whether the service runs in production mode.
func (o *Options) IsProduction() bool {
	return o.Environment == "production"
}

func defaults() *Options {
	return &Options{
		Port:              "localhost:3000",
		JWTSecret:         DefaultJWTSecret,
		TokenTTL:          DefaultTokenTTL,
		UploadDir:         "uploads",
		MaxFileSize:       DefaultMaxFileSize,
		Environment:       "development",
		LogLevel:          "info",
		StorageBackend:    "disk",
		S3Region:          "us-east-1",
		SeedAdminUsername: "admin",
		SeedAdminPassword: "Admin@123",
	}
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() (*Options, error) {
	return ParseArgs(os.Args[1:], os.Getenv)
}

// ParseArgs is Parse with explicit arguments and environment lookup.
//
// Precedence, lowest first: defaults, JSON config file, flags, environment.
func ParseArgs(args []string, getenv func(string) string) (*Options, error) {
	options := defaults()

	// The config path has to be known before the file can be layered under
	// the flags, so it is looked up in a first pass.
	configPath := "config.json"
	pre := flag.NewFlagSet("config", flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	pre.StringVar(&configPath, "config", configPath, "")
	pre.StringVar(&configPath, "c", configPath, "")
	_ = pre.Parse(filterConfigArgs(args))
	if v := getenv("CONFIG"); v != "" {
		configPath = v
	}
	options.Config = configPath

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", options.Port, "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", options.DatabaseDSN, "db address")
	fs.StringVar(&options.Config, "config", options.Config, "path to config file")
	fs.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	fs.StringVar(&options.JWTSecret, "s", options.JWTSecret, "jwt signing secret")
	fs.StringVar(&options.UploadDir, "u", options.UploadDir, "upload directory")
	fs.Int64Var(&options.MaxFileSize, "m", options.MaxFileSize, "max upload size in bytes")
	fs.StringVar(&options.Environment, "e", options.Environment, "environment (development|production)")
	fs.StringVar(&options.LogLevel, "l", options.LogLevel, "log level")
	fs.StringVar(&options.StorageBackend, "storage", options.StorageBackend, "upload storage backend (disk|s3)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := applyEnv(options, getenv); err != nil {
		return nil, err
	}

	if err := options.validate(); err != nil {
		return nil, err
	}
	return options, nil
}

func applyEnv(o *Options, getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		o.Port = ":" + v
	}
	if v := getenv("SERVER_ADDRESS"); v != "" {
		o.Port = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		o.DatabaseDSN = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		o.DatabaseDSN = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		o.JWTSecret = v
	}
	if v := getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		o.TokenTTL = d
	}
	if v := getenv("UPLOAD_DIR"); v != "" {
		o.UploadDir = v
	}
	if v := getenv("MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_FILE_SIZE: %w", err)
		}
		o.MaxFileSize = n
	}
	if v := getenv("NODE_ENV"); v != "" {
		o.Environment = v
	}
	if v := getenv("APP_ENV"); v != "" {
		o.Environment = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		o.LogLevel = v
	}
	if v := getenv("STORAGE_BACKEND"); v != "" {
		o.StorageBackend = v
	}
	if v := getenv("S3_BUCKET"); v != "" {
		o.S3Bucket = v
	}
	if v := getenv("S3_REGION"); v != "" {
		o.S3Region = v
	}
	if v := getenv("S3_ENDPOINT"); v != "" {
		o.S3Endpoint = v
	}
	if v := getenv("S3_ACCESS_KEY"); v != "" {
		o.S3AccessKey = v
	}
	if v := getenv("S3_SECRET_KEY"); v != "" {
		o.S3SecretKey = v
	}
	if v := getenv("ADMIN_USERNAME"); v != "" {
		o.SeedAdminUsername = v
	}
	if v := getenv("ADMIN_PASSWORD"); v != "" {
		o.SeedAdminPassword = v
	}
	return nil
}

func (o *Options) validate() error {
	if o.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive, got %d", o.MaxFileSize)
	}
	if o.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", o.TokenTTL)
	}
	switch o.StorageBackend {
	case "disk":
	case "s3":
		if o.S3Bucket == "" {
			return fmt.Errorf("s3 storage requires a bucket")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", o.StorageBackend)
	}
	return nil
}

// filterConfigArgs keeps only the -c/-config flags and their values.
func filterConfigArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "-c", "--c", "-config", "--config":
			out = append(out, a)
			if i+1 < len(args) {
				out = append(out, args[i+1])
				i++
			}
			continue
		}
		for _, p := range []string{"-c=", "--c=", "-config=", "--config="} {
			if len(a) > len(p) && a[:len(p)] == p {
				out = append(out, a)
				break
			}
		}
	}
	return out
}
